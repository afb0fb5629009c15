package services

import (
	"time"

	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// nopMetrics is substituted when no MetricsRecorder is configured.
type nopMetrics struct{}

var _ driven.MetricsRecorder = nopMetrics{}

func (nopMetrics) DayFetched(bool, int)                   {}
func (nopMetrics) RecordsUpserted(int, int, int, int)     {}
func (nopMetrics) ToolInvoked(string)                     {}
func (nopMetrics) LLMCalled(string, time.Duration, error) {}

func metricsOrNop(m driven.MetricsRecorder) driven.MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
