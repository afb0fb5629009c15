package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchArgs_HasFilter(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, SearchArgs{Limit: 5}.HasFilter())
	assert.True(t, SearchArgs{Keywords: []string{"water"}}.HasFilter())
	assert.True(t, SearchArgs{DateFrom: &day}.HasFilter())
	assert.True(t, SearchArgs{DateTo: &day}.HasFilter())
	assert.True(t, SearchArgs{DocumentType: DocumentTypeNotice}.HasFilter())
	assert.True(t, SearchArgs{Agency: "Energy"}.HasFilter())
}

func TestSearchArgs_CacheKey(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := SearchArgs{Keywords: []string{"Water"}, DateFrom: &day, Limit: 5}
	b := SearchArgs{Keywords: []string{"water"}, DateFrom: &day, Limit: 5}
	c := SearchArgs{Keywords: []string{"water"}, DateTo: &day, Limit: 5}
	d := SearchArgs{Keywords: []string{"water"}, DateFrom: &day, Limit: 6}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, b.CacheKey(), c.CacheKey())
	assert.NotEqual(t, b.CacheKey(), d.CacheKey())
}
