package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockSource implements driven.DocumentSource with fixed pages per day.
// Cursors are page indexes as strings.
type mockSource struct {
	mu sync.Mutex

	// pages maps YYYY-MM-DD to the item IDs on each page.
	pages map[string][][]string

	// failures maps YYYY-MM-DD to an error returned for every request.
	failures map[string]error

	// flaky maps YYYY-MM-DD to the number of leading requests that fail
	// with domain.ErrNetwork.
	flaky map[string]int

	calls map[string]int
	block time.Duration
}

func newMockSource() *mockSource {
	return &mockSource{
		pages:    map[string][][]string{},
		failures: map[string]error{},
		flaky:    map[string]int{},
		calls:    map[string]int{},
	}
}

func (m *mockSource) FetchPage(ctx context.Context, day time.Time, cursor string) (*domain.SourcePage, error) {
	key := domain.DayKey(day)

	m.mu.Lock()
	m.calls[key]++
	n := m.calls[key]
	failure := m.failures[key]
	flaky := m.flaky[key]
	pages := m.pages[key]
	block := m.block
	m.mu.Unlock()

	if block > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, ctx.Err())
		case <-time.After(block):
		}
	}

	if failure != nil {
		return nil, failure
	}
	if n <= flaky {
		return nil, fmt.Errorf("%w: 503 from mock", domain.ErrNetwork)
	}

	idx := 0
	if cursor != "" {
		var err error
		if idx, err = strconv.Atoi(cursor); err != nil {
			return nil, fmt.Errorf("%w: bad cursor", domain.ErrInvalidInput)
		}
	}
	if idx >= len(pages) {
		return &domain.SourcePage{}, nil
	}

	page := &domain.SourcePage{}
	for _, id := range pages[idx] {
		page.Items = append(page.Items, rawItem(id, "Title "+id, key))
	}
	if idx+1 < len(pages) {
		page.NextCursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (m *mockSource) callCount(day string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[day]
}

func rawItem(id, title, published string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"id": id, "title": title, "date": published})
	return data
}

// mockSnapshotStore implements driven.SnapshotStore in memory.
type mockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*domain.RawSnapshot
	saveErr   error
	listErr   error
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{snapshots: map[string]*domain.RawSnapshot{}}
}

func (m *mockSnapshotStore) Save(_ context.Context, s *domain.RawSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[domain.DayKey(s.Day)] = s
	return nil
}

func (m *mockSnapshotStore) Load(_ context.Context, day time.Time) (*domain.RawSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[domain.DayKey(day)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockSnapshotStore) List(_ context.Context) ([]time.Time, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	days := make([]time.Time, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		days = append(days, s.Day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func (m *mockSnapshotStore) put(day string, items ...json.RawMessage) {
	d, _ := domain.ParseDay(day)
	m.snapshots[day] = &domain.RawSnapshot{Day: d, Items: items}
}

func (m *mockSnapshotStore) itemCount(day string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[day]; ok {
		return len(s.Items)
	}
	return -1
}

// mockNormaliser implements driven.DocumentNormaliser for {"id","title","date"} items.
type mockNormaliser struct{}

func (mockNormaliser) Normalise(raw json.RawMessage) (*domain.Document, error) {
	var item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Date  string `json:"date"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	if item.ID == "" || item.Title == "" {
		return nil, fmt.Errorf("%w: missing id or title", domain.ErrParse)
	}
	published, err := domain.ParseDay(item.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	return &domain.Document{
		ID:              item.ID,
		Title:           item.Title,
		PublicationDate: published,
		Type:            domain.DocumentTypeNotice,
	}, nil
}

// mockDocumentStore implements driven.DocumentStore as a keyed map.
type mockDocumentStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document

	// failOn makes UpsertBatch fail when the batch contains this ID.
	failOn string

	searchResult []domain.Document
	searchErr    error

	// readErr fails Get and Count.
	readErr    error
	searchArgs []domain.SearchArgs
	batches    int
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{docs: map[string]domain.Document{}}
}

func (m *mockDocumentStore) UpsertBatch(
	_ context.Context,
	docs []domain.Document,
	seenAt time.Time,
) (domain.UpsertCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		if m.failOn != "" && d.ID == m.failOn {
			return domain.UpsertCounts{}, fmt.Errorf("%w: connection lost", domain.ErrStore)
		}
	}

	var counts domain.UpsertCounts
	for _, d := range docs {
		existing, ok := m.docs[d.ID]
		switch {
		case !ok:
			counts.Inserted++
			d.FirstSeenAt = seenAt
		case existing.ContentHash() == d.ContentHash():
			counts.Unchanged++
			d.FirstSeenAt = existing.FirstSeenAt
		default:
			counts.Updated++
			d.FirstSeenAt = existing.FirstSeenAt
		}
		d.LastSeenAt = seenAt
		m.docs[d.ID] = d
	}
	m.batches++
	return counts, nil
}

func (m *mockDocumentStore) Search(_ context.Context, args domain.SearchArgs) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchArgs = append(m.searchArgs, args)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := m.searchResult
	if len(out) > args.Limit {
		out = out[:args.Limit]
	}
	return out, nil
}

func (m *mockDocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (m *mockDocumentStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	return len(m.docs), nil
}

func (m *mockDocumentStore) Close() error { return nil }

// mockLLM implements driven.ToolCallingLLM with scripted replies.
type mockLLM struct {
	mu        sync.Mutex
	responses []*driven.GenerateResponse
	errs      []error
	requests  []driven.GenerateRequest
	delay     time.Duration
}

func (m *mockLLM) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResponse, error) {
	m.mu.Lock()
	i := len(m.requests)
	history := make([]domain.Turn, len(req.History))
	copy(history, req.History)
	req.History = history
	m.requests = append(m.requests, req)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, ctx.Err())
		case <-time.After(delay):
		}
	}

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return &driven.GenerateResponse{Text: "fallback"}, nil
}

func (m *mockLLM) ModelName() string { return "mock-model" }
func (m *mockLLM) Close() error      { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockMetrics implements driven.MetricsRecorder and counts events.
type mockMetrics struct {
	mu        sync.Mutex
	daysOK    int
	daysFail  int
	inserted  int
	skipped   int
	tools     map[string]int
	llmCalls  int
	llmErrors int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{tools: map[string]int{}}
}

func (m *mockMetrics) DayFetched(ok bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.daysOK++
	} else {
		m.daysFail++
	}
}

func (m *mockMetrics) RecordsUpserted(inserted, _, _, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted += inserted
	m.skipped += skipped
}

func (m *mockMetrics) ToolInvoked(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[outcome]++
}

func (m *mockMetrics) LLMCalled(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmCalls++
	if err != nil {
		m.llmErrors++
	}
}

func mustDay(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// pageIDs builds n pages of size ids each, prefixed by day.
func pageIDs(day string, n, size int) [][]string {
	pages := make([][]string, n)
	for p := range pages {
		for i := 0; i < size; i++ {
			pages[p] = append(pages[p], fmt.Sprintf("%s-%02d-%02d", day, p, i))
		}
	}
	return pages
}
