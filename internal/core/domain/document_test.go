package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want DocumentType
		ok   bool
	}{
		{"Rule", DocumentTypeRule, true},
		{"rule", DocumentTypeRule, true},
		{" Proposed Rule ", DocumentTypeProposedRule, true},
		{"PRORULE", DocumentTypeProposedRule, true},
		{"NOTICE", DocumentTypeNotice, true},
		{"Presidential Document", DocumentTypePresidential, true},
		{"PRESDOCU", DocumentTypePresidential, true},
		{"Memo", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDocumentType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentTypes_AllParse(t *testing.T) {
	for _, dt := range DocumentTypes {
		got, ok := ParseDocumentType(string(dt))
		require.True(t, ok, dt)
		assert.Equal(t, dt, got)
	}
}

func newTestDocument() Document {
	return Document{
		ID:              "2024-00001",
		Title:           "Air Quality Standards",
		PublicationDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Type:            DocumentTypeRule,
		Agency:          "Environmental Protection Agency",
		Abstract:        "Revises standards.",
		RawFields: map[string]any{
			"html_url": "https://www.federalregister.gov/d/2024-00001",
			"excerpts": "standards",
		},
	}
}

func TestDocument_ContentHash_IgnoresTimestamps(t *testing.T) {
	a := newTestDocument()
	b := newTestDocument()
	a.LastSeenAt = time.Now()
	b.LastSeenAt = time.Now().Add(time.Hour)
	b.FirstSeenAt = time.Now().Add(-time.Hour)

	assert.Equal(t, a.ContentHash(), b.ContentHash())
}

func TestDocument_ContentHash_ChangesWithContent(t *testing.T) {
	a := newTestDocument()
	b := newTestDocument()
	b.Title = "Air Quality Standards (Corrected)"
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())

	c := newTestDocument()
	c.RawFields["pdf_url"] = "https://example.test/x.pdf"
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}

func TestDocument_ContentHash_FieldBoundaries(t *testing.T) {
	a := newTestDocument()
	b := newTestDocument()
	a.Title, a.Agency = "ab", "c"
	b.Title, b.Agency = "a", "bc"
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())
}

func TestDocument_URL(t *testing.T) {
	doc := newTestDocument()
	assert.Equal(t, "https://www.federalregister.gov/d/2024-00001", doc.URL())

	doc.RawFields = nil
	assert.Empty(t, doc.URL())
}

func TestDocument_ContentHash_EmptyRawFields(t *testing.T) {
	a := newTestDocument()
	b := newTestDocument()
	a.RawFields = nil
	b.RawFields = map[string]any{}
	assert.Equal(t, a.ContentHash(), b.ContentHash())
}

func TestDocument_Clone(t *testing.T) {
	d := Document{
		ID: "2024-00001",
		RawFields: map[string]any{
			"excerpts":     "ozone",
			"agency_names": []any{"EPA"},
			"nested":       map[string]any{"k": []string{"a"}},
		},
	}
	hash := d.ContentHash()

	c := d.Clone()
	assert.Equal(t, hash, c.ContentHash())

	c.RawFields["excerpts"] = "changed"
	c.RawFields["agency_names"].([]any)[0] = "changed"
	c.RawFields["nested"].(map[string]any)["k"].([]string)[0] = "changed"

	assert.Equal(t, "ozone", d.RawFields["excerpts"])
	assert.Equal(t, []any{"EPA"}, d.RawFields["agency_names"])
	assert.Equal(t, []string{"a"}, d.RawFields["nested"].(map[string]any)["k"])
	assert.Equal(t, hash, d.ContentHash())

	assert.Nil(t, Document{ID: "x"}.Clone().RawFields)
}
