package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used for publication dates,
// snapshot names and tool arguments.
const DateLayout = "2006-01-02"

// DocumentType classifies a Federal Register document.
type DocumentType string

const (
	// DocumentTypeRule is a final rule.
	DocumentTypeRule DocumentType = "Rule"
	// DocumentTypeProposedRule is a proposed rule.
	DocumentTypeProposedRule DocumentType = "Proposed Rule"
	// DocumentTypeNotice is a notice.
	DocumentTypeNotice DocumentType = "Notice"
	// DocumentTypePresidential is a presidential document.
	DocumentTypePresidential DocumentType = "Presidential Document"
)

// DocumentTypes lists every accepted document type in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeRule,
	DocumentTypeProposedRule,
	DocumentTypeNotice,
	DocumentTypePresidential,
}

// documentTypeAliases maps lower-cased spellings to canonical types.
// Includes the Federal Register API's short codes.
var documentTypeAliases = map[string]DocumentType{
	"rule":                  DocumentTypeRule,
	"proposed rule":         DocumentTypeProposedRule,
	"notice":                DocumentTypeNotice,
	"presidential document": DocumentTypePresidential,
	"prorule":               DocumentTypeProposedRule,
	"presdocu":              DocumentTypePresidential,
}

// ParseDocumentType resolves a case-insensitive spelling to a DocumentType.
// Returns false for unknown values.
func ParseDocumentType(s string) (DocumentType, bool) {
	t, ok := documentTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Document is a persisted Federal Register document record.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the natural document number. Globally unique.
	ID string

	// Title is the document title.
	Title string

	// PublicationDate is the calendar day of publication (UTC midnight).
	PublicationDate time.Time

	// Type is the document type as reported by the source.
	Type DocumentType

	// Agency is the primary issuing agency.
	Agency string

	// Abstract is the summary text. May be empty.
	Abstract string

	// RawFields holds auxiliary attributes (URLs, excerpts, agency list).
	RawFields map[string]any

	// FirstSeenAt is when the record was first stored.
	// Set by the store; ignored on upsert input.
	FirstSeenAt time.Time

	// LastSeenAt is when the record was last observed in a snapshot.
	LastSeenAt time.Time
}

// ContentHash returns a stable digest of the mutable content fields.
// Timestamps are excluded so identical sightings hash the same.
func (d *Document) ContentHash() string {
	h := sha256.New()
	for _, part := range []string{
		d.ID,
		d.Title,
		d.PublicationDate.Format(DateLayout),
		string(d.Type),
		d.Agency,
		d.Abstract,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	// json.Marshal sorts map keys, so the encoding is deterministic.
	if len(d.RawFields) > 0 {
		raw, _ := json.Marshal(d.RawFields) //nolint:errcheck // values come from decoded JSON
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clone returns a copy of d that shares no maps or slices with it.
func (d Document) Clone() Document {
	if d.RawFields != nil {
		d.RawFields = cloneValue(d.RawFields).(map[string]any)
	}
	return d
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// URL returns the HTML URL from the raw fields, if present.
func (d *Document) URL() string {
	if v, ok := d.RawFields["html_url"].(string); ok {
		return v
	}
	return ""
}
