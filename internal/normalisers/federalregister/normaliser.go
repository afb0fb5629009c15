// Package federalregister maps Federal Register API listing items to Documents.
package federalregister

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.DocumentNormaliser = (*Normaliser)(nil)

// Normaliser handles documents.json result items.
type Normaliser struct{}

// New creates a new Federal Register normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// ItemContent is the subset of a listing item the store keeps.
type ItemContent struct {
	DocumentNumber         string          `json:"document_number"`
	Title                  string          `json:"title"`
	Type                   string          `json:"type"`
	Abstract               *string         `json:"abstract"`
	PublicationDate        string          `json:"publication_date"`
	HTMLURL                string          `json:"html_url"`
	PDFURL                 string          `json:"pdf_url"`
	PublicInspectionPDFURL string          `json:"public_inspection_pdf_url"`
	Excerpts               *string         `json:"excerpts"`
	Agencies               []AgencyContent `json:"agencies"`
}

// AgencyContent is one entry of an item's agency list.
type AgencyContent struct {
	RawName string `json:"raw_name"`
	Name    string `json:"name"`
}

// label returns the best available display name.
func (a AgencyContent) label() string {
	if a.RawName != "" {
		return a.RawName
	}
	return a.Name
}

// Normalise decodes one listing item.
// document_number, title and a YYYY-MM-DD publication_date are required.
func (n *Normaliser) Normalise(raw json.RawMessage) (*domain.Document, error) {
	var item ItemContent
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: decode item: %w", domain.ErrParse, err)
	}

	id := strings.TrimSpace(item.DocumentNumber)
	if id == "" {
		return nil, fmt.Errorf("%w: missing document_number", domain.ErrParse)
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: document %s: missing title", domain.ErrParse, id)
	}
	published, err := domain.ParseDay(strings.TrimSpace(item.PublicationDate))
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %w", domain.ErrParse, id, err)
	}

	docType := domain.DocumentType(strings.TrimSpace(item.Type))
	if canonical, ok := domain.ParseDocumentType(item.Type); ok {
		docType = canonical
	}

	doc := &domain.Document{
		ID:              id,
		Title:           title,
		PublicationDate: published,
		Type:            docType,
		Abstract:        derefTrim(item.Abstract),
		RawFields:       rawFields(&item),
	}
	if len(item.Agencies) > 0 {
		doc.Agency = item.Agencies[0].label()
	}

	return doc, nil
}

// rawFields collects auxiliary attributes. Empty values are omitted so the
// content hash is unaffected by null versus missing.
func rawFields(item *ItemContent) map[string]any {
	fields := make(map[string]any)
	setIf := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	setIf("html_url", item.HTMLURL)
	setIf("pdf_url", item.PDFURL)
	setIf("public_inspection_pdf_url", item.PublicInspectionPDFURL)
	setIf("excerpts", derefTrim(item.Excerpts))

	if len(item.Agencies) > 1 {
		names := make([]any, 0, len(item.Agencies))
		for _, a := range item.Agencies {
			if l := a.label(); l != "" {
				names = append(names, l)
			}
		}
		fields["agency_names"] = names
	}

	return fields
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
