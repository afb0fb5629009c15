package driven

import (
	"encoding/json"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// DocumentNormaliser maps one raw source item to a Document.
type DocumentNormaliser interface {
	// Normalise decodes raw. Items that are undecodable or missing
	// required fields return an error wrapping domain.ErrParse.
	Normalise(raw json.RawMessage) (*domain.Document, error)
}
