package domain

import "encoding/json"

// DocumentSummary is the projection of a Document returned to LLMs.
type DocumentSummary struct {
	DocumentID      string `json:"document_id"`
	Title           string `json:"title"`
	PublicationDate string `json:"publication_date"`
	DocumentType    string `json:"document_type,omitempty"`
	Agency          string `json:"agency,omitempty"`
	Abstract        string `json:"abstract,omitempty"`
	HTMLURL         string `json:"html_url,omitempty"`
}

// Summarise projects d for tool output.
func Summarise(d *Document) DocumentSummary {
	return DocumentSummary{
		DocumentID:      d.ID,
		Title:           d.Title,
		PublicationDate: DayKey(d.PublicationDate),
		DocumentType:    string(d.Type),
		Agency:          d.Agency,
		Abstract:        d.Abstract,
		HTMLURL:         d.URL(),
	}
}

// ToolEnvelope is the JSON body of a tool turn.
// Exactly one of Result or Error is meaningful.
type ToolEnvelope struct {
	Result  []DocumentSummary `json:"result,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ResultEnvelope wraps a successful search, including the no-match case.
func ResultEnvelope(res *SearchResult) ToolEnvelope {
	summaries := make([]DocumentSummary, len(res.Documents))
	for i := range res.Documents {
		summaries[i] = Summarise(&res.Documents[i])
	}
	n := len(summaries)
	env := ToolEnvelope{Result: summaries, Count: &n}
	if res.NoMatch || n == 0 {
		env.Message = NoMatchMessage
	}
	return env
}

// ErrorEnvelope wraps a tool failure.
func ErrorEnvelope(err error) ToolEnvelope {
	return ToolEnvelope{Error: err.Error()}
}

// IsError reports whether the envelope carries a failure.
func (e ToolEnvelope) IsError() bool {
	return e.Error != ""
}

// JSON encodes the envelope. An empty result encodes as [] rather than
// being omitted.
func (e ToolEnvelope) JSON() string {
	if e.IsError() {
		data, _ := json.Marshal(struct { //nolint:errcheck // plain strings
			Error string `json:"error"`
		}{e.Error})
		return string(data)
	}

	count := len(e.Result)
	if e.Count != nil {
		count = *e.Count
	}
	result := e.Result
	if result == nil {
		result = []DocumentSummary{}
	}
	data, _ := json.Marshal(struct { //nolint:errcheck // plain strings and ints
		Result  []DocumentSummary `json:"result"`
		Count   int               `json:"count"`
		Message string            `json:"message,omitempty"`
	}{result, count, e.Message})
	return string(data)
}

// TurnError is returned when an agent turn ends in the FAILED state.
type TurnError struct {
	// States is the state path up to and including StateFailed.
	States []AgentState

	// Err is the underlying failure.
	Err error
}

func (e *TurnError) Error() string {
	return "agent turn failed: " + e.Err.Error()
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
