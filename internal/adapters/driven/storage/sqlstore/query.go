package sqlstore

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

// likeEscape is the escape character for LIKE patterns. '!' needs no
// quoting in either engine, unlike backslash in MySQL string literals.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// containsPattern returns a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(s)) + "%"
}

// buildSearchQuery renders args as a parameterised SELECT. Values only ever
// travel as bind parameters.
//
// Keywords are ORed against title, abstract and excerpts. All other filters
// are ANDed.
func buildSearchQuery(args domain.SearchArgs) (string, []any, error) {
	if args.Limit <= 0 {
		return "", nil, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}

	var (
		where  []string
		params []any
	)

	if len(args.Keywords) > 0 {
		var ors []string
		for _, kw := range args.Keywords {
			p := containsPattern(kw)
			ors = append(ors,
				"LOWER(title) LIKE ? ESCAPE '"+likeEscape+"'",
				"LOWER(abstract) LIKE ? ESCAPE '"+likeEscape+"'",
				"LOWER(COALESCE(excerpts, '')) LIKE ? ESCAPE '"+likeEscape+"'")
			params = append(params, p, p, p)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	if args.DateFrom != nil {
		where = append(where, "publication_date >= ?")
		params = append(params, domain.DayKey(*args.DateFrom))
	}
	if args.DateTo != nil {
		where = append(where, "publication_date <= ?")
		params = append(params, domain.DayKey(*args.DateTo))
	}
	if args.DocumentType != "" {
		where = append(where, "document_type = ?")
		params = append(params, string(args.DocumentType))
	}
	if args.Agency != "" {
		where = append(where, "LOWER(agency) LIKE ? ESCAPE '"+likeEscape+"'")
		params = append(params, containsPattern(args.Agency))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectColumns)
	b.WriteString(" FROM federal_documents")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY publication_date DESC, document_id ASC LIMIT ?")
	params = append(params, args.Limit)

	return b.String(), params, nil
}
