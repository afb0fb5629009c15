package sqlstore

import (
	"strings"
	"time"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// documentColumns lists the insert columns in statement order.
var documentColumns = []string{
	"document_id",
	"title",
	"publication_date",
	"document_type",
	"agency",
	"abstract",
	"excerpts",
	"raw_fields",
	"content_hash",
	"first_seen_at",
	"last_seen_at",
}

// updatedColumns are overwritten on conflict. document_id is the key and
// first_seen_at is preserved.
var updatedColumns = []string{
	"title",
	"publication_date",
	"document_type",
	"agency",
	"abstract",
	"excerpts",
	"raw_fields",
	"content_hash",
	"last_seen_at",
}

// dialect captures the SQL differences between engines.
type dialect struct {
	name string

	// timeLayout formats and parses timestamp columns.
	timeLayout string

	// conflictClause renders the upsert suffix for the given columns.
	conflictClause func(cols []string) string
}

var sqliteDialect = dialect{
	name:       DriverSQLite,
	timeLayout: time.RFC3339Nano,
	conflictClause: func(cols []string) string {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = excluded." + c
		}
		return "ON CONFLICT(document_id) DO UPDATE SET " + strings.Join(sets, ", ")
	},
}

var mysqlDialect = dialect{
	name:       DriverMySQL,
	timeLayout: "2006-01-02 15:04:05.999999",
	conflictClause: func(cols []string) string {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = VALUES(" + c + ")"
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	},
}

// upsertSQL returns the insert-or-update statement for one document.
func (d dialect) upsertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(documentColumns)), ", ")
	return "INSERT INTO federal_documents (" + strings.Join(documentColumns, ", ") + ") VALUES (" +
		placeholders + ") " + d.conflictClause(updatedColumns)
}

func (d dialect) formatTime(t time.Time) string {
	return t.UTC().Format(d.timeLayout)
}

func (d dialect) parseTime(s string) (time.Time, error) {
	t, err := time.Parse(d.timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
