package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/fedreg/internal/adapters/driven/storage/sqlstore/migrations"
	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Config selects and configures the database engine.
type Config struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string

	// Path is the SQLite database file. Defaults to ~/.fedreg/data/fedreg.db.
	Path string

	// DSN is the MySQL connection string, either driver form or mysql:// URL.
	DSN string
}

// Store is the relational store. It provides the DocumentStore interface
// through a wrapper type.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured engine and applies pending migrations.
func Open(cfg Config) (*Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverMySQL:
		return OpenMySQL(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrConfigInvalid, cfg.Driver)
	}
}

// OpenSQLite opens or creates a SQLite database file.
func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".fedreg", "data", "fedreg.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL lets chat sessions read while a pipeline run writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStore, err)
	}

	return newStore(db, sqliteDialect)
}

// OpenMySQL connects to a MySQL server.
func OpenMySQL(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: mysql dsn is required", domain.ErrConfigInvalid)
	}
	normalised, err := NormaliseMySQLDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigInvalid, err)
	}

	db, err := sql.Open("mysql", normalised)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStore, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	return newStore(db, mysqlDialect)
}

func newStore(db *sql.DB, d dialect) (*Store, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %w", domain.ErrStore, d.name, err)
	}

	s := &Store{db: db, dialect: d}

	sub, err := fs.Sub(migrations.FS, d.name)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("locating %s migrations: %w", d.name, err)
	}
	if err := s.migrate(sub); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStore, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the dialect name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// migrate runs all pending migrations in version order. Each file runs once
// and its version is recorded in schema_migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_federal_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		// MySQL rejects multi-statement Exec without multiStatements=true.
		for _, stmt := range splitStatements(string(content)) {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("executing migration %s: %w", name, err)
			}
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// splitStatements splits a migration file on semicolons at line ends.
// Migration files contain no semicolons inside literals.
func splitStatements(content string) []string {
	var stmts []string
	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const selectColumns = `document_id, title, publication_date, document_type, agency,
	abstract, raw_fields, first_seen_at, last_seen_at`

// UpsertBatch writes docs in one transaction. A prior read of each row's
// content hash classifies the write as insert, update or unchanged; the
// conflict clause of the upsert keeps the key unique regardless.
func (s *documentStore) UpsertBatch(
	ctx context.Context,
	docs []domain.Document,
	seenAt time.Time,
) (domain.UpsertCounts, error) {
	var counts domain.UpsertCounts
	if len(docs) == 0 {
		return counts, nil
	}

	d := s.store.dialect
	seen := d.formatTime(seenAt)

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("%w: beginning transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	lookup, err := tx.PrepareContext(ctx, "SELECT content_hash FROM federal_documents WHERE document_id = ?")
	if err != nil {
		return counts, fmt.Errorf("%w: preparing lookup: %w", domain.ErrStore, err)
	}
	defer lookup.Close()

	upsert, err := tx.PrepareContext(ctx, d.upsertSQL())
	if err != nil {
		return counts, fmt.Errorf("%w: preparing upsert: %w", domain.ErrStore, err)
	}
	defer upsert.Close()

	var batch domain.UpsertCounts
	for i := range docs {
		doc := &docs[i]
		hash := doc.ContentHash()

		var existing string
		err := lookup.QueryRowContext(ctx, doc.ID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			batch.Inserted++
		case err != nil:
			return counts, fmt.Errorf("%w: looking up %s: %w", domain.ErrStore, doc.ID, err)
		case existing == hash:
			batch.Unchanged++
		default:
			batch.Updated++
		}

		rawJSON, err := marshalRawFields(doc.RawFields)
		if err != nil {
			return counts, fmt.Errorf("marshalling raw fields for %s: %w", doc.ID, err)
		}

		_, err = upsert.ExecContext(ctx,
			doc.ID,
			doc.Title,
			domain.DayKey(doc.PublicationDate),
			string(doc.Type),
			doc.Agency,
			doc.Abstract,
			excerptsText(doc.RawFields),
			rawJSON,
			hash,
			seen,
			seen,
		)
		if err != nil {
			return counts, fmt.Errorf("%w: upserting %s: %w", domain.ErrStore, doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("%w: committing batch: %w", domain.ErrStore, err)
	}

	return batch, nil
}

// Search runs a parameterised query built from args.
func (s *documentStore) Search(ctx context.Context, args domain.SearchArgs) ([]domain.Document, error) {
	query, params, err := buildSearchQuery(args)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: searching documents: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading search rows: %w", domain.ErrStore, err)
	}

	return docs, nil
}

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM federal_documents WHERE document_id = ?", id)

	doc, err := s.scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// Count returns the number of stored documents.
func (s *documentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM federal_documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting documents: %w", domain.ErrStore, err)
	}
	return n, nil
}

// Close closes the underlying store.
func (s *documentStore) Close() error {
	return s.store.Close()
}

// ==================== Helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *documentStore) scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc                 domain.Document
		published, docType  string
		rawJSON             string
		firstSeen, lastSeen string
	)

	err := row.Scan(&doc.ID, &doc.Title, &published, &docType, &doc.Agency,
		&doc.Abstract, &rawJSON, &firstSeen, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrStore, err)
	}

	d := s.store.dialect
	if doc.PublicationDate, err = domain.ParseDay(published); err != nil {
		return nil, fmt.Errorf("%w: document %s: %w", domain.ErrStore, doc.ID, err)
	}
	if doc.FirstSeenAt, err = d.parseTime(firstSeen); err != nil {
		return nil, fmt.Errorf("%w: document %s first_seen_at: %w", domain.ErrStore, doc.ID, err)
	}
	if doc.LastSeenAt, err = d.parseTime(lastSeen); err != nil {
		return nil, fmt.Errorf("%w: document %s last_seen_at: %w", domain.ErrStore, doc.ID, err)
	}
	doc.Type = domain.DocumentType(docType)

	if rawJSON != "" && rawJSON != "null" {
		if err := json.Unmarshal([]byte(rawJSON), &doc.RawFields); err != nil {
			return nil, fmt.Errorf("%w: document %s raw_fields: %w", domain.ErrStore, doc.ID, err)
		}
	}

	return &doc, nil
}

func marshalRawFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// excerptsText returns the searchable excerpt text held in raw fields.
func excerptsText(fields map[string]any) string {
	switch v := fields["excerpts"].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
