// Package sqlite provides a SQLite-backed storage.MetadataStore holding
// document and chunk rows. Each exported method runs in its own
// transaction; calls do not compose into larger transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	mime_type  TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	content      TEXT NOT NULL,
	sequence     INTEGER NOT NULL,
	embedding_id TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`

// Store is a SQLite-backed metadata store.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.MetadataStore = (*Store)(nil)

// NewStore opens (or creates) the metadata database inside dataDir.
// The database uses WAL mode for better concurrency and enforces foreign
// keys so chunk rows cascade with their document.
//
// Returns storage.MetadataStore interface to enforce abstraction.
func NewStore(dataDir string) (storage.MetadataStore, error) {
	return newStore(dataDir)
}

func newStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Pragmas go in the DSN so database/sql applies them to every pooled
	// connection, not just the one that happens to run an Exec.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SaveDocument inserts a document row.
func (s *Store) SaveDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, mime_type, size_bytes, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.Filename, doc.MimeType, doc.SizeBytes,
		string(doc.Status), doc.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document row by id.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, mime_type, size_bytes, status, created_at
		 FROM documents WHERE id = ?`, id.String())

	var (
		doc       core.Document
		rawID     string
		status    string
		createdAt int64
	)
	err := row.Scan(&rawID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}

	doc.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parsing document id %q: %w", rawID, err)
	}
	doc.Status = core.DocumentStatus(status)
	doc.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &doc, nil
}

// UpdateDocumentStatus sets the document's status.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ? WHERE id = ?`, string(status), id.String())
	if err != nil {
		return fmt.Errorf("updating document %s status: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document row; chunk rows cascade.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SaveChunks inserts chunk rows in a single transaction.
func (s *Store) SaveChunks(ctx context.Context, chunks []core.Chunk) error {
	for i := range chunks {
		if err := core.ValidateChunk(&chunks[i]); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, content, sequence, embedding_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID.String(), chunk.DocumentID.String(), chunk.Content,
			chunk.Sequence, chunk.EmbeddingID, createdAt.UnixMicro()); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// GetChunks retrieves a document's chunk rows ordered by sequence.
func (s *Store) GetChunks(ctx context.Context, documentID uuid.UUID) ([]core.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, sequence, embedding_id, created_at
		 FROM chunks WHERE document_id = ? ORDER BY sequence`, documentID.String())
	if err != nil {
		return nil, fmt.Errorf("querying chunks for %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []core.Chunk
	for rows.Next() {
		var (
			chunk     core.Chunk
			rawID     string
			rawDocID  string
			createdAt int64
		)
		if err := rows.Scan(&rawID, &rawDocID, &chunk.Content, &chunk.Sequence,
			&chunk.EmbeddingID, &createdAt); err != nil {
			return nil, err
		}
		if chunk.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parsing chunk id %q: %w", rawID, err)
		}
		if chunk.DocumentID, err = uuid.Parse(rawDocID); err != nil {
			return nil, fmt.Errorf("parsing chunk document id %q: %w", rawDocID, err)
		}
		chunk.CreatedAt = time.UnixMicro(createdAt).UTC()
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteChunks removes all chunk rows for a document.
// Deleting zero rows is not an error.
func (s *Store) DeleteChunks(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID.String())
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", documentID, err)
	}
	return nil
}
