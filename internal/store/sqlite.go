package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists documents as JSON rows in a single SQLite table.
// It is the default embedded backend: one file, no external service.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writes; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return store, nil
}

// NewSQLiteStoreWithDB wraps an existing connection. The documents table
// must already exist; used by tests that supply a mock connection.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Find returns the record with the given id, or ErrNotFound.
func (s *SQLiteStore) Find(ctx context.Context, collection, id string) (Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", err)
	}
	return decodeDocument(data, id)
}

// Fetch returns the requested page of the filtered collection.
func (s *SQLiteStore) Fetch(ctx context.Context, collection string, q Query) (*Result, error) {
	q = q.Normalize()
	where, args := s.buildWhere(collection, q)

	var total int
	countQuery := "SELECT COUNT(*) FROM documents" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	pageQuery := "SELECT id, data FROM documents" + where + " ORDER BY rowid LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	data := make([]Record, 0, q.PerPage)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		doc, err := decodeDocument(raw, id)
		if err != nil {
			return nil, err
		}
		data = append(data, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return &Result{Data: data, Total: total}, nil
}

// FetchByIDs returns the records matching the given ids.
func (s *SQLiteStore) FetchByIDs(ctx context.Context, collection string, ids []string) ([]Record, error) {
	records := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := []any{collection}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? AND id IN ("+placeholders+") ORDER BY rowid",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		doc, err := decodeDocument(raw, id)
		if err != nil {
			return nil, err
		}
		records = append(records, doc)
	}
	return records, rows.Err()
}

// Insert persists a new record, assigning a primary key when absent.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, doc Record) (Record, error) {
	stored := doc.Clone()
	if stored.ID() == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		stored[PrimaryKey] = id
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, stored.ID(), string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return stored, nil
}

// Update merges the given attributes into an existing record.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, changes Record) (Record, error) {
	existing, err := s.Find(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	for k, v := range changes {
		if k == PrimaryKey {
			continue
		}
		existing[k] = v
	}

	data, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		string(data), collection, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return existing, nil
}

// Destroy removes records by id and reports how many existed.
func (s *SQLiteStore) Destroy(ctx context.Context, collection string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := []any{collection}
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to destroy records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// Clear removes every record in the collection.
func (s *SQLiteStore) Clear(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// buildWhere renders the query's search and conditions as SQL over the JSON
// column. Attribute names come from resource definitions registered at
// startup, never from requests, so the JSON paths are trusted.
func (s *SQLiteStore) buildWhere(collection string, q Query) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{collection}

	if q.Search != "" && len(q.SearchAttributes) > 0 {
		var or []string
		for _, attr := range q.SearchAttributes {
			or = append(or, "LOWER(COALESCE(json_extract(data, ?), '')) LIKE ?")
			args = append(args, "$."+attr, "%"+strings.ToLower(q.Search)+"%")
		}
		clauses = append(clauses, "("+strings.Join(or, " OR ")+")")
	}

	for _, cond := range q.Conditions {
		column := "json_extract(data, ?)"
		columnArgs := []any{"$." + cond.Attribute}
		if cond.Attribute == PrimaryKey {
			column = "id"
			columnArgs = nil
		}

		switch cond.Operator {
		case OpEqual:
			clauses = append(clauses, column+" = ?")
			args = append(append(args, columnArgs...), stringValue(cond.Value))
		case OpIn:
			values := valueList(cond.Value)
			if len(values) == 0 {
				// An empty id set matches nothing.
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			clauses = append(clauses, column+" IN ("+placeholders+")")
			args = append(args, columnArgs...)
			for _, v := range values {
				args = append(args, v)
			}
		case OpContains:
			clauses = append(clauses, "LOWER(COALESCE("+column+", '')) LIKE ?")
			args = append(append(args, columnArgs...), "%"+strings.ToLower(stringValue(cond.Value))+"%")
		case OpGreaterOrEqual:
			clauses = append(clauses, "CAST("+column+" AS REAL) >= ?")
			args = append(append(args, columnArgs...), cond.Value)
		case OpLessOrEqual:
			clauses = append(clauses, "CAST("+column+" AS REAL) <= ?")
			args = append(append(args, columnArgs...), cond.Value)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// decodeDocument unmarshals a stored document, restoring the id attribute
// from the id column.
func decodeDocument(raw, id string) (Record, error) {
	var doc Record
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	doc[PrimaryKey] = id
	return doc, nil
}
