package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PostgresStore persists documents as JSONB rows in a single Postgres
// table. Suited to deployments where the admin panel shares a database
// server with the application it administers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	inserted   BIGSERIAL,
	PRIMARY KEY (collection, id)
)`

// NewPostgresStore connects to the database at url and ensures the
// documents table exists.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Find returns the record with the given id, or ErrNotFound.
func (s *PostgresStore) Find(ctx context.Context, collection, id string) (Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", err)
	}
	return decodeDocument(string(data), id)
}

// Fetch returns the requested page of the filtered collection.
func (s *PostgresStore) Fetch(ctx context.Context, collection string, q Query) (*Result, error) {
	q = q.Normalize()
	where, args := s.buildWhere(collection, q)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	pageQuery := fmt.Sprintf(
		"SELECT id, data FROM documents%s ORDER BY inserted LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	pageArgs := append(append([]any{}, args...), q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := s.pool.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	data := make([]Record, 0, q.PerPage)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		doc, err := decodeDocument(string(raw), id)
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
func (s *PostgresStore) FetchByIDs(ctx context.Context, collection string, ids []string) ([]Record, error) {
	records := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id, data FROM documents WHERE collection = $1 AND id = ANY($2) ORDER BY inserted",
		collection, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		doc, err := decodeDocument(string(raw), id)
		if err != nil {
			return nil, err
		}
		records = append(records, doc)
	}
	return records, rows.Err()
}

// Insert persists a new record, assigning a primary key when absent.
func (s *PostgresStore) Insert(ctx context.Context, collection string, doc Record) (Record, error) {
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

	_, err = s.pool.Exec(ctx,
		"INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)",
		collection, stored.ID(), data,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return stored, nil
}

// Update merges the given attributes into an existing record. The merge is
// a single JSONB concatenation, so concurrent updates to different
// attributes do not clobber each other.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, changes Record) (Record, error) {
	merged := changes.Clone()
	delete(merged, PrimaryKey)

	patch, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode changes: %w", err)
	}

	var data []byte
	err = s.pool.QueryRow(ctx,
		"UPDATE documents SET data = data || $1 WHERE collection = $2 AND id = $3 RETURNING data",
		patch, collection, id,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return decodeDocument(string(data), id)
}

// Destroy removes records by id and reports how many existed.
func (s *PostgresStore) Destroy(ctx context.Context, collection string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = ANY($2)",
		collection, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to destroy records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear removes every record in the collection.
func (s *PostgresStore) Clear(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE collection = $1", collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// buildWhere renders the query's search and conditions as SQL over the
// JSONB column using positional parameters.
func (s *PostgresStore) buildWhere(collection string, q Query) (string, []any) {
	clauses := []string{"collection = $1"}
	args := []any{collection}

	next := func() int { return len(args) + 1 }

	if q.Search != "" && len(q.SearchAttributes) > 0 {
		var or []string
		for _, attr := range q.SearchAttributes {
			or = append(or, fmt.Sprintf("COALESCE(data->>$%d, '') ILIKE $%d", next(), next()+1))
			args = append(args, attr, "%"+q.Search+"%")
		}
		clauses = append(clauses, "("+strings.Join(or, " OR ")+")")
	}

	for _, cond := range q.Conditions {
		if cond.Attribute == PrimaryKey {
			switch cond.Operator {
			case OpEqual:
				clauses = append(clauses, fmt.Sprintf("id = $%d", next()))
				args = append(args, stringValue(cond.Value))
			case OpIn:
				values := valueList(cond.Value)
				if len(values) == 0 {
					clauses = append(clauses, "FALSE")
					continue
				}
				clauses = append(clauses, fmt.Sprintf("id = ANY($%d)", next()))
				args = append(args, values)
			}
			continue
		}

		switch cond.Operator {
		case OpEqual:
			clauses = append(clauses, fmt.Sprintf("data->>$%d = $%d", next(), next()+1))
			args = append(args, cond.Attribute, stringValue(cond.Value))
		case OpIn:
			values := valueList(cond.Value)
			if len(values) == 0 {
				clauses = append(clauses, "FALSE")
				continue
			}
			clauses = append(clauses, fmt.Sprintf("data->>$%d = ANY($%d)", next(), next()+1))
			args = append(args, cond.Attribute, values)
		case OpContains:
			clauses = append(clauses, fmt.Sprintf("COALESCE(data->>$%d, '') ILIKE $%d", next(), next()+1))
			args = append(args, cond.Attribute, "%"+stringValue(cond.Value)+"%")
		case OpGreaterOrEqual:
			clauses = append(clauses, fmt.Sprintf("(data->>$%d)::numeric >= $%d", next(), next()+1))
			args = append(args, cond.Attribute, cond.Value)
		case OpLessOrEqual:
			clauses = append(clauses, fmt.Sprintf("(data->>$%d)::numeric <= $%d", next(), next()+1))
			args = append(args, cond.Attribute, cond.Value)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
