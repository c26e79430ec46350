// Package store defines the document store contract the rest of Lucent is
// written against: open-map records grouped into named collections, with
// find/fetch/insert/update/destroy operations and a backend-agnostic filter
// model. Backends exist for memory, SQLite and Postgres.
package store

import (
	"context"
	"errors"
)

// PrimaryKey is the attribute every persisted record carries its identity
// under. Transient (pre-insert) records may lack it.
const PrimaryKey = "_id"

// ErrNotFound is returned when a record does not exist in its collection.
var ErrNotFound = errors.New("record not found")

// Record is an open mapping from attribute name to value.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's primary key, or an empty string for a transient
// record.
func (r Record) ID() string {
	id, _ := r[PrimaryKey].(string)
	return id
}

// Operator selects how a condition compares an attribute against a value.
type Operator int

const (
	// OpEqual matches records whose attribute equals the value
	OpEqual Operator = iota
	// OpIn matches records whose attribute is one of the listed values
	OpIn
	// OpContains matches records whose attribute contains the value as a
	// case-insensitive substring
	OpContains
	// OpGreaterOrEqual matches numerically
	OpGreaterOrEqual
	// OpLessOrEqual matches numerically
	OpLessOrEqual
)

// Condition is one attribute predicate of a query. Conditions are combined
// with AND.
type Condition struct {
	Attribute string
	Operator  Operator
	Value     any
}

// Query describes a filtered, paginated fetch against one collection.
// Page numbers are 1-indexed. Search is a free-text term matched as a
// case-insensitive substring against each of SearchAttributes, combined
// with OR; an empty attribute list makes the search a no-op rather than
// an empty result.
type Query struct {
	Page             int
	PerPage          int
	Search           string
	SearchAttributes []string
	Conditions       []Condition
}

// Normalize applies the 1-indexed page default and a per-page floor.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 10
	}
	return q
}

// Where appends a condition and returns the query for chaining.
func (q *Query) Where(attribute string, op Operator, value any) *Query {
	q.Conditions = append(q.Conditions, Condition{Attribute: attribute, Operator: op, Value: value})
	return q
}

// Result is one page of a fetch. Total counts the whole filtered set, not
// just the returned page.
type Result struct {
	Data  []Record `json:"data"`
	Total int      `json:"total"`
}

// Store is the document store contract. Implementations must treat each
// operation as atomic; there is no cross-record transaction guarantee.
type Store interface {
	// Find returns the record with the given id, or ErrNotFound.
	Find(ctx context.Context, collection, id string) (Record, error)

	// Fetch returns the requested page of the filtered collection.
	Fetch(ctx context.Context, collection string, q Query) (*Result, error)

	// FetchByIDs returns the records matching the given ids, skipping
	// ids that do not exist.
	FetchByIDs(ctx context.Context, collection string, ids []string) ([]Record, error)

	// Insert persists a new record, assigning a primary key when the
	// record does not carry one, and returns the persisted record.
	Insert(ctx context.Context, collection string, doc Record) (Record, error)

	// Update merges the given attributes into an existing record and
	// returns the updated record, or ErrNotFound.
	Update(ctx context.Context, collection, id string, changes Record) (Record, error)

	// Destroy removes the records with the given ids and returns how
	// many existed.
	Destroy(ctx context.Context, collection string, ids []string) (int, error)

	// Clear removes every record in the collection.
	Clear(ctx context.Context, collection string) error

	// Close releases backend resources.
	Close() error
}

// Collection binds a store to one collection name. Action handlers receive
// a Collection so they can persist changes without seeing the rest of the
// store surface.
type Collection struct {
	store Store
	name  string
}

// NewCollection creates a handle bound to the named collection.
func NewCollection(s Store, name string) Collection {
	return Collection{store: s, name: name}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Find returns one record by id.
func (c Collection) Find(ctx context.Context, id string) (Record, error) {
	return c.store.Find(ctx, c.name, id)
}

// Fetch returns a filtered page of the collection.
func (c Collection) Fetch(ctx context.Context, q Query) (*Result, error) {
	return c.store.Fetch(ctx, c.name, q)
}

// Insert persists a new record.
func (c Collection) Insert(ctx context.Context, doc Record) (Record, error) {
	return c.store.Insert(ctx, c.name, doc)
}

// Update merges attributes into an existing record.
func (c Collection) Update(ctx context.Context, id string, changes Record) (Record, error) {
	return c.store.Update(ctx, c.name, id, changes)
}

// Destroy removes records by id.
func (c Collection) Destroy(ctx context.Context, ids []string) (int, error) {
	return c.store.Destroy(ctx, c.name, ids)
}
