// Package engine is the query-resolution core: it translates a resource
// descriptor plus raw request parameters into store queries, runs them, and
// post-processes results with relation expansion and computed-field
// resolution. Controllers stay thin by delegating everything here.
package engine

import (
	"context"
	"fmt"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

// Params carries the raw list-query parameters of a request. Zero values
// mean "not supplied" and fall back to the resource's defaults.
type Params struct {
	Page    int
	PerPage int
	// Query is the free-text search term
	Query string
	// Filters maps filter attributes to the raw values present in the
	// request; absent attributes are skipped, not defaulted
	Filters map[string]string
}

// ValidationError carries per-attribute validation failures out of a write
// operation. The controller renders it as a 422 with the flat error map as
// the body.
type ValidationError struct {
	Errors resource.Errors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d attribute(s)", len(e.Errors))
}

// Engine resolves queries and writes for registered resources against the
// document store.
type Engine struct {
	store    store.Store
	registry *resource.Registry
}

// New creates an engine over the given store and registry.
func New(s store.Store, reg *resource.Registry) *Engine {
	return &Engine{store: s, registry: reg}
}

// Registry exposes the resource registry the engine resolves against.
func (e *Engine) Registry() *resource.Registry { return e.registry }

// Store exposes the underlying document store.
func (e *Engine) Store() store.Store { return e.store }

// buildQuery translates request parameters into a store query for the
// given resource: pagination defaults, the searchable-attribute OR
// predicate, and every registered filter whose attribute has a value in
// the request. A filter without an Apply function contributes an equality
// condition on its attribute.
func buildQuery(res *resource.Resource, params Params) store.Query {
	q := store.Query{
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if q.PerPage < 1 {
		q.PerPage = res.PerPage
	}
	q = q.Normalize()

	if params.Query != "" {
		q.Search = params.Query
		q.SearchAttributes = res.SearchableAttributes()
	}

	for _, filter := range res.Filters {
		value, present := params.Filters[filter.Attribute]
		if !present || value == "" {
			continue
		}
		if filter.Apply != nil {
			filter.Apply(&q, value)
			continue
		}
		q.Where(filter.Attribute, store.OpEqual, value)
	}

	return q
}

// FetchCollection returns one filtered, paginated, computed-field-enriched
// page of the resource's collection.
func (e *Engine) FetchCollection(ctx context.Context, res *resource.Resource, params Params) (*store.Result, error) {
	result, err := e.store.Fetch(ctx, res.Collection, buildQuery(res, params))
	if err != nil {
		return nil, err
	}
	ResolveComputedAll(res, result.Data)
	return result, nil
}

// FindRecord returns a single record with computed fields resolved, or
// store.ErrNotFound.
func (e *Engine) FindRecord(ctx context.Context, res *resource.Resource, id string) (store.Record, error) {
	record, err := e.store.Find(ctx, res.Collection, id)
	if err != nil {
		return nil, err
	}
	ResolveComputed(res, record)
	return record, nil
}

// relatedResource resolves a relation field of res to the field descriptor
// and its target resource.
func (e *Engine) relatedResource(res *resource.Resource, relation string) (resource.Field, *resource.Resource, error) {
	field, ok := res.FieldByAttribute(relation)
	if !ok || !field.Kind.Relation() {
		return resource.Field{}, nil, store.ErrNotFound
	}
	related, ok := e.registry.FindByName(field.Resource)
	if !ok {
		return resource.Field{}, nil, store.ErrNotFound
	}
	return field, related, nil
}

// FetchHasMany pages through the records a parent references in a has-many
// field, intersected with the related resource's own search and filters.
// Pagination follows the related resource's per-page default. A missing
// parent is store.ErrNotFound.
func (e *Engine) FetchHasMany(ctx context.Context, res *resource.Resource, parentID, relation string, params Params) (*store.Result, error) {
	parent, err := e.store.Find(ctx, res.Collection, parentID)
	if err != nil {
		return nil, err
	}

	field, related, err := e.relatedResource(res, relation)
	if err != nil {
		return nil, err
	}

	q := buildQuery(related, params)
	q.Where(related.PrimaryKey, store.OpIn, parent[field.Attribute])

	result, err := e.store.Fetch(ctx, related.Collection, q)
	if err != nil {
		return nil, err
	}
	ResolveComputedAll(related, result.Data)
	return result, nil
}

// FetchHasOne resolves a has-one field of a parent record to at most one
// related record. A missing parent is store.ErrNotFound; an absent
// reference or missing target is a nil record, not an error.
func (e *Engine) FetchHasOne(ctx context.Context, res *resource.Resource, parentID, relation string) (store.Record, error) {
	parent, err := e.store.Find(ctx, res.Collection, parentID)
	if err != nil {
		return nil, err
	}

	field, related, err := e.relatedResource(res, relation)
	if err != nil {
		return nil, err
	}

	reference, _ := parent[field.Attribute].(string)
	if reference == "" {
		return nil, nil
	}

	record, err := e.store.Find(ctx, related.Collection, reference)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ResolveComputed(related, record)
	return record, nil
}

// Create validates and inserts a new record. The BeforeInsert hook runs
// first so it can fill derived attributes, then validation, then the
// insert of non-computed attributes only, then AfterInsert.
func (e *Engine) Create(ctx context.Context, res *resource.Resource, payload store.Record) (store.Record, error) {
	payload = pickWritable(res, payload)

	if res.BeforeInsert != nil {
		hooked, err := res.BeforeInsert(ctx, payload)
		if err != nil {
			return nil, err
		}
		payload = hooked
	}

	if errs := resource.Validate(res, payload, false); errs.Any() {
		return nil, &ValidationError{Errors: errs}
	}

	record, err := e.store.Insert(ctx, res.Collection, payload)
	if err != nil {
		return nil, err
	}

	if res.AfterInsert != nil {
		if _, err := res.AfterInsert(ctx, record); err != nil {
			return nil, err
		}
	}

	ResolveComputed(res, record)
	return record, nil
}

// Update validates and persists a partial diff onto an existing record.
func (e *Engine) Update(ctx context.Context, res *resource.Resource, id string, payload store.Record) (store.Record, error) {
	if _, err := e.store.Find(ctx, res.Collection, id); err != nil {
		return nil, err
	}

	payload = pickWritable(res, payload)

	if res.BeforeUpdate != nil {
		hooked, err := res.BeforeUpdate(ctx, payload)
		if err != nil {
			return nil, err
		}
		payload = hooked
	}

	if errs := resource.Validate(res, payload, true); errs.Any() {
		return nil, &ValidationError{Errors: errs}
	}

	record, err := e.store.Update(ctx, res.Collection, id, payload)
	if err != nil {
		return nil, err
	}
	ResolveComputed(res, record)
	return record, nil
}

// Delete removes the given records and returns how many existed.
func (e *Engine) Delete(ctx context.Context, res *resource.Resource, ids []string) (int, error) {
	return e.store.Destroy(ctx, res.Collection, ids)
}

// RunAction fetches the selected records and invokes the action's handler
// with a collection handle. Unknown action ids and handler failures are
// explicit errors.
func (e *Engine) RunAction(ctx context.Context, res *resource.Resource, actionID string, ids []string) error {
	action, ok := res.ActionByID(actionID)
	if !ok {
		return fmt.Errorf("unknown action %q on resource %s", actionID, res.Slug)
	}

	records, err := e.store.FetchByIDs(ctx, res.Collection, ids)
	if err != nil {
		return err
	}

	handle := store.NewCollection(e.store, res.Collection)
	if err := action.Handle(ctx, handle, records); err != nil {
		return fmt.Errorf("action %q failed: %w", actionID, err)
	}
	return nil
}

// pickWritable keeps only attributes backed by a non-computed field.
// Computed attributes and unknown keys never reach the store.
func pickWritable(res *resource.Resource, payload store.Record) store.Record {
	out := store.Record{}
	for _, f := range res.NonComputedFields() {
		if value, ok := payload[f.Attribute]; ok {
			out[f.Attribute] = value
		}
	}
	return out
}

// ResolveComputed sets every computed attribute of the record from its
// resolver. Resolvers run against a snapshot of the raw persisted
// attributes, never prior computed output, which keeps resolution
// idempotent.
func ResolveComputed(res *resource.Resource, record store.Record) {
	if record == nil {
		return
	}
	computed := res.ComputedFields()
	if len(computed) == 0 {
		return
	}

	raw := record.Clone()
	for _, f := range computed {
		delete(raw, f.Attribute)
	}
	for _, f := range computed {
		record[f.Attribute] = f.Compute(raw)
	}
}

// ResolveComputedAll resolves computed fields across a page of records.
func ResolveComputedAll(res *resource.Resource, records []store.Record) {
	for _, record := range records {
		ResolveComputed(res, record)
	}
}
