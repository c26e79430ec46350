// Package resource defines the descriptor protocol of Lucent: typed field
// descriptors, filters, actions and authorization predicates bundled into a
// Resource, plus the registry they live in and the validation derived from
// them. Descriptors are authored once at startup and serialized to the
// client as the metadata that drives the whole generic UI.
package resource

import (
	"context"
	"strings"

	"github.com/lucent-admin/lucent/internal/store"
)

// Authorize decides whether the given signed-in user may perform an
// operation on a resource. A nil predicate means allowed.
type Authorize func(user store.Record) bool

// Hook is an optional lifecycle callback invoked by the engine around
// writes. It receives the record about to be (or just) persisted and may
// return a modified copy.
type Hook func(ctx context.Context, record store.Record) (store.Record, error)

// Resource describes one entity type: its fields, filters, actions,
// authorization rules and pagination defaults, backed by one document
// collection. Zero values for Title, Slug, Collection, PrimaryKey, PerPage
// and PerPageOptions are filled in during registration.
type Resource struct {
	// Name is the singular entity name, e.g. "Post"
	Name string
	// Title is the pluralized display name; defaults to the pluralized Name
	Title string
	// Slug is the pluralized lowercase routing key; defaults from Name
	Slug string
	// Collection is the backing store collection; defaults to the slug
	Collection string
	// PrimaryKey is the identity attribute; defaults to store.PrimaryKey
	PrimaryKey string
	// DisplayValue names the attribute used to render a record as text
	DisplayValue string

	PerPage        int
	PerPageOptions []int

	Fields  []Field
	Filters []Filter
	Actions []Action

	// Permissions the resource exposes to role definitions
	Permissions []string

	// HideFromNavigation keeps the resource out of the client's nav list
	HideFromNavigation bool

	// Authorization predicates; nil means allowed
	AuthorizedToCreate Authorize
	AuthorizedToView   Authorize
	AuthorizedToUpdate Authorize
	AuthorizedToDelete Authorize

	// Optional lifecycle hooks invoked by the engine when present
	BeforeInsert Hook
	AfterInsert  Hook
	BeforeUpdate Hook
}

// applyDefaults fills derived identity fields and pagination defaults.
// Called once by the registry; descriptors are immutable afterwards.
func (r *Resource) applyDefaults() {
	if r.Title == "" {
		r.Title = pluralize(r.Name)
	}
	if r.Slug == "" {
		r.Slug = strings.ToLower(pluralize(r.Name))
	}
	if r.Collection == "" {
		r.Collection = r.Slug
	}
	if r.PrimaryKey == "" {
		r.PrimaryKey = store.PrimaryKey
	}
	if r.PerPage == 0 {
		r.PerPage = 10
	}
	if len(r.PerPageOptions) == 0 {
		r.PerPageOptions = []int{10, 25, 50, 100}
	}
}

// NonComputedFields returns the fields eligible for write payloads.
// Computed fields are resolved read-side only and never persisted.
func (r *Resource) NonComputedFields() []Field {
	fields := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		if !f.Computed {
			fields = append(fields, f)
		}
	}
	return fields
}

// ComputedFields returns the fields resolved at read time.
func (r *Resource) ComputedFields() []Field {
	var fields []Field
	for _, f := range r.Fields {
		if f.Computed {
			fields = append(fields, f)
		}
	}
	return fields
}

// SearchableAttributes lists the attributes included in free-text queries.
func (r *Resource) SearchableAttributes() []string {
	var attrs []string
	for _, f := range r.Fields {
		if f.Searchable {
			attrs = append(attrs, f.Attribute)
		}
	}
	return attrs
}

// FieldByAttribute looks up a top-level field by its attribute name.
func (r *Resource) FieldByAttribute(attribute string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Attribute == attribute {
			return f, true
		}
	}
	return Field{}, false
}

// ActionByID looks up an action by id.
func (r *Resource) ActionByID(id string) (Action, bool) {
	for _, a := range r.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// CanCreate evaluates the create predicate for the given user.
func (r *Resource) CanCreate(user store.Record) bool { return allowed(r.AuthorizedToCreate, user) }

// CanView evaluates the view predicate for the given user.
func (r *Resource) CanView(user store.Record) bool { return allowed(r.AuthorizedToView, user) }

// CanUpdate evaluates the update predicate for the given user.
func (r *Resource) CanUpdate(user store.Record) bool { return allowed(r.AuthorizedToUpdate, user) }

// CanDelete evaluates the delete predicate for the given user.
func (r *Resource) CanDelete(user store.Record) bool { return allowed(r.AuthorizedToDelete, user) }

func allowed(predicate Authorize, user store.Record) bool {
	if predicate == nil {
		return true
	}
	return predicate(user)
}

// Serialize produces the client-visible projection of the resource for the
// given user. Authorization predicates are evaluated here; the output holds
// only their boolean results, never function values. Pure: it reads the
// descriptor and the user and touches nothing else.
func (r *Resource) Serialize(user store.Record) map[string]any {
	fields := make([]map[string]any, 0, len(r.Fields))
	for _, f := range r.Fields {
		fields = append(fields, f.serialize())
	}

	nonComputed := make([]map[string]any, 0, len(r.Fields))
	for _, f := range r.NonComputedFields() {
		nonComputed = append(nonComputed, f.serialize())
	}

	filters := make([]map[string]any, 0, len(r.Filters))
	for _, f := range r.Filters {
		filters = append(filters, f.serialize())
	}

	actions := make([]map[string]any, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, a.serialize())
	}

	return map[string]any{
		"name":                r.Name,
		"title":               r.Title,
		"slug":                r.Slug,
		"collection":          r.Collection,
		"primaryKey":          r.PrimaryKey,
		"displayValue":        r.DisplayValue,
		"perPage":             r.PerPage,
		"perPageOptions":      r.PerPageOptions,
		"permissions":         r.Permissions,
		"fields":              fields,
		"nonComputedFields":   nonComputed,
		"filters":             filters,
		"actions":             actions,
		"displayInNavigation": !r.HideFromNavigation,
		"authorizedToCreate":  r.CanCreate(user),
		"authorizedToView":    r.CanView(user),
		"authorizedToUpdate":  r.CanUpdate(user),
		"authorizedToDelete":  r.CanDelete(user),
	}
}

// pluralize converts a singular name to its plural form. Covers the
// regular English rules plus the handful of irregulars that show up in
// entity names.
func pluralize(word string) string {
	if word == "" {
		return word
	}

	irregulars := map[string]string{
		"person": "people",
		"child":  "children",
		"man":    "men",
		"woman":  "women",
	}
	if plural, ok := irregulars[strings.ToLower(word)]; ok {
		return plural
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

func isVowel(b byte) bool {
	return strings.ContainsRune("aeiouAEIOU", rune(b))
}
