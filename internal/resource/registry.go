package resource

import (
	"fmt"

	"github.com/lucent-admin/lucent/internal/store"
)

// Registry holds every registered resource, indexed by slug. It is built at
// startup, validated as a whole, and passed by reference into the engine,
// the controllers and the client metadata endpoint; nothing reaches for it
// as ambient global state.
type Registry struct {
	resources []*Resource
	bySlug    map[string]*Resource
	byName    map[string]*Resource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bySlug: make(map[string]*Resource),
		byName: make(map[string]*Resource),
	}
}

// Register adds a resource, applying descriptor defaults first. It rejects
// duplicate slugs (the slug is the routing and cross-reference key),
// computed fields without a resolver, and embedded field trees that cycle
// back into themselves.
func (reg *Registry) Register(res *Resource) error {
	if res.Name == "" {
		return fmt.Errorf("resource name cannot be empty")
	}
	res.applyDefaults()

	if _, exists := reg.bySlug[res.Slug]; exists {
		return fmt.Errorf("duplicate resource slug %q", res.Slug)
	}
	if err := validateFields(res.Name, res.Fields, make(map[string]bool)); err != nil {
		return err
	}

	reg.resources = append(reg.resources, res)
	reg.bySlug[res.Slug] = res
	reg.byName[res.Name] = res
	return nil
}

// MustRegister registers a resource and panics on error. Registration runs
// during startup where a bad descriptor is a programming error.
func (reg *Registry) MustRegister(res *Resource) {
	if err := reg.Register(res); err != nil {
		panic(err)
	}
}

// Find returns the resource with the given slug.
func (reg *Registry) Find(slug string) (*Resource, bool) {
	res, ok := reg.bySlug[slug]
	return res, ok
}

// FindByName returns the resource with the given entity name. Relation
// fields reference their target this way.
func (reg *Registry) FindByName(name string) (*Resource, bool) {
	res, ok := reg.byName[name]
	return res, ok
}

// All returns the registered resources in registration order.
func (reg *Registry) All() []*Resource {
	return reg.resources
}

// Serialize produces the client projection of every registered resource
// for the given user.
func (reg *Registry) Serialize(user store.Record) []map[string]any {
	out := make([]map[string]any, 0, len(reg.resources))
	for _, res := range reg.resources {
		out = append(out, res.Serialize(user))
	}
	return out
}

// validateFields checks descriptor invariants recursively: computed fields
// carry a resolver, relation fields name a target, and embedded trees do
// not revisit a resource name already on the path (no cycles).
func validateFields(owner string, fields []Field, path map[string]bool) error {
	for _, f := range fields {
		if f.Attribute == "" {
			return fmt.Errorf("resource %s: field with empty attribute", owner)
		}
		if f.Computed && f.Compute == nil {
			return fmt.Errorf("resource %s: computed field %q has no resolver", owner, f.Attribute)
		}
		if f.Kind.Relation() && f.Resource == "" {
			return fmt.Errorf("resource %s: relation field %q names no target resource", owner, f.Attribute)
		}
		if f.Kind.Embedded() {
			if len(f.Fields) == 0 {
				return fmt.Errorf("resource %s: embedded field %q has no nested fields", owner, f.Attribute)
			}
			key := f.Resource
			if key == "" {
				key = f.Attribute
			}
			if path[key] {
				return fmt.Errorf("resource %s: embedded field %q cycles back into %q", owner, f.Attribute, key)
			}
			path[key] = true
			if err := validateFields(owner, f.Fields, path); err != nil {
				return err
			}
			delete(path, key)
		}
	}
	return nil
}
