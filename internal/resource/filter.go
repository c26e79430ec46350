package resource

import "github.com/lucent-admin/lucent/internal/store"

// ApplyFilter contributes conditions to an outgoing store query for one
// requested filter value.
type ApplyFilter func(q *store.Query, value string)

// Filter is a named, optional query predicate a resource offers on its list
// view. Default seeds the client's initial filter state only; the engine
// applies a filter solely when the request carries a value for its
// attribute.
type Filter struct {
	Attribute string
	Name      string
	Default   string
	Options   []SelectOption
	Apply     ApplyFilter
}

// serialize produces the client projection of the filter.
func (f Filter) serialize() map[string]any {
	out := map[string]any{
		"attribute": f.Attribute,
		"name":      f.Name,
		"default":   f.Default,
	}
	if len(f.Options) > 0 {
		options := make([]map[string]any, 0, len(f.Options))
		for _, option := range f.Options {
			options = append(options, map[string]any{
				"label": option.Label,
				"value": option.Value,
			})
		}
		out["options"] = options
	}
	return out
}
