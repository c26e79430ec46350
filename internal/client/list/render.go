package list

import (
	"strconv"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

// Renderer turns one cell value into display text.
type Renderer func(field resource.Field, record store.Record) string

// Renderers dispatches column rendering by component identifier. An
// unknown identifier renders nothing rather than failing the row.
type Renderers struct {
	byComponent map[string]Renderer
}

// NewRenderers builds a registry preloaded with the built-in components.
func NewRenderers() *Renderers {
	r := &Renderers{byComponent: map[string]Renderer{}}
	r.Register("form-text", renderText)
	r.Register("form-textarea", renderText)
	r.Register("form-number", renderText)
	r.Register("form-date", renderText)
	r.Register("form-select", renderText)
	r.Register("form-checkbox", renderBoolean)
	r.Register("form-file", renderText)
	return r
}

// Register adds or replaces a renderer for a component identifier.
func (r *Renderers) Register(component string, render Renderer) {
	r.byComponent[component] = render
}

// Render resolves the renderer for the field's component and applies it.
// A miss renders an empty cell.
func (r *Renderers) Render(field resource.Field, record store.Record) string {
	component := field.Component
	if component == "" {
		component = field.DefaultComponent()
	}
	render, ok := r.byComponent[component]
	if !ok {
		return ""
	}
	return render(field, record)
}

func renderText(field resource.Field, record store.Record) string {
	switch v := record[field.Attribute].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func renderBoolean(field resource.Field, record store.Record) string {
	if v, ok := record[field.Attribute].(bool); ok && v {
		return "Yes"
	}
	return "No"
}
