package resource

import (
	"context"

	"github.com/lucent-admin/lucent/internal/store"
)

// ActionHandler performs a bulk operation over the selected records. The
// collection handle is bound to the resource's backing collection so the
// handler can persist whatever it changes.
type ActionHandler func(ctx context.Context, collection store.Collection, records []store.Record) error

// Action is a bulk operation invocable on a selected set of records of one
// resource.
type Action struct {
	// ID uniquely identifies the action within its resource
	ID string
	// Name is the display label shown in the action picker
	Name string
	// Destructive actions get a danger-styled confirmation on the client
	Destructive bool
	// Handle runs the action
	Handle ActionHandler
}

// serialize produces the client projection of the action.
func (a Action) serialize() map[string]any {
	return map[string]any{
		"id":            a.ID,
		"name":          a.Name,
		"isDestructive": a.Destructive,
	}
}
