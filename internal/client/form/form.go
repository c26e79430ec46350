// Package form is the state engine behind the record editor. It keeps the
// working values and the error map congruent with a resource's field tree,
// applies change events immutably, and packages submissions, uploading
// files one at a time and tracking the stored paths they replace.
package form

import (
	"context"
	"fmt"
	"time"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

// Path addresses one slot in the form: an attribute name optionally
// nested under embedded parents, to arbitrary depth.
type Path []string

// NewPath builds a path from its segments.
func NewPath(segments ...string) Path {
	return Path(segments)
}

// Child extends the path by one nested attribute.
func (p Path) Child(name string) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = name
	return child
}

func (p Path) String() string {
	out := ""
	for i, seg := range p {
		if i > 0 {
			out += "."
		}
		out += seg
	}
	return out
}

// File is a user-selected file that has not been uploaded yet.
type File struct {
	Name    string
	Content []byte
}

// Uploader sends one file to the server and returns its stored path.
type Uploader interface {
	Upload(ctx context.Context, file *File) (string, error)
}

// SaveMode selects what happens after a successful save.
type SaveMode int

const (
	// SaveAndReturn navigates back to the list after saving.
	SaveAndReturn SaveMode = iota
	// SaveAndContinue stays in the editor: re-defaults the form when
	// creating, keeps the record when editing.
	SaveAndContinue
)

// State holds the editor's working values.
//
// Form carries the current input values, Errors the per-attribute
// messages adopted from a 422 response, Prepared the last payload that
// reached the server (used to detect replaced uploads), and StaleFiles
// the stored paths awaiting server-side cleanup.
type State struct {
	Resource   *resource.Resource
	Form       store.Record
	Errors     resource.Errors
	Prepared   store.Record
	StaleFiles []string
	Editing    bool
}

// NewState initializes the form for a brand-new record, giving every
// field a type-appropriate default.
func NewState(res *resource.Resource) State {
	return State{
		Resource: res,
		Form:     defaults(res.Fields),
		Errors:   resource.Errors{},
		Prepared: store.Record{},
	}
}

// NewEditState initializes the form for an existing record: fetched
// values win, fields the record is missing fall back to their defaults.
func NewEditState(res *resource.Resource, record store.Record) State {
	form := defaults(res.Fields)
	for attr, value := range record {
		if attr == store.PrimaryKey {
			continue
		}
		form[attr] = value
	}
	return State{
		Resource: res,
		Form:     form,
		Errors:   resource.Errors{},
		Prepared: form.Clone(),
		Editing:  true,
	}
}

// defaults derives the initial value for every non-computed field.
func defaults(fields []resource.Field) store.Record {
	out := store.Record{}
	for _, f := range fields {
		if f.Computed || f.Kind == resource.KindID {
			continue
		}
		out[f.Attribute] = defaultValue(f)
	}
	return out
}

func defaultValue(f resource.Field) any {
	switch f.Kind {
	case resource.KindDate:
		if f.EnableTime {
			return time.Now().Format("2006-01-02 15:04")
		}
		return time.Now().Format("2006-01-02")
	case resource.KindBoolean:
		return false
	case resource.KindHasMany, resource.KindHasManyEmbedded:
		return []any{}
	case resource.KindHasOneEmbedded:
		nested := store.Record{}
		for _, sub := range f.Fields {
			if !sub.Computed && sub.Kind != resource.KindID {
				nested[sub.Attribute] = defaultValue(sub)
			}
		}
		return map[string]any(nested)
	default:
		return ""
	}
}

// Change is one input event from the editor. Each variant produces a
// deterministic transition; every other slot of the form is preserved.
type Change interface {
	isChange()
}

// MultiSelect replaces a multi-value slot wholesale.
type MultiSelect struct {
	Path   Path
	Values []string
}

// DateChange sets a date slot and clears its error.
type DateChange struct {
	Path  Path
	Value string
}

// Toggle flips the boolean at the path. The current state is inverted;
// the event carries no value.
type Toggle struct {
	Path Path
}

// FileSelect stores the raw file at the path and clears its error.
type FileSelect struct {
	Path Path
	File *File
}

// Input sets a text-like slot and clears its error.
type Input struct {
	Path  Path
	Value string
}

func (MultiSelect) isChange() {}
func (DateChange) isChange()  {}
func (Toggle) isChange()      {}
func (FileSelect) isChange()  {}
func (Input) isChange()       {}

// Apply produces the next state for a change event. The previous state is
// not mutated; maps along the changed path are copied, untouched slots
// are shared.
func Apply(s State, change Change) State {
	switch c := change.(type) {
	case MultiSelect:
		values := make([]any, len(c.Values))
		for i, v := range c.Values {
			values[i] = v
		}
		s.Form = setAt(s.Form, c.Path, values)
	case DateChange:
		s.Form = setAt(s.Form, c.Path, c.Value)
		s.Errors = clearAt(s.Errors, c.Path)
	case Toggle:
		current, _ := getAt(s.Form, c.Path).(bool)
		s.Form = setAt(s.Form, c.Path, !current)
	case FileSelect:
		s.Form = setAt(s.Form, c.Path, c.File)
		s.Errors = clearAt(s.Errors, c.Path)
	case Input:
		s.Form = setAt(s.Form, c.Path, c.Value)
		s.Errors = clearAt(s.Errors, c.Path)
	}
	return s
}

// getAt reads the value at a path, or nil.
func getAt(form store.Record, path Path) any {
	var current any = map[string]any(form)
	for _, seg := range path {
		m, ok := current.(map[string]any)
		if !ok {
			if r, ok := current.(store.Record); ok {
				m = map[string]any(r)
			} else {
				return nil
			}
		}
		current = m[seg]
	}
	return current
}

// setAt writes a value at a path, copying each map along the way.
func setAt(form store.Record, path Path, value any) store.Record {
	if len(path) == 0 {
		return form
	}
	return store.Record(setInMap(map[string]any(form), path, value))
}

func setInMap(m map[string]any, path Path, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}

	head := path[0]
	if len(path) == 1 {
		out[head] = value
		return out
	}

	nested := map[string]any{}
	switch existing := out[head].(type) {
	case map[string]any:
		nested = existing
	case store.Record:
		nested = map[string]any(existing)
	}
	out[head] = setInMap(nested, path[1:], value)
	return out
}

// clearAt removes the error slot for a path, copying along the way.
func clearAt(errs resource.Errors, path Path) resource.Errors {
	if len(path) == 0 || len(errs) == 0 {
		return errs
	}

	out := resource.Errors{}
	for k, v := range errs {
		out[k] = v
	}

	head := path[0]
	if len(path) == 1 {
		delete(out, head)
		return out
	}

	if nested, ok := out[head].(map[string]any); ok {
		out[head] = map[string]any(clearAt(resource.Errors(nested), path[1:]))
	}
	return out
}

// ApplyErrors adopts a 422 response body as the form's error state.
func ApplyErrors(s State, errs resource.Errors) State {
	if errs == nil {
		errs = resource.Errors{}
	}
	s.Errors = errs
	return s
}

// PrepareSubmission walks the form and uploads every pending file, one at
// a time, substituting the returned path string in place. A stored path
// being replaced is recorded in StaleFiles once. The first failed upload
// aborts the walk and returns the original state unchanged.
//
// The returned payload is the prepared form plus the staleFiles list for
// the server to clean up.
func PrepareSubmission(ctx context.Context, s State, uploader Uploader) (State, store.Record, error) {
	prepared, stale, err := prepareValue(ctx, map[string]any(s.Form), map[string]any(s.Prepared), s.StaleFiles, uploader)
	if err != nil {
		return s, nil, err
	}

	s.Prepared = store.Record(prepared)
	s.StaleFiles = stale

	payload := store.Record(prepared).Clone()
	if len(stale) > 0 {
		payload["staleFiles"] = append([]string(nil), stale...)
	}
	return s, payload, nil
}

// prepareValue uploads files in one level of the form, recursing into
// embedded mappings. Uploads happen sequentially in map-iteration order;
// the bookkeeping never races because nothing is concurrent.
func prepareValue(ctx context.Context, form, previous map[string]any, stale []string, uploader Uploader) (map[string]any, []string, error) {
	out := make(map[string]any, len(form))
	var err error

	for attr, value := range form {
		switch v := value.(type) {
		case *File:
			path, uploadErr := uploader.Upload(ctx, v)
			if uploadErr != nil {
				return nil, nil, fmt.Errorf("upload %s: %w", attr, uploadErr)
			}
			if prev, ok := previous[attr].(string); ok && prev != "" {
				stale = appendOnce(stale, prev)
			}
			out[attr] = path
		case map[string]any:
			prevNested, _ := previous[attr].(map[string]any)
			out[attr], stale, err = prepareValue(ctx, v, prevNested, stale, uploader)
			if err != nil {
				return nil, nil, err
			}
		case store.Record:
			prevNested, _ := previous[attr].(map[string]any)
			out[attr], stale, err = prepareValue(ctx, map[string]any(v), prevNested, stale, uploader)
			if err != nil {
				return nil, nil, err
			}
		default:
			out[attr] = value
		}
	}

	return out, stale, nil
}

func appendOnce(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// Saved records a successful save. StaleFiles are the server's problem
// now; the form adopts the saved record. With SaveAndContinue on a new
// record, the form re-defaults for the next entry.
func Saved(s State, record store.Record, mode SaveMode) State {
	s.StaleFiles = nil
	s.Errors = resource.Errors{}

	if !s.Editing && mode == SaveAndContinue {
		fresh := NewState(s.Resource)
		return fresh
	}

	if record != nil {
		s = NewEditState(s.Resource, record)
	}
	return s
}
