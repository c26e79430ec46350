// Package list is the state engine behind the record table: pagination
// display, row selection, bulk-action gating, per-column renderer
// dispatch, and a sequence guard that keeps a slow stale fetch from
// overwriting a newer one.
package list

import (
	"math"

	"github.com/lucent-admin/lucent/internal/engine"
	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

// State holds the table's working values for one resource.
type State struct {
	Resource *resource.Resource

	Rows  []store.Record
	Total int

	Page    int
	PerPage int
	Query   string
	Filters map[string]string

	Selected       []string
	SelectedAction string
	Confirming     bool
	Running        bool

	// Loading is true from the first issued fetch until any result or
	// failure lands. Failed fetches land in Failed so the view can show
	// an error instead of spinning forever.
	Loading bool
	Failed  bool

	// issued counts fetches started; applied remembers the newest fetch
	// whose result has landed. A result older than applied is dropped.
	issued  uint64
	applied uint64
}

// NewState initializes the table for a resource.
func NewState(res *resource.Resource) State {
	return State{
		Resource: res,
		Page:     1,
		PerPage:  res.PerPage,
		Filters:  map[string]string{},
		Loading:  true,
	}
}

// Params returns the fetch parameters for the current state.
func (s State) Params() engine.Params {
	return engine.Params{
		Page:    s.Page,
		PerPage: s.PerPage,
		Query:   s.Query,
		Filters: s.Filters,
	}
}

// PageCount is the number of pages for the current total.
func (s State) PageCount() int {
	if s.PerPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(s.Total) / float64(s.PerPage)))
}

// Range returns the display window for the current page, e.g. 21-23 for
// the third page of 23 records at 10 per page.
func (s State) Range() (from, to int) {
	if s.Total == 0 {
		return 0, 0
	}
	from = s.PerPage*(s.Page-1) + 1
	to = s.PerPage * s.Page
	if to > s.Total {
		to = s.Total
	}
	return from, to
}

// SetPage moves to a page. Any navigation clears the selection.
func SetPage(s State, page int) State {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return clearSelection(s)
}

// SetPerPage changes the page size and returns to the first page.
func SetPerPage(s State, perPage int) State {
	s.PerPage = perPage
	s.Page = 1
	return clearSelection(s)
}

// SetQuery changes the free-text search term and returns to the first
// page.
func SetQuery(s State, query string) State {
	s.Query = query
	s.Page = 1
	return clearSelection(s)
}

// SetFilter sets or clears one filter value and returns to the first
// page. An empty value removes the filter.
func SetFilter(s State, attribute, value string) State {
	filters := make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		filters[k] = v
	}
	if value == "" {
		delete(filters, attribute)
	} else {
		filters[attribute] = value
	}
	s.Filters = filters
	s.Page = 1
	return clearSelection(s)
}

func clearSelection(s State) State {
	s.Selected = nil
	s.Confirming = false
	return s
}

// ToggleSelect adds or removes one row from the selection.
func ToggleSelect(s State, id string) State {
	for i, sel := range s.Selected {
		if sel == id {
			s.Selected = append(append([]string(nil), s.Selected[:i]...), s.Selected[i+1:]...)
			return s
		}
	}
	s.Selected = append(append([]string(nil), s.Selected...), id)
	return s
}

// SelectAll toggles between every visible row selected and none. Calling
// it twice always ends with an empty selection.
func SelectAll(s State) State {
	if len(s.Selected) == len(s.Rows) && len(s.Rows) > 0 {
		s.Selected = nil
		return s
	}
	selected := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		selected = append(selected, row.ID())
	}
	s.Selected = selected
	return s
}

// SelectAction picks the bulk action to run.
func SelectAction(s State, actionID string) State {
	s.SelectedAction = actionID
	return s
}

// CanRunAction reports whether the run control is enabled: both a
// non-empty selection and a chosen action are required.
func (s State) CanRunAction() bool {
	return len(s.Selected) > 0 && s.SelectedAction != ""
}

// RequestAction opens the confirmation step. Dispatch happens only after
// ConfirmAction.
func RequestAction(s State) State {
	if !s.CanRunAction() {
		return s
	}
	s.Confirming = true
	return s
}

// ConfirmAction marks the action as dispatched.
func ConfirmAction(s State) State {
	if !s.Confirming {
		return s
	}
	s.Confirming = false
	s.Running = true
	return s
}

// CancelAction closes the confirmation step without dispatching.
func CancelAction(s State) State {
	s.Confirming = false
	return s
}

// ActionFinished records the outcome of a dispatched action. Failure
// resets the running flag so the control never hangs.
func ActionFinished(s State, err error) State {
	s.Running = false
	s.Failed = err != nil
	if err == nil {
		s.Selected = nil
	}
	return s
}

// BeginFetch marks a fetch as issued and returns its sequence token.
func BeginFetch(s State) (State, uint64) {
	s.issued++
	s.Loading = s.applied == 0
	return s, s.issued
}

// ApplyResult lands a fetch result. A token older than the newest applied
// result is stale and dropped, so out-of-order responses never overwrite
// newer state.
func ApplyResult(s State, token uint64, result *store.Result) State {
	if token <= s.applied {
		return s
	}
	s.applied = token
	s.Rows = result.Data
	s.Total = result.Total
	s.Loading = false
	s.Failed = false
	return s
}

// FetchFailed lands a fetch failure. The loading flag always clears; the
// view falls back to an error state instead of spinning.
func FetchFailed(s State, token uint64) State {
	if token <= s.applied {
		return s
	}
	s.applied = token
	s.Loading = false
	s.Failed = true
	return s
}

// Empty reports whether the table should render its placeholder row.
func (s State) Empty() bool {
	return !s.Loading && !s.Failed && len(s.Rows) == 0
}
