package list

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

func tableResource() *resource.Resource {
	res := &resource.Resource{
		Name: "Post",
		Fields: []resource.Field{
			{Attribute: "title", Name: "Title", Kind: resource.KindText, Searchable: true},
			{Attribute: "published", Name: "Published", Kind: resource.KindBoolean},
		},
	}
	reg := resource.NewRegistry()
	reg.MustRegister(res)
	return res
}

func rows(n int) []store.Record {
	out := make([]store.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, store.Record{store.PrimaryKey: fmt.Sprintf("id-%d", i)})
	}
	return out
}

func TestRangeLastPartialPage(t *testing.T) {
	s := NewState(tableResource())
	s.Total = 23
	s.PerPage = 10
	s.Page = 3

	from, to := s.Range()
	assert.Equal(t, 21, from)
	assert.Equal(t, 23, to)
	assert.Equal(t, 3, s.PageCount())
}

func TestRangeFullPage(t *testing.T) {
	s := NewState(tableResource())
	s.Total = 20
	s.PerPage = 10
	s.Page = 2

	from, to := s.Range()
	assert.Equal(t, 11, from)
	assert.Equal(t, 20, to)
	assert.Equal(t, 2, s.PageCount())
}

func TestRangeEmpty(t *testing.T) {
	s := NewState(tableResource())
	from, to := s.Range()
	assert.Equal(t, 0, from)
	assert.Equal(t, 0, to)
	assert.Equal(t, 0, s.PageCount())
}

func TestSelectAllTwiceEndsEmpty(t *testing.T) {
	s := NewState(tableResource())
	s.Rows = rows(5)

	s = SelectAll(s)
	assert.Len(t, s.Selected, 5)

	s = SelectAll(s)
	assert.Empty(t, s.Selected)
}

func TestSelectAllAfterPartialSelection(t *testing.T) {
	s := NewState(tableResource())
	s.Rows = rows(3)

	s = ToggleSelect(s, "id-1")
	s = SelectAll(s)
	assert.Len(t, s.Selected, 3)
}

func TestToggleSelect(t *testing.T) {
	s := NewState(tableResource())
	s.Rows = rows(3)

	s = ToggleSelect(s, "id-1")
	assert.Equal(t, []string{"id-1"}, s.Selected)

	s = ToggleSelect(s, "id-1")
	assert.Empty(t, s.Selected)
}

func TestNavigationClearsSelection(t *testing.T) {
	base := NewState(tableResource())
	base.Rows = rows(3)
	base = SelectAll(base)
	require.NotEmpty(t, base.Selected)

	assert.Empty(t, SetPage(base, 2).Selected)
	assert.Empty(t, SetQuery(base, "go").Selected)
	assert.Empty(t, SetFilter(base, "published", "true").Selected)
	assert.Empty(t, SetPerPage(base, 25).Selected)
}

func TestNavigationResetsPage(t *testing.T) {
	s := NewState(tableResource())
	s.Page = 4

	assert.Equal(t, 1, SetQuery(s, "go").Page)
	assert.Equal(t, 1, SetFilter(s, "published", "true").Page)
	assert.Equal(t, 1, SetPerPage(s, 25).Page)
}

func TestActionGating(t *testing.T) {
	s := NewState(tableResource())
	s.Rows = rows(2)

	assert.False(t, s.CanRunAction())

	s = SelectAction(s, "publish")
	assert.False(t, s.CanRunAction(), "needs a selection too")

	s = ToggleSelect(s, "id-0")
	assert.True(t, s.CanRunAction())

	// dispatch requires explicit confirmation
	s = RequestAction(s)
	assert.True(t, s.Confirming)
	assert.False(t, s.Running)

	s = ConfirmAction(s)
	assert.False(t, s.Confirming)
	assert.True(t, s.Running)
}

func TestConfirmWithoutRequestIsNoop(t *testing.T) {
	s := NewState(tableResource())
	s = ConfirmAction(s)
	assert.False(t, s.Running)
}

func TestActionFailureResetsRunning(t *testing.T) {
	s := NewState(tableResource())
	s.Rows = rows(1)
	s = SelectAction(s, "publish")
	s = ToggleSelect(s, "id-0")
	s = ConfirmAction(RequestAction(s))

	s = ActionFinished(s, fmt.Errorf("boom"))
	assert.False(t, s.Running)
	assert.True(t, s.Failed)
	assert.NotEmpty(t, s.Selected, "failed actions keep the selection")

	s = ActionFinished(s, nil)
	assert.Empty(t, s.Selected)
	assert.False(t, s.Failed)
}

func TestStaleResponseDropped(t *testing.T) {
	s := NewState(tableResource())

	s, first := BeginFetch(s)
	s, second := BeginFetch(s)

	// the newer fetch lands first
	s = ApplyResult(s, second, &store.Result{Data: rows(2), Total: 2})
	assert.Equal(t, 2, s.Total)

	// the slow stale response must not overwrite it
	s = ApplyResult(s, first, &store.Result{Data: rows(9), Total: 9})
	assert.Equal(t, 2, s.Total)
	assert.Len(t, s.Rows, 2)
}

func TestFetchFailureClearsLoading(t *testing.T) {
	s := NewState(tableResource())
	assert.True(t, s.Loading)

	s, token := BeginFetch(s)
	s = FetchFailed(s, token)

	assert.False(t, s.Loading)
	assert.True(t, s.Failed)
	assert.False(t, s.Empty())
}

func TestEmptyState(t *testing.T) {
	s := NewState(tableResource())
	s, token := BeginFetch(s)
	s = ApplyResult(s, token, &store.Result{Data: nil, Total: 0})

	assert.True(t, s.Empty())
}

func TestRendererDispatch(t *testing.T) {
	r := NewRenderers()
	record := store.Record{"title": "Hello", "published": true}

	title := resource.Field{Attribute: "title", Kind: resource.KindText}
	assert.Equal(t, "Hello", r.Render(title, record))

	published := resource.Field{Attribute: "published", Kind: resource.KindBoolean}
	assert.Equal(t, "Yes", r.Render(published, record))
}

func TestRendererUnknownComponentFailsSoft(t *testing.T) {
	r := NewRenderers()
	field := resource.Field{Attribute: "title", Component: "crystal-ball"}

	assert.Equal(t, "", r.Render(field, store.Record{"title": "Hello"}))
}

func TestRendererRegisterCustom(t *testing.T) {
	r := NewRenderers()
	r.Register("badge", func(f resource.Field, rec store.Record) string {
		return "[" + rec[f.Attribute].(string) + "]"
	})

	field := resource.Field{Attribute: "title", Component: "badge"}
	assert.Equal(t, "[Hello]", r.Render(field, store.Record{"title": "Hello"}))
}
