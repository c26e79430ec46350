package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucent-admin/lucent/internal/store"
)

func postResource() *Resource {
	return &Resource{
		Name: "Post",
		Fields: []Field{
			{Attribute: "title", Name: "Title", Kind: KindText, Searchable: true, Required: true},
			{Attribute: "body", Name: "Body", Kind: KindTextarea, Required: true},
			{Attribute: "published", Name: "Published", Kind: KindBoolean},
			{
				Attribute: "summary",
				Name:      "Summary",
				Kind:      KindText,
				Computed:  true,
				Compute: func(record map[string]any) any {
					title, _ := record["title"].(string)
					return title + "!"
				},
			},
		},
		Actions: []Action{
			{ID: "publish", Name: "Publish", Handle: func(ctx context.Context, c store.Collection, records []store.Record) error {
				return nil
			}},
		},
		Filters: []Filter{
			{Attribute: "published", Name: "Published", Default: "true"},
		},
	}
}

func TestRegisterAppliesDefaults(t *testing.T) {
	reg := NewRegistry()
	res := postResource()
	require.NoError(t, reg.Register(res))

	assert.Equal(t, "Posts", res.Title)
	assert.Equal(t, "posts", res.Slug)
	assert.Equal(t, "posts", res.Collection)
	assert.Equal(t, store.PrimaryKey, res.PrimaryKey)
	assert.Equal(t, 10, res.PerPage)
	assert.Equal(t, []int{10, 25, 50, 100}, res.PerPageOptions)
}

func TestRegisterRejectsDuplicateSlug(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(postResource()))

	err := reg.Register(postResource())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate resource slug")
}

func TestRegisterRejectsComputedFieldWithoutResolver(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&Resource{
		Name:   "Broken",
		Fields: []Field{{Attribute: "x", Kind: KindText, Computed: true}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no resolver")
}

func TestRegisterRejectsEmbeddedCycle(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&Resource{
		Name: "Tangle",
		Fields: []Field{
			{
				Attribute: "meta",
				Kind:      KindHasOneEmbedded,
				Resource:  "Meta",
				Fields: []Field{
					{
						Attribute: "inner",
						Kind:      KindHasOneEmbedded,
						Resource:  "Meta",
						Fields:    []Field{{Attribute: "x", Kind: KindText}},
					},
				},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycles")
}

func TestNonComputedFieldsPartition(t *testing.T) {
	res := postResource()
	res.applyDefaults()

	nonComputed := res.NonComputedFields()
	computed := res.ComputedFields()

	for _, f := range nonComputed {
		assert.False(t, f.Computed)
	}
	for _, f := range computed {
		assert.True(t, f.Computed)
	}
	assert.Equal(t, len(res.Fields), len(nonComputed)+len(computed))
}

func TestSerializeContainsOnlyBooleans(t *testing.T) {
	res := postResource()
	res.AuthorizedToDelete = func(user store.Record) bool {
		return user["role"] == "owner"
	}
	res.applyDefaults()

	out := res.Serialize(store.Record{"role": "viewer"})

	for _, key := range []string{"authorizedToCreate", "authorizedToView", "authorizedToUpdate", "authorizedToDelete"} {
		_, ok := out[key].(bool)
		assert.True(t, ok, "%s must serialize as a boolean", key)
	}
	assert.Equal(t, true, out["authorizedToView"])
	assert.Equal(t, false, out["authorizedToDelete"])

	actions, ok := out["actions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, actions, 1)
	assert.Equal(t, "publish", actions[0]["id"])
	// Handler functions never cross the wire.
	_, hasHandle := actions[0]["handle"]
	assert.False(t, hasHandle)
}

func TestSerializeIsPure(t *testing.T) {
	res := postResource()
	res.applyDefaults()
	user := store.Record{"role": "viewer"}

	first := res.Serialize(user)
	second := res.Serialize(user)
	assert.Equal(t, first, second)
}

func TestPluralize(t *testing.T) {
	cases := map[string]string{
		"Post":     "Posts",
		"Category": "Categories",
		"Box":      "Boxes",
		"Person":   "people",
		"Day":      "Days",
	}
	for singular, want := range cases {
		assert.Equal(t, want, pluralize(singular), singular)
	}
}

func TestFieldDefaultComponent(t *testing.T) {
	assert.Equal(t, "form-checkbox", Field{Kind: KindBoolean}.DefaultComponent())
	assert.Equal(t, "form-text", Field{Kind: KindText}.DefaultComponent())
	assert.Equal(t, "custom-widget", Field{Kind: KindText, Component: "custom-widget"}.DefaultComponent())
}
