package form

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
)

func profileResource() *resource.Resource {
	res := &resource.Resource{
		Name: "Profile",
		Fields: []resource.Field{
			{Attribute: "name", Name: "Name", Kind: resource.KindText, Required: true},
			{Attribute: "age", Name: "Age", Kind: resource.KindNumber},
			{Attribute: "active", Name: "Active", Kind: resource.KindBoolean},
			{Attribute: "joined", Name: "Joined", Kind: resource.KindDate},
			{Attribute: "tags", Name: "Tags", Kind: resource.KindHasMany, Resource: "Tag"},
			{Attribute: "avatar", Name: "Avatar", Kind: resource.KindFile},
			{
				Attribute: "settings",
				Name:      "Settings",
				Kind:      resource.KindHasOneEmbedded,
				Fields: []resource.Field{
					{Attribute: "x", Name: "X", Kind: resource.KindBoolean},
					{Attribute: "theme", Name: "Theme", Kind: resource.KindText},
				},
			},
		},
	}
	reg := resource.NewRegistry()
	reg.MustRegister(res)
	reg.MustRegister(&resource.Resource{
		Name:   "Tag",
		Fields: []resource.Field{{Attribute: "label", Kind: resource.KindText}},
	})
	return res
}

func TestDefaultsPerKind(t *testing.T) {
	s := NewState(profileResource())

	assert.Equal(t, "", s.Form["name"])
	assert.Equal(t, false, s.Form["active"])
	assert.Equal(t, []any{}, s.Form["tags"])
	assert.NotEmpty(t, s.Form["joined"])

	settings, ok := s.Form["settings"].(map[string]any)
	require.True(t, ok, "embedded field must default to a mapping, not nil")
	assert.Equal(t, false, settings["x"])
	assert.Equal(t, "", settings["theme"])
}

func TestEditStatePrefersFetchedValues(t *testing.T) {
	s := NewEditState(profileResource(), store.Record{
		"_id":    "p1",
		"name":   "Ada",
		"active": true,
	})

	assert.Equal(t, "Ada", s.Form["name"])
	assert.Equal(t, true, s.Form["active"])
	// missing fields still get their defaults
	assert.Equal(t, []any{}, s.Form["tags"])
	assert.True(t, s.Editing)
	_, hasID := s.Form["_id"]
	assert.False(t, hasID)
}

func TestToggleInvolution(t *testing.T) {
	s := NewState(profileResource())
	original := s.Form["active"].(bool)

	s = Apply(s, Toggle{Path: NewPath("active")})
	assert.Equal(t, !original, s.Form["active"])

	s = Apply(s, Toggle{Path: NewPath("active")})
	assert.Equal(t, original, s.Form["active"])
}

func TestNestedToggle(t *testing.T) {
	s := NewState(profileResource())

	s = Apply(s, Toggle{Path: NewPath("settings", "x")})
	settings := s.Form["settings"].(map[string]any)
	assert.Equal(t, true, settings["x"])
}

func TestInputPreservesOtherSlots(t *testing.T) {
	s := NewState(profileResource())
	s = Apply(s, Input{Path: NewPath("name"), Value: "Ada"})

	next := Apply(s, Input{Path: NewPath("age"), Value: "36"})

	assert.Equal(t, "Ada", next.Form["name"])
	assert.Equal(t, "36", next.Form["age"])
	// the previous state is untouched
	assert.Equal(t, "", s.Form["age"])
}

func TestInputClearsError(t *testing.T) {
	s := NewState(profileResource())
	s = ApplyErrors(s, resource.Errors{"name": "The name field is required."})

	s = Apply(s, Input{Path: NewPath("name"), Value: "Ada"})
	_, has := s.Errors["name"]
	assert.False(t, has)
}

func TestNestedErrorClearing(t *testing.T) {
	s := NewState(profileResource())
	s = ApplyErrors(s, resource.Errors{
		"name": "The name field is required.",
		"settings": map[string]any{
			"theme": "The theme field is required.",
		},
	})

	s = Apply(s, Input{Path: NewPath("settings", "theme"), Value: "dark"})

	nested, ok := s.Errors["settings"].(map[string]any)
	require.True(t, ok)
	_, has := nested["theme"]
	assert.False(t, has)
	assert.Equal(t, "The name field is required.", s.Errors["name"])
}

func TestMultiSelectReplacesWholesale(t *testing.T) {
	s := NewState(profileResource())
	s = Apply(s, MultiSelect{Path: NewPath("tags"), Values: []string{"t1", "t2"}})
	assert.Equal(t, []any{"t1", "t2"}, s.Form["tags"])

	s = Apply(s, MultiSelect{Path: NewPath("tags"), Values: []string{"t3"}})
	assert.Equal(t, []any{"t3"}, s.Form["tags"])
}

type fakeUploader struct {
	calls []string
	fail  bool
}

func (u *fakeUploader) Upload(ctx context.Context, file *File) (string, error) {
	if u.fail {
		return "", fmt.Errorf("network down")
	}
	u.calls = append(u.calls, file.Name)
	return fmt.Sprintf("/storage/stored-%d-%s", len(u.calls), file.Name), nil
}

func TestPrepareSubmissionUploadsFiles(t *testing.T) {
	s := NewState(profileResource())
	s = Apply(s, FileSelect{Path: NewPath("avatar"), File: &File{Name: "me.png"}})

	uploader := &fakeUploader{}
	s, payload, err := PrepareSubmission(context.Background(), s, uploader)
	require.NoError(t, err)

	assert.Equal(t, []string{"me.png"}, uploader.calls)
	assert.Equal(t, "/storage/stored-1-me.png", payload["avatar"])
	_, hasStale := payload["staleFiles"]
	assert.False(t, hasStale)
	assert.Equal(t, "/storage/stored-1-me.png", s.Prepared["avatar"])
}

func TestPrepareSubmissionStaleFileExactlyOnce(t *testing.T) {
	res := profileResource()
	s := NewEditState(res, store.Record{
		"_id":    "p1",
		"name":   "Ada",
		"avatar": "/storage/old.png",
	})

	s = Apply(s, FileSelect{Path: NewPath("avatar"), File: &File{Name: "new.png"}})

	uploader := &fakeUploader{}
	s, payload, err := PrepareSubmission(context.Background(), s, uploader)
	require.NoError(t, err)
	assert.Equal(t, []string{"/storage/old.png"}, s.StaleFiles)
	assert.Equal(t, []string{"/storage/old.png"}, payload["staleFiles"])

	// a second prepare in the same session must not enqueue the old path
	// again: the prepared form now holds the new stored path
	s = Apply(s, FileSelect{Path: NewPath("avatar"), File: &File{Name: "newer.png"}})
	s, payload, err = PrepareSubmission(context.Background(), s, uploader)
	require.NoError(t, err)

	count := 0
	for _, f := range s.StaleFiles {
		if f == "/storage/old.png" {
			count++
		}
	}
	assert.Equal(t, 1, count, "replaced once, enqueued once")
	assert.Contains(t, s.StaleFiles, "/storage/stored-1-new.png")
	assert.Equal(t, "/storage/stored-2-newer.png", payload["avatar"])
}

func TestPrepareSubmissionAbortsOnFailure(t *testing.T) {
	s := NewState(profileResource())
	s = Apply(s, FileSelect{Path: NewPath("avatar"), File: &File{Name: "me.png"}})

	before := s
	uploader := &fakeUploader{fail: true}
	after, payload, err := PrepareSubmission(context.Background(), s, uploader)

	require.Error(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, before.StaleFiles, after.StaleFiles)
	_, stillFile := after.Form["avatar"].(*File)
	assert.True(t, stillFile, "a failed upload leaves the form untouched")
}

func TestSavedModes(t *testing.T) {
	res := profileResource()

	// creating with SaveAndContinue re-defaults the form
	s := NewState(res)
	s = Apply(s, Input{Path: NewPath("name"), Value: "Ada"})
	s = Saved(s, store.Record{"_id": "p1", "name": "Ada"}, SaveAndContinue)
	assert.Equal(t, "", s.Form["name"])
	assert.False(t, s.Editing)

	// editing adopts the saved record and clears stale bookkeeping
	s2 := NewEditState(res, store.Record{"_id": "p1", "name": "Ada"})
	s2.StaleFiles = []string{"/storage/old.png"}
	s2 = Saved(s2, store.Record{"_id": "p1", "name": "Grace"}, SaveAndReturn)
	assert.Equal(t, "Grace", s2.Form["name"])
	assert.Empty(t, s2.StaleFiles)
}
