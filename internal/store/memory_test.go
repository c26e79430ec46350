package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPosts(t *testing.T, s Store, n int) []Record {
	t.Helper()
	ctx := context.Background()
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		doc := Record{
			"title": string(rune('a'+i)) + "-title",
			"views": float64(i),
		}
		inserted, err := s.Insert(ctx, "posts", doc)
		require.NoError(t, err)
		records = append(records, inserted)
	}
	return records
}

func TestMemoryInsertAssignsPrimaryKey(t *testing.T) {
	s := NewMemoryStore()
	inserted, err := s.Insert(context.Background(), "posts", Record{"title": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID())

	found, err := s.Find(context.Background(), "posts", inserted.ID())
	require.NoError(t, err)
	assert.Equal(t, "hello", found["title"])
}

func TestMemoryFindMissingRecord(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Find(context.Background(), "posts", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFetchPaginates(t *testing.T) {
	s := NewMemoryStore()
	seedPosts(t, s, 23)

	result, err := s.Fetch(context.Background(), "posts", Query{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 23, result.Total)
	assert.Len(t, result.Data, 3)
}

func TestMemoryFetchTotalCountsFilteredSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, "posts", Record{"status": "draft"})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, "posts", Record{"status": "published"})
		require.NoError(t, err)
	}

	result, err := s.Fetch(ctx, "posts", Query{
		Page: 1, PerPage: 10,
		Conditions: []Condition{{Attribute: "status", Operator: OpEqual, Value: "published"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Data, 3)
}

func TestMemoryFetchSearchIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Insert(ctx, "posts", Record{"title": "Hello World"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "posts", Record{"title": "other"})
	require.NoError(t, err)

	result, err := s.Fetch(ctx, "posts", Query{
		Page: 1, PerPage: 10,
		Search:           "hello",
		SearchAttributes: []string{"title"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestMemoryFetchSearchWithoutAttributesMatchesEverything(t *testing.T) {
	s := NewMemoryStore()
	seedPosts(t, s, 4)

	result, err := s.Fetch(context.Background(), "posts", Query{
		Page: 1, PerPage: 10,
		Search: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
}

func TestMemoryFetchByIDsSkipsMissing(t *testing.T) {
	s := NewMemoryStore()
	records := seedPosts(t, s, 2)

	found, err := s.FetchByIDs(context.Background(), "posts", []string{records[0].ID(), "ghost", records[1].ID()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestMemoryUpdateMergesAttributes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	inserted, err := s.Insert(ctx, "posts", Record{"title": "old", "views": float64(3)})
	require.NoError(t, err)

	updated, err := s.Update(ctx, "posts", inserted.ID(), Record{"title": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated["title"])
	assert.Equal(t, float64(3), updated["views"])
	assert.Equal(t, inserted.ID(), updated.ID())
}

func TestMemoryUpdateCannotChangePrimaryKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	inserted, err := s.Insert(ctx, "posts", Record{"title": "x"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, "posts", inserted.ID(), Record{PrimaryKey: "hijacked"})
	require.NoError(t, err)
	assert.Equal(t, inserted.ID(), updated.ID())
}

func TestMemoryDestroyReportsDeletedCount(t *testing.T) {
	s := NewMemoryStore()
	records := seedPosts(t, s, 3)

	deleted, err := s.Destroy(context.Background(), "posts", []string{records[0].ID(), "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	result, err := s.Fetch(context.Background(), "posts", Query{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestMemoryFetchReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	records := seedPosts(t, s, 1)

	result, err := s.Fetch(context.Background(), "posts", Query{Page: 1, PerPage: 10})
	require.NoError(t, err)
	result.Data[0]["title"] = "mutated"

	found, err := s.Find(context.Background(), "posts", records[0].ID())
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", found["title"])
}

func TestMatchConditionOperators(t *testing.T) {
	doc := Record{"views": float64(10), "status": "published", "title": "Hello World"}

	assert.True(t, matchCondition(doc, Condition{Attribute: "status", Operator: OpEqual, Value: "published"}))
	assert.False(t, matchCondition(doc, Condition{Attribute: "status", Operator: OpEqual, Value: "draft"}))
	assert.True(t, matchCondition(doc, Condition{Attribute: "status", Operator: OpIn, Value: []string{"draft", "published"}}))
	assert.False(t, matchCondition(doc, Condition{Attribute: "status", Operator: OpIn, Value: []string{}}))
	assert.True(t, matchCondition(doc, Condition{Attribute: "title", Operator: OpContains, Value: "world"}))
	assert.True(t, matchCondition(doc, Condition{Attribute: "views", Operator: OpGreaterOrEqual, Value: 10}))
	assert.False(t, matchCondition(doc, Condition{Attribute: "views", Operator: OpGreaterOrEqual, Value: 11}))
	assert.True(t, matchCondition(doc, Condition{Attribute: "views", Operator: OpLessOrEqual, Value: "10"}))
	assert.False(t, matchCondition(doc, Condition{Attribute: "missing", Operator: OpEqual, Value: "x"}))
}

func TestStringValueNormalizesJSONNumbers(t *testing.T) {
	assert.Equal(t, "3", stringValue(float64(3)))
	assert.Equal(t, "3.5", stringValue(float64(3.5)))
	assert.Equal(t, "true", stringValue(true))
	assert.Equal(t, "", stringValue(nil))
}
