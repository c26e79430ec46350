package store

import (
	"context"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MemoryStore is an in-memory document store. It backs tests and local
// development; data does not survive the process.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// memoryCollection keeps records by id plus insertion order so fetches page
// deterministically.
type memoryCollection struct {
	records map[string]Record
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{records: make(map[string]Record)}
		s.collections[name] = c
	}
	return c
}

// Find returns the record with the given id, or ErrNotFound.
func (s *MemoryStore) Find(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// Fetch returns the requested page of the filtered collection.
func (s *MemoryStore) Fetch(ctx context.Context, collection string, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = q.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Record
	if c, ok := s.collections[collection]; ok {
		for _, id := range c.order {
			doc := c.records[id]
			if matches(doc, q) {
				filtered = append(filtered, doc)
			}
		}
	}

	total := len(filtered)
	start := (q.Page - 1) * q.PerPage
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}

	page := make([]Record, 0, end-start)
	for _, doc := range filtered[start:end] {
		page = append(page, doc.Clone())
	}

	return &Result{Data: page, Total: total}, nil
}

// FetchByIDs returns the records matching the given ids, skipping missing
// ones.
func (s *MemoryStore) FetchByIDs(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, len(ids))
	c, ok := s.collections[collection]
	if !ok {
		return records, nil
	}
	for _, id := range ids {
		if doc, ok := c.records[id]; ok {
			records = append(records, doc.Clone())
		}
	}
	return records, nil
}

// Insert persists a new record, assigning a primary key when absent.
func (s *MemoryStore) Insert(ctx context.Context, collection string, doc Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := doc.Clone()
	if stored.ID() == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		stored[PrimaryKey] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	id := stored.ID()
	if _, exists := c.records[id]; !exists {
		c.order = append(c.order, id)
	}
	c.records[id] = stored

	return stored.Clone(), nil
}

// Update merges the given attributes into an existing record.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, changes Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	updated := doc.Clone()
	for k, v := range changes {
		if k == PrimaryKey {
			continue
		}
		updated[k] = v
	}
	c.records[id] = updated

	return updated.Clone(), nil
}

// Destroy removes records by id and reports how many existed.
func (s *MemoryStore) Destroy(ctx context.Context, collection string, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}

	deleted := 0
	for _, id := range ids {
		if _, ok := c.records[id]; !ok {
			continue
		}
		delete(c.records, id)
		deleted++
		for i, ordered := range c.order {
			if ordered == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return deleted, nil
}

// Clear removes every record in the collection.
func (s *MemoryStore) Clear(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, collection)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
