package fakeapi

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lumen/internal/apperr"
)

// record is a stored note. Images holds blob keys in upload order.
type record struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Images    []string
}

func (r *record) clone() record {
	c := *r
	c.Images = slices.Clone(r.Images)
	return c
}

// Store is the in-memory note table.
type Store struct {
	mu    sync.RWMutex
	notes map[string]*record
	order []string
	now   func() time.Time
}

// NewStore returns an empty store stamping records with the UTC wall clock.
func NewStore() *Store {
	return &Store{
		notes: make(map[string]*record),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Len returns the number of stored notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// List returns every note in insertion order.
func (s *Store) List() []record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.notes[id].clone())
	}
	return out
}

// Get returns the note with id or apperr.ErrNotFound.
func (s *Store) Get(id string) (record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.notes[id]
	if !ok {
		return record{}, apperr.ErrNotFound
	}
	return r.clone(), nil
}

// Create stores a new note with a fresh id and no images.
func (s *Store) Create(title, content string) record {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	r := &record{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
		Images:    []string{},
	}
	s.notes[r.ID] = r
	s.order = append(s.order, r.ID)
	return r.clone()
}

// Update sets the non-nil fields and bumps updated_at.
func (s *Store) Update(id string, title, content *string) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok {
		return record{}, apperr.ErrNotFound
	}
	if title != nil {
		r.Title = *title
	}
	if content != nil {
		r.Content = *content
	}
	r.UpdatedAt = s.now()
	return r.clone(), nil
}

// Delete removes the note and returns it so its blobs can be dropped.
func (s *Store) Delete(id string) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok {
		return record{}, apperr.ErrNotFound
	}
	delete(s.notes, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return *r, nil
}

// AddImage appends key to the note's images.
func (s *Store) AddImage(id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Images = append(r.Images, key)
	r.UpdatedAt = s.now()
	return nil
}

// RemoveImage drops key from the note's images. It reports errImageNotFound
// when the note exists but does not hold key.
func (s *Store) RemoveImage(id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok {
		return apperr.ErrNotFound
	}
	i := slices.Index(r.Images, key)
	if i < 0 {
		return errImageNotFound
	}
	r.Images = slices.Delete(r.Images, i, i+1)
	r.UpdatedAt = s.now()
	return nil
}
