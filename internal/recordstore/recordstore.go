// Package recordstore owns the authoritative record list and keeps the
// persisted copy in sync with it.
//
// Every mutation rewrites the whole list to the storage slot before it
// returns, then notifies the change listener so views can re-render.
package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Makepad-fr/focusflow/internal/model"
	"github.com/Makepad-fr/focusflow/internal/store"
)

var (
	ErrEmptyTitle = errors.New("empty title")
	ErrNotFound   = errors.New("record not found")
	ErrAmbiguous  = errors.New("ambiguous record reference")
)

// Store is the in-memory record list plus its persisted mirror.
type Store struct {
	mu      sync.Mutex
	slot    store.Slot
	key     string
	records []model.Record

	log       *zap.Logger
	now       func() time.Time
	newID     func() string
	listeners map[int]func([]model.Record)
	nextSub   int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc overrides id generation.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// New builds a Store over slot/key and loads the persisted list.
func New(slot store.Slot, key string, opts ...Option) *Store {
	s := &Store{
		slot:  slot,
		key:   key,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.Load()
	return s
}

// Load replaces the in-memory list with the persisted one. Absent, unreadable
// or malformed data yields an empty list; failures are logged, not returned.
func (s *Store) Load() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.read()
	return clone(s.records)
}

func (s *Store) read() []model.Record {
	b, ok, err := s.slot.Get(s.key)
	if err != nil {
		s.log.Warn("read persisted records", zap.String("key", s.key), zap.Error(err))
		return []model.Record{}
	}
	if !ok || len(b) == 0 {
		return []model.Record{}
	}
	var recs []model.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		s.log.Warn("parse persisted records", zap.String("key", s.key), zap.Error(err))
		return []model.Record{}
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs
}

// Persist overwrites the slot with the full current list.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *Store) persist() error {
	recs := s.records
	if recs == nil {
		recs = []model.Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := s.slot.Set(s.key, b); err != nil {
		s.log.Error("persist records", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("persist: %w", err)
	}
	s.log.Debug("persisted records", zap.String("key", s.key), zap.Int("count", len(recs)))
	return nil
}

// commit persists and returns the snapshot to hand to the change listener.
// Called with mu held.
func (s *Store) commit() ([]model.Record, error) {
	err := s.persist()
	return clone(s.records), err
}

// Subscribe registers f to run after every mutation that changed the list,
// outside the store lock, with a copy of the new list. The returned func
// removes it.
func (s *Store) Subscribe(f func([]model.Record)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func([]model.Record))
	}
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = f
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(snap []model.Record) {
	s.mu.Lock()
	fs := make([]func([]model.Record), 0, len(s.listeners))
	for _, f := range s.listeners {
		fs = append(fs, f)
	}
	s.mu.Unlock()
	for _, f := range fs {
		f(snap)
	}
}

// Add prepends a new record. A title that is empty after trimming is
// rejected with ErrEmptyTitle and the list is left untouched.
func (s *Store) Add(title, notes string) (model.Record, error) {
	title = cleanText(title)
	if title == "" {
		return model.Record{}, ErrEmptyTitle
	}
	rec := model.Record{
		ID:        s.newID(),
		Title:     title,
		Notes:     cleanText(notes),
		CreatedAt: s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.records = append([]model.Record{rec}, s.records...)
	snap, err := s.commit()
	s.mu.Unlock()

	s.notify(snap)
	return rec, err
}

// cleanText trims s and replaces invalid UTF-8, which JSON cannot carry
// unchanged, so the persisted copy reloads identical.
func cleanText(s string) string {
	return strings.ToValidUTF8(strings.TrimSpace(s), "\uFFFD")
}

// Toggle flips Done on the record with id. found is false (and nothing is
// written) when no record matches.
func (s *Store) Toggle(id string) (rec model.Record, found bool, err error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Record{}, false, nil
	}
	s.records[i].Done = !s.records[i].Done
	rec = s.records[i]
	snap, err := s.commit()
	s.mu.Unlock()

	s.notify(snap)
	return rec, true, err
}

// Remove drops the record with id. An unknown id leaves the list unchanged.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return false, nil
	}
	kept := make([]model.Record, 0, len(s.records)-1)
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
	snap, err := s.commit()
	s.mu.Unlock()

	s.notify(snap)
	return true, err
}

// ClearAll empties the list once confirm returns true. With an empty list
// it returns immediately without asking. confirm runs without the lock held.
func (s *Store) ClearAll(confirm func() bool) (bool, error) {
	if s.Len() == 0 {
		return false, nil
	}
	if confirm == nil || !confirm() {
		return false, nil
	}

	s.mu.Lock()
	s.records = []model.Record{}
	snap, err := s.commit()
	s.mu.Unlock()

	s.notify(snap)
	return true, err
}

// ImportBatch prepends drafts, in their given order, ahead of the existing
// records. Each gets a fresh id and the current timestamp.
func (s *Store) ImportBatch(drafts []model.Draft) ([]model.Record, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	ts := s.now().UnixMilli()
	imported := make([]model.Record, 0, len(drafts))
	for _, d := range drafts {
		imported = append(imported, model.Record{
			ID:        s.newID(),
			Title:     strings.ToValidUTF8(d.Title, "\uFFFD"),
			Notes:     strings.ToValidUTF8(d.Notes, "\uFFFD"),
			Done:      d.Done,
			CreatedAt: ts,
		})
	}

	s.mu.Lock()
	s.records = append(clone(imported), s.records...)
	snap, err := s.commit()
	s.mu.Unlock()

	s.log.Info("imported records", zap.Int("count", len(imported)))
	s.notify(snap)
	return imported, err
}

// Records returns a copy of the list, newest first.
func (s *Store) Records() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.records)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get looks a record up by id.
func (s *Store) Get(id string) (model.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true
	}
	return model.Record{}, false
}

// At returns the record at a 0-based position in list order.
func (s *Store) At(i int) (model.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.records) {
		return model.Record{}, false
	}
	return s.records[i], true
}

// Resolve accepts a 1-based index, a full id or an unambiguous id prefix.
func (s *Store) Resolve(ref string) (model.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Record{}, ErrNotFound
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if r, ok := s.At(n - 1); ok {
			return r, nil
		}
		return model.Record{}, fmt.Errorf("index out of range: have %d, got %d: %w", s.Len(), n, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var match *model.Record
	for i := range s.records {
		r := &s.records[i]
		if r.ID == ref {
			return *r, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			if match != nil {
				return model.Record{}, fmt.Errorf("%q: %w", ref, ErrAmbiguous)
			}
			match = r
		}
	}
	if match == nil {
		return model.Record{}, fmt.Errorf("%q: %w", ref, ErrNotFound)
	}
	return *match, nil
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func clone(recs []model.Record) []model.Record {
	out := make([]model.Record, len(recs))
	copy(out, recs)
	return out
}
