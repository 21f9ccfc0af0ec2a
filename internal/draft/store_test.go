package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type liveState struct {
	mu    sync.Mutex
	title string
}

func (l *liveState) set(v string) {
	l.mu.Lock()
	l.title = v
	l.mu.Unlock()
}

func (l *liveState) snapshot() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]any{"courseForm": map[string]string{"title": l.title}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func storedTitle(t *testing.T, storage Storage, key string) (string, bool) {
	t.Helper()
	raw, err := storage.Get(context.Background(), key)
	if err != nil {
		return "", false
	}
	var doc struct {
		CourseForm struct {
			Title string `json:"title"`
		} `json:"courseForm"`
		SavedAt string `json:"_savedAt"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if doc.SavedAt == "" {
		t.Fatalf("stored value has no _savedAt: %s", raw)
	}
	return doc.CourseForm.Title, true
}

func TestAutosaveThenRestore(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(storage, zerolog.Nop())
	state := &liveState{title: "first"}

	s := store.Open(context.Background(), "k", state.snapshot, Options{Interval: 20 * time.Millisecond, Enabled: true})
	defer s.Close()

	waitFor(t, func() bool {
		title, ok := storedTitle(t, storage, "form-draft:k")
		return ok && title == "first"
	})

	// The accessor is read on every tick, so later edits reach storage.
	state.set("second")
	waitFor(t, func() bool {
		title, _ := storedTitle(t, storage, "form-draft:k")
		return title == "second"
	})

	raw := s.Restore(context.Background())
	var restored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := restored[SavedAtField]; ok {
		t.Fatal("restore kept _savedAt")
	}
	var form struct {
		CourseForm struct {
			Title string `json:"title"`
		} `json:"courseForm"`
	}
	if !s.RestoreInto(context.Background(), &form) || form.CourseForm.Title != "second" {
		t.Fatalf("restored = %+v", form)
	}
	if s.LastSaved().IsZero() {
		t.Fatal("LastSaved not recorded")
	}
}

func TestClearRemovesDraft(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(context.Background(), "form-draft:k", []byte(`{"a":1,"_savedAt":"2026-01-02T03:04:05Z"}`))
	store := NewStore(storage, zerolog.Nop())

	tests := []struct {
		name string
		drop func(*Session)
	}{
		{name: "clear", drop: func(s *Session) { s.Clear(context.Background()) }},
		{name: "discard", drop: func(s *Session) { s.Discard(context.Background()) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			storage.Set(context.Background(), "form-draft:k", []byte(`{"a":1,"_savedAt":"2026-01-02T03:04:05Z"}`))

			s := store.Open(context.Background(), "k", func() any { return map[string]int{} }, Options{})
			if !s.HasDraft() {
				t.Fatal("expected a draft on open")
			}
			want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			if !s.DraftTimestamp().Equal(want) {
				t.Fatalf("timestamp = %v", s.DraftTimestamp())
			}

			tc.drop(s)
			if s.HasDraft() {
				t.Fatal("HasDraft still true")
			}
			if _, err := storage.Get(context.Background(), "form-draft:k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("value still stored: %v", err)
			}

			again := store.Open(context.Background(), "k", func() any { return nil }, Options{})
			if again.HasDraft() {
				t.Fatal("reopened session reports a draft")
			}
		})
	}
}

func TestCorruptDraftTreatedAsAbsent(t *testing.T) {
	for _, raw := range []string{`{not json`, `[1,2,3]`, `"text"`, `null`} {
		storage := NewMemoryStorage()
		storage.Set(context.Background(), "form-draft:k", []byte(raw))
		s := NewStore(storage, zerolog.Nop()).Open(context.Background(), "k", func() any { return nil }, Options{})
		if s.HasDraft() {
			t.Fatalf("%s: reported as draft", raw)
		}
		if s.Restore(context.Background()) != nil {
			t.Fatalf("%s: restore returned data", raw)
		}
	}
}

type failingStorage struct{ writes atomic.Int32 }

func (f *failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("unavailable")
}

func (f *failingStorage) Set(context.Context, string, []byte) error {
	f.writes.Add(1)
	return errors.New("quota exceeded")
}

func (f *failingStorage) Delete(context.Context, string) error {
	return errors.New("unavailable")
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	storage := &failingStorage{}
	var saved atomic.Int32
	s := NewStore(storage, zerolog.Nop()).Open(context.Background(), "k",
		func() any { return map[string]int{"n": 1} },
		Options{Interval: 10 * time.Millisecond, Enabled: true, OnSave: func(time.Time) { saved.Add(1) }})

	waitFor(t, func() bool { return storage.writes.Load() >= 2 })
	s.Close()

	if s.HasDraft() || s.Restore(context.Background()) != nil {
		t.Fatal("failing storage produced a draft")
	}
	s.Clear(context.Background())
	if saved.Load() != 0 {
		t.Fatal("OnSave called for failed writes")
	}
}

func TestNoSaveAfterClose(t *testing.T) {
	storage := NewMemoryStorage()
	var calls atomic.Int32
	s := NewStore(storage, zerolog.Nop()).Open(context.Background(), "k",
		func() any { calls.Add(1); return map[string]int{} },
		Options{Interval: 5 * time.Millisecond, Enabled: true})

	waitFor(t, func() bool { return calls.Load() > 0 })
	s.Close()
	after := calls.Load()

	time.Sleep(40 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("accessor called after Close: %d -> %d", after, calls.Load())
	}
	if s.Enabled() {
		t.Fatal("session still enabled")
	}

	s.SetEnabled(true)
	if s.Enabled() {
		t.Fatal("closed session restarted")
	}
	if _, err := storage.Get(context.Background(), "form-draft:k"); err != nil {
		t.Fatalf("Close deleted the draft: %v", err)
	}
}

func TestSetEnabledToggles(t *testing.T) {
	storage := NewMemoryStorage()
	var calls atomic.Int32
	s := NewStore(storage, zerolog.Nop()).Open(context.Background(), "k",
		func() any { calls.Add(1); return map[string]int{} },
		Options{Interval: 5 * time.Millisecond})
	defer s.Close()

	time.Sleep(25 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("disabled session autosaved")
	}

	s.SetEnabled(true)
	waitFor(t, func() bool { return calls.Load() > 0 })
	s.SetEnabled(false)
	stopped := calls.Load()
	time.Sleep(25 * time.Millisecond)
	if calls.Load() != stopped {
		t.Fatal("autosave continued after SetEnabled(false)")
	}
}

func TestEncodeRejectsNonObjects(t *testing.T) {
	if _, err := encode([]int{1}, time.Now()); err == nil {
		t.Fatal("expected error for array snapshot")
	}
	out, err := encode(nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if string(out) != `{"_savedAt":"2026-01-01T00:00:00Z"}` {
		t.Fatalf("encoded = %s", out)
	}
}

func TestSaveNow(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(storage, zerolog.Nop())
	state := &liveState{title: "manual"}

	s := store.Open(context.Background(), "k", state.snapshot, Options{Interval: time.Hour})
	s.SaveNow(context.Background())
	if got, ok := storedTitle(t, storage, Key("k")); !ok || got != "manual" {
		t.Fatalf("stored = %q, %v", got, ok)
	}
	if s.LastSaved().IsZero() {
		t.Fatal("LastSaved not updated by SaveNow")
	}

	s.Close()
	s.Clear(context.Background())
	s.SaveNow(context.Background())
	if _, ok := storedTitle(t, storage, Key("k")); ok {
		t.Fatal("SaveNow wrote after Close")
	}
}
