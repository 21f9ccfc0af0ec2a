package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SavedAtField is injected into every stored snapshot and stripped on restore.
const SavedAtField = "_savedAt"

// DefaultInterval is the autosave period when Options.Interval is zero.
const DefaultInterval = 5 * time.Second

const ioTimeout = 5 * time.Second

// Store opens draft sessions against one Storage backend.
type Store struct {
	storage Storage
	log     zerolog.Logger
	now     func() time.Time
}

// NewStore creates a Store.
func NewStore(storage Storage, log zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		log:     log.With().Str("component", "draft_store").Logger(),
		now:     time.Now,
	}
}

// Options configures a Session.
type Options struct {
	Interval time.Duration
	Enabled  bool
	// OnSave runs after each successful autosave write, on the autosave
	// goroutine.
	OnSave func(savedAt time.Time)
}

// Session is one form's view of its draft key.
type Session struct {
	store    *Store
	key      string
	accessor func() any
	interval time.Duration
	onSave   func(time.Time)
	log      zerolog.Logger

	// ioMu orders SaveNow against Close and remove, so no manual save lands
	// after a clear.
	ioMu sync.Mutex

	mu        sync.Mutex
	hasDraft  bool
	draftTime time.Time
	lastSaved time.Time
	closed    bool
	stop      chan struct{}
	done      chan struct{}
}

// Open reads any existing draft at key and, when opts.Enabled is set, starts
// autosaving the value returned by accessor. accessor is called on every tick
// and must return the form's live state.
func (st *Store) Open(ctx context.Context, key string, accessor func() any, opts Options) *Session {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	s := &Session{
		store:    st,
		key:      Key(key),
		accessor: accessor,
		interval: opts.Interval,
		onSave:   opts.OnSave,
		log:      st.log.With().Str("draft_key", key).Logger(),
	}

	if obj, ok := s.read(ctx); ok {
		s.hasDraft = true
		s.draftTime = parseSavedAt(obj)
	}

	if opts.Enabled {
		s.SetEnabled(true)
	}
	return s
}

// HasDraft reports whether a restorable draft was found and has not been
// discarded or cleared since.
func (s *Session) HasDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDraft
}

// DraftTimestamp returns the _savedAt of the draft found on open. It is zero
// when there is no draft or the timestamp was unreadable.
func (s *Session) DraftTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftTime
}

// LastSaved returns the time of the most recent successful autosave.
func (s *Session) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Restore returns the stored snapshot without _savedAt, or nil when the key
// is empty or does not hold a JSON object.
func (s *Session) Restore(ctx context.Context) json.RawMessage {
	obj, ok := s.read(ctx)
	if !ok {
		return nil
	}
	delete(obj, SavedAtField)
	out, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return out
}

// RestoreInto decodes the restored snapshot into dst. It reports false when
// there is nothing to restore or the snapshot does not fit dst.
func (s *Session) RestoreInto(ctx context.Context, dst any) bool {
	raw := s.Restore(ctx)
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn().Err(err).Msg("Draft does not match form shape")
		return false
	}
	return true
}

// Discard deletes the draft after the user declined to restore it.
func (s *Session) Discard(ctx context.Context) {
	s.remove(ctx)
}

// Clear deletes the draft after a successful submit.
func (s *Session) Clear(ctx context.Context) {
	s.remove(ctx)
}

// SetEnabled starts or stops autosaving. Stopping waits for an in-flight
// save to finish, so accessor must not hold a lock the caller holds.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	if enabled {
		if s.closed || s.stop != nil {
			s.mu.Unlock()
			return
		}
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.loop(s.stop, s.done)
		s.mu.Unlock()
		return
	}

	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Enabled reports whether the autosave loop is running.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Close stops autosaving for good. The stored draft is kept.
func (s *Session) Close() {
	s.SetEnabled(false)
	s.ioMu.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.ioMu.Unlock()
}

// SaveNow writes the current snapshot immediately. It is a no-op once the
// session is closed.
func (s *Session) SaveNow(ctx context.Context) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	s.save(ctx)
}

func (s *Session) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
			s.save(ctx)
			cancel()
		}
	}
}

func (s *Session) save(ctx context.Context) {
	savedAt := s.store.now().UTC()
	payload, err := encode(s.accessor(), savedAt)
	if err != nil {
		s.log.Warn().Err(err).Msg("Draft snapshot not serializable")
		return
	}
	if err := s.store.storage.Set(ctx, s.key, payload); err != nil {
		s.log.Warn().Err(err).Msg("Draft write failed")
		return
	}

	s.mu.Lock()
	s.lastSaved = savedAt
	s.mu.Unlock()

	if s.onSave != nil {
		s.onSave(savedAt)
	}
}

func (s *Session) read(ctx context.Context) (map[string]json.RawMessage, bool) {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	raw, err := s.store.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Msg("Draft read failed")
		}
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		s.log.Warn().Msg("Ignoring corrupt draft")
		return nil, false
	}
	return obj, true
}

func (s *Session) remove(ctx context.Context) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	if err := s.store.storage.Delete(ctx, s.key); err != nil {
		s.log.Warn().Err(err).Msg("Draft delete failed")
	}

	s.mu.Lock()
	s.hasDraft = false
	s.draftTime = time.Time{}
	s.mu.Unlock()
}

// encode marshals v, which must serialize to a JSON object, and adds
// _savedAt.
func encode(v any, savedAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	ts, _ := json.Marshal(savedAt.Format(time.RFC3339Nano))
	obj[SavedAtField] = ts
	return json.Marshal(obj)
}

func parseSavedAt(obj map[string]json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(obj[SavedAtField], &s); err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
