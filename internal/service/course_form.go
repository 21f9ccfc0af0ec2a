package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ibnmalik/lms-admin/internal/builder"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/draft"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/normalizer"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/rs/zerolog"
)

// FormMode tells a create form from an edit form.
type FormMode string

const (
	FormModeCreate FormMode = "create"
	FormModeEdit   FormMode = "edit"
)

// Form event types pushed to subscribers.
const (
	EventDraftSaved   = "draft_saved"
	EventExamsChanged = "exams_changed"
	EventSubmitted    = "submitted"
	EventClosed       = "closed"
)

// FormEvent is pushed to subscribers of a form.
type FormEvent struct {
	Type     string    `json:"type"`
	FormID   string    `json:"form_id"`
	SavedAt  time.Time `json:"saved_at,omitempty"`
	CourseID string    `json:"course_id,omitempty"`
}

// RestoreOffer describes a draft the admin may restore.
type RestoreOffer struct {
	SavedAt time.Time `json:"savedAt"`
}

// FormView is what the admin UI renders for a form.
type FormView struct {
	ID            string           `json:"id"`
	Mode          FormMode         `json:"mode"`
	CourseID      string           `json:"courseId,omitempty"`
	CourseForm    model.CourseForm `json:"courseForm"`
	Videos        []model.Video    `json:"videos"`
	Exams         []model.Exam     `json:"exams"`
	Editing       *model.Exam      `json:"editing,omitempty"`
	EditingIsNew  bool             `json:"editingIsNew,omitempty"`
	PendingDelete string           `json:"pendingDelete,omitempty"`
	HasImage      bool             `json:"hasImage"`
	RestoreOffer  *RestoreOffer    `json:"restoreOffer,omitempty"`
	Autosave      bool             `json:"autosave"`
	LastSaved     *time.Time       `json:"lastSaved,omitempty"`
	Submitting    bool             `json:"submitting"`
}

// CourseForm is one admin's create or edit session for a course. It owns the
// course fields, the video list, the exam builder and the draft session.
// All methods are safe for concurrent use.
type CourseForm struct {
	ID       string
	AdminID  int
	Mode     FormMode
	CourseID string
	DraftKey string

	api     CourseAPI
	norm    *normalizer.Normalizer
	session *draft.Session
	log     zerolog.Logger
	now     func() time.Time
	onDone  func(*CourseForm)

	mu             sync.Mutex
	form           model.CourseForm
	videos         []model.Video
	builder        *builder.Builder
	builderOpts    []builder.Option
	image          *courseapi.Upload
	restorePending bool
	submitting     bool
	closed         bool
	lastActive     time.Time

	subsMu sync.Mutex
	subs   map[chan FormEvent]struct{}
}

// snapshot is the draft accessor. It runs on the autosave goroutine.
func (f *CourseForm) snapshot() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *CourseForm) snapshotLocked() model.FormSnapshot {
	snap := model.FormSnapshot{
		CourseForm: f.form,
		Videos:     append([]model.Video{}, f.videos...),
		Exams:      f.builder.Exams(),
	}
	if m := f.builder.Editing(); m != nil {
		e := m.Exam()
		snap.EditingExam = &e
	}
	return snap
}

// View returns the form's current state.
func (f *CourseForm) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *CourseForm) viewLocked() FormView {
	snap := f.snapshotLocked()
	v := FormView{
		ID:            f.ID,
		Mode:          f.Mode,
		CourseID:      f.CourseID,
		CourseForm:    snap.CourseForm,
		Videos:        snap.Videos,
		Exams:         snap.Exams,
		Editing:       snap.EditingExam,
		EditingIsNew:  f.builder.IsNew(),
		PendingDelete: f.builder.PendingDelete(),
		HasImage:      f.image != nil,
		Autosave:      f.session.Enabled(),
		Submitting:    f.submitting,
	}
	if f.restorePending {
		v.RestoreOffer = &RestoreOffer{SavedAt: f.session.DraftTimestamp()}
	}
	if t := f.session.LastSaved(); !t.IsZero() {
		v.LastSaved = &t
	}
	return v
}

// RestoreDraft loads the offered draft into the form and starts autosaving.
func (f *CourseForm) RestoreDraft(ctx context.Context) (FormView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return FormView{}, err
	}
	if !f.restorePending {
		return FormView{}, ErrNoRestoreOffer
	}

	var snap model.FormSnapshot
	if f.session.RestoreInto(ctx, &snap) {
		f.form = snap.CourseForm
		f.videos = renumberVideos(snap.Videos)
		f.builder = builder.New(snap.Exams, f.examsChanged, f.builderOpts...)
		if snap.EditingExam != nil {
			f.builder.Resume(*snap.EditingExam)
		}
		f.log.Info().Msg("Draft restored")
	} else {
		f.log.Warn().Msg("Offered draft could not be restored")
	}

	f.restorePending = false
	f.lastActive = f.now()
	f.session.SetEnabled(true)
	return f.viewLocked(), nil
}

// DiscardDraft deletes the offered draft and starts autosaving the current
// state.
func (f *CourseForm) DiscardDraft(ctx context.Context) (FormView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return FormView{}, err
	}
	if !f.restorePending {
		return FormView{}, ErrNoRestoreOffer
	}
	f.session.Discard(ctx)
	f.restorePending = false
	f.lastActive = f.now()
	f.session.SetEnabled(true)
	return f.viewLocked(), nil
}

// UpdateCourse applies a partial update to the course fields.
func (f *CourseForm) UpdateCourse(p model.CoursePatch) (FormView, error) {
	return f.mutate(func() error {
		p.Apply(&f.form)
		return nil
	})
}

// SetVideos replaces the video list. Orders are renumbered 1..N.
func (f *CourseForm) SetVideos(videos []model.Video) (FormView, error) {
	return f.mutate(func() error {
		f.videos = renumberVideos(videos)
		return nil
	})
}

// SetImage attaches an image file to be uploaded on submit.
func (f *CourseForm) SetImage(img courseapi.Upload) (FormView, error) {
	return f.mutate(func() error {
		f.image = &img
		return nil
	})
}

// SetImageURL points the course at an already hosted image and drops any
// attached file.
func (f *CourseForm) SetImageURL(url string) (FormView, error) {
	return f.mutate(func() error {
		f.form.ImageURL = url
		f.image = nil
		return nil
	})
}

// Builder runs fn against the exam builder under the form lock. fn must not
// retain b.
func (f *CourseForm) Builder(fn func(b *builder.Builder) error) (FormView, error) {
	return f.mutate(func() error {
		return fn(f.builder)
	})
}

// SaveDraftNow writes the current state to the draft without waiting for the
// next tick. It does nothing while autosave is off.
func (f *CourseForm) SaveDraftNow(ctx context.Context) error {
	f.mu.Lock()
	err := f.usableLocked()
	if err == nil && f.restorePending {
		err = ErrRestorePending
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if f.session.Enabled() {
		f.session.SaveNow(ctx)
	}
	return nil
}

// Submit validates the whole form and sends it to the course API. The draft
// is cleared only after the API accepts the course; on any failure it is
// left as it was.
func (f *CourseForm) Submit(ctx context.Context) (*model.Course, error) {
	f.mu.Lock()
	if err := f.usableLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.restorePending {
		f.mu.Unlock()
		return nil, ErrRestorePending
	}
	f.lastActive = f.now()

	if fields := validator.Struct(f.form); fields != nil {
		f.mu.Unlock()
		return nil, &FormErrors{Fields: fields}
	}

	exams := f.builder.Exams()
	serverExams := make([]model.ServerExam, 0, len(exams))
	var gate ExamGateError
	for i, e := range exams {
		se, err := f.norm.UIToServer(normalizer.FromModel(e))
		var qerrs normalizer.Errors
		if errors.As(err, &qerrs) {
			for _, qe := range qerrs {
				gate.Problems = append(gate.Problems, GateProblem{Exam: i + 1, QuestionError: qe})
			}
			continue
		}
		serverExams = append(serverExams, se)
	}
	if len(gate.Problems) > 0 {
		f.mu.Unlock()
		f.log.Info().Int("problems", len(gate.Problems)).Msg("Submit blocked by exam check")
		return nil, &gate
	}

	payload := courseapi.CoursePayload{
		Form:   f.form,
		Videos: append([]model.Video{}, f.videos...),
		Exams:  serverExams,
		Image:  f.image,
	}
	f.submitting = true
	f.mu.Unlock()

	// The call outlives the request: once sent, the API may already have
	// stored the course. The client timeout still bounds it.
	callCtx := context.WithoutCancel(ctx)
	var (
		course *model.Course
		err    error
	)
	if f.Mode == FormModeEdit {
		course, err = f.api.Update(callCtx, f.CourseID, payload)
	} else {
		course, err = f.api.Create(callCtx, payload)
	}

	f.mu.Lock()
	f.submitting = false
	closed := f.closed
	if err != nil {
		f.mu.Unlock()
		f.log.Warn().Err(err).Msg("Course submit failed, draft kept")
		return nil, err
	}
	if !closed {
		f.closed = true
		f.resetLocked()
	}
	f.mu.Unlock()

	// Stop autosave before clearing so no tick rewrites the draft.
	f.session.Close()
	f.session.Clear(context.WithoutCancel(ctx))

	if closed {
		f.log.Info().Msg("Submit completed after the form was closed")
		return course, nil
	}

	courseID := f.CourseID
	if course != nil && course.ID != "" {
		courseID = course.ID
	}
	f.log.Info().Str("course_id", courseID).Msg("Course submitted")
	f.publish(FormEvent{Type: EventSubmitted, FormID: f.ID, CourseID: courseID})
	f.finish()
	return course, nil
}

// Close ends the form without touching its draft. A submit still in flight
// completes, but its result no longer changes the form.
func (f *CourseForm) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.session.Close()
	f.publish(FormEvent{Type: EventClosed, FormID: f.ID})
	f.finish()
}

// Subscribe returns a channel of form events and a cancel function. Slow
// subscribers miss events rather than block the form.
func (f *CourseForm) Subscribe() (<-chan FormEvent, func()) {
	ch := make(chan FormEvent, 8)
	f.subsMu.Lock()
	f.subs[ch] = struct{}{}
	f.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subsMu.Lock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
			f.subsMu.Unlock()
		})
	}
}

// IdleSince returns the time of the last request that touched the form.
func (f *CourseForm) IdleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *CourseForm) mutate(fn func() error) (FormView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return FormView{}, err
	}
	if f.restorePending {
		return FormView{}, ErrRestorePending
	}
	f.lastActive = f.now()
	if err := fn(); err != nil {
		return FormView{}, err
	}
	return f.viewLocked(), nil
}

func (f *CourseForm) usableLocked() error {
	switch {
	case f.closed:
		return ErrFormClosed
	case f.submitting:
		return ErrSubmitInProgress
	}
	return nil
}

func (f *CourseForm) resetLocked() {
	f.form = model.CourseForm{}
	f.videos = nil
	f.image = nil
	f.builder = builder.New(nil, f.examsChanged, f.builderOpts...)
	f.restorePending = false
}

func (f *CourseForm) examsChanged(exams []model.Exam) {
	f.publish(FormEvent{Type: EventExamsChanged, FormID: f.ID})
}

func (f *CourseForm) draftSaved(at time.Time) {
	f.publish(FormEvent{Type: EventDraftSaved, FormID: f.ID, SavedAt: at})
}

func (f *CourseForm) publish(ev FormEvent) {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (f *CourseForm) finish() {
	f.subsMu.Lock()
	for ch := range f.subs {
		close(ch)
		delete(f.subs, ch)
	}
	f.subsMu.Unlock()
	if f.onDone != nil {
		f.onDone(f)
	}
}

func renumberVideos(videos []model.Video) []model.Video {
	out := make([]model.Video, len(videos))
	for i, v := range videos {
		v.Order = i + 1
		out[i] = v
	}
	return out
}
