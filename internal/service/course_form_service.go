package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ibnmalik/lms-admin/internal/builder"
	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/draft"
	"github.com/ibnmalik/lms-admin/internal/exam"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/normalizer"
	"github.com/rs/zerolog"
)

// CourseAPI is the part of the course API the forms need.
type CourseAPI interface {
	Get(ctx context.Context, id string) (*model.Course, error)
	Create(ctx context.Context, p courseapi.CoursePayload) (*model.Course, error)
	Update(ctx context.Context, id string, p courseapi.CoursePayload) (*model.Course, error)
}

// FormOptions tunes the forms a CourseFormService opens.
type FormOptions struct {
	AutosaveInterval time.Duration
	IdleTimeout      time.Duration
	IDs              exam.IDGenerator
	Now              func() time.Time
}

// CourseFormService keeps the open course forms of every admin.
type CourseFormService struct {
	api    CourseAPI
	drafts *draft.Store
	opts   FormOptions
	norm   *normalizer.Normalizer
	log    zerolog.Logger

	mu    sync.Mutex
	forms map[string]*CourseForm
	byKey map[string]*CourseForm
}

// NewCourseFormService creates a new CourseFormService.
func NewCourseFormService(api CourseAPI, drafts *draft.Store, opts FormOptions, log zerolog.Logger) *CourseFormService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = exam.DefaultIDs
	}
	return &CourseFormService{
		api:    api,
		drafts: drafts,
		opts:   opts,
		norm:   normalizer.New(opts.IDs),
		log:    log.With().Str("component", "course_form_service").Logger(),
		forms:  make(map[string]*CourseForm),
		byKey:  make(map[string]*CourseForm),
	}
}

// OpenCreate opens, or returns the already open, new-course form of an admin.
// An existing draft is offered for restore; autosave starts once the offer is
// resolved, or right away when there is none.
func (s *CourseFormService) OpenCreate(ctx context.Context, adminID int) (*CourseForm, error) {
	key := config.CacheKey.CreateCourseDraftKey(adminID)
	if f := s.openByKey(key); f != nil {
		return f, nil
	}

	f := s.newForm(adminID, FormModeCreate, "", key)
	f.builder = builder.New(nil, f.examsChanged, f.builderOpts...)
	f.session = s.drafts.Open(ctx, key, f.snapshot, draft.Options{
		Interval: s.opts.AutosaveInterval,
		OnSave:   f.draftSaved,
	})
	f.restorePending = f.session.HasDraft()

	return s.register(f), nil
}

// OpenEdit fetches a course and opens an edit form for it. A draft is offered
// only when it is newer than the course's last update.
func (s *CourseFormService) OpenEdit(ctx context.Context, adminID int, courseID string) (*CourseForm, error) {
	key := config.CacheKey.EditCourseDraftKey(adminID, courseID)
	if f := s.openByKey(key); f != nil {
		return f, nil
	}

	course, err := s.api.Get(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch course %s: %w", courseID, err)
	}

	f := s.newForm(adminID, FormModeEdit, courseID, key)
	f.form = formFromCourse(course)
	f.videos = renumberVideos(course.Videos)
	exams := make([]model.Exam, 0, len(course.Exams))
	for _, e := range course.Exams {
		exams = append(exams, s.norm.ServerToUI(e))
	}
	f.builder = builder.New(exams, f.examsChanged, f.builderOpts...)
	f.session = s.drafts.Open(ctx, key, f.snapshot, draft.Options{
		Interval: s.opts.AutosaveInterval,
		OnSave:   f.draftSaved,
	})
	if f.session.HasDraft() {
		saved := f.session.DraftTimestamp()
		f.restorePending = course.UpdatedAt == nil || saved.After(*course.UpdatedAt)
		if !f.restorePending {
			f.log.Info().Time("draft_saved_at", saved).Msg("Ignoring draft older than the course")
		}
	}

	return s.register(f), nil
}

// Get returns an open form owned by adminID.
func (s *CourseFormService) Get(adminID int, formID string) (*CourseForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[formID]
	if !ok || f.AdminID != adminID {
		return nil, ErrFormNotFound
	}
	return f, nil
}

// CloseForm closes a form and keeps its draft.
func (s *CourseFormService) CloseForm(adminID int, formID string) error {
	f, err := s.Get(adminID, formID)
	if err != nil {
		return err
	}
	f.Close()
	return nil
}

// ReapIdle closes forms untouched for longer than the idle timeout and
// returns how many it closed. Drafts are kept.
func (s *CourseFormService) ReapIdle() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := s.opts.Now().Add(-s.opts.IdleTimeout)

	s.mu.Lock()
	var idle []*CourseForm
	for _, f := range s.forms {
		if f.IdleSince().Before(cutoff) {
			idle = append(idle, f)
		}
	}
	s.mu.Unlock()

	for _, f := range idle {
		f.log.Info().Msg("Closing idle form")
		f.Close()
	}
	return len(idle)
}

// OpenForms returns the number of open forms.
func (s *CourseFormService) OpenForms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// Shutdown closes every open form. Drafts are kept.
func (s *CourseFormService) Shutdown() {
	s.mu.Lock()
	all := make([]*CourseForm, 0, len(s.forms))
	for _, f := range s.forms {
		all = append(all, f)
	}
	s.mu.Unlock()

	for _, f := range all {
		f.Close()
	}
}

func (s *CourseFormService) newForm(adminID int, mode FormMode, courseID, key string) *CourseForm {
	id := uuid.New().String()
	return &CourseForm{
		ID:       id,
		AdminID:  adminID,
		Mode:     mode,
		CourseID: courseID,
		DraftKey: key,
		api:      s.api,
		norm:     s.norm,
		log: s.log.With().
			Str("form_id", id).
			Int("admin_id", adminID).
			Str("mode", string(mode)).
			Logger(),
		now:    s.opts.Now,
		onDone: s.remove,
		builderOpts: []builder.Option{
			builder.WithIDs(s.opts.IDs),
			builder.WithClock(s.opts.Now),
		},
		lastActive: s.opts.Now(),
		subs:       make(map[chan FormEvent]struct{}),
	}
}

func (s *CourseFormService) openByKey(key string) *CourseForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key]
}

// register adds f unless another request opened the same key meanwhile, in
// which case f is closed and the winner returned.
func (s *CourseFormService) register(f *CourseForm) *CourseForm {
	pending := f.restorePending
	s.mu.Lock()
	if existing, ok := s.byKey[f.DraftKey]; ok {
		s.mu.Unlock()
		f.session.Close()
		return existing
	}
	s.forms[f.ID] = f
	s.byKey[f.DraftKey] = f
	s.mu.Unlock()

	if !pending {
		f.session.SetEnabled(true)
	}
	f.log.Info().Bool("restore_offered", pending).Msg("Form opened")
	return f
}

func (s *CourseFormService) remove(f *CourseForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forms[f.ID] == f {
		delete(s.forms, f.ID)
	}
	if s.byKey[f.DraftKey] == f {
		delete(s.byKey, f.DraftKey)
	}
}

func formFromCourse(c *model.Course) model.CourseForm {
	return model.CourseForm{
		Title:       c.Title,
		Description: c.Description,
		Subject:     c.Subject,
		Grade:       c.Grade,
		Price:       c.Price.String(),
		Duration:    c.Duration,
		Level:       c.Level,
		IsActive:    c.IsActive,
		ImageURL:    c.ImageURL,
	}
}
