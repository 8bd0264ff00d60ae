// Package delivery runs the candidate-facing test session: navigation,
// per-answer autosave, countdown-driven auto-submit, and manual submit with
// confirmation. All state lives on the Session instance and every transition
// is applied serialized, so concurrent attempts (and tests) never share
// state.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/integrity"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/timer"
)

// State is the session's lifecycle phase.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
)

var (
	// ErrNotLoaded is returned when the session is used before Load.
	ErrNotLoaded = errors.New("session not loaded")
	// ErrAttemptClosed is returned on answer entry after time expiry or submit.
	ErrAttemptClosed = errors.New("attempt is no longer accepting answers")
	// ErrSubmitInFlight is returned when a submit is already being delivered.
	ErrSubmitInFlight = errors.New("submit already in flight")
)

// ItemView is the candidate-visible projection of an item: no answer key.
type ItemView struct {
	ID          string
	Format      model.ItemFormat
	Stem        string
	Options     []string
	MaxPoints   int
	TimeSeconds *int
}

// SectionView groups the items the candidate navigates through.
type SectionView struct {
	ID          string
	Type        model.SectionType
	Title       string
	TimeMinutes int
	Items       []ItemView
}

// AttemptInfo is the server-held attempt header the session loads from.
// StartedAt is authoritative; the session never derives it locally.
type AttemptInfo struct {
	Status          model.AttemptStatus
	StartedAt       time.Time
	DurationMinutes int
	BlueprintID     string
}

// SubmitRequest carries the terminal totals to the store.
type SubmitRequest struct {
	TimeSpentSeconds int
	FullscreenExits  int
	TabSwitches      int
}

// SavedAnswer is a previously persisted response together with the client
// sequence it was saved under.
type SavedAnswer struct {
	Seq      int64
	Response answer.Response
}

// Store is the backing-store boundary the session talks through.
type Store interface {
	Attempt(ctx context.Context, attemptID uuid.UUID) (AttemptInfo, error)
	Questions(ctx context.Context, attemptID uuid.UUID) ([]SectionView, map[string]SavedAnswer, error)
	SaveResponse(ctx context.Context, attemptID uuid.UUID, itemID string, seq int64, resp answer.Response) error
	PublishIntegrityEvent(ctx context.Context, event integrity.Event) error
	Submit(ctx context.Context, attemptID uuid.UUID, req SubmitRequest) error
}

// SubmitSummary backs the confirmation dialog shown before a manual submit.
type SubmitSummary struct {
	Answered int
	Total    int
}

// Incomplete reports whether the confirmation should warn about unanswered
// items.
func (s SubmitSummary) Incomplete() bool { return s.Answered < s.Total }

// Session owns all delivery state for one attempt.
type Session struct {
	// mu serializes every transition: tick, input, navigation, integrity,
	// network completion.
	mu sync.Mutex

	store   Store
	outbox  *Outbox
	clock   func() time.Time
	monitor *integrity.Monitor

	attemptID uuid.UUID
	info      AttemptInfo
	sections  []SectionView

	state    State
	section  int
	question int
	answers  map[string]answer.Response
	nextSeq  int64

	submitInFlight bool
	lastSubmitErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the session's time source.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// NewSession wires a session over its store and outbound queue and attaches
// an integrity monitor to the platform's presentation source.
func NewSession(attemptID uuid.UUID, store Store, outbox *Outbox, source integrity.PresentationSource, opts ...SessionOption) *Session {
	s := &Session{
		store:     store,
		outbox:    outbox,
		clock:     time.Now,
		attemptID: attemptID,
		state:     StateLoading,
		answers:   make(map[string]answer.Response),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.monitor = integrity.NewMonitor(attemptID, source, s, integrity.WithClock(s.clock))
	return s
}

// Publish implements integrity.EventSink: events go out through the shared
// queue, fire-and-forget.
func (s *Session) Publish(event integrity.Event) {
	s.outbox.Enqueue("integrity_event", func(ctx context.Context) error {
		return s.store.PublishIntegrityEvent(ctx, event)
	})
}

// Load fetches the attempt header, the question set, and any previously
// saved responses. If the attempt is already out of time it moves straight
// to Submitting and triggers the terminal submit.
func (s *Session) Load(ctx context.Context) error {
	info, err := s.store.Attempt(ctx, s.attemptID)
	if err != nil {
		return err
	}
	sections, saved, err := s.store.Questions(ctx, s.attemptID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.info = info
	s.sections = sections
	for itemID, sv := range saved {
		s.answers[itemID] = sv.Response
		// Resume above the highest persisted sequence so saves issued after
		// a reload are not discarded as stale by the store.
		if sv.Seq > s.nextSeq {
			s.nextSeq = sv.Seq
		}
	}
	if info.Status == model.AttemptSubmitted {
		s.state = StateSubmitted
		s.mu.Unlock()
		return nil
	}
	if timer.Expired(info.DurationMinutes, info.StartedAt, s.clock()) {
		s.state = StateSubmitting
		s.mu.Unlock()
		return s.Submit(ctx)
	}
	s.state = StateInProgress
	s.mu.Unlock()
	return nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the seconds left, recomputed from the server-assigned
// start timestamp so a reload can never extend the clock.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timer.Remaining(s.info.DurationMinutes, s.info.StartedAt, s.clock())
}

// Position returns the current (section, question) indices.
func (s *Session) Position() (section, question int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section, s.question
}

// CurrentItem returns the item under the cursor.
func (s *Session) CurrentItem() (ItemView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.section >= len(s.sections) {
		return ItemView{}, false
	}
	items := s.sections[s.section].Items
	if s.question >= len(items) {
		return ItemView{}, false
	}
	return items[s.question], true
}

// Next advances within the section's item list, then across the section
// boundary. At the very end it is a no-op. Answers are never touched.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || len(s.sections) == 0 {
		return
	}
	if s.question+1 < len(s.sections[s.section].Items) {
		s.question++
		return
	}
	if s.section+1 < len(s.sections) {
		s.section++
		s.question = 0
	}
}

// Previous moves back within the section, then across the boundary to the
// previous section's last item. At the very start it is a no-op.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || len(s.sections) == 0 {
		return
	}
	if s.question > 0 {
		s.question--
		return
	}
	if s.section > 0 {
		s.section--
		s.question = len(s.sections[s.section].Items) - 1
	}
}

// Answer records a response locally (so navigation and review reflect it
// instantly) and enqueues a non-blocking autosave. The per-answer sequence
// number makes the store last-write-wins by client intent, not by network
// arrival order.
func (s *Session) Answer(itemID string, resp answer.Response) error {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return ErrAttemptClosed
	}
	s.answers[itemID] = resp
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	s.outbox.Enqueue("autosave", func(ctx context.Context) error {
		return s.store.SaveResponse(ctx, s.attemptID, itemID, seq, resp)
	})
	return nil
}

// Answers returns a copy of the locally known responses. Unanswered items
// are absent from the map.
func (s *Session) Answers() map[string]answer.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]answer.Response, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Summary reports answered-vs-total for the submit confirmation dialog.
func (s *Session) Summary() SubmitSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sec := range s.sections {
		total += len(sec.Items)
	}
	return SubmitSummary{Answered: len(s.answers), Total: total}
}

// Tick drives the countdown. When remaining time reaches zero it forces the
// Submitting transition and triggers the terminal submit exactly once; a
// later expiry tick after submission is a no-op.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return
	}
	if !timer.Expired(s.info.DurationMinutes, s.info.StartedAt, s.clock()) {
		s.mu.Unlock()
		return
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	log.Info().Str("attempt_id", s.attemptID.String()).Msg("attempt time expired, auto-submitting")
	if err := s.Submit(ctx); err != nil && !errors.Is(err, model.ErrStaleAttempt) {
		log.Error().Err(err).Str("attempt_id", s.attemptID.String()).Msg("auto-submit failed, staying in submitting for retry")
	}
}

// Submit finalizes the attempt. Manual and timer-expiry paths both land
// here. On a store failure the session stays in Submitting so the candidate
// or the next expiry tick can retry; it never reverts to InProgress. A
// stale-attempt rejection means the store already holds a terminal record,
// so the session converges on Submitted without retrying.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateSubmitted:
		s.mu.Unlock()
		return model.ErrStaleAttempt
	case s.state == StateLoading:
		s.mu.Unlock()
		return ErrNotLoaded
	case s.submitInFlight:
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.state = StateSubmitting
	s.submitInFlight = true
	fullscreenExits, tabSwitches := s.monitor.Counters()
	req := SubmitRequest{
		TimeSpentSeconds: timer.Elapsed(s.info.DurationMinutes, s.info.StartedAt, s.clock()),
		FullscreenExits:  fullscreenExits,
		TabSwitches:      tabSwitches,
	}
	s.mu.Unlock()

	err := s.store.Submit(ctx, s.attemptID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitInFlight = false
	if err == nil {
		s.state = StateSubmitted
		s.lastSubmitErr = nil
		return nil
	}
	if errors.Is(err, model.ErrStaleAttempt) {
		s.state = StateSubmitted
		s.lastSubmitErr = nil
		return err
	}
	s.lastSubmitErr = err
	return err
}

// LastSubmitError exposes the failure backing the manual retry affordance.
func (s *Session) LastSubmitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSubmitErr
}

// Monitor exposes the attached integrity monitor.
func (s *Session) Monitor() *integrity.Monitor { return s.monitor }
