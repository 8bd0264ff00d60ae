package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/delivery"
	"github.com/khangtgr/assessly/internal/integrity"
	"github.com/khangtgr/assessly/internal/model"
)

type savedCall struct {
	itemID string
	seq    int64
	resp   answer.Response
}

// fakeStore is an in-memory Store with scriptable failures.
type fakeStore struct {
	mu            sync.Mutex
	info          delivery.AttemptInfo
	sections      []delivery.SectionView
	saved         map[string]savedCall
	saves         []savedCall
	events        []integrity.Event
	submits       []delivery.SubmitRequest
	submitErr     error
	saveErr       error
	submittedOnce bool
}

func (f *fakeStore) Attempt(context.Context, uuid.UUID) (delivery.AttemptInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, nil
}

func (f *fakeStore) Questions(context.Context, uuid.UUID) ([]delivery.SectionView, map[string]delivery.SavedAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sections, nil, nil
}

func (f *fakeStore) SaveResponse(_ context.Context, _ uuid.UUID, itemID string, seq int64, resp answer.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	call := savedCall{itemID: itemID, seq: seq, resp: resp}
	f.saves = append(f.saves, call)
	// Last write wins by client sequence, not arrival order.
	if prev, ok := f.saved[itemID]; !ok || seq > prev.seq {
		f.saved[itemID] = call
	}
	return nil
}

func (f *fakeStore) PublishIntegrityEvent(_ context.Context, event integrity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) Submit(_ context.Context, _ uuid.UUID, req delivery.SubmitRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	if f.submittedOnce {
		return model.ErrStaleAttempt
	}
	f.submittedOnce = true
	f.submits = append(f.submits, req)
	return nil
}

func (f *fakeStore) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeSource struct {
	fullscreenLost func()
	visibilityLost func()
}

func (f *fakeSource) OnExclusivePresentationLost(fn func()) { f.fullscreenLost = fn }
func (f *fakeSource) OnVisibilityLost(fn func())            { f.visibilityLost = fn }

var testStart = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func twoSectionFixture() []delivery.SectionView {
	mcq := func(id, stem string) delivery.ItemView {
		return delivery.ItemView{ID: id, Format: model.FormatMCQ, Stem: stem, Options: []string{"A", "B", "C"}, MaxPoints: 1}
	}
	return []delivery.SectionView{
		{ID: "s1", Type: model.SectionSkills, Title: "Skills", TimeMinutes: 15,
			Items: []delivery.ItemView{mcq("q1", "one"), mcq("q2", "two"), mcq("q3", "three")}},
		{ID: "s2", Type: model.SectionAptitude, Title: "Aptitude", TimeMinutes: 15,
			Items: []delivery.ItemView{mcq("q4", "four"), mcq("q5", "five")}},
	}
}

type env struct {
	session *delivery.Session
	store   *fakeStore
	source  *fakeSource
	outbox  *delivery.Outbox
	now     *time.Time
	cancel  context.CancelFunc
}

func newEnv(t *testing.T, durationMinutes int, startedAgo time.Duration) *env {
	t.Helper()
	now := testStart
	store := &fakeStore{
		info: delivery.AttemptInfo{
			Status:          model.AttemptInProgress,
			StartedAt:       testStart.Add(-startedAgo),
			DurationMinutes: durationMinutes,
		},
		sections: twoSectionFixture(),
		saved:    make(map[string]savedCall),
	}
	source := &fakeSource{}
	outbox := delivery.NewOutbox(3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	outbox.Start(ctx)
	t.Cleanup(func() { outbox.Close(); cancel() })

	e := &env{store: store, source: source, outbox: outbox, now: &now, cancel: cancel}
	e.session = delivery.NewSession(uuid.New(), store, outbox, source,
		delivery.WithClock(func() time.Time { return *e.now }))
	return e
}

func (e *env) drain(t *testing.T, want func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if want() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func mustAnswer(t *testing.T, s *delivery.Session, itemID, choice string) {
	t.Helper()
	if err := s.Answer(itemID, answer.Response{Format: model.FormatMCQ, Choice: choice}); err != nil {
		t.Fatalf("answer %s: %v", itemID, err)
	}
}

func TestLoadTransitionsToInProgress(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := e.session.State(); got != delivery.StateInProgress {
		t.Fatalf("state = %s, want in_progress", got)
	}
	if got := e.session.Remaining(); got != 1800 {
		t.Fatalf("remaining = %d, want 1800", got)
	}
}

// Attempt with duration 30 started 31 minutes ago: remaining is zero and the
// machine heads straight for submission without candidate action.
func TestLoadExpiredAutoSubmits(t *testing.T) {
	e := newEnv(t, 30, 31*time.Minute)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := e.session.State(); got != delivery.StateSubmitted {
		t.Fatalf("state = %s, want submitted", got)
	}
	if e.store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", e.store.submitCount())
	}
	if e.store.submits[0].TimeSpentSeconds != 1800 {
		t.Fatalf("time spent = %d, want clamped 1800", e.store.submits[0].TimeSpentSeconds)
	}
}

func TestNavigationCrossesSectionBoundaries(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Boundary no-op at the start.
	e.session.Previous()
	if sec, q := e.session.Position(); sec != 0 || q != 0 {
		t.Fatalf("position = (%d,%d), want (0,0)", sec, q)
	}

	for i := 0; i < 3; i++ {
		e.session.Next()
	}
	if sec, q := e.session.Position(); sec != 1 || q != 0 {
		t.Fatalf("position after crossing = (%d,%d), want (1,0)", sec, q)
	}

	e.session.Previous()
	if sec, q := e.session.Position(); sec != 0 || q != 2 {
		t.Fatalf("position back across = (%d,%d), want (0,2)", sec, q)
	}

	// Boundary no-op at the end.
	for i := 0; i < 10; i++ {
		e.session.Next()
	}
	if sec, q := e.session.Position(); sec != 1 || q != 1 {
		t.Fatalf("position at end = (%d,%d), want (1,1)", sec, q)
	}
}

func TestAnswerAutosavesWithMonotonicSeq(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	mustAnswer(t, e.session, "q1", "A")
	mustAnswer(t, e.session, "q1", "B")
	mustAnswer(t, e.session, "q2", "C")

	e.drain(t, func() bool {
		e.store.mu.Lock()
		defer e.store.mu.Unlock()
		return len(e.store.saves) == 3
	})

	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if e.store.saved["q1"].resp.Choice != "B" {
		t.Fatalf("q1 persisted %q, want B", e.store.saved["q1"].resp.Choice)
	}
	if e.store.saved["q1"].seq >= e.store.saved["q2"].seq {
		t.Fatal("sequence numbers must increase with client intent")
	}
}

// Out-of-order network completion: the store keeps the answer from the
// request issued last, by sequence, regardless of arrival order.
func TestLastWriteWinsByClientIntent(t *testing.T) {
	e := newEnv(t, 30, 0)
	store := e.store
	store.saved = make(map[string]savedCall)

	first := answer.Response{Format: model.FormatMultiSelect, Choices: []string{"A", "B"}}
	second := answer.Response{Format: model.FormatMultiSelect, Choices: []string{"C"}}

	// Deliver seq 2 before seq 1, as a reordered network would.
	if err := store.SaveResponse(context.Background(), uuid.New(), "q1", 2, second); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResponse(context.Background(), uuid.New(), "q1", 1, first); err != nil {
		t.Fatal(err)
	}
	if got := store.saved["q1"].resp; !answer.Equal(got, second) {
		t.Fatalf("persisted %+v, want the later intent %+v", got, second)
	}
}

func TestAutosaveFailureDoesNotBlock(t *testing.T) {
	e := newEnv(t, 30, 0)
	e.store.saveErr = errors.New("network down")
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	mustAnswer(t, e.session, "q1", "A")
	e.session.Next()
	mustAnswer(t, e.session, "q2", "B")

	if len(e.session.Answers()) != 2 {
		t.Fatal("local answers must reflect edits despite autosave failures")
	}
	if sec, q := e.session.Position(); sec != 0 || q != 1 {
		t.Fatalf("navigation blocked: position (%d,%d)", sec, q)
	}
}

func TestSummaryCountsAnswered(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	mustAnswer(t, e.session, "q1", "A")
	mustAnswer(t, e.session, "q2", "B")
	mustAnswer(t, e.session, "q4", "C")

	sum := e.session.Summary()
	if sum.Answered != 3 || sum.Total != 5 {
		t.Fatalf("summary = %d of %d, want 3 of 5", sum.Answered, sum.Total)
	}
	if !sum.Incomplete() {
		t.Fatal("summary should warn about unanswered items")
	}
	// Unanswered items are absent, not nulls.
	if _, present := e.session.Answers()["q3"]; present {
		t.Fatal("unanswered item must be absent from the answers map")
	}
}

func TestTickExpiryAutoSubmitsExactlyOnce(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	mustAnswer(t, e.session, "q1", "A")

	*e.now = testStart.Add(31 * time.Minute)
	e.session.Tick(context.Background())
	e.session.Tick(context.Background())
	e.session.Tick(context.Background())

	if e.store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want exactly 1", e.store.submitCount())
	}
	if got := e.session.State(); got != delivery.StateSubmitted {
		t.Fatalf("state = %s, want submitted", got)
	}
	// Further answer entry is preempted.
	err := e.session.Answer("q2", answer.Response{Format: model.FormatMCQ, Choice: "B"})
	if !errors.Is(err, delivery.ErrAttemptClosed) {
		t.Fatalf("expected ErrAttemptClosed, got %v", err)
	}
}

func TestFailedSubmitStaysSubmitting(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	e.store.submitErr = errors.New("gateway timeout")

	if err := e.session.Submit(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	if got := e.session.State(); got != delivery.StateSubmitting {
		t.Fatalf("state = %s, want submitting (never back to in_progress)", got)
	}
	if e.session.LastSubmitError() == nil {
		t.Fatal("last submit error should back the retry affordance")
	}

	// Manual retry succeeds once the network recovers.
	e.store.submitErr = nil
	if err := e.session.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := e.session.State(); got != delivery.StateSubmitted {
		t.Fatalf("state = %s, want submitted", got)
	}
}

func TestSecondSubmitIsStale(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := e.session.Submit(context.Background()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	err := e.session.Submit(context.Background())
	if !errors.Is(err, model.ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}
	if e.store.submitCount() != 1 {
		t.Fatalf("evaluation side effect must happen exactly once, got %d submits", e.store.submitCount())
	}
}

func TestIntegrityEventsFlowThroughOutbox(t *testing.T) {
	e := newEnv(t, 30, 0)
	if err := e.session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	e.source.fullscreenLost()
	e.source.visibilityLost()
	e.source.visibilityLost()

	e.drain(t, func() bool {
		e.store.mu.Lock()
		defer e.store.mu.Unlock()
		return len(e.store.events) == 3
	})

	// Submit carries the locally tracked totals even if deliveries lag.
	if err := e.session.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := e.store.submits[0]
	if req.FullscreenExits != 1 || req.TabSwitches != 2 {
		t.Fatalf("submit counters = (%d,%d), want (1,2)", req.FullscreenExits, req.TabSwitches)
	}
}

func TestSavedResponsesRestoredOnLoad(t *testing.T) {
	e := newEnv(t, 30, 0)
	restored := answer.Response{Format: model.FormatMCQ, Choice: "C"}
	store := &rehydratingStore{fakeStore: e.store, saved: map[string]delivery.SavedAnswer{
		"q1": {Seq: 7, Response: restored},
	}}
	session := delivery.NewSession(uuid.New(), store, e.outbox, &fakeSource{},
		delivery.WithClock(func() time.Time { return *e.now }))
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := session.Answers()["q1"]; !answer.Equal(got, restored) {
		t.Fatalf("restored answer = %+v, want %+v", got, restored)
	}

	// A save issued after the reload must carry a sequence above every
	// persisted one, or the store would drop it as stale.
	mustAnswer(t, session, "q2", "A")
	e.drain(t, func() bool {
		e.store.mu.Lock()
		defer e.store.mu.Unlock()
		return len(e.store.saves) == 1
	})
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if got := e.store.saves[0].seq; got <= 7 {
		t.Fatalf("post-reload seq = %d, want > 7", got)
	}
}

type rehydratingStore struct {
	*fakeStore
	saved map[string]delivery.SavedAnswer
}

func (r *rehydratingStore) Questions(ctx context.Context, id uuid.UUID) ([]delivery.SectionView, map[string]delivery.SavedAnswer, error) {
	sections, _, err := r.fakeStore.Questions(ctx, id)
	return sections, r.saved, err
}

func TestResponseWirePayload(t *testing.T) {
	resp := answer.Response{Format: model.FormatSJTRank, Ranking: []string{"b", "a"}}
	wire, err := answer.Encode(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []string
	if err := json.Unmarshal(wire, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 || decoded[0] != "b" {
		t.Fatalf("unexpected wire payload %s", wire)
	}
}
