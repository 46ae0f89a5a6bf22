package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/notify"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"github.com/google/uuid"
)

var testNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory commitment store with the same status predicate
// the real repository enforces
type fakeRepo struct {
	mu          sync.Mutex
	commitments map[uuid.UUID]*models.Commitment
	createErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{commitments: make(map[uuid.UUID]*models.Commitment)}
}

func (r *fakeRepo) Create(_ context.Context, c *models.Commitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *c
	r.commitments[c.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Commitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commitments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) MarkResolved(_ context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commitments[id]
	if !ok {
		return database.ErrNotFound
	}
	if c.Status != models.StatusPending {
		return database.ErrAlreadyResolved
	}
	c.Status = status
	c.ResolvedAt = &resolvedAt
	return nil
}

func (r *fakeRepo) ListByUserBetween(context.Context, string, time.Time, time.Time) ([]*models.Commitment, error) {
	return nil, nil
}

func (r *fakeRepo) ListPendingByUser(context.Context, string) ([]*models.Commitment, error) {
	return nil, nil
}

func (r *fakeRepo) ExistsForHabitSlot(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

// fakeScheduler records scheduled and cancelled jobs
type fakeScheduler struct {
	mu          sync.Mutex
	scheduled   map[string]*scheduler.Job
	cancelled   []string
	scheduleErr error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]*scheduler.Job)}
}

func (s *fakeScheduler) ScheduleAt(_ context.Context, job *scheduler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduleErr != nil {
		return s.scheduleErr
	}
	s.scheduled[job.ID] = job
	return nil
}

func (s *fakeScheduler) Cancel(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, jobID)
	s.cancelled = append(s.cancelled, jobID)
	return nil
}

func (s *fakeScheduler) Exists(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scheduled[jobID]
	return ok, nil
}

func (s *fakeScheduler) Consume(context.Context, int) (<-chan *scheduler.Message, <-chan error, error) {
	return nil, nil, nil
}

func (s *fakeScheduler) Close() error                      { return nil }
func (s *fakeScheduler) HealthCheck(context.Context) error { return nil }

func (s *fakeScheduler) job(kind scheduler.JobKind, id uuid.UUID) *scheduler.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled[scheduler.JobID(kind, id)]
}

// fakeSink records sent prompts and edits
type fakeSink struct {
	mu      sync.Mutex
	prompts []notify.Prompt
	edits   []string
}

func (s *fakeSink) Send(_ context.Context, p notify.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	return nil
}

func (s *fakeSink) EditLast(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, text)
	return nil
}

func newTestEngine() (*Engine, *fakeRepo, *fakeScheduler, *fakeSink) {
	repo := newFakeRepo()
	sched := newFakeScheduler()
	sink := &fakeSink{}
	engine := NewEngine(repo, sched, sink, nil, WithClock(func() time.Time { return testNow }))
	return engine, repo, sched, sink
}

func TestEngine_CreateEvent_SchedulesCheckAndExpiry(t *testing.T) {
	t.Parallel()

	engine, _, sched, _ := newTestEngine()

	c := &models.Commitment{
		UserID:          "user-1",
		Kind:            models.KindEvent,
		Description:     "Dinner with family",
		ScheduledAt:     time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
	}

	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	check := sched.job(scheduler.JobKindCheck, c.ID)
	if check == nil {
		t.Fatal("no check job scheduled")
	}
	wantCheck := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	if !check.RunAt.Equal(wantCheck) {
		t.Errorf("check RunAt = %v, want %v", check.RunAt, wantCheck)
	}

	expire := sched.job(scheduler.JobKindExpire, c.ID)
	if expire == nil {
		t.Fatal("no expire job scheduled")
	}
	if !expire.RunAt.Equal(wantCheck.Add(DefaultGrace)) {
		t.Errorf("expire RunAt = %v, want %v", expire.RunAt, wantCheck.Add(DefaultGrace))
	}
	if !expire.RunAt.After(check.RunAt) {
		t.Error("expiry must fire strictly after the outcome check")
	}

	if remind := sched.job(scheduler.JobKindRemind, c.ID); remind != nil {
		t.Error("events must not get an advance reminder")
	}
}

func TestEngine_CreateTask_SchedulesReminderOnly(t *testing.T) {
	t.Parallel()

	engine, _, sched, _ := newTestEngine()

	due := time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)
	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindTask,
		Description: "Submit the report",
		ScheduledAt: due,
	}

	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	remind := sched.job(scheduler.JobKindRemind, c.ID)
	if remind == nil {
		t.Fatal("no remind job scheduled")
	}
	if !remind.RunAt.Equal(due.Add(-DefaultTaskLead)) {
		t.Errorf("remind RunAt = %v, want %v", remind.RunAt, due.Add(-DefaultTaskLead))
	}

	if sched.job(scheduler.JobKindCheck, c.ID) != nil {
		t.Error("tasks must not get an outcome check")
	}
	if sched.job(scheduler.JobKindExpire, c.ID) != nil {
		t.Error("tasks must never auto-expire")
	}
}

func TestEngine_CreateTask_DefaultsDuration(t *testing.T) {
	t.Parallel()

	engine, repo, _, _ := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindTask,
		Description: "Submit the report",
		ScheduledAt: testNow.Add(2 * time.Hour),
	}

	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.DurationMinutes != models.DefaultDurationMinutes {
		t.Errorf("DurationMinutes = %d, want %d", stored.DurationMinutes, models.DefaultDurationMinutes)
	}
}

func TestEngine_CreateTask_PastDeadlineRejected(t *testing.T) {
	t.Parallel()

	engine, _, sched, _ := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindTask,
		Description: "Submit the report",
		ScheduledAt: testNow.Add(-time.Hour),
	}

	err := engine.Create(context.Background(), c)
	if !errors.Is(err, ErrScheduledInPast) {
		t.Fatalf("Create error = %v, want ErrScheduledInPast", err)
	}
	if len(sched.scheduled) != 0 {
		t.Error("nothing may be scheduled for a rejected commitment")
	}
}

func TestEngine_Create_PersistFailureSchedulesNothing(t *testing.T) {
	t.Parallel()

	engine, repo, sched, _ := newTestEngine()
	repo.createErr = errors.New("connection refused")

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}

	err := engine.Create(context.Background(), c)
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("Create error = %v, want ErrPersistenceFailed", err)
	}
	if len(sched.scheduled) != 0 {
		t.Error("jobs scheduled despite failed persist")
	}
}

func TestEngine_Create_BrokerDownStillPersists(t *testing.T) {
	t.Parallel()

	engine, repo, sched, _ := newTestEngine()
	sched.scheduleErr = errors.New("broker down")

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}

	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create with broker down = %v, want success", err)
	}

	stored, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending", stored.Status)
	}
	if len(sched.scheduled) != 0 {
		t.Errorf("%d jobs scheduled with broker down, want 0", len(sched.scheduled))
	}
}

func TestEngine_Resolve_CancelsJobs(t *testing.T) {
	t.Parallel()

	engine, _, sched, _ := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	resolved, err := engine.Resolve(context.Background(), c.ID, models.StatusDone)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Status != models.StatusDone {
		t.Errorf("Status = %q, want done", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}
	if len(sched.scheduled) != 0 {
		t.Errorf("%d jobs still scheduled after resolve, want 0", len(sched.scheduled))
	}
}

func TestEngine_Resolve_SecondAttemptLoses(t *testing.T) {
	t.Parallel()

	engine, _, _, _ := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := engine.Resolve(context.Background(), c.ID, models.StatusDone); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	_, err := engine.Resolve(context.Background(), c.ID, models.StatusMissed)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Resolve error = %v, want ErrAlreadyResolved", err)
	}

	stored, err := engine.commitments.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusDone {
		t.Errorf("Status = %q, first resolution must stand", stored.Status)
	}
}

func TestEngine_Resolve_UnknownID(t *testing.T) {
	t.Parallel()

	engine, _, _, _ := newTestEngine()

	_, err := engine.Resolve(context.Background(), uuid.New(), models.StatusDone)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve error = %v, want ErrNotFound", err)
	}
}

func TestEngine_Resolve_NonTerminalStatus(t *testing.T) {
	t.Parallel()

	engine, _, _, _ := newTestEngine()

	_, err := engine.Resolve(context.Background(), uuid.New(), models.StatusPending)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("Resolve error = %v, want ErrInvalidStatus", err)
	}
}

func TestEngine_HandleCheck_PromptsForOutcome(t *testing.T) {
	t.Parallel()

	engine, _, sched, sink := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	job := sched.job(scheduler.JobKindCheck, c.ID)
	if err := engine.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	if len(sink.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(sink.prompts))
	}
	if sink.prompts[0].UserID != "user-1" {
		t.Errorf("prompt UserID = %q", sink.prompts[0].UserID)
	}
	if len(sink.prompts[0].Options) != 2 {
		t.Errorf("prompt options = %v, want Done/Missed", sink.prompts[0].Options)
	}
}

func TestEngine_HandleCheck_SkipsResolved(t *testing.T) {
	t.Parallel()

	engine, _, sched, sink := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(24 * time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	job := sched.job(scheduler.JobKindCheck, c.ID)

	if _, err := engine.Resolve(context.Background(), c.ID, models.StatusDone); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if err := engine.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(sink.prompts) != 0 {
		t.Errorf("got %d prompts for a resolved commitment, want 0", len(sink.prompts))
	}
}

func TestEngine_HandleExpire_MarksMissed(t *testing.T) {
	t.Parallel()

	engine, repo, sched, sink := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindHabit,
		Description: "Morning run",
		ScheduledAt: testNow.Add(time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	job := sched.job(scheduler.JobKindExpire, c.ID)
	if err := engine.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusMissed {
		t.Errorf("Status = %q, want missed", stored.Status)
	}
	if len(sink.edits) != 1 {
		t.Errorf("got %d edits, want the expiry notice", len(sink.edits))
	}
	if sched.job(scheduler.JobKindCheck, c.ID) != nil {
		t.Error("check job still registered after expiry")
	}
}

func TestEngine_HandleExpire_AnsweredInTime(t *testing.T) {
	t.Parallel()

	engine, repo, sched, sink := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindEvent,
		Description: "Dinner with family",
		ScheduledAt: testNow.Add(time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	job := sched.job(scheduler.JobKindExpire, c.ID)

	if _, err := engine.Resolve(context.Background(), c.ID, models.StatusDone); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if err := engine.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusDone {
		t.Errorf("Status = %q, expiry must not override an answer", stored.Status)
	}
	if len(sink.prompts) != 0 {
		t.Errorf("got %d prompts, want none", len(sink.prompts))
	}
}

func TestEngine_HandleRemind_PendingTask(t *testing.T) {
	t.Parallel()

	engine, _, sched, sink := newTestEngine()

	c := &models.Commitment{
		UserID:      "user-1",
		Kind:        models.KindTask,
		Description: "Submit the report",
		ScheduledAt: testNow.Add(2 * time.Hour),
	}
	if err := engine.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	job := sched.job(scheduler.JobKindRemind, c.ID)
	if err := engine.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(sink.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(sink.prompts))
	}
}
