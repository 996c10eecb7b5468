package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"concern2care/internal/domain/ai"
	"concern2care/internal/domain/notification"
	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"
	idb "concern2care/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTeacherRepo reproduces the Postgres repository's conditional-update
// semantics in memory, including the atomic increment gate.
type fakeTeacherRepo struct {
	mu       sync.Mutex
	seq      int64
	teachers map[int64]*teacher.EnrolledTeacher
}

func newFakeTeacherRepo() *fakeTeacherRepo {
	return &fakeTeacherRepo{teachers: make(map[int64]*teacher.EnrolledTeacher)}
}

func cloneTeacher(t *teacher.EnrolledTeacher) *teacher.EnrolledTeacher {
	cp := *t
	return &cp
}

func (r *fakeTeacherRepo) Create(ctx context.Context, t *teacher.EnrolledTeacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.teachers {
		if existing.Email == t.Email {
			return idb.ErrDuplicateEmail
		}
	}
	r.seq++
	t.ID = r.seq
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	r.teachers[t.ID] = cloneTeacher(t)
	return nil
}

func (r *fakeTeacherRepo) GetByID(ctx context.Context, id int64) (*teacher.EnrolledTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return nil, idb.ErrTeacherNotFound
	}
	return cloneTeacher(t), nil
}

func (r *fakeTeacherRepo) GetByEmail(ctx context.Context, email string) (*teacher.EnrolledTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teachers {
		if t.Email == email {
			return cloneTeacher(t), nil
		}
	}
	return nil, idb.ErrTeacherNotFound
}

func (r *fakeTeacherRepo) Update(ctx context.Context, t *teacher.EnrolledTeacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.teachers[t.ID]
	if !ok {
		return idb.ErrTeacherNotFound
	}
	stored.FirstName = t.FirstName
	stored.LastName = t.LastName
	stored.Position = t.Position
	stored.School = t.School
	stored.RequestsLimit = t.RequestsLimit
	stored.IsActive = t.IsActive
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTeacherRepo) ListActive(ctx context.Context) ([]*teacher.EnrolledTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*teacher.EnrolledTeacher, 0)
	for _, t := range r.teachers {
		if t.IsActive {
			out = append(out, cloneTeacher(t))
		}
	}
	return out, nil
}

func (r *fakeTeacherRepo) ListAll(ctx context.Context) ([]*teacher.EnrolledTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*teacher.EnrolledTeacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		out = append(out, cloneTeacher(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeacherRepo) IncrementUsage(ctx context.Context, id int64) (*teacher.EnrolledTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return nil, idb.ErrTeacherNotFound
	}
	if !t.IsActive || t.RequestsUsed >= t.RequestsLimit {
		return nil, idb.ErrUsageLimitExceeded
	}
	t.RequestsUsed++
	t.UpdatedAt = time.Now()
	return cloneTeacher(t), nil
}

func (r *fakeTeacherRepo) ResetUsage(ctx context.Context, id int64, resetAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return idb.ErrTeacherNotFound
	}
	t.RequestsUsed = 0
	t.LastUsageReset.Time = resetAt
	t.LastUsageReset.Valid = true
	t.UpdatedAt = time.Now()
	return nil
}

// fakeSubmissionRepo mirrors the claim/revert/mark-sent compare-and-swap
// behavior of the Postgres repository.
type fakeSubmissionRepo struct {
	mu          sync.Mutex
	seq         int64
	submissions map[int64]*submission.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[int64]*submission.Submission)}
}

func cloneSubmission(s *submission.Submission) *submission.Submission {
	cp := *s
	cp.ConcernTypes = append([]string(nil), s.ConcernTypes...)
	cp.ActionsTaken = append([]string(nil), s.ActionsTaken...)
	return &cp
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, s *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = r.seq
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.submissions[s.ID] = cloneSubmission(s)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id int64) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, idb.ErrSubmissionNotFound
	}
	return cloneSubmission(s), nil
}

func (r *fakeSubmissionRepo) GetByReference(ctx context.Context, ref string) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.Reference == ref {
			return cloneSubmission(s), nil
		}
	}
	return nil, idb.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Submission, 0)
	for _, s := range r.submissions {
		if s.TeacherID == teacherID {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func eligibleForAutoSend(s *submission.Submission, now time.Time) bool {
	if s.Status != submission.StatusPending && s.Status != submission.StatusApproved {
		return false
	}
	if s.UrgentFlag || !s.AutoSendTime.Valid {
		return false
	}
	return !s.AutoSendTime.Time.After(now)
}

func (r *fakeSubmissionRepo) ListDueForAutoSend(ctx context.Context, now time.Time) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Submission, 0)
	for _, s := range r.submissions {
		if eligibleForAutoSend(s, now) {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AutoSendTime.Time.Before(out[j].AutoSendTime.Time) })
	return out, nil
}

func (r *fakeSubmissionRepo) ListUrgent(ctx context.Context) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*submission.Submission, 0)
	for _, s := range r.submissions {
		if s.UrgentFlag && (s.Status == submission.StatusPending || s.Status == submission.StatusUrgentFlagged) {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSubmissionRepo) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok || !eligibleForAutoSend(s, now) {
		return false, nil
	}
	s.Status = submission.StatusSending
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSubmissionRepo) ClaimForManualSend(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return false, nil
	}
	switch s.Status {
	case submission.StatusPending, submission.StatusApproved, submission.StatusUrgentFlagged, submission.StatusHold:
		s.Status = submission.StatusSending
		s.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (r *fakeSubmissionRepo) RevertClaim(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok || s.Status != submission.StatusSending {
		return false, nil
	}
	s.Status = submission.StatusPending
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSubmissionRepo) MarkSent(ctx context.Context, id int64, finalStatus submission.Status, sentText string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok || s.Status != submission.StatusSending {
		return idb.ErrSubmissionNotClaimed
	}
	s.Status = finalStatus
	s.SentText.String = sentText
	s.SentText.Valid = true
	s.SentAt.Time = sentAt
	s.SentAt.Valid = true
	s.DisclaimerAttached = true
	s.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSubmissionRepo) SetReviewedText(ctx context.Context, id int64, reviewedText, reviewedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return false, nil
	}
	switch s.Status {
	case submission.StatusSending, submission.StatusAutoSent, submission.StatusCompleted, submission.StatusCancelled:
		return false, nil
	}
	s.ReviewedText.String = reviewedText
	s.ReviewedText.Valid = true
	s.AdminReviewedBy.String = reviewedBy
	s.AdminReviewedBy.Valid = true
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSubmissionRepo) OverrideStatus(ctx context.Context, id int64, to submission.Status, reviewedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return false, nil
	}
	switch s.Status {
	case submission.StatusPending, submission.StatusApproved, submission.StatusUrgentFlagged, submission.StatusHold:
		s.Status = to
		s.AdminReviewedBy.String = reviewedBy
		s.AdminReviewedBy.Valid = true
		s.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (r *fakeSubmissionRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.submissions {
		if s.Status == submission.StatusSending && s.UpdatedAt.Before(cutoff) {
			s.Status = submission.StatusPending
			s.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

// setUpdatedAt backdates a row, for stale-claim tests.
func (r *fakeSubmissionRepo) setUpdatedAt(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.submissions[id]; ok {
		s.UpdatedAt = at
	}
}

// fakeNotificationRepo is a minimal in-memory notification store.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	seq           int64
	notifications map[int64]*notification.AdminNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[int64]*notification.AdminNotification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *notification.AdminNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	n.ID = r.seq
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id int64) (*notification.AdminNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, idb.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) ListOpen(ctx context.Context) ([]*notification.AdminNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.AdminNotification, 0)
	for _, n := range r.notifications {
		if n.Status == notification.StatusUnread || n.Status == notification.StatusRead {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeNotificationRepo) ListBySubmission(ctx context.Context, submissionID int64) ([]*notification.AdminNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.AdminNotification, 0)
	for _, n := range r.notifications {
		if n.SubmissionID == submissionID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id int64) error {
	return r.setStatus(id, notification.StatusRead)
}

func (r *fakeNotificationRepo) MarkResolved(ctx context.Context, id int64) error {
	return r.setStatus(id, notification.StatusResolved)
}

func (r *fakeNotificationRepo) setStatus(id int64, status notification.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return idb.ErrNotificationNotFound
	}
	n.Status = status
	n.UpdatedAt = time.Now()
	return nil
}

// fakeGenerator counts calls and can be made to fail.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	failWith error
	text     string
}

func newFakeGenerator(text string) *fakeGenerator {
	return &fakeGenerator{text: text}
}

func (g *fakeGenerator) Generate(ctx context.Context, req ai.ConcernDescriptor) (*ai.Recommendation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	return &ai.Recommendation{Text: g.text, Disclaimer: "Use professional judgment."}, nil
}

func (g *fakeGenerator) FollowUp(ctx context.Context, req ai.ConcernDescriptor, priorText, question string) (*ai.Recommendation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	return &ai.Recommendation{Text: "Follow-up: " + question, Disclaimer: "Use professional judgment."}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// sentMessage records one dispatch through the fake sender.
type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// fakeSender records sends; failures holds the number of upcoming sends that
// should fail before the sender starts succeeding again.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failures int
}

func (s *fakeSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("smtp unavailable")
	}
	s.sent = append(s.sent, sentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSender) lastSent() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

// fakeAlerter records urgent alerts.
type fakeAlerter struct {
	mu     sync.Mutex
	alerts []int64
}

func (a *fakeAlerter) UrgentSubmission(ctx context.Context, sub *submission.Submission, t *teacher.EnrolledTeacher) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, sub.ID)
	return nil
}

func (a *fakeAlerter) alertCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// testEnv wires the full service stack onto the fakes.
type testEnv struct {
	clock       *fakeClock
	teachers    *fakeTeacherRepo
	subs        *fakeSubmissionRepo
	notifs      *fakeNotificationRepo
	generator   *fakeGenerator
	sender      *fakeSender
	alerter     *fakeAlerter
	usage       *UsageService
	submissions *SubmissionService
	autoSend    *AutoSendService
	admin       *AdminService
}

const (
	testAutoSendDelay     = 30 * time.Minute
	testStaleClaimTimeout = 5 * time.Minute
)

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:     newFakeClock(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)),
		teachers:  newFakeTeacherRepo(),
		subs:      newFakeSubmissionRepo(),
		notifs:    newFakeNotificationRepo(),
		generator: newFakeGenerator("Try flexible grouping and a daily check-in."),
		sender:    &fakeSender{},
		alerter:   &fakeAlerter{},
	}
	log := testLogger()
	env.usage = NewUsageService(env.teachers, env.clock, log)
	env.submissions = NewSubmissionService(env.teachers, env.subs, env.notifs, env.usage, env.generator, env.alerter, env.clock, testAutoSendDelay, log)
	env.autoSend = NewAutoSendService(env.subs, env.teachers, env.sender, env.clock, testStaleClaimTimeout, log)
	env.admin = NewAdminService(env.teachers, env.subs, env.notifs, env.usage, env.autoSend, log)
	return env
}

func (e *testEnv) seedTeacher(used, limit int, active bool) *teacher.EnrolledTeacher {
	t := &teacher.EnrolledTeacher{
		FirstName:     "Dana",
		LastName:      "Reyes",
		Email:         fmt.Sprintf("dana.reyes+%d@school.example", e.teachers.seq+1),
		RequestsLimit: limit,
		IsActive:      active,
		CreatedAt:     e.clock.Now(),
	}
	if err := e.teachers.Create(context.Background(), t); err != nil {
		panic(err)
	}
	// Seed the counter directly; Create always starts at zero.
	e.teachers.mu.Lock()
	e.teachers.teachers[t.ID].RequestsUsed = used
	e.teachers.mu.Unlock()
	t.RequestsUsed = used
	return t
}

func (e *testEnv) createRequest(teacherID int64) CreateSubmissionRequest {
	return CreateSubmissionRequest{
		TeacherID:          teacherID,
		StudentFirstName:   "Maya",
		StudentLastInitial: "K",
		StudentAge:         9,
		GradeLevel:         "4",
		TaskType:           submission.TaskDifferentiation,
		Severity:           submission.SeverityModerate,
		ConcernTypes:       []string{"academic", "attention"},
		ConcernDescription: "Struggles to stay on task during independent reading.",
		ActionsTaken:       []string{"preferential seating"},
	}
}
