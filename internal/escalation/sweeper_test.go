package escalation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wifi-portal/request-service/internal/model"
)

type overdueKey struct {
	status   model.RequestStatus
	ageField string
}

// fakeStore — хранилище в памяти для свипа. Фиксирует порядок вызовов по
// каждой заявке, чтобы проверять status → comment → notify.
type fakeStore struct {
	overdue      map[overdueKey][]model.WifiRequest
	cutoffs      map[overdueKey]time.Time
	alreadyEsc   map[string]bool
	escalateErr  map[string]error
	commentErr   map[string]error
	escalated    []string
	comments     map[string]string
	callOrder    []string
	listErr      error
	listErrField string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		overdue:     make(map[overdueKey][]model.WifiRequest),
		cutoffs:     make(map[overdueKey]time.Time),
		alreadyEsc:  make(map[string]bool),
		escalateErr: make(map[string]error),
		commentErr:  make(map[string]error),
		comments:    make(map[string]string),
	}
}

func (f *fakeStore) ListOverdue(_ context.Context, status model.RequestStatus, ageField string, cutoff time.Time) ([]model.WifiRequest, error) {
	if f.listErr != nil && (f.listErrField == "" || f.listErrField == ageField) {
		return nil, f.listErr
	}
	k := overdueKey{status, ageField}
	f.cutoffs[k] = cutoff
	return f.overdue[k], nil
}

func (f *fakeStore) EscalateOverdue(_ context.Context, id string, from model.RequestStatus) (bool, error) {
	f.callOrder = append(f.callOrder, "escalate:"+id)
	if err := f.escalateErr[id]; err != nil {
		return false, err
	}
	if f.alreadyEsc[id] {
		return false, nil
	}
	f.alreadyEsc[id] = true
	f.escalated = append(f.escalated, id)
	return true, nil
}

func (f *fakeStore) AddComment(_ context.Context, requestID, userName, text string) error {
	f.callOrder = append(f.callOrder, "comment:"+requestID)
	if err := f.commentErr[requestID]; err != nil {
		return err
	}
	if userName != model.SystemUser {
		return errors.New("sweep comments must be authored by System")
	}
	f.comments[requestID] = text
	return nil
}

type fakeSettings struct {
	settings *model.EscalationSettings
	err      error
}

func (f *fakeSettings) GetOrCreate(context.Context) (*model.EscalationSettings, error) {
	return f.settings, f.err
}

type notifyCall struct {
	id         string
	recipients []string
	reason     string
}

type fakeNotifier struct {
	store *fakeStore
	calls []notifyCall
}

func (f *fakeNotifier) Notify(r *model.WifiRequest, recipients []string, reason string) bool {
	if f.store != nil {
		f.store.callOrder = append(f.store.callOrder, "notify:"+r.ID)
	}
	f.calls = append(f.calls, notifyCall{id: r.ID, recipients: recipients, reason: reason})
	return true
}

func settingsWith(t *testing.T, emails []string, pending, progress int) *model.EscalationSettings {
	t.Helper()
	s := &model.EscalationSettings{
		PendingThreshold:  pending,
		ProgressThreshold: progress,
	}
	if err := s.SetEmails(emails); err != nil {
		t.Fatalf("SetEmails: %v", err)
	}
	return s
}

func newTestSweeper(store *fakeStore, settings *model.EscalationSettings, notifier *fakeNotifier) *Sweeper {
	return NewSweeper(Deps{
		Requests: store,
		Settings: &fakeSettings{settings: settings},
		Notifier: notifier,
	})
}

func TestSweepNoEmailsConfigured(t *testing.T) {
	store := newFakeStore()
	store.overdue[overdueKey{model.StatusPending, "created_at"}] = []model.WifiRequest{
		{ID: "john101", Status: model.StatusPending},
	}
	sw := newTestSweeper(store, settingsWith(t, nil, 20, 45), &fakeNotifier{})

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.EscalatedCount != 0 {
		t.Errorf("result = %+v, want success with zero escalations", res)
	}
	if res.Message != "No escalation emails configured" {
		t.Errorf("message = %q", res.Message)
	}
	// Без адресатов свип не делает ни одной записи — даже просроченные ждут.
	if len(store.callOrder) != 0 {
		t.Errorf("store writes = %v, want none", store.callOrder)
	}
}

func TestSweepNoCandidates(t *testing.T) {
	store := newFakeStore()
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), &fakeNotifier{})

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.EscalatedCount != 0 || res.Message != "No requests to escalate" {
		t.Errorf("result = %+v", res)
	}
}

func TestSweepEscalatesBothBuckets(t *testing.T) {
	store := newFakeStore()
	store.overdue[overdueKey{model.StatusPending, "created_at"}] = []model.WifiRequest{
		{ID: "john101", Status: model.StatusPending, Name: "John", RoomNumber: "101"},
	}
	store.overdue[overdueKey{model.StatusInProgress, "updated_at"}] = []model.WifiRequest{
		{ID: "mari22", Status: model.StatusInProgress, Name: "Maria", RoomNumber: "22"},
	}
	notifier := &fakeNotifier{store: store}
	emails := []string{"it@hotel.test", "noc@hotel.test"}
	sw := newTestSweeper(store, settingsWith(t, emails, 30, 60), notifier)

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.EscalatedCount != 2 {
		t.Fatalf("EscalatedCount = %d, want 2", res.EscalatedCount)
	}
	if res.Message != "Escalated 2 requests" {
		t.Errorf("message = %q", res.Message)
	}

	// Комментарий называет нарушенный порог с настроенными минутами.
	if c := store.comments["john101"]; !strings.Contains(c, "pending for 30+ minutes") {
		t.Errorf("pending comment = %q", c)
	}
	if c := store.comments["mari22"]; !strings.Contains(c, "in progress for 60+ minutes") {
		t.Errorf("in-progress comment = %q", c)
	}

	if len(notifier.calls) != 2 {
		t.Fatalf("notify calls = %d, want 2", len(notifier.calls))
	}
	for _, call := range notifier.calls {
		if len(call.recipients) != 2 {
			t.Errorf("recipients for %s = %v", call.id, call.recipients)
		}
		if !strings.Contains(call.reason, "automatically escalated") {
			t.Errorf("reason = %q", call.reason)
		}
	}

	// Для каждой заявки порядок строго status → comment → notify.
	want := []string{
		"escalate:john101", "comment:john101", "notify:john101",
		"escalate:mari22", "comment:mari22", "notify:mari22",
	}
	if len(store.callOrder) != len(want) {
		t.Fatalf("callOrder = %v", store.callOrder)
	}
	for i := range want {
		if store.callOrder[i] != want[i] {
			t.Fatalf("callOrder[%d] = %s, want %s", i, store.callOrder[i], want[i])
		}
	}
}

func TestSweepCutoffsUseConfiguredThresholds(t *testing.T) {
	store := newFakeStore()
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), &fakeNotifier{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sw.now = func() time.Time { return now }

	if _, err := sw.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pendingCutoff := store.cutoffs[overdueKey{model.StatusPending, "created_at"}]
	if got, want := pendingCutoff, now.Add(-20*time.Minute); !got.Equal(want) {
		t.Errorf("pending cutoff = %v, want %v", got, want)
	}
	progressCutoff := store.cutoffs[overdueKey{model.StatusInProgress, "updated_at"}]
	if got, want := progressCutoff, now.Add(-45*time.Minute); !got.Equal(want) {
		t.Errorf("in-progress cutoff = %v, want %v", got, want)
	}
}

func TestSweepZeroThresholdsFallBackToDefaults(t *testing.T) {
	store := newFakeStore()
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 0, 0), &fakeNotifier{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sw.now = func() time.Time { return now }

	if _, err := sw.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := store.cutoffs[overdueKey{model.StatusPending, "created_at"}]
	if want := now.Add(-time.Duration(model.DefaultPendingThreshold) * time.Minute); !got.Equal(want) {
		t.Errorf("pending cutoff = %v, want default %v", got, want)
	}
}

func TestSweepIdempotent(t *testing.T) {
	store := newFakeStore()
	key := overdueKey{model.StatusPending, "created_at"}
	store.overdue[key] = []model.WifiRequest{
		{ID: "john101", Status: model.StatusPending},
	}
	notifier := &fakeNotifier{}
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), notifier)

	res, err := sw.Run(context.Background())
	if err != nil || res.EscalatedCount != 1 {
		t.Fatalf("first run: res=%+v err=%v", res, err)
	}

	// Второй прогон без течения времени: заявка уже escalated и не попадает
	// в кандидаты; даже если бы попала, условная запись вернёт no-op.
	store.overdue[key] = nil
	res, err = sw.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.EscalatedCount != 0 {
		t.Errorf("second run escalated %d, want 0", res.EscalatedCount)
	}
	if len(notifier.calls) != 1 {
		t.Errorf("notify calls = %d, want 1 (no re-notification)", len(notifier.calls))
	}
}

func TestSweepSkipsConcurrentlyEscalated(t *testing.T) {
	store := newFakeStore()
	store.overdue[overdueKey{model.StatusPending, "created_at"}] = []model.WifiRequest{
		{ID: "john101", Status: model.StatusPending},
		{ID: "mari22", Status: model.StatusPending},
	}
	store.alreadyEsc["john101"] = true // кто-то эскалировал между SELECT и UPDATE
	notifier := &fakeNotifier{}
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), notifier)

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.EscalatedCount != 1 {
		t.Errorf("EscalatedCount = %d, want 1 (lost racer not counted)", res.EscalatedCount)
	}
	if _, ok := store.comments["john101"]; ok {
		t.Error("lost racer must not get a duplicate system comment")
	}
	if len(notifier.calls) != 1 || notifier.calls[0].id != "mari22" {
		t.Errorf("notify calls = %+v, want only mari22", notifier.calls)
	}
}

func TestSweepStatusWriteFailureIsolated(t *testing.T) {
	store := newFakeStore()
	store.overdue[overdueKey{model.StatusPending, "created_at"}] = []model.WifiRequest{
		{ID: "bad1", Status: model.StatusPending},
		{ID: "good1", Status: model.StatusPending},
	}
	store.escalateErr["bad1"] = errors.New("connection reset")
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), &fakeNotifier{})

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v (per-candidate failure must not abort the sweep)", err)
	}
	if res.EscalatedCount != 1 {
		t.Errorf("EscalatedCount = %d, want 1", res.EscalatedCount)
	}
}

func TestSweepCommentFailureDoesNotUndoEscalation(t *testing.T) {
	store := newFakeStore()
	store.overdue[overdueKey{model.StatusPending, "created_at"}] = []model.WifiRequest{
		{ID: "john101", Status: model.StatusPending},
	}
	store.commentErr["john101"] = errors.New("insert failed")
	notifier := &fakeNotifier{}
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), notifier)

	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.EscalatedCount != 1 {
		t.Errorf("EscalatedCount = %d, want 1 (status commit stands)", res.EscalatedCount)
	}
	if len(notifier.calls) != 1 {
		t.Errorf("notification must still be attempted after a comment failure")
	}
}

func TestSweepSettingsReadFailureFatal(t *testing.T) {
	sw := NewSweeper(Deps{
		Requests: newFakeStore(),
		Settings: &fakeSettings{err: errors.New("store down")},
		Notifier: &fakeNotifier{},
	})
	res, err := sw.Run(context.Background())
	if err == nil {
		t.Fatal("expected error on settings read failure")
	}
	if res.Success {
		t.Error("result must not report success")
	}
}

func TestSweepCandidateQueryFailureFatal(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("query timeout")
	sw := newTestSweeper(store, settingsWith(t, []string{"it@hotel.test"}, 20, 45), &fakeNotifier{})

	if _, err := sw.Run(context.Background()); err == nil {
		t.Fatal("expected error when the candidate query fails")
	}
	if len(store.escalated) != 0 {
		t.Errorf("no candidate may be processed after a failed read: %v", store.escalated)
	}
}
