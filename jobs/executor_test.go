package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"standards-gateway/store"
	"standards-gateway/upstream"
)

type fakeStore struct {
	mu          sync.Mutex
	status      string
	transitions [][2]string
	results     []*store.TaskResult
	failErr     error
}

func newFakeStore(initial string) *fakeStore {
	return &fakeStore{status: initial}
}

func (f *fakeStore) Transition(taskID string, from []string, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := false
	for _, s := range from {
		if s == f.status {
			matched = true
		}
	}
	if !matched {
		return errors.New("illegal transition")
	}
	f.transitions = append(f.transitions, [2]string{f.status, to})
	f.status = to
	return nil
}

func (f *fakeStore) ForceFail(taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.status = store.StatusFailed
	return nil
}

func (f *fakeStore) CreateTaskResult(r *store.TaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeStore) currentStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

type fakeUpstream struct {
	result *upstream.Result
	err    error
}

func (u *fakeUpstream) ForwardStandardType(ctx context.Context, taskType string, body interface{}) (*upstream.Result, error) {
	return u.result, u.err
}

type fakeExtractor struct {
	err error
}

func (e *fakeExtractor) Extract(taskID, userID, taskType string, body interface{}) (*store.TaskResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &store.TaskResult{ID: "r1", TaskID: taskID, UserID: userID, Answer: "ok"}, nil
}

func waitForStatus(t *testing.T, s *fakeStore, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.currentStatus() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s, got %s", want, s.currentStatus())
}

func TestLaunchSuccessReachesCompleted(t *testing.T) {
	fs := newFakeStore(store.StatusUploaded)
	up := &fakeUpstream{result: &upstream.Result{Success: true, StatusCode: 200, Body: map[string]interface{}{"answer": "[]"}}}
	ex := NewExecutor(fs, up, &fakeExtractor{}, nil)

	task := &store.Task{ID: "t1", UserID: "u1", TaskType: "standard_review", Status: store.StatusUploaded}
	if err := ex.Launch(task, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForStatus(t, fs, store.StatusCompleted)

	if len(fs.results) != 1 {
		t.Fatalf("expected one persisted result, got %d", len(fs.results))
	}
}

func TestLaunchUpstreamFailureReachesFailed(t *testing.T) {
	fs := newFakeStore(store.StatusUploaded)
	up := &fakeUpstream{result: &upstream.Result{Success: false, StatusCode: 502}}
	ex := NewExecutor(fs, up, &fakeExtractor{}, nil)

	task := &store.Task{ID: "t2", UserID: "u1", TaskType: "standard_review", Status: store.StatusUploaded}
	if err := ex.Launch(task, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForStatus(t, fs, store.StatusFailed)
}

func TestLaunchExtractorFailureReachesFailed(t *testing.T) {
	fs := newFakeStore(store.StatusUploaded)
	up := &fakeUpstream{result: &upstream.Result{Success: true, StatusCode: 200, Body: "garbage"}}
	ex := NewExecutor(fs, up, &fakeExtractor{err: errors.New("bad payload")}, nil)

	task := &store.Task{ID: "t3", UserID: "u1", TaskType: "standard_review", Status: store.StatusUploaded}
	if err := ex.Launch(task, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForStatus(t, fs, store.StatusFailed)
}

func TestLaunchRejectsWrongStartingStatus(t *testing.T) {
	fs := newFakeStore(store.StatusPending)
	ex := NewExecutor(fs, &fakeUpstream{}, &fakeExtractor{}, nil)

	task := &store.Task{ID: "t4", UserID: "u1", TaskType: "standard_review", Status: store.StatusPending}
	if err := ex.Launch(task, nil); err == nil {
		t.Fatal("expected error launching a task that is not in uploaded state")
	}
}
