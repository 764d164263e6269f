package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, r.err }

type execCall struct {
	query string
	args  []interface{}
}

// mockExecutor は呼び出されたクエリを順に記録し、呼び出し順の結果を返す。
type mockExecutor struct {
	mu      sync.Mutex
	calls   []execCall
	results []sql.Result
	errs    []error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.calls)
	m.calls = append(m.calls, execCall{query: query, args: args})

	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.results) {
		return m.results[i], nil
	}
	return &fakeResult{}, nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type cleanedRecord struct {
	action string
	count  int64
}

type mockRecorder struct {
	records []cleanedRecord
}

func (m *mockRecorder) RecordInvitesCleaned(action string, count int64) {
	m.records = append(m.records, cleanedRecord{action: action, count: count})
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewInviteCleanupJob_Defaults(t *testing.T) {
	var buf bytes.Buffer
	job := NewInviteCleanupJob(&mockExecutor{}, newTestLogger(&buf), nil)

	if job == nil {
		t.Fatal("NewInviteCleanupJob は nil を返してはならない")
	}
	if job.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", job.RetentionDays)
	}
}

func TestInviteCleanupJob_Run_ExpiresThenDeletes(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{
		results: []sql.Result{&fakeResult{rowsAffected: 3}, &fakeResult{rowsAffected: 7}},
	}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(mock.calls) != 2 {
		t.Fatalf("ExecContext called %d times, want 2", len(mock.calls))
	}

	expire := mock.calls[0]
	if !strings.Contains(expire.query, "UPDATE borrower_invites") {
		t.Errorf("first query should update borrower_invites, got: %s", expire.query)
	}
	if !strings.Contains(expire.query, "status = 'pending'") {
		t.Errorf("first query should target pending invites, got: %s", expire.query)
	}
	if len(expire.args) != 0 {
		t.Errorf("first query args = %v, want none", expire.args)
	}

	del := mock.calls[1]
	if !strings.Contains(del.query, "DELETE FROM borrower_invites") {
		t.Errorf("second query should delete from borrower_invites, got: %s", del.query)
	}
	if !strings.Contains(del.query, "status = 'expired'") {
		t.Errorf("second query should target expired invites, got: %s", del.query)
	}
	if len(del.args) != 1 || del.args[0] != "30 days" {
		t.Errorf("second query args = %v, want [30 days]", del.args)
	}
}

func TestInviteCleanupJob_Run_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)
	job.RetentionDays = 90

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := mock.calls[1].args[0]; got != "90 days" {
		t.Errorf("interval arg = %v, want 90 days", got)
	}
}

func TestInviteCleanupJob_Run_LogsCounts(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{
		results: []sql.Result{&fakeResult{rowsAffected: 2}, &fakeResult{rowsAffected: 5}},
	}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v, raw: %s", err, buf.String())
	}

	if entry["msg"] != "invite cleanup completed" {
		t.Errorf("msg = %v, want invite cleanup completed", entry["msg"])
	}
	if entry["expired_count"] != float64(2) {
		t.Errorf("expired_count = %v, want 2", entry["expired_count"])
	}
	if entry["deleted_count"] != float64(5) {
		t.Errorf("deleted_count = %v, want 5", entry["deleted_count"])
	}
	if entry["retention_days"] != float64(30) {
		t.Errorf("retention_days = %v, want 30", entry["retention_days"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("log entry should contain duration_ms")
	}
}

func TestInviteCleanupJob_Run_RecordsCounts(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{
		results: []sql.Result{&fakeResult{rowsAffected: 4}, &fakeResult{rowsAffected: 1}},
	}
	rec := &mockRecorder{}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), rec)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []cleanedRecord{{action: ActionExpired, count: 4}, {action: ActionDeleted, count: 1}}
	if len(rec.records) != len(want) {
		t.Fatalf("records = %v, want %v", rec.records, want)
	}
	for i := range want {
		if rec.records[i] != want[i] {
			t.Errorf("records[%d] = %+v, want %+v", i, rec.records[i], want[i])
		}
	}
}

func TestInviteCleanupJob_Run_ExpireError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{errs: []error{errors.New("connection refused")}}
	rec := &mockRecorder{}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), rec)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run should return error when the update fails")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap the cause, got: %v", err)
	}
	if len(mock.calls) != 1 {
		t.Errorf("delete should not run after update failure, calls = %d", len(mock.calls))
	}
	if len(rec.records) != 0 {
		t.Errorf("nothing should be recorded on failure, got %v", rec.records)
	}
}

func TestInviteCleanupJob_Run_DeleteError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{errs: []error{nil, errors.New("deadlock detected")}}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run should return error when the delete fails")
	}
	if !strings.Contains(err.Error(), "delete expired invites") {
		t.Errorf("error should name the failed step, got: %v", err)
	}
}

func TestInviteCleanupJob_Run_RowsAffectedError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{
		results: []sql.Result{&fakeResult{err: errors.New("driver does not support")}},
	}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run should return error when RowsAffected fails")
	}
}

func TestInviteCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewInviteCleanupJob(mock, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mock.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Start should run the job immediately")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start should return after context cancellation")
	}
}

func TestInviteCleanupJob_Start_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		var buf bytes.Buffer
		job := NewInviteCleanupJob(&mockExecutor{}, newTestLogger(&buf), nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			job.Start(ctx, interval)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Start(%v) should return after context cancellation", interval)
		}
		if !strings.Contains(buf.String(), `"interval":`+fmt.Sprintf("%d", DefaultInterval)) {
			t.Errorf("Start(%v) should fall back to %v, log: %s", interval, DefaultInterval, buf.String())
		}
	}
}
