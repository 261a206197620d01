package storage

import (
	"testing"
	"time"
)

func TestEnqueueAndClaimTask(t *testing.T) {
	s := openTestStore(t)

	task, err := s.EnqueueTask(Task{Type: "scrape_jobs", PayloadJSON: `{"query":"vc"}`})
	if err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.ClaimNextTask([]string{"scrape_jobs"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextTask returned nil")
	}
	if got.ID != task.ID {
		t.Errorf("ID = %q, want %q", got.ID, task.ID)
	}
	if got.PayloadJSON != `{"query":"vc"}` {
		t.Errorf("PayloadJSON = %q", got.PayloadJSON)
	}
	if got.Status != "running" {
		t.Errorf("Status = %q, want %q", got.Status, "running")
	}
	if got.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got.MaxAttempts)
	}
}

func TestClaimNextTask_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ClaimNextTask([]string{"scrape_jobs"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestClaimNextTask_RespectRunAfter(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnqueueTask(Task{Type: "scrape_jobs", RunAfter: time.Now().UTC().Add(time.Hour)}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	got, err := s.ClaimNextTask([]string{"scrape_jobs"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for future run_after, got %+v", got)
	}
}

func TestClaimNextTask_TypeFilterAndSkipsRunning(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnqueueTask(Task{ID: "t-a", Type: "a"}); err != nil {
		t.Fatalf("EnqueueTask a: %v", err)
	}
	if _, err := s.EnqueueTask(Task{ID: "t-b", Type: "b"}); err != nil {
		t.Fatalf("EnqueueTask b: %v", err)
	}

	got, err := s.ClaimNextTask([]string{"b"})
	if err != nil || got == nil || got.ID != "t-b" {
		t.Fatalf("expected t-b, got %+v err=%v", got, err)
	}
	again, err := s.ClaimNextTask([]string{"b"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if again != nil {
		t.Errorf("running task claimed twice: %+v", again)
	}
}

func TestCompleteTask(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnqueueTask(Task{ID: "t-done", Type: "x"}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if _, err := s.ClaimNextTask([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if err := s.CompleteTask("t-done"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	got, err := s.GetTask("t-done")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestFailTask_BacksOffThenFails(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.EnqueueTask(Task{ID: "t-fail", Type: "x", MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if _, err := s.ClaimNextTask([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}

	before := time.Now().UTC()
	if err := s.FailTask("t-fail", "exa unavailable"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	got, err := s.GetTask("t-fail")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != "pending" || got.Attempts != 1 || got.LastError != "exa unavailable" {
		t.Errorf("unexpected task after first failure: %+v", got)
	}
	if !got.RunAfter.After(before) {
		t.Errorf("run_after %v should be after %v", got.RunAfter, before)
	}

	if err := s.FailTask("t-fail", "still down"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	got, err = s.GetTask("t-fail")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("status = %q, want failed", got.Status)
	}
}
