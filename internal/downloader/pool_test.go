package downloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/ratelimit"
)

// mockSaver records calls and fails the note ids listed in fail
type mockSaver struct {
	delay   time.Duration
	fail    map[string]bool
	calls   int32
	active  int32
	maxSeen int32
	mu      sync.Mutex
	choices []models.SaveChoice
}

func (m *mockSaver) SaveNote(ctx context.Context, note models.Note, choice models.SaveChoice) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	cur := atomic.AddInt32(&m.active, 1)
	defer atomic.AddInt32(&m.active, -1)
	for {
		prev := atomic.LoadInt32(&m.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&m.maxSeen, prev, cur) {
			break
		}
	}

	m.mu.Lock()
	m.choices = append(m.choices, choice)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.fail[note.NoteID] {
		return "", fmt.Errorf("save %s failed", note.NoteID)
	}
	return "/media/" + note.NoteID, nil
}

func notes(n int) []models.Note {
	out := make([]models.Note, n)
	for i := range out {
		out[i] = models.Note{NoteID: fmt.Sprintf("n%d", i)}
	}
	return out
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	saver := &mockSaver{delay: 5 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 3, saver, ratelimit.NewTokenBucket(100, time.Second), logger.NewNopLogger())
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()

	numJobs := 10
	for i, note := range notes(numJobs) {
		if err := pool.Submit(Job{Index: i, Note: note, Choice: models.SaveMedia}); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}
	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Fatalf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("Unexpected error for %s: %v", r.Job.Note.NoteID, r.Error)
		}
		if r.Dir != "/media/"+r.Job.Note.NoteID {
			t.Errorf("Unexpected dir %q for %s", r.Dir, r.Job.Note.NoteID)
		}
	}
	if got := atomic.LoadInt32(&saver.calls); got != int32(numJobs) {
		t.Errorf("Expected %d save calls, got %d", numJobs, got)
	}
}

func TestSaveAllPreservesOrder(t *testing.T) {
	saver := &mockSaver{delay: time.Millisecond, fail: map[string]bool{"n2": true}}
	input := notes(7)

	results := SaveAll(context.Background(), 4, saver, nil, logger.NewTestLogger(), input, models.SaveMediaImage)

	if len(results) != len(input) {
		t.Fatalf("Expected %d results, got %d", len(input), len(results))
	}
	for i, r := range results {
		if r.Job.Index != i || r.Job.Note.NoteID != input[i].NoteID {
			t.Errorf("Result %d belongs to %s", i, r.Job.Note.NoteID)
		}
	}
	if results[2].Error == nil || results[2].Dir != "" {
		t.Errorf("Expected note n2 to fail with empty dir, got %+v", results[2])
	}
	if results[3].Error != nil {
		t.Errorf("A failure must not affect other notes: %v", results[3].Error)
	}
	for _, c := range saver.choices {
		if c != models.SaveMediaImage {
			t.Errorf("Expected choice %s, got %s", models.SaveMediaImage, c)
		}
	}
}

func TestSaveAllBoundsConcurrency(t *testing.T) {
	saver := &mockSaver{delay: 20 * time.Millisecond}
	SaveAll(context.Background(), 2, saver, nil, logger.NewNopLogger(), notes(8), models.SaveAll)

	if got := atomic.LoadInt32(&saver.maxSeen); got > 2 {
		t.Errorf("Expected at most 2 concurrent saves, saw %d", got)
	}
	if got := atomic.LoadInt32(&saver.calls); got != 8 {
		t.Errorf("Expected 8 save calls, got %d", got)
	}
}

func TestSaveAllEmpty(t *testing.T) {
	results := SaveAll(context.Background(), 3, &mockSaver{}, nil, nil, nil, models.SaveAll)
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestSaveAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	saver := &mockSaver{}
	results := SaveAll(ctx, 2, saver, nil, logger.NewNopLogger(), notes(5), models.SaveAll)

	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Error == nil {
			t.Errorf("Expected result %d to carry the cancellation", i)
		}
		if r.Job.Note.NoteID != fmt.Sprintf("n%d", i) {
			t.Errorf("Result %d belongs to %s", i, r.Job.Note.NoteID)
		}
	}
	if got := atomic.LoadInt32(&saver.calls); got != 0 {
		t.Errorf("Expected no saves after cancellation, got %d", got)
	}
}

func TestRateLimiterIsConsulted(t *testing.T) {
	limiter := ratelimit.NewTokenBucket(1, time.Hour)
	limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	saver := &mockSaver{}
	results := SaveAll(ctx, 1, saver, limiter, logger.NewNopLogger(), notes(1), models.SaveAll)
	if results[0].Error == nil {
		t.Error("Expected the rate limit wait to fail once the context expires")
	}
	if got := atomic.LoadInt32(&saver.calls); got != 0 {
		t.Errorf("Expected no save calls, got %d", got)
	}
}
