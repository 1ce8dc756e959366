package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"guruit/internal/portal"
)

// attendanceBackend fakes the checkin/checkout endpoints. It keeps one open
// record per test and can be told to hold a request until released.
type attendanceBackend struct {
	mu        sync.Mutex
	open      bool
	checkInAt string
	status    string
	release   chan struct{}
}

func newAttendanceBackend(t *testing.T, status string) (*attendanceBackend, *httptest.Server) {
	t.Helper()
	backend := &attendanceBackend{status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/checkin", func(w http.ResponseWriter, r *http.Request) {
		if backend.release != nil {
			<-backend.release
		}
		backend.mu.Lock()
		defer backend.mu.Unlock()
		if backend.open {
			http.Error(w, `{"error":"already_checked_in"}`, http.StatusConflict)
			return
		}
		backend.open = true
		backend.checkInAt = time.Now().UTC().Format(time.RFC3339)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ci-1", "status": backend.status, "checkInTime": backend.checkInAt})
	})
	mux.HandleFunc("/checkin/today", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		if !backend.open {
			http.Error(w, `{"error":"not_checked_in"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ci-1", "status": backend.status, "checkInTime": backend.checkInAt})
	})
	mux.HandleFunc("/checkout", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		if !backend.open {
			http.Error(w, `{"error":"not_checked_in"}`, http.StatusNotFound)
			return
		}
		backend.open = false
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ci-1", "status": backend.status})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return backend, server
}

func newTestCheckIn(t *testing.T, status string) (*CheckInState, *MemoryStorage, *attendanceBackend) {
	t.Helper()
	backend, server := newAttendanceBackend(t, status)
	storage := NewMemoryStorage()
	state := NewCheckInState(storage, portal.NewClient(server.URL))
	return state, storage, backend
}

func TestCheckInCheckOutCycle(t *testing.T) {
	state, storage, _ := newTestCheckIn(t, "pending")
	profile := portal.Profile{Name: "Ann", RegNo: "GIT/010", Track: "backend"}

	if state.IsCheckedIn() {
		t.Fatalf("must start not checked in")
	}
	if state.Elapsed() != "0 hrs 0 mins" {
		t.Fatalf("default elapsed wrong: %s", state.Elapsed())
	}

	if err := state.CheckIn(context.Background(), profile); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if !state.IsCheckedIn() {
		t.Fatalf("expected checked in")
	}
	if _, ok := state.CheckInTime(); !ok {
		t.Fatalf("expected check-in time")
	}
	if state.Status() != StatusPending {
		t.Fatalf("expected pending, got %s", state.Status())
	}
	if _, ok := storage.Get(checkInKey); !ok {
		t.Fatalf("expected persisted snapshot")
	}

	// Double check-in is refused locally.
	if err := state.CheckIn(context.Background(), profile); err != ErrAlreadyCheckedIn {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}

	if err := state.CheckOut(context.Background()); err != nil {
		t.Fatalf("check-out: %v", err)
	}

	// Back to the exact default.
	if state.IsCheckedIn() {
		t.Fatalf("expected not checked in")
	}
	if _, ok := state.CheckInTime(); ok {
		t.Fatalf("expected no check-in time")
	}
	if state.Status() != StatusNone {
		t.Fatalf("expected none, got %s", state.Status())
	}
	if state.Elapsed() != "0 hrs 0 mins" {
		t.Fatalf("expected default elapsed, got %s", state.Elapsed())
	}
	if _, ok := storage.Get(checkInKey); ok {
		t.Fatalf("expected snapshot cleared")
	}

	if err := state.CheckOut(context.Background()); err != ErrNotCheckedIn {
		t.Fatalf("expected ErrNotCheckedIn, got %v", err)
	}
}

func TestCheckInAdoptsServerStatus(t *testing.T) {
	state, _, _ := newTestCheckIn(t, "approved")
	if err := state.CheckIn(context.Background(), portal.Profile{Name: "Ann"}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if state.Status() != StatusApproved {
		t.Fatalf("expected approved, got %s", state.Status())
	}
}

func TestCheckInFailureLeavesStateUnchanged(t *testing.T) {
	state, storage, backend := newTestCheckIn(t, "pending")
	backend.open = true // server already has an open record

	err := state.CheckIn(context.Background(), portal.Profile{Name: "Ann"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if state.IsCheckedIn() {
		t.Fatalf("failed check-in must not transition")
	}
	if _, ok := storage.Get(checkInKey); ok {
		t.Fatalf("failed check-in must not persist")
	}
}

func TestStaleDayDiscardedOnLoad(t *testing.T) {
	state, storage, _ := newTestCheckIn(t, "pending")
	yesterday := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	snapshot, _ := json.Marshal(checkInSnapshot{IsCheckedIn: true, CheckInTime: yesterday, Status: "pending"})
	_ = storage.Set(checkInKey, string(snapshot))

	state.Load()
	if state.IsCheckedIn() {
		t.Fatalf("yesterday's record must be discarded")
	}
	if _, ok := storage.Get(checkInKey); ok {
		t.Fatalf("stale snapshot must be removed from storage")
	}
}

func TestSameDaySnapshotRestored(t *testing.T) {
	state, storage, _ := newTestCheckIn(t, "pending")
	at := time.Now().Add(-time.Hour).Format(time.RFC3339)
	snapshot, _ := json.Marshal(checkInSnapshot{IsCheckedIn: true, CheckInTime: at, Status: "approved"})
	_ = storage.Set(checkInKey, string(snapshot))

	state.Load()
	if !state.IsCheckedIn() {
		t.Fatalf("same-day record must be restored")
	}
	if state.Status() != StatusApproved {
		t.Fatalf("expected approved, got %s", state.Status())
	}
}

func TestCorruptSnapshotDiscarded(t *testing.T) {
	state, storage, _ := newTestCheckIn(t, "pending")
	_ = storage.Set(checkInKey, "{broken")

	state.Load()
	if state.IsCheckedIn() {
		t.Fatalf("corrupt snapshot must read as not checked in")
	}
	if _, ok := storage.Get(checkInKey); ok {
		t.Fatalf("corrupt snapshot must be removed")
	}
}

func TestReconcileAdoptsServerRecord(t *testing.T) {
	state, storage, backend := newTestCheckIn(t, "pending")
	backend.open = true
	backend.checkInAt = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	// Local state is empty, as after a fresh install on a second device.
	if err := state.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !state.IsCheckedIn() {
		t.Fatalf("expected server record to be adopted")
	}
	if state.Status() != StatusPending {
		t.Fatalf("expected pending, got %s", state.Status())
	}
	if _, ok := storage.Get(checkInKey); !ok {
		t.Fatalf("expected adopted record to be persisted")
	}
}

func TestReconcileDropsLocalWhenServerClosed(t *testing.T) {
	state, storage, backend := newTestCheckIn(t, "pending")
	if err := state.CheckIn(context.Background(), portal.Profile{Name: "Ann"}); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	// Server side was closed elsewhere (checkout from another device or the
	// overnight sweep).
	backend.mu.Lock()
	backend.open = false
	backend.mu.Unlock()

	if err := state.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if state.IsCheckedIn() {
		t.Fatalf("expected local record to be dropped")
	}
	if _, ok := storage.Get(checkInKey); ok {
		t.Fatalf("expected snapshot cleared")
	}
}

func TestElapsedFormatting(t *testing.T) {
	state, _, _ := newTestCheckIn(t, "pending")
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	state.now = func() time.Time { return base }
	if err := state.CheckIn(context.Background(), portal.Profile{Name: "Ann"}); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	state.now = func() time.Time { return base.Add(2*time.Hour + 15*time.Minute) }
	if got := state.Elapsed(); got != "2 hrs 15 mins" {
		t.Fatalf("expected 2 hrs 15 mins, got %s", got)
	}
}

func TestConcurrentCheckInLatch(t *testing.T) {
	state, _, backend := newTestCheckIn(t, "pending")
	backend.release = make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- state.CheckIn(context.Background(), portal.Profile{Name: "Ann"})
	}()

	// Wait for the first request to hold the latch.
	deadline := time.After(2 * time.Second)
	for {
		state.mu.Lock()
		busy := state.checkInBusy
		state.mu.Unlock()
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first check-in never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := state.CheckIn(context.Background(), portal.Profile{Name: "Ann"}); err != ErrActionInFlight {
		t.Fatalf("expected ErrActionInFlight, got %v", err)
	}

	close(backend.release)
	if err := <-errCh; err != nil {
		t.Fatalf("first check-in: %v", err)
	}
}
