package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"guruit/internal/portal"
)

// ErrActionInFlight is returned when an action is triggered while the same
// action's previous request is still outstanding.
var ErrActionInFlight = errors.New("action already in flight")

// ErrNotCheckedIn is returned by CheckOut with no open check-in.
var ErrNotCheckedIn = errors.New("not checked in")

// ErrAlreadyCheckedIn is returned by CheckIn while one is open.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// CheckInStatus mirrors the server's review state for today's record.
type CheckInStatus string

const (
	StatusNone     CheckInStatus = "none"
	StatusPending  CheckInStatus = "pending"
	StatusApproved CheckInStatus = "approved"
)

// checkInSnapshot is the persisted shape. Only the stable fields are stored;
// elapsed time is always recomputed, never written.
type checkInSnapshot struct {
	IsCheckedIn bool   `json:"isCheckedIn"`
	CheckInTime string `json:"checkInTime,omitempty"`
	Status      string `json:"status"`
}

// CheckInState tracks whether the current user has an open attendance
// session today. Two states: not checked in, or checked in since a known
// time with a server-assigned review status.
type CheckInState struct {
	mu      sync.Mutex
	storage Storage
	api     *portal.Client
	now     func() time.Time

	isCheckedIn bool
	checkInTime time.Time
	status      CheckInStatus

	checkInBusy  bool
	checkOutBusy bool
}

func NewCheckInState(storage Storage, api *portal.Client) *CheckInState {
	return &CheckInState{
		storage: storage,
		api:     api,
		now:     time.Now,
		status:  StatusNone,
	}
}

// Load restores the persisted snapshot. A snapshot from a previous calendar
// day is discarded so yesterday's forgotten checkout never blocks today.
func (c *CheckInState) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	raw, ok := c.storage.Get(checkInKey)
	if !ok {
		return
	}
	var snapshot checkInSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		_ = c.storage.Remove(checkInKey)
		return
	}
	if !snapshot.IsCheckedIn {
		return
	}
	checkInTime, err := time.Parse(time.RFC3339, snapshot.CheckInTime)
	if err != nil || !sameDay(checkInTime, c.now()) {
		_ = c.storage.Remove(checkInKey)
		return
	}

	c.isCheckedIn = true
	c.checkInTime = checkInTime
	c.status = StatusPending
	if snapshot.Status == string(StatusApproved) {
		c.status = StatusApproved
	}
}

// Reconcile replaces the local snapshot with the server's view of today.
// A stale local state file (another device checked in, or the overnight
// sweep closed yesterday's record) is corrected either way: an open record
// on the server is adopted, and a local check-in the server does not know
// about is dropped.
func (c *CheckInState) Reconcile(ctx context.Context) error {
	record, open, err := c.api.CheckInToday(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !open {
		if !c.isCheckedIn {
			return nil
		}
		c.reset()
		return c.storage.Remove(checkInKey)
	}

	checkInTime, err := time.Parse(time.RFC3339, record.CheckInTime)
	if err != nil {
		return err
	}
	c.isCheckedIn = true
	c.checkInTime = checkInTime
	c.status = StatusPending
	if record.Status == string(StatusApproved) {
		c.status = StatusApproved
	}
	return c.persist()
}

// CheckIn opens today's attendance session. The status comes from the
// server's reply; the transition itself is applied as soon as the call
// succeeds.
func (c *CheckInState) CheckIn(ctx context.Context, profile portal.Profile) error {
	c.mu.Lock()
	if c.checkInBusy {
		c.mu.Unlock()
		return ErrActionInFlight
	}
	if c.isCheckedIn {
		c.mu.Unlock()
		return ErrAlreadyCheckedIn
	}
	c.checkInBusy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.checkInBusy = false
		c.mu.Unlock()
	}()

	at := c.now()
	record, err := c.api.CheckIn(ctx, at, profile)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCheckedIn = true
	c.checkInTime = at
	c.status = StatusPending
	if record.Status == string(StatusApproved) {
		c.status = StatusApproved
	}
	return c.persist()
}

// CheckOut closes today's session and resets to the default state.
func (c *CheckInState) CheckOut(ctx context.Context) error {
	c.mu.Lock()
	if c.checkOutBusy {
		c.mu.Unlock()
		return ErrActionInFlight
	}
	if !c.isCheckedIn {
		c.mu.Unlock()
		return ErrNotCheckedIn
	}
	c.checkOutBusy = true
	checkInTime := c.checkInTime
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.checkOutBusy = false
		c.mu.Unlock()
	}()

	at := c.now()
	if _, err := c.api.CheckOut(ctx, at, FormatElapsed(at.Sub(checkInTime))); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return c.storage.Remove(checkInKey)
}

// IsCheckedIn reports whether a session is open.
func (c *CheckInState) IsCheckedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCheckedIn
}

// CheckInTime returns the open session's start, or ok=false.
func (c *CheckInState) CheckInTime() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkInTime, c.isCheckedIn
}

func (c *CheckInState) Status() CheckInStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Elapsed renders the live duration display. When not checked in it reads
// the zero value.
func (c *CheckInState) Elapsed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCheckedIn {
		return FormatElapsed(0)
	}
	return FormatElapsed(c.now().Sub(c.checkInTime))
}

func (c *CheckInState) reset() {
	c.isCheckedIn = false
	c.checkInTime = time.Time{}
	c.status = StatusNone
}

func (c *CheckInState) persist() error {
	snapshot := checkInSnapshot{
		IsCheckedIn: c.isCheckedIn,
		Status:      string(c.status),
	}
	if c.isCheckedIn {
		snapshot.CheckInTime = c.checkInTime.Format(time.RFC3339)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.storage.Set(checkInKey, string(data))
}

// FormatElapsed renders a duration as whole hours and minutes.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d hrs %d mins", int(d.Hours()), int(d.Minutes())%60)
}

func sameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
