package model

import (
	"testing"
	"time"
)

func TestCheckInOpen(t *testing.T) {
	checkIn := CheckIn{
		ID:          "ci-1",
		Status:      CheckInStatusPending,
		CheckInTime: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	}
	if !checkIn.Open() {
		t.Fatalf("check-in without checkout must be open")
	}

	checkOut := checkIn.CheckInTime.Add(8 * time.Hour)
	checkIn.CheckOutTime = &checkOut
	if checkIn.Open() {
		t.Fatalf("check-in with checkout must be closed")
	}
}
