package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	RegNo        string
	Level        string
	School       string
	Department   string
	Track        string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CheckInStatus string

const (
	CheckInStatusPending  CheckInStatus = "pending"
	CheckInStatusApproved CheckInStatus = "approved"
	CheckInStatusRejected CheckInStatus = "rejected"
)

type CheckIn struct {
	ID           string
	UserID       string
	Name         string
	RegNo        string
	Track        string
	Status       CheckInStatus
	CheckInTime  time.Time
	CheckOutTime *time.Time
	TotalTime    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the attendance window is still running.
func (c CheckIn) Open() bool {
	return c.CheckOutTime == nil
}

type Assignment struct {
	ID           string
	Title        string
	Description  string
	Track        string
	IsGroup      bool
	GroupMembers []string
	FileName     string
	FilePath     string
	DueDate      *time.Time
	CreatedBy    string
	CreatedAt    time.Time
}
