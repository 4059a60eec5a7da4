package domain

import "time"

// Status represents where a tracked application stands.
type Status string

const (
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffered      Status = "offered"
	StatusRejected     Status = "rejected"
)

// JobApplication is a job the owner is tracking.
type JobApplication struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"index;not null"`
	Company   string    `json:"company" gorm:"not null"`
	Position  string    `json:"position"`
	Status    Status    `json:"status" gorm:"default:applied"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (JobApplication) TableName() string { return "job_applications" }

var statusRank = map[Status]int{
	StatusApplied:      1,
	StatusInterviewing: 2,
	StatusOffered:      3,
	StatusRejected:     3,
}

// StatusForCategory maps a mail category to the application status it
// implies, or "" when the category says nothing about the application.
func StatusForCategory(category string) Status {
	switch category {
	case "application":
		return StatusApplied
	case "interview":
		return StatusInterviewing
	case "offer":
		return StatusOffered
	case "rejection":
		return StatusRejected
	}
	return ""
}

// Advances reports whether moving from s to next is progress.
// Offered and rejected are final.
func (s Status) Advances(next Status) bool {
	if next == "" || s == next {
		return false
	}
	return statusRank[next] > statusRank[s]
}
