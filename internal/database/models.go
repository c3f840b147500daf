package database

import "time"

// Review status lifecycle. Archived is a separate flag, not a status:
// an approved review can be active and a completed one archived.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Result values a checklist item can be graded with.
const (
	ResultPass    = "Pass"
	ResultFail    = "Fail"
	ResultPartial = "Partial"
	ResultNA      = "NA"
)

// ValidResult reports whether r is one of the four gradable values.
func ValidResult(r string) bool {
	switch r {
	case ResultPass, ResultFail, ResultPartial, ResultNA:
		return true
	}
	return false
}

// StatusDisplay maps internal status values to what the UI shows.
func StatusDisplay(status string) string {
	switch status {
	case StatusInProgress:
		return "In Review"
	case StatusCompleted:
		return "Completed"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	}
	return status
}

type Section struct {
	ID        int64  `json:"id"`
	SortOrder int    `json:"sort_order"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

type Item struct {
	ID        int64  `json:"id"`
	SectionID int64  `json:"section_id"`
	SortOrder int    `json:"sort_order"`
	Text      string `json:"text"`
}

type Review struct {
	ID            int64     `json:"id"`
	AppName       string    `json:"app_name"`
	AppID         string    `json:"app_id"`
	Date          string    `json:"date"`
	AppOwnerEmail string    `json:"app_owner_email"`
	OverallNotes  string    `json:"overall_notes"`
	Status        string    `json:"status"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReviewMeta is the caller-supplied part of a Review, fixed at creation.
type ReviewMeta struct {
	AppName       string `json:"app_name"`
	AppID         string `json:"app_id"`
	Date          string `json:"date"`
	AppOwnerEmail string `json:"app_owner_email"`
	OverallNotes  string `json:"overall_notes"`
}

// ReviewSummary is one row of the review listing, with fill progress.
type ReviewSummary struct {
	ID            int64     `json:"id"`
	AppName       string    `json:"app_name"`
	AppID         string    `json:"app_id"`
	Date          string    `json:"date"`
	Status        string    `json:"status"`
	StatusDisplay string    `json:"status_display"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	Filled        int       `json:"filled"`
	Total         int       `json:"total"`
	Progress      string    `json:"progress"`
}
