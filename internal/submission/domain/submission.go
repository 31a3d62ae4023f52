package domain

import (
	"time"

	"autosend-backend/pkg/disclaimer"
)

// Status represents the lifecycle state of a submission
type Status string

const (
	StatusPending       Status = "pending"
	StatusUrgentFlagged Status = "urgent_flagged"
	StatusApproved      Status = "approved"
	StatusHold          Status = "hold"
	StatusCancelled     Status = "cancelled"
	StatusSending       Status = "sending"
	StatusAutoSent      Status = "auto_sent"
	StatusEscalated     Status = "escalated"
)

// EligibleStatuses are the states from which a worker may claim a submission
var EligibleStatuses = []Status{StatusPending, StatusApproved}

// IsTerminal reports whether no further automatic transition can leave s
func (s Status) IsTerminal() bool {
	return s == StatusAutoSent || s == StatusCancelled
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUrgentFlagged, StatusApproved, StatusHold,
		StatusCancelled, StatusSending, StatusAutoSent, StatusEscalated:
		return true
	}
	return false
}

// IsEligible reports whether s allows a worker claim
func (s Status) IsEligible() bool {
	return s == StatusPending || s == StatusApproved
}

// Severity drives the disclaimer appended to outgoing content
type Severity string

const (
	SeverityMild     Severity = disclaimer.SeverityMild
	SeverityModerate Severity = disclaimer.SeverityModerate
	SeverityUrgent   Severity = disclaimer.SeverityUrgent
)

// ParseSeverity maps free text to a Severity, defaulting to mild
func ParseSeverity(s string) Severity {
	switch s {
	case "moderate":
		return SeverityModerate
	case "urgent":
		return SeverityUrgent
	default:
		return SeverityMild
	}
}

// Contact is the person a submission's response is delivered to
type Contact struct {
	ContactID string `json:"contact_id" gorm:"column:contact_id;index"`
	Name      string `json:"contact_name" gorm:"column:contact_name"`
	Email     string `json:"contact_email" gorm:"column:contact_email"`
}

// IsComplete reports whether the contact carries enough to deliver to
func (c Contact) IsComplete() bool {
	return c.ContactID != "" && c.Email != ""
}

// UrgentSafeguard is set at creation when the request text trips the keyword check
type UrgentSafeguard struct {
	FlaggedKeywords []string `json:"flagged_keywords"`
	ReviewRequired  bool     `json:"review_required"`
}

// Submission is a request for an AI-drafted response awaiting delivery
type Submission struct {
	ID             string           `json:"id" gorm:"primaryKey"`
	UserID         string           `json:"user_id" gorm:"index"`         // Requesting user, used for delivery config
	OrganizationID string           `json:"organization_id" gorm:"index"` // Optional, selects the mail transport
	Subject        string           `json:"subject,omitempty"`
	RequestText    string           `json:"request_text,omitempty"`
	Status         Status           `json:"status" gorm:"index:idx_submission_status_send,priority:1;not null;default:pending"`
	DraftContent   string           `json:"draft_content,omitempty" gorm:"type:text"`
	SeverityLevel  Severity         `json:"severity_level" gorm:"default:mild"`
	Recipient      Contact          `json:"recipient" gorm:"embedded"`
	AutoSendTime   *time.Time       `json:"auto_send_time,omitempty" gorm:"index:idx_submission_status_send,priority:2"`
	SentAt         *time.Time       `json:"sent_at,omitempty"`
	SentText       string           `json:"sent_text,omitempty" gorm:"type:text"`
	Safeguard      *UrgentSafeguard `json:"urgent_safeguard,omitempty" gorm:"serializer:json;type:text"`
	HoldReason     string           `json:"hold_reason,omitempty"`
	CancelReason   string           `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsEligibleAt reports whether the submission may be auto-sent at now
func (s *Submission) IsEligibleAt(now time.Time) bool {
	return s.Status.IsEligible() && s.AutoSendTime != nil && !s.AutoSendTime.After(now)
}

// StatusHistory records one status change of a submission
type StatusHistory struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	SubmissionID string    `json:"submission_id" gorm:"index;not null"`
	OldStatus    Status    `json:"old_status"`
	NewStatus    Status    `json:"new_status"`
	ChangedBy    string    `json:"changed_by"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table for StatusHistory
func (StatusHistory) TableName() string {
	return "submission_status_history"
}
