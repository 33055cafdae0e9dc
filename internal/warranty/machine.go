// Package warranty models the issue and replacement cycle of serialized units and the
// warranty coverage of an installation. It has no storage of its own; callers load a
// Record, apply an operation and persist the result.
package warranty

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status of a replacement record
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusReplaced Status = "replaced"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known record status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReplaced, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrOpenClaim is returned when an issue is registered against a serial whose
	// replacement is still pending or approved
	ErrOpenClaim = errors.New("serial already has an open replacement claim")
	// ErrInvalidStatus is returned when the record status does not allow the operation
	ErrInvalidStatus = errors.New("operation not allowed in current replacement status")
)

// ValidationError is a local input failure; it never reaches storage
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Issue is one reported fault and, once resolved, the serial that replaced the unit
type Issue struct {
	IssueDescription        string     `json:"issueDescription"`
	IssueCheckedBy          string     `json:"issueCheckedBy"`
	ReportedAt              time.Time  `json:"reportedAt"`
	ReplacementSerialNumber string     `json:"replacementSerialNumber,omitempty"`
	ReplacedAt              *time.Time `json:"replacedAt,omitempty"`
}

// Record is the single replacement history of an originally installed serial.
// CurrentSerialNumber follows the unit through each swap.
type Record struct {
	SerialNumber        string    `json:"serialNumber"`
	CurrentSerialNumber string    `json:"currentSerialNumber"`
	ProductName         string    `json:"productName"`
	CustomerName        string    `json:"customerName"`
	CustomerPhone       string    `json:"customerPhone"`
	Status              Status    `json:"status"`
	Issues              []Issue   `json:"issues"`
	RegisteredAt        time.Time `json:"registeredAt"`
	Remark              string    `json:"remark,omitempty"`
}

// LatestIssue returns the most recent issue, nil when there is none
func (r *Record) LatestIssue() *Issue {
	if r == nil || len(r.Issues) == 0 {
		return nil
	}
	return &r.Issues[len(r.Issues)-1]
}

// IssueReport is the input of RegisterIssue
type IssueReport struct {
	SerialNumber  string
	Description   string
	CheckedBy     string
	ProductName   string
	CustomerName  string
	CustomerPhone string
}

// RegisterIssue opens a claim. Without an existing record a new pending record with one
// issue is returned. A replaced or rejected record gets the issue appended and reopens
// as pending, so a serial never gets a second top-level record. existing is not modified.
func RegisterIssue(existing *Record, report IssueReport, now time.Time) (*Record, error) {
	if strings.TrimSpace(report.Description) == "" {
		return nil, &ValidationError{Field: "issueDescription", Message: "issue description is required"}
	}
	if strings.TrimSpace(report.CheckedBy) == "" {
		return nil, &ValidationError{Field: "issueCheckedBy", Message: "issue checked by is required"}
	}

	issue := Issue{
		IssueDescription: strings.TrimSpace(report.Description),
		IssueCheckedBy:   strings.TrimSpace(report.CheckedBy),
		ReportedAt:       now,
	}

	if existing == nil {
		serial := strings.TrimSpace(report.SerialNumber)
		if serial == "" {
			return nil, &ValidationError{Field: "serialNumber", Message: "serial number is required"}
		}
		return &Record{
			SerialNumber:        serial,
			CurrentSerialNumber: serial,
			ProductName:         report.ProductName,
			CustomerName:        report.CustomerName,
			CustomerPhone:       report.CustomerPhone,
			Status:              StatusPending,
			Issues:              []Issue{issue},
			RegisteredAt:        now,
		}, nil
	}

	switch existing.Status {
	case StatusPending, StatusApproved:
		return nil, ErrOpenClaim
	}

	next := existing.clone()
	next.Issues = append(next.Issues, issue)
	next.Status = StatusPending
	next.Remark = ""
	return next, nil
}

// CompleteReplacement records the swap to newSerial on the latest issue
func CompleteReplacement(record *Record, newSerial string, now time.Time) (*Record, error) {
	serial := strings.TrimSpace(newSerial)
	if serial == "" {
		return nil, &ValidationError{Field: "newSerialNumber", Message: "new serial number is required"}
	}
	if record == nil {
		return nil, &ValidationError{Field: "replacementId", Message: "replacement record is required"}
	}
	if record.Status != StatusPending && record.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot complete replacement in status %s", ErrInvalidStatus, record.Status)
	}

	next := record.clone()
	if len(next.Issues) == 0 {
		return nil, fmt.Errorf("%w: record has no issue to resolve", ErrInvalidStatus)
	}
	replacedAt := now
	latest := &next.Issues[len(next.Issues)-1]
	latest.ReplacementSerialNumber = serial
	latest.ReplacedAt = &replacedAt
	next.Status = StatusReplaced
	next.CurrentSerialNumber = serial
	return next, nil
}

// UpdateClaim approves or rejects a pending claim
func UpdateClaim(record *Record, status Status, remark string) (*Record, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, &ValidationError{Field: "status", Message: "status must be approved or rejected"}
	}
	if record == nil {
		return nil, &ValidationError{Field: "replacementId", Message: "replacement record is required"}
	}
	if record.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot set %s from %s", ErrInvalidStatus, status, record.Status)
	}
	next := record.clone()
	next.Status = status
	next.Remark = strings.TrimSpace(remark)
	return next, nil
}

func (r *Record) clone() *Record {
	c := *r
	c.Issues = make([]Issue, len(r.Issues))
	copy(c.Issues, r.Issues)
	return &c
}
