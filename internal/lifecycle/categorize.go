package lifecycle

import (
	"sort"
	"strings"
	"time"
)

// Person is the minimal name shape of a technician or approver reference
type Person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins the non-empty name parts
func (p *Person) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// IsResolvable reports whether the reference carries at least one name part.
// An empty placeholder object counts as "not assigned".
func (p *Person) IsResolvable() bool {
	return p != nil && (strings.TrimSpace(p.FirstName) != "" || strings.TrimSpace(p.LastName) != "")
}

// Item is anything carrying a lifecycle status and a last-touched time
type Item interface {
	CurrentStatus() Status
	// TouchedAt returns UpdatedAt when set, CreatedAt otherwise
	TouchedAt() time.Time
}

// Assignable items expose their technician reference (nil when unassigned)
type Assignable interface {
	Item
	AssignedTechnician() *Person
}

// Searchable items expose the fields MatchesQuery looks at
type Searchable interface {
	SearchFields() SearchFields
}

// SearchFields are the values matched by MatchesQuery. Empty values never match.
type SearchFields struct {
	CustomerName string
	ProjectType  string
	OrderID      string
	Technician   *Person
	Approver     *Person
}

// Buckets is the four-way operational split used by every list screen
type Buckets[T Item] struct {
	PendingApprovals []T `json:"pendingApprovals"`
	InProgress       []T `json:"inProgress"`
	Transferred      []T `json:"transferred"`
	Completed        []T `json:"completed"`
}

// Bucket names a Buckets field
type Bucket string

const (
	BucketNone             Bucket = ""
	BucketPendingApprovals Bucket = "pendingApprovals"
	BucketInProgress       Bucket = "inProgress"
	BucketTransferred      Bucket = "transferred"
	BucketCompleted        Bucket = "completed"
)

// BucketOf returns the bucket a status belongs to. pending belongs to none.
func BucketOf(s Status) Bucket {
	switch s {
	case StatusPendingApproval:
		return BucketPendingApprovals
	case StatusAssigned, StatusInProgress, StatusPaused:
		return BucketInProgress
	case StatusTransferring, StatusTransferred:
		return BucketTransferred
	case StatusCompleted:
		return BucketCompleted
	default:
		return BucketNone
	}
}

// Categorize splits items into the four buckets, keeping input order inside each bucket
func Categorize[T Item](items []T) Buckets[T] {
	b := Buckets[T]{
		PendingApprovals: []T{},
		InProgress:       []T{},
		Transferred:      []T{},
		Completed:        []T{},
	}
	for _, item := range items {
		switch BucketOf(item.CurrentStatus()) {
		case BucketPendingApprovals:
			b.PendingApprovals = append(b.PendingApprovals, item)
		case BucketInProgress:
			b.InProgress = append(b.InProgress, item)
		case BucketTransferred:
			b.Transferred = append(b.Transferred, item)
		case BucketCompleted:
			b.Completed = append(b.Completed, item)
		}
	}
	return b
}

// Unassigned returns the pending-only view (new work not yet given to a technician)
func Unassigned[T Item](items []T) []T {
	result := make([]T, 0)
	for _, item := range items {
		if item.CurrentStatus() == StatusPending {
			result = append(result, item)
		}
	}
	return result
}

// FilterAssignedOnly drops items without a resolvable technician
func FilterAssignedOnly[T Assignable](items []T) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if item.AssignedTechnician().IsResolvable() {
			result = append(result, item)
		}
	}
	return result
}

// displayPriority orders statuses for list screens. Statuses missing here sort last,
// after completed: pending and transferring have no rank of their own, so an open
// transfer request lists below the transfers already accepted.
var displayPriority = map[Status]int{
	StatusPendingApproval: 1,
	StatusInProgress:      2,
	StatusAssigned:        3,
	StatusPaused:          4,
	StatusTransferred:     5,
	StatusCompleted:       6,
}

// DisplayPriority returns the sort rank of a status
func DisplayPriority(s Status) int {
	if p, ok := displayPriority[s]; ok {
		return p
	}
	return len(displayPriority) + 1
}

// SortForDisplay returns a stably sorted copy: ascending status priority, then most
// recently touched first
func SortForDisplay[T Item](items []T) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := DisplayPriority(sorted[i].CurrentStatus()), DisplayPriority(sorted[j].CurrentStatus())
		if pi != pj {
			return pi < pj
		}
		return sorted[i].TouchedAt().After(sorted[j].TouchedAt())
	})
	return sorted
}

// MatchesQuery does a case-insensitive substring match over the searchable fields
func MatchesQuery(item Searchable, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	f := item.SearchFields()
	candidates := []string{
		f.CustomerName,
		f.ProjectType,
		f.Technician.FullName(),
		f.OrderID,
		f.Approver.FullName(),
	}
	for _, c := range candidates {
		if c != "" && strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}

// Filter keeps the items matching query
func Filter[T Searchable](items []T, query string) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if MatchesQuery(item, query) {
			result = append(result, item)
		}
	}
	return result
}
