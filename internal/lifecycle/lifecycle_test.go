package lifecycle_test

import (
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProject struct {
	id         string
	status     lifecycle.Status
	createdAt  time.Time
	updatedAt  *time.Time
	customer   string
	kind       string
	orderID    string
	technician *lifecycle.Person
	approver   *lifecycle.Person
}

func (p testProject) CurrentStatus() lifecycle.Status { return p.status }

func (p testProject) TouchedAt() time.Time {
	if p.updatedAt != nil {
		return *p.updatedAt
	}
	return p.createdAt
}

func (p testProject) AssignedTechnician() *lifecycle.Person { return p.technician }

func (p testProject) SearchFields() lifecycle.SearchFields {
	return lifecycle.SearchFields{
		CustomerName: p.customer,
		ProjectType:  p.kind,
		OrderID:      p.orderID,
		Technician:   p.technician,
		Approver:     p.approver,
	}
}

func ids(projects []testProject) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.id
	}
	return out
}

func TestIsValidTransition_Table(t *testing.T) {
	allowed := map[lifecycle.Status][]lifecycle.Status{
		lifecycle.StatusPending:         {lifecycle.StatusAssigned},
		lifecycle.StatusAssigned:        {lifecycle.StatusInProgress, lifecycle.StatusPendingApproval, lifecycle.StatusTransferring},
		lifecycle.StatusInProgress:      {lifecycle.StatusAssigned, lifecycle.StatusPaused, lifecycle.StatusPendingApproval, lifecycle.StatusTransferring},
		lifecycle.StatusPaused:          {lifecycle.StatusInProgress, lifecycle.StatusPendingApproval, lifecycle.StatusTransferring},
		lifecycle.StatusPendingApproval: {lifecycle.StatusCompleted},
		lifecycle.StatusTransferring:    {lifecycle.StatusTransferred},
		lifecycle.StatusTransferred:     {lifecycle.StatusPending},
		lifecycle.StatusCompleted:       {},
	}

	for _, from := range lifecycle.AllStatuses {
		for _, to := range lifecycle.AllStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, lifecycle.IsValidTransition(from, to, lifecycle.EntityProject), "%s -> %s", from, to)
			assert.Equal(t, want, lifecycle.IsValidTransition(from, to, lifecycle.EntityWorkOrder), "%s -> %s", from, to)
		}
	}
}

func TestIsValidTransition_RejectsUnknown(t *testing.T) {
	assert.False(t, lifecycle.IsValidTransition("bogus", lifecycle.StatusAssigned, lifecycle.EntityProject))
	assert.False(t, lifecycle.IsValidTransition(lifecycle.StatusPending, "bogus", lifecycle.EntityProject))
	assert.False(t, lifecycle.IsValidTransition(lifecycle.StatusPending, lifecycle.StatusAssigned, "invoice"))
	assert.False(t, lifecycle.IsValidTransition(lifecycle.StatusAssigned, lifecycle.StatusAssigned, lifecycle.EntityProject))
}

func TestAllowedTransitions(t *testing.T) {
	assert.Equal(t,
		[]lifecycle.Status{lifecycle.StatusAssigned, lifecycle.StatusPaused, lifecycle.StatusPendingApproval, lifecycle.StatusTransferring},
		lifecycle.AllowedTransitions(lifecycle.StatusInProgress))
	assert.Empty(t, lifecycle.AllowedTransitions(lifecycle.StatusCompleted))
	assert.True(t, lifecycle.IsTerminal(lifecycle.StatusCompleted))
	assert.False(t, lifecycle.IsTerminal(lifecycle.StatusTransferred))
}

func TestParseStatus(t *testing.T) {
	s, err := lifecycle.ParseStatus("pending-approval")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPendingApproval, s)

	_, err = lifecycle.ParseStatus("Pending")
	assert.Error(t, err)
}

func TestValidateApprovalRemark(t *testing.T) {
	short := lifecycle.ValidateApprovalRemark("one two three four")
	assert.False(t, short.Valid)
	assert.Equal(t, 4, short.WordCount)
	assert.NotEmpty(t, short.Message)

	ok := lifecycle.ValidateApprovalRemark("one two three four five")
	assert.True(t, ok.Valid)
	assert.Equal(t, 5, ok.WordCount)
	assert.Empty(t, ok.Message)

	assert.Equal(t, short, lifecycle.ValidateApprovalRemark("one two three four"))
	assert.Equal(t, 5, lifecycle.ValidateApprovalRemark("  one\ttwo\n three   four five ").WordCount)
	assert.Equal(t, 0, lifecycle.ValidateApprovalRemark("   ").WordCount)
}

func TestCategorize(t *testing.T) {
	var projects []testProject
	for _, s := range lifecycle.AllStatuses {
		projects = append(projects, testProject{id: string(s), status: s})
	}

	b := lifecycle.Categorize(projects)
	assert.Equal(t, []string{"pending-approval"}, ids(b.PendingApprovals))
	assert.Equal(t, []string{"assigned", "in-progress", "paused"}, ids(b.InProgress))
	assert.Equal(t, []string{"transferring", "transferred"}, ids(b.Transferred))
	assert.Equal(t, []string{"completed"}, ids(b.Completed))

	total := len(b.PendingApprovals) + len(b.InProgress) + len(b.Transferred) + len(b.Completed)
	assert.Equal(t, len(projects)-1, total, "pending belongs to no bucket")
	assert.Equal(t, []string{"pending"}, ids(lifecycle.Unassigned(projects)))
}

func TestCategorize_Empty(t *testing.T) {
	b := lifecycle.Categorize[testProject](nil)
	assert.NotNil(t, b.PendingApprovals)
	assert.Empty(t, b.Completed)
}

func TestFilterAssignedOnly(t *testing.T) {
	projects := []testProject{
		{id: "nil", technician: nil},
		{id: "empty", technician: &lifecycle.Person{}},
		{id: "blank", technician: &lifecycle.Person{FirstName: "  "}},
		{id: "first", technician: &lifecycle.Person{FirstName: "A"}},
		{id: "last", technician: &lifecycle.Person{LastName: "B"}},
	}
	assert.Equal(t, []string{"first", "last"}, ids(lifecycle.FilterAssignedOnly(projects)))
}

func TestSortForDisplay(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later := base.Add(2 * time.Hour)

	projects := []testProject{
		{id: "completed", status: lifecycle.StatusCompleted, createdAt: base},
		{id: "assigned-old", status: lifecycle.StatusAssigned, createdAt: base},
		{id: "approval", status: lifecycle.StatusPendingApproval, createdAt: base},
		{id: "assigned-new", status: lifecycle.StatusAssigned, createdAt: base, updatedAt: &later},
		{id: "transferring", status: lifecycle.StatusTransferring, createdAt: later},
		{id: "progress", status: lifecycle.StatusInProgress, createdAt: base},
		{id: "paused", status: lifecycle.StatusPaused, createdAt: base},
		{id: "transferred", status: lifecycle.StatusTransferred, createdAt: base},
		{id: "assigned-tie-a", status: lifecycle.StatusAssigned, createdAt: base.Add(-time.Hour)},
		{id: "assigned-tie-b", status: lifecycle.StatusAssigned, createdAt: base.Add(-time.Hour)},
	}
	input := make([]testProject, len(projects))
	copy(input, projects)

	sorted := lifecycle.SortForDisplay(projects)
	assert.Equal(t, []string{
		"approval",
		"progress",
		"assigned-new",
		"assigned-old",
		"assigned-tie-a",
		"assigned-tie-b",
		"paused",
		"transferred",
		"completed",
		"transferring",
	}, ids(sorted))
	assert.Equal(t, input, projects, "input must not be mutated")

	for i := 0; i+1 < len(sorted); i++ {
		pi := lifecycle.DisplayPriority(sorted[i].status)
		pj := lifecycle.DisplayPriority(sorted[i+1].status)
		require.LessOrEqual(t, pi, pj)
		if pi == pj {
			assert.False(t, sorted[i].TouchedAt().Before(sorted[i+1].TouchedAt()))
		}
	}
}

func TestDisplayPriority_UnrankedStatusesSortLast(t *testing.T) {
	completed := lifecycle.DisplayPriority(lifecycle.StatusCompleted)
	assert.Equal(t, 6, completed)
	assert.Equal(t, 5, lifecycle.DisplayPriority(lifecycle.StatusTransferred))
	assert.Greater(t, lifecycle.DisplayPriority(lifecycle.StatusTransferring), completed)
	assert.Greater(t, lifecycle.DisplayPriority(lifecycle.StatusPending), completed)
	assert.Equal(t, lifecycle.DisplayPriority(lifecycle.StatusPending), lifecycle.DisplayPriority(lifecycle.StatusTransferring))
}

func TestMatchesQuery(t *testing.T) {
	p := testProject{
		customer:   "Acme Solar",
		kind:       "Inverter",
		orderID:    "WO-2024-0007",
		technician: &lifecycle.Person{FirstName: "Dana", LastName: "Okafor"},
	}

	assert.True(t, lifecycle.MatchesQuery(p, ""))
	assert.True(t, lifecycle.MatchesQuery(p, "acme"))
	assert.True(t, lifecycle.MatchesQuery(p, "INVERTER"))
	assert.True(t, lifecycle.MatchesQuery(p, "dana oka"))
	assert.True(t, lifecycle.MatchesQuery(p, "2024-0007"))
	assert.False(t, lifecycle.MatchesQuery(p, "reviewer"))

	p.approver = &lifecycle.Person{FirstName: "Sam", LastName: "Reviewer"}
	assert.True(t, lifecycle.MatchesQuery(p, "reviewer"))

	assert.False(t, lifecycle.MatchesQuery(testProject{}, "x"), "absent fields never match")
	assert.Len(t, lifecycle.Filter([]testProject{p, {}}, "acme"), 1)
}

func TestPerformance(t *testing.T) {
	projects := []testProject{
		{status: lifecycle.StatusCompleted},
		{status: lifecycle.StatusCompleted},
		{status: lifecycle.StatusInProgress},
		{status: lifecycle.StatusPendingApproval},
	}
	p := lifecycle.Performance(projects)
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, 1, p.InProgress)
	assert.Equal(t, 1, p.PendingApprovals)
	assert.InDelta(t, 50.0, p.CompletionRate, 0.001)

	assert.Zero(t, lifecycle.Performance[testProject](nil).CompletionRate)
}
