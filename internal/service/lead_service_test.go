package service_test

import (
	"testing"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadService_Create(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	ctx := testutil.ContextFor(manager)

	t.Run("initial remark sets the status", func(t *testing.T) {
		lead, err := s.leads.Create(ctx, &domain.CreateLeadRequest{
			Name:   "Per Hansen",
			Phone:  "555-0101",
			Remark: &domain.LeadRemarkRequest{Text: "Very interested", Status: domain.LeadStatusPositive},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.LeadStatusPositive, lead.Status)
		require.Len(t, lead.Remarks, 1)
		require.NotNil(t, lead.BranchID)
		assert.Equal(t, branch.ID, *lead.BranchID, "managers create leads in their own branch")
	})

	t.Run("without a remark the lead is neutral", func(t *testing.T) {
		lead, err := s.leads.Create(ctx, &domain.CreateLeadRequest{Name: "Liv Berg", Phone: "555-0102"})
		require.NoError(t, err)
		assert.Equal(t, domain.LeadStatusNeutral, lead.Status)
		assert.Empty(t, lead.Remarks)
	})
}

func TestLeadService_AddRemarkKeepsStatus(t *testing.T) {
	s := newServices(t)
	ctx := testutil.AdminContext()

	lead, err := s.leads.Create(ctx, &domain.CreateLeadRequest{
		Name:   "Per Hansen",
		Phone:  "555-0101",
		Remark: &domain.LeadRemarkRequest{Text: "Wants a quote", Status: domain.LeadStatusPositive},
	})
	require.NoError(t, err)

	updated, err := s.leads.AddRemark(ctx, lead.ID, &domain.LeadRemarkRequest{
		Text: "Went quiet", Status: domain.LeadStatusNegative,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusPositive, updated.Status)
	require.Len(t, updated.Remarks, 2)
	assert.Equal(t, domain.LeadStatusNegative, updated.Remarks[1].Status)

	_, err = s.leads.AddRemark(ctx, lead.ID, &domain.LeadRemarkRequest{Text: "  ", Status: domain.LeadStatusNeutral})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.leads.AddRemark(ctx, uuid.New(), &domain.LeadRemarkRequest{Text: "hello", Status: domain.LeadStatusNeutral})
	assert.ErrorIs(t, err, service.ErrLeadNotFound)
}

func TestLeadService_ConvertToCustomer(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	ctx := testutil.ContextFor(manager)

	lead, err := s.leads.Create(ctx, &domain.CreateLeadRequest{
		Name: "Per Hansen", Phone: "555-0101", Email: "per@example.com", Address: "Storgata 1",
	})
	require.NoError(t, err)

	t.Run("project type is required", func(t *testing.T) {
		_, err := s.leads.ConvertToCustomer(ctx, lead.ID, &domain.ConvertLeadRequest{ProjectType: " "})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "projectType", verr.Field)
	})

	customer, err := s.leads.ConvertToCustomer(ctx, lead.ID, &domain.ConvertLeadRequest{
		ProjectType: "Solar Panel", InitialRemark: "Survey done",
	})
	require.NoError(t, err)

	assert.True(t, customer.ConvertedFromLead)
	require.NotNil(t, customer.LeadID)
	assert.Equal(t, lead.ID, *customer.LeadID)
	assert.Equal(t, "Per Hansen", customer.Name)
	assert.Equal(t, "Storgata 1", customer.Address)

	require.Len(t, customer.Projects, 1)
	wo := customer.Projects[0]
	assert.Equal(t, domain.CategoryNewInstallation, wo.ProjectCategory)
	assert.Equal(t, lifecycle.StatusPending, wo.Status)
	assert.Equal(t, "Solar Panel", wo.ProjectType)

	t.Run("lead is flagged and leaves the open list", func(t *testing.T) {
		stored, err := s.leads.GetByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.True(t, stored.Converted)
		require.NotNil(t, stored.CustomerID)
		assert.Equal(t, customer.ID, *stored.CustomerID)

		open, err := s.leads.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("second conversion conflicts", func(t *testing.T) {
		_, err := s.leads.ConvertToCustomer(ctx, lead.ID, &domain.ConvertLeadRequest{ProjectType: "Solar Panel"})
		assert.ErrorIs(t, err, service.ErrLeadAlreadyConverted)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("remarks on a converted lead conflict", func(t *testing.T) {
		_, err := s.leads.AddRemark(ctx, lead.ID, &domain.LeadRemarkRequest{Text: "late note", Status: domain.LeadStatusNeutral})
		assert.ErrorIs(t, err, service.ErrLeadAlreadyConverted)
	})
}

func TestCustomerService_CreateAndSearch(t *testing.T) {
	s := newServices(t)
	ctx := testutil.AdminContext()

	direct, err := s.customers.Create(ctx, &domain.CreateCustomerRequest{
		Name: "Anna Solberg", Phone: "555-0200", ProjectType: "Heat Pump",
	})
	require.NoError(t, err)
	assert.False(t, direct.ConvertedFromLead)
	require.Len(t, direct.Projects, 1)
	assert.Equal(t, lifecycle.StatusPending, direct.Projects[0].Status)

	plain, err := s.customers.Create(ctx, &domain.CreateCustomerRequest{Name: "Anders Lie", Phone: "555-0201"})
	require.NoError(t, err)
	assert.Empty(t, plain.Projects)

	_, err = s.leads.Create(ctx, &domain.CreateLeadRequest{Name: "Anita Dahl", Phone: "555-0300"})
	require.NoError(t, err)

	results, err := s.customers.Search(ctx, "An")
	require.NoError(t, err)
	require.Len(t, results, 3)
	names := []string{results[0].Name, results[1].Name, results[2].Name}
	assert.Equal(t, []string{"Anders Lie", "Anita Dahl", "Anna Solberg"}, names)
	assert.Equal(t, domain.ContactKindLead, results[1].Kind)

	empty, err := s.customers.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.customers.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrCustomerNotFound)
}
