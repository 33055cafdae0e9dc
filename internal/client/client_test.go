package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/client"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "signed-session-token"

func writeEnvelope(w http.ResponseWriter, status int, resp domain.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, domain.APIResponse{Success: true, Data: data})
}

// requireSession rejects requests without the test session cookie
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != testToken {
			writeEnvelope(w, http.StatusUnauthorized, domain.APIResponse{Message: "Unauthorized: sign in required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newTestClient(t *testing.T, routes func(r chi.Router)) (*client.Client, *int64) {
	t.Helper()
	var hits int64

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			atomic.AddInt64(&hits, 1)
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/signin", func(w http.ResponseWriter, req *http.Request) {
		var body domain.SignInRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Password != "correct-horse" {
			writeEnvelope(w, http.StatusUnauthorized, domain.APIResponse{Message: "invalid username or password"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: testToken, Path: "/"})
		ok(w, domain.SessionDTO{User: domain.UserDTO{Username: body.Username, Role: domain.RoleManager}})
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(requireSession)
		routes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return client.New(srv.URL+"/api", 5*time.Second, zap.NewNop()), &hits
}

func TestClient_SignInCarriesSession(t *testing.T) {
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			ok(w, domain.UserDTO{Username: "kari"})
		})
		r.Post("/signout", func(w http.ResponseWriter, req *http.Request) {
			ok(w, nil)
		})
	})
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrNotSignedIn)

	_, err = c.SignIn(ctx, "kari", "wrong")
	var netErr *client.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusUnauthorized, netErr.Status)
	assert.Empty(t, c.Session())

	session, err := c.SignIn(ctx, "kari", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, session.User.Role)
	assert.Equal(t, testToken, c.Session())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kari", me.Username)

	require.NoError(t, c.SignOut(ctx))
	assert.Empty(t, c.Session())
}

func TestClient_ErrorMapping(t *testing.T) {
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/customers/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeEnvelope(w, http.StatusNotFound, domain.APIResponse{Message: "customer not found"})
		})
		r.Post("/customers", func(w http.ResponseWriter, req *http.Request) {
			writeEnvelope(w, http.StatusBadRequest, domain.APIResponse{
				Message: "Validation failed",
				Errors:  []domain.ValidationFieldError{{Field: "phone", Message: "This field is required"}},
			})
		})
		r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
			writeEnvelope(w, http.StatusInternalServerError, domain.APIResponse{Message: "database unavailable"})
		})
		r.Get("/branches", func(w http.ResponseWriter, req *http.Request) {
			writeEnvelope(w, http.StatusOK, domain.APIResponse{Success: false, Message: "refused"})
		})
	})
	c.SetSession(testToken)
	ctx := context.Background()

	_, err := c.Customer(ctx, uuid.New())
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, "customer not found", err.Error())

	_, err = c.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "Ola"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone", ve.Field)

	_, err = c.Leads(ctx)
	var netErr *client.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.Status)
	assert.Equal(t, "database unavailable", netErr.Message)

	_, err = c.Branches(ctx)
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "refused", netErr.Message)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := client.New(srv.URL+"/api", time.Second, zap.NewNop())
	c.SetSession(testToken)

	_, err := c.Leads(context.Background())
	var netErr *client.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.NotNil(t, errors.Unwrap(netErr))
	assert.False(t, client.IsNotFound(err))
}

func TestClient_RemarkCheckedLocally(t *testing.T) {
	orderID := uuid.New()
	c, hits := newTestClient(t, func(r chi.Router) {
		r.Post("/work-orders/approve", func(w http.ResponseWriter, req *http.Request) {
			ok(w, domain.WorkOrderDTO{ProjectID: orderID, Status: lifecycle.StatusCompleted})
		})
		r.Post("/manager/transfers/accept", func(w http.ResponseWriter, req *http.Request) {
			ok(w, domain.WorkOrderDTO{ProjectID: orderID, Status: lifecycle.StatusTransferred})
		})
	})
	c.SetSession(testToken)
	ctx := context.Background()

	_, err := c.Approve(ctx, domain.ApproveWorkOrderRequest{WorkOrderID: orderID, Remark: "Looks good"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "remark", ve.Field)

	_, err = c.AcceptTransfer(ctx, domain.AcceptTransferRequest{WorkOrderID: orderID, Remark: "   "})
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, atomic.LoadInt64(hits))

	order, err := c.Approve(ctx, domain.ApproveWorkOrderRequest{WorkOrderID: orderID, Remark: "Installed and tested with the customer"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, order.Status)

	order, err = c.AcceptTransfer(ctx, domain.AcceptTransferRequest{WorkOrderID: orderID, Remark: "Our branch will handle the visit"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusTransferred, order.Status)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestClient_Contacts(t *testing.T) {
	now := time.Now().UTC()
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
			ok(w, []domain.LeadDTO{
				{ID: uuid.New(), Name: "bjørn", Status: domain.LeadStatusPositive, CreatedAt: now.Add(-time.Hour)},
				{ID: uuid.New(), Name: "Astrid", CreatedAt: now},
			})
		})
		r.Get("/customers", func(w http.ResponseWriter, req *http.Request) {
			ok(w, []domain.CustomerDTO{
				{ID: uuid.New(), Name: "Bjørn", CreatedAt: now},
			})
		})
	})
	c.SetSession(testToken)

	contacts, err := c.Contacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 3)

	assert.Equal(t, "Astrid", contacts[0].Name)
	assert.Equal(t, domain.ContactKindCustomer, contacts[1].Kind, "same name sorts newest first")
	assert.Equal(t, domain.ContactKindLead, contacts[2].Kind)
	assert.Equal(t, domain.LeadStatusPositive, contacts[2].Status)
}

func TestClient_ContactsFailsWhenEitherFetchFails(t *testing.T) {
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
			ok(w, []domain.LeadDTO{})
		})
		r.Get("/customers", func(w http.ResponseWriter, req *http.Request) {
			writeEnvelope(w, http.StatusInternalServerError, domain.APIResponse{Message: "boom"})
		})
	})
	c.SetSession(testToken)

	_, err := c.Contacts(context.Background())
	require.Error(t, err)
}

func TestClient_TechnicianPerformance(t *testing.T) {
	good := domain.TechnicianDTO{UserDTO: domain.UserDTO{ID: uuid.New(), Username: "tech-a"}}
	bad := domain.TechnicianDTO{UserDTO: domain.UserDTO{ID: uuid.New(), Username: "tech-b"}}

	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/technicians/{id}/projects", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "id") == bad.ID.String() {
				writeEnvelope(w, http.StatusInternalServerError, domain.APIResponse{Message: "boom"})
				return
			}
			ok(w, []domain.WorkOrderDTO{
				{Status: lifecycle.StatusCompleted},
				{Status: lifecycle.StatusInProgress},
				{Status: lifecycle.StatusPendingApproval},
				{Status: lifecycle.StatusCompleted},
			})
		})
	})
	c.SetSession(testToken)

	stats := c.TechnicianPerformance(context.Background(), []domain.TechnicianDTO{good, bad})
	require.Len(t, stats, 2)

	assert.NoError(t, stats[0].Err)
	assert.Equal(t, "tech-a", stats[0].Technician.Username)
	assert.Equal(t, 4, stats[0].Performance.Total)
	assert.Equal(t, 2, stats[0].Performance.Completed)
	assert.InDelta(t, 50.0, stats[0].Performance.CompletionRate, 0.001)

	assert.Error(t, stats[1].Err)
	assert.Zero(t, stats[1].Performance.Total)
}

func TestClient_Download(t *testing.T) {
	billID := uuid.New()
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/bills/{billId}/pdf", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "billId") != billID.String() {
				writeEnvelope(w, http.StatusNotFound, domain.APIResponse{Message: "bill not found"})
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.3 test"))
		})
	})
	c.SetSession(testToken)
	ctx := context.Background()

	data, err := c.BillPDF(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(data))

	_, err = c.BillPDF(ctx, uuid.New())
	assert.True(t, client.IsNotFound(err))
}

func TestClient_DownloadAttachment(t *testing.T) {
	attachmentID := uuid.New()
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/attachments/{attachmentId}", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "attachmentId") != attachmentID.String() {
				writeEnvelope(w, http.StatusNotFound, domain.APIResponse{Message: "attachment not found"})
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		})
	})
	c.SetSession(testToken)
	ctx := context.Background()

	data, err := c.DownloadAttachment(ctx, attachmentID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	_, err = c.DownloadAttachment(ctx, uuid.New())
	assert.True(t, client.IsNotFound(err))
}

func TestClient_ReplacementBySerial(t *testing.T) {
	claimID := uuid.New()
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Get("/warranty/replacement-serial/{serial}", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "serial") != "SN-2002" {
				writeEnvelope(w, http.StatusNotFound, domain.APIResponse{Message: "warranty claim not found"})
				return
			}
			ok(w, domain.WarrantyReplacementDTO{
				ID: claimID, SerialNumber: "SN-1001", CurrentSerialNumber: "SN-2002", Status: warranty.StatusReplaced,
			})
		})
	})
	c.SetSession(testToken)
	ctx := context.Background()

	claim, err := c.ReplacementBySerial(ctx, "SN-2002")
	require.NoError(t, err)
	assert.Equal(t, claimID, claim.ID)
	assert.Equal(t, "SN-1001", claim.SerialNumber)
	assert.Equal(t, warranty.StatusReplaced, claim.Status)

	_, err = c.ReplacementBySerial(ctx, "SN-9999")
	assert.True(t, client.IsNotFound(err))
}

func TestClient_RequestTransferSendsTarget(t *testing.T) {
	orderID, branchID := uuid.New(), uuid.New()
	var got domain.TransferRequest
	c, _ := newTestClient(t, func(r chi.Router) {
		r.Post("/work-orders/transfer", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewDecoder(req.Body).Decode(&got)
			ok(w, domain.WorkOrderDTO{
				ProjectID:  orderID,
				Status:     lifecycle.StatusTransferring,
				TransferTo: &domain.TransferTargetDTO{BranchID: got.ToBranchID},
			})
		})
	})
	c.SetSession(testToken)

	order, err := c.RequestTransfer(context.Background(), domain.TransferRequest{
		WorkOrderID: orderID, Remark: "Customer moved south", ToBranchID: &branchID,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ToBranchID)
	assert.Equal(t, branchID, *got.ToBranchID)
	assert.Nil(t, got.ToManagerID)
	require.NotNil(t, order.TransferTo)
	assert.Equal(t, branchID, *order.TransferTo.BranchID)
}
