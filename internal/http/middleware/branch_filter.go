package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BranchFilterMiddleware puts the effective branch scope of a request in its context.
// Admins may narrow to any branch with ?branch=<id>; everyone else is held to their own.
type BranchFilterMiddleware struct {
	logger *zap.Logger
}

func NewBranchFilterMiddleware(logger *zap.Logger) *BranchFilterMiddleware {
	return &BranchFilterMiddleware{logger: logger}
}

func (m *BranchFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		filter := &auth.BranchFilter{BranchID: userCtx.GetBranchFilter()}

		if requested := r.URL.Query().Get("branch"); requested != "" {
			branchID, err := uuid.Parse(requested)
			if err != nil {
				writeEnvelope(w, http.StatusBadRequest, "Invalid branch parameter")
				return
			}
			if !userCtx.CanAccessBranch(branchID) {
				m.logger.Warn("user attempted to access another branch",
					zap.String("user_id", userCtx.UserID.String()),
					zap.String("requested_branch", requested),
				)
				writeEnvelope(w, http.StatusForbidden, "Access denied: you cannot access data for this branch")
				return
			}
			filter = &auth.BranchFilter{
				BranchID:         &branchID,
				RequestedByAdmin: userCtx.IsAdmin(),
			}
		}

		ctx := auth.WithBranchFilter(r.Context(), filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIResponse{Success: false, Message: message})
}
