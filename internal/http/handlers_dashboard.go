package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// handleDashboard returns the caller's totals across both ledgers.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	d, err := s.deps.Dashboard.Summary(ctx, owner)
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(d))
}
