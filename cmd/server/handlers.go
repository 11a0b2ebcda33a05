package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/yield-agg-api/internal/match"
	"github.com/yourorg/yield-agg-api/internal/model"
	"github.com/yourorg/yield-agg-api/internal/stats"
	"github.com/yourorg/yield-agg-api/internal/store"
)

// routes builds the HTTP routing table. The /api/earn routes require the
// bearer token; the refresh trigger uses its own key; health and metrics are
// open.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", s.instrument("/health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", promhttp.Handler())

	earn := func(path string, h http.HandlerFunc) http.Handler {
		return s.instrument(path, s.bearerAuth(h))
	}
	mux.Handle("/api/earn/opportunities", earn("/api/earn/opportunities", s.handleListOpportunities))
	mux.Handle("/api/earn/opportunities/", earn("/api/earn/opportunities/", s.handleOpportunitySubroutes))

	mux.Handle("/api/refresh", s.instrument("/api/refresh", http.HandlerFunc(s.handleRefresh)))
	mux.Handle("/api/refresh/status", s.instrument("/api/refresh/status", http.HandlerFunc(s.handleRefreshStatus)))

	return s.cors(mux)
}

// handleHealth is the liveness/readiness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}

	var lastRefreshAt interface{}
	if ts, err := s.store.LastSuccessfulRefresh(r.Context()); err == nil && ts != nil {
		lastRefreshAt = ts.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            dbStatus == "connected",
		"service":       "yield-agg-api",
		"database":      dbStatus,
		"uptime":        time.Since(startTime).String(),
		"lastRefreshAt": lastRefreshAt,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListOpportunities returns the filtered, paged opportunity listing.
func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	f := parseFilter(r)
	rows, total, err := s.store.FindMany(r.Context(), f)
	if err != nil {
		logrus.Errorf("Failed to list opportunities: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": rows,
		"total":         total,
		"limit":         f.Limit,
		"offset":        f.Offset,
	})
}

// parseFilter reads the listing query parameters, falling back to a 50-row
// page.
func parseFilter(r *http.Request) store.Filter {
	q := r.URL.Query()

	f := store.Filter{
		Provider:  q.Get("provider"),
		Chain:     model.Chain(q.Get("chain")),
		Category:  model.Category(q.Get("category")),
		Liquidity: model.Liquidity(q.Get("liquidity")),
		SortBy:    q.Get("sortBy"),
		Order:     q.Get("order"),
		Limit:     50,
	}

	if v, err := strconv.Atoi(q.Get("minApr")); err == nil && v >= 0 {
		f.MinAPR = &v
	}
	if v, err := strconv.Atoi(q.Get("maxRisk")); err == nil && v >= 1 && v <= 10 {
		f.MaxRisk = &v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v >= 1 && v <= 100 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}

// handleOpportunitySubroutes dispatches /api/earn/opportunities/{match|stats|id}.
func (s *Server) handleOpportunitySubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/earn/opportunities/")
	switch rest {
	case "match":
		s.handleMatch(w, r)
	case "stats":
		s.handleStats(w, r)
	case "":
		writeError(w, http.StatusNotFound, "Not found")
	default:
		s.handleGetOpportunity(w, r, rest)
	}
}

// handleGetOpportunity returns a single opportunity by surface ID.
func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	opportunity, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		logrus.Errorf("Failed to load opportunity %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to load opportunity")
		return
	}
	if opportunity == nil {
		writeError(w, http.StatusNotFound, "Opportunity "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, opportunity)
}

// handleStats returns APR summaries over all stored opportunities.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rows, _, err := s.store.FindMany(r.Context(), store.Filter{})
	if err != nil {
		logrus.Errorf("Failed to load opportunities for stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(rows))
}

// handleMatch runs the eligibility filter against the stored opportunities.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var profile model.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(profile); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	candidates, _, err := s.store.FindMany(r.Context(), store.Filter{SortBy: "apr", Order: "desc"})
	if err != nil {
		logrus.Errorf("Failed to load candidates: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load opportunities")
		return
	}

	matched := s.matcher.MatchWithAllocation(match.SortByAPR(candidates), profile)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matchedOpportunities": matched,
		"totalMatched":         len(matched),
		"filters": map[string]interface{}{
			"riskTolerance":     profile.RiskTolerance,
			"maxAllocationPct":  profile.MaxAllocationPct,
			"investmentHorizon": profile.InvestmentHorizon,
		},
	})
}

// handleRefresh triggers a refresh run. Protected by the X-Refresh-Key header
// and rate limited; always answers 200 with per-provider outcomes, even when
// every provider failed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	key := r.Header.Get("X-Refresh-Key")
	if s.config.RefreshKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(s.config.RefreshKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid or missing X-Refresh-Key header")
		return
	}

	if !s.refreshLimit.Allow() {
		writeError(w, http.StatusTooManyRequests, "Refresh rate limit exceeded")
		return
	}

	if s.registry.Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "No providers registered")
		return
	}

	result := s.orchestrator.Run(r.Context())

	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.notifier.NotifyRefresh(ctx, result); err != nil {
				logrus.Warnf("Refresh webhook failed: %v", err)
			}
		}()
	}

	response := map[string]interface{}{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"providers": map[string]interface{}{
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		},
		"totalRowsWritten": result.TotalRowsWritten,
	}

	if s.signer != nil {
		signed, err := s.signer.Sign(response)
		if err != nil {
			logrus.Warnf("Failed to sign refresh result: %v", err)
		} else {
			writeJSON(w, http.StatusOK, signed)
			return
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// handleRefreshStatus reports the last outcome per provider plus recent logs.
func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logs, err := s.store.RecentLogs(r.Context(), 10)
	if err != nil {
		logrus.Errorf("Failed to load refresh logs: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load refresh status")
		return
	}

	providerStatus := make([]map[string]interface{}, 0, s.registry.Len())
	for _, name := range s.registry.Names() {
		status := map[string]interface{}{
			"provider":   name,
			"lastStatus": "never",
			"lastFetch":  nil,
			"rows":       0,
		}
		for _, entry := range logs {
			if entry.Provider == name {
				status["lastStatus"] = entry.Status
				status["lastFetch"] = entry.FetchedAt.UTC().Format(time.RFC3339)
				status["rows"] = entry.Rows
				break
			}
		}
		providerStatus = append(providerStatus, status)
	}

	var lastRefresh interface{}
	if len(logs) > 0 {
		lastRefresh = logs[0].FetchedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lastRefresh": lastRefresh,
		"providers":   providerStatus,
		"recentLogs":  logs,
	})
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": msg,
	})
}
