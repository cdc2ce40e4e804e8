package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metals-dashboard/internal/auth"
	"metals-dashboard/internal/database"
	"metals-dashboard/internal/feed"
	"metals-dashboard/internal/models"
)

// PriceStore is the read surface of the time-series store the gateway
// dispatches to after authorization.
type PriceStore interface {
	GetLatestPrice(ticker string) (*models.PriceTick, error)
	GetPriceRange(ticker string, from, to time.Time) ([]*models.PriceTick, error)
	GetDailySummary(ticker string, date time.Time) (*models.DailySummary, error)
	GetPriceStats(ticker string, days int) (*models.PriceStats, error)
	HealthStats() (map[string]int64, *time.Time, error)
}

// AlertStore is the alert surface the gateway dispatches to.
type AlertStore interface {
	CreateAlert(a *models.Alert) error
	GetActiveAlerts(ticker string) ([]*models.Alert, error)
	DeactivateAlert(id string) error
}

// Sessions validates and manages session tokens.
type Sessions interface {
	Login(username, password string) (string, error)
	Logout(token string) error
	Validate(token string) (string, error)
}

// Credentials registers users and rotates passwords.
type Credentials interface {
	Register(username, password string) (string, error)
	ChangePassword(userID, oldPassword, newPassword string) error
}

// FeedStatus reports data freshness from the poller.
type FeedStatus interface {
	Status() feed.Status
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	prices   PriceStore
	alerts   AlertStore
	sessions Sessions
	creds    Credentials
	feed     FeedStatus
	log      *zap.Logger
}

// NewHandler creates a new Handler. feed may be nil when no poller runs.
func NewHandler(prices PriceStore, alerts AlertStore, sessions Sessions, creds Credentials, feedStatus FeedStatus, log *zap.Logger) *Handler {
	return &Handler{
		prices:   prices,
		alerts:   alerts,
		sessions: sessions,
		creds:    creds,
		feed:     feedStatus,
		log:      log,
	}
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	userID, err := h.creds.Register(req.Username, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(bearerToken(r)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /api/v1/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := userIDFrom(r.Context())
	if err := h.creds.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLatest handles GET /api/v1/prices/{metal}/latest
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ticker := resolveTicker(mux.Vars(r)["metal"])

	tick, err := h.prices.GetLatestPrice(ticker)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := struct {
		*models.PriceTick
		Stale bool `json:"stale"`
	}{PriceTick: tick}
	if h.feed != nil {
		resp.Stale = h.feed.Status().Stale
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /api/v1/prices/{metal}/history?from=&to=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := resolveTicker(mux.Vars(r)["metal"])

	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
	}

	ticks, err := h.prices.GetPriceRange(ticker, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ticks == nil {
		ticks = []*models.PriceTick{}
	}
	respondJSON(w, http.StatusOK, ticks)
}

// GetSummary handles GET /api/v1/prices/{metal}/summary?date=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ticker := resolveTicker(mux.Vars(r)["metal"])

	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		var err error
		if date, err = time.Parse("2006-01-02", v); err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	summary, err := h.prices.GetDailySummary(ticker, date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetStats handles GET /api/v1/prices/{metal}/stats?days=
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ticker := resolveTicker(mux.Vars(r)["metal"])

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}

	stats, err := h.prices.GetPriceStats(ticker, days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListAlerts handles GET /api/v1/alerts?ticker=
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker != "" {
		ticker = resolveTicker(ticker)
	}

	alerts, err := h.alerts.GetActiveAlerts(ticker)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

// CreateAlert handles POST /api/v1/alerts
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker     string `json:"ticker"`
		Kind       string `json:"kind"`
		UpperBound string `json:"upper_bound"`
		LowerBound string `json:"lower_bound"`
		ChangePct  string `json:"change_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	alert := &models.Alert{
		ID:     uuid.NewString(),
		Ticker: resolveTicker(req.Ticker),
		Kind:   req.Kind,
		Active: true,
	}

	var err error
	if alert.UpperBound, err = parseOptionalDecimal(req.UpperBound); err != nil {
		http.Error(w, "invalid upper_bound", http.StatusBadRequest)
		return
	}
	if alert.LowerBound, err = parseOptionalDecimal(req.LowerBound); err != nil {
		http.Error(w, "invalid lower_bound", http.StatusBadRequest)
		return
	}
	if alert.ChangePct, err = parseOptionalDecimal(req.ChangePct); err != nil {
		http.Error(w, "invalid change_pct", http.StatusBadRequest)
		return
	}

	switch alert.Kind {
	case models.AlertKindThreshold:
		if !alert.UpperBound.Valid && !alert.LowerBound.Valid {
			http.Error(w, "threshold alert needs upper_bound or lower_bound", http.StatusBadRequest)
			return
		}
	case models.AlertKindPercentChange:
		if !alert.ChangePct.Valid || alert.ChangePct.Decimal.IsZero() {
			http.Error(w, "percent-change alert needs a non-zero change_pct", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "kind must be THRESHOLD or PERCENT_CHANGE", http.StatusBadRequest)
		return
	}

	if err := h.alerts.CreateAlert(alert); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

// ClearAlert handles DELETE /api/v1/alerts/{id}
func (h *Handler) ClearAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.DeactivateAlert(mux.Vars(r)["id"]); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "healthy"}

	counts, latest, err := h.prices.HealthStats()
	if err != nil {
		h.log.Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "unhealthy"})
		return
	}
	resp["tables"] = counts
	if latest != nil {
		resp["latest_data_timestamp"] = latest
	}
	if h.feed != nil {
		resp["feed"] = h.feed.Status()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthFailed):
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrDuplicateUsername):
		http.Error(w, "username already exists", http.StatusConflict)
	case errors.Is(err, auth.ErrWeakPassword):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// resolveTicker maps a metal name (copper, zinc, ...) to its LME ticker and
// passes raw tickers through unchanged.
func resolveTicker(name string) string {
	if ticker, ok := models.Metals[name]; ok {
		return ticker
	}
	return name
}

func parseOptionalDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
