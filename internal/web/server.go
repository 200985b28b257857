package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/stakeward/stakeward/internal/config"
	"github.com/stakeward/stakeward/internal/ledger"
	"github.com/stakeward/stakeward/internal/logger"
	"github.com/stakeward/stakeward/internal/state"
	"github.com/stakeward/stakeward/internal/types"
	"github.com/stakeward/stakeward/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the ledger over HTTP: read endpoints for accounts and
// pools, transaction endpoints for the four balance operations, and
// token-gated admin endpoints for pause control and pool funding.
type WebServer struct {
	router *mux.Router
	port   string
	ledger *ledger.Ledger
}

// NewWebServer creates a new web server instance over the given ledger.
func NewWebServer(port string, l *ledger.Ledger) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		ledger: l,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/accounts/{principal}", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pending-reward/{principal}", ws.handleGetPendingReward).Methods("GET")
	api.HandleFunc("/stats", ws.handleGetStats).Methods("GET")

	// Transaction endpoints
	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/stake", ws.handleStake).Methods("POST")
	api.HandleFunc("/unstake", ws.handleUnstake).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")

	// Admin endpoints, gated by the bearer token
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(ws.adminAuthMiddleware)
	admin.HandleFunc("/pause", ws.handlePause).Methods("POST")
	admin.HandleFunc("/unpause", ws.handleUnpause).Methods("POST")
	admin.HandleFunc("/notify-reward", ws.handleNotifyReward).Methods("POST")
	admin.HandleFunc("/fund-pool", ws.handleFundPool).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"ledger_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"paused":           ws.ledger.Paused(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetAccount returns the ledger entry for one principal
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	principal := mux.Vars(r)["principal"]

	acct, err := ws.ledger.GetAccount(principal)
	if err != nil {
		webLogger.Error().Err(err).Str("principal", principal).Msg("Failed to get account")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to retrieve account")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, acct)
}

// handleGetPools returns the read-model of all four reward pools
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools, err := ws.ledger.PoolSnapshots()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool snapshots")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to retrieve pools")
		return
	}

	response := map[string]interface{}{
		"pools":     pools,
		"timestamp": ws.ledger.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPendingReward returns the staking yield the principal would be
// owed if they unstaked now
func (ws *WebServer) handleGetPendingReward(w http.ResponseWriter, r *http.Request) {
	principal := mux.Vars(r)["principal"]

	pending, err := ws.ledger.PendingReward(principal)
	if err != nil {
		webLogger.Error().Err(err).Str("principal", principal).Msg("Failed to compute pending reward")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to compute pending reward")
		return
	}

	response := map[string]interface{}{
		"principal":      principal,
		"pending_reward": pending.String(),
		"timestamp":      ws.ledger.Now().UTC(),
	}
	if display, err := utils.DisplayAmount(pending, 18); err == nil {
		response["pending_reward_display"] = display
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStats returns journal counts per lifecycle event type
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	for _, eventType := range []string{
		types.EventDeposited, types.EventStaked, types.EventUnstaked, types.EventWithdrawn,
		types.EventRewardAdded, types.EventRewardExtended, types.EventPoolFunded,
	} {
		count, err := state.EventCountByType(eventType)
		if err != nil {
			webLogger.Error().Err(err).Msg("Failed to count ledger events")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve stats")
			return
		}
		counts[eventType] = count
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"event_counts": counts})
}

// transactionRequest is the wire format of the four balance operations.
type transactionRequest struct {
	Principal string `json:"principal"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount,omitempty"`
}

func (ws *WebServer) decodeTransaction(r *http.Request) (transactionRequest, types.AssetType, error) {
	var req transactionRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return req, types.AssetNative, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, types.AssetNative, err
	}
	if req.Principal == "" {
		return req, types.AssetNative, errors.New("principal is required")
	}
	asset, err := types.ParseAsset(req.Asset)
	if err != nil {
		return req, types.AssetNative, err
	}
	return req, asset, nil
}

func parseAmount(raw string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), errors.New("unparseable amount")
	}
	return amount, nil
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, asset, err := ws.decodeTransaction(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.ledger.Deposit(r.Context(), req.Principal, asset, amount); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	req, asset, err := ws.decodeTransaction(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.ledger.Stake(r.Context(), req.Principal, asset, amount); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (ws *WebServer) handleUnstake(w http.ResponseWriter, r *http.Request) {
	req, _, err := ws.decodeTransaction(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.ledger.Unstake(r.Context(), req.Principal); err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	acct, err := ws.ledger.GetAccount(req.Principal)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"ok":               true,
		"finalized_reward": acct.FinalizedReward.String(),
		"unstake_ready_at": acct.UnstakeReadyAt.UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, asset, err := ws.decodeTransaction(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.ledger.Withdraw(r.Context(), req.Principal, asset); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := ws.ledger.Pause(config.OwnerPrincipal); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true, "paused": true})
}

func (ws *WebServer) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := ws.ledger.Unpause(config.OwnerPrincipal); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true, "paused": false})
}

// fundRequest is the wire format of the admin funding endpoints.
type fundRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Pool   string `json:"pool,omitempty"` // "staking" or "depositor", fund-pool only
}

func (ws *WebServer) decodeFund(r *http.Request) (fundRequest, types.AssetType, sdkmath.Int, error) {
	var req fundRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return req, types.AssetNative, sdkmath.ZeroInt(), err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, types.AssetNative, sdkmath.ZeroInt(), err
	}
	asset, err := types.ParseAsset(req.Asset)
	if err != nil {
		return req, types.AssetNative, sdkmath.ZeroInt(), err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return req, asset, sdkmath.ZeroInt(), err
	}
	return req, asset, amount, nil
}

func (ws *WebServer) handleNotifyReward(w http.ResponseWriter, r *http.Request) {
	_, asset, amount, err := ws.decodeFund(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.ledger.NotifyReward(config.OwnerPrincipal, asset, amount); err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (ws *WebServer) handleFundPool(w http.ResponseWriter, r *http.Request) {
	req, asset, amount, err := ws.decodeFund(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Pool == "depositor" {
		err = ws.ledger.FundDepositorPool(config.OwnerPrincipal, asset, amount)
	} else {
		err = ws.ledger.FundStakingPool(config.OwnerPrincipal, asset, amount)
	}
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// writeLedgerError maps ledger error taxonomy to HTTP status codes.
func (ws *WebServer) writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrPaused),
		errors.Is(err, ledger.ErrAlreadyPaused),
		errors.Is(err, ledger.ErrNotPaused),
		errors.Is(err, ledger.ErrCooldownActive),
		errors.Is(err, ledger.ErrStakeAssetMismatch):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrReentrantCall):
		status = http.StatusTooManyRequests
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrZeroReward),
		errors.Is(err, ledger.ErrDepositOutOfBounds),
		errors.Is(err, ledger.ErrStakeLimitExceeded):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotDepositor),
		errors.Is(err, ledger.ErrNotStaker),
		errors.Is(err, ledger.ErrNotDepositorOrStaker):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientRewardPool):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrTransferFromFailed),
		errors.Is(err, ledger.ErrNativeCollectFailed),
		errors.Is(err, ledger.ErrWithdrawFailed):
		status = http.StatusBadGateway
	}
	ws.writeErrorResponse(w, status, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// adminAuthMiddleware requires the configured bearer token on admin routes
func (ws *WebServer) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.AdminToken == "" || r.Header.Get("Authorization") != "Bearer "+config.AdminToken {
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
