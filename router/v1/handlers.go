package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// envelope is the {success: bool, ...} wrapper every response uses
// (spec.md §6).
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < http.StatusBadRequest, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// statusFor implements the HTTP status mapping in spec.md §6:
// NoPriceData -> 404; Stale -> 503; PriceDeviation -> 409; backend errors
// -> 500 with a generic message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrNoPriceData):
		return http.StatusNotFound, "no price data available"
	case errors.Is(err, types.ErrStale):
		return http.StatusServiceUnavailable, "price data is stale"
	case errors.Is(err, types.ErrPriceDeviation):
		return http.StatusConflict, "sources deviate beyond the allowed threshold"
	case errors.Is(err, types.ErrCacheBackend), errors.Is(err, types.ErrStoreBackend):
		return http.StatusInternalServerError, "internal error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type priceResponse struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	Confidence string `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
	Source     string `json:"source"`
}

func toPriceResponse(r types.PriceReading) priceResponse {
	return priceResponse{
		Symbol:     types.PublicSymbol(r.Symbol),
		Price:      r.Price.String(),
		Confidence: r.Confidence.String(),
		Timestamp:  r.Timestamp,
		Source:     r.Source.String(),
	}
}

func symbolParam(req *http.Request) string {
	return types.InternalSymbol(mux.Vars(req)["symbol"])
}

func (router *Router) getPrice(w http.ResponseWriter, req *http.Request) {
	symbol := symbolParam(req)

	reading, err := router.svc.GetConsensusPrice(req.Context(), symbol)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, toPriceResponse(reading))
}

func (router *Router) getPrices(w http.ResponseWriter, req *http.Request) {
	raw := req.URL.Query().Get("symbols")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	public := strings.Split(raw, ",")
	symbols := make([]string, len(public))
	for i, s := range public {
		symbols[i] = types.InternalSymbol(strings.TrimSpace(s))
	}

	results := router.svc.GetPrices(req.Context(), symbols)

	out := make(map[string]any, len(results))
	for _, r := range results {
		if r.Err != nil {
			_, msg := statusFor(r.Err)
			out[types.PublicSymbol(r.Symbol)] = map[string]string{"error": msg}
			continue
		}
		out[types.PublicSymbol(r.Symbol)] = toPriceResponse(r.Reading)
	}
	writeJSON(w, http.StatusOK, out)
}

type historyRecordResponse struct {
	ID         int64  `json:"id"`
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	Confidence string `json:"confidence"`
	Source     string `json:"source"`
	Timestamp  int64  `json:"timestamp"`
	CreatedAt  int64  `json:"created_at"`
}

func (router *Router) getHistory(w http.ResponseWriter, req *http.Request) {
	symbol := symbolParam(req)
	q := req.URL.Query()

	limit := 100
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var start, end *int64
	if s := q.Get("start"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be unix seconds")
			return
		}
		start = &v
	}
	if e := q.Get("end"); e != "" {
		v, err := strconv.ParseInt(e, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be unix seconds")
			return
		}
		end = &v
	}
	if (start == nil) != (end == nil) {
		writeError(w, http.StatusBadRequest, "start and end must be provided together")
		return
	}

	records, err := router.svc.GetHistory(req.Context(), symbol, limit, start, end)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	out := make([]historyRecordResponse, len(records))
	for i, r := range records {
		out[i] = historyRecordResponse{
			ID: r.ID, Symbol: types.PublicSymbol(r.Symbol), Price: r.Price.String(),
			Confidence: r.Confidence.String(), Source: r.Source.String(),
			Timestamp: r.Timestamp, CreatedAt: r.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type statsResponse struct {
	Min    *string `json:"min"`
	Max    *string `json:"max"`
	Mean   *string `json:"mean"`
	StdDev *string `json:"stddev"`
	Count  int64   `json:"count"`
}

func (router *Router) getStats(w http.ResponseWriter, req *http.Request) {
	symbol := symbolParam(req)
	q := req.URL.Query()

	now := time.Now()
	start := now.Add(-defaultStatsWindow).Unix()
	end := now.Unix()

	if s := q.Get("start"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be unix seconds")
			return
		}
		start = v
	}
	if e := q.Get("end"); e != "" {
		v, err := strconv.ParseInt(e, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be unix seconds")
			return
		}
		end = v
	}

	stats, err := router.svc.GetStats(req.Context(), symbol, start, end)
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	resp := statsResponse{Count: stats.Count}
	if stats.Min != nil {
		s := stats.Min.String()
		resp.Min = &s
	}
	if stats.Max != nil {
		s := stats.Max.String()
		resp.Max = &s
	}
	if stats.Mean != nil {
		s := stats.Mean.String()
		resp.Mean = &s
	}
	if stats.StdDev != nil {
		s := stats.StdDev.String()
		resp.StdDev = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Store   bool                    `json:"store"`
	Cache   bool                    `json:"cache"`
	Oracles []healthSnapshotPayload `json:"oracles"`
}

type healthSnapshotPayload struct {
	Source     string `json:"source"`
	Healthy    bool   `json:"healthy"`
	LastUpdate int64  `json:"last_update"`
	ErrorCount uint32 `json:"error_count"`
}

func (router *Router) getHealth(w http.ResponseWriter, req *http.Request) {
	h := router.svc.Health(req.Context())

	oracles := make([]healthSnapshotPayload, len(h.Oracles))
	for i, o := range h.Oracles {
		oracles[i] = healthSnapshotPayload{Source: o.Source.String(), Healthy: o.Healthy, LastUpdate: o.LastUpdate, ErrorCount: o.ErrorCount}
	}

	writeJSON(w, http.StatusOK, healthResponse{Store: h.Store, Cache: h.Cache, Oracles: oracles})
}

type oracleHealthRowResponse struct {
	Source              string `json:"source"`
	IsHealthy           bool   `json:"is_healthy"`
	LastSuccessAt       int64  `json:"last_success_at"`
	LastFailureAt       int64  `json:"last_failure_at"`
	ConsecutiveFailures int64  `json:"consecutive_failures"`
	TotalRequests       int64  `json:"total_requests"`
	TotalFailures       int64  `json:"total_failures"`
	UpdatedAt           int64  `json:"updated_at"`
}

func (router *Router) getOracleHealth(w http.ResponseWriter, req *http.Request) {
	rows, err := router.svc.OracleHealth(req.Context())
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}

	out := make([]oracleHealthRowResponse, len(rows))
	for i, r := range rows {
		out[i] = oracleHealthRowResponse{
			Source: r.Source.String(), IsHealthy: r.IsHealthy, LastSuccessAt: r.LastSuccessAt,
			LastFailureAt: r.LastFailureAt, ConsecutiveFailures: r.ConsecutiveFailures,
			TotalRequests: r.TotalRequests, TotalFailures: r.TotalFailures, UpdatedAt: r.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (router *Router) clearCache(w http.ResponseWriter, req *http.Request) {
	if err := router.svc.ClearCache(req.Context()); err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type cacheStatsResponse struct {
	Entries     int   `json:"entries"`
	MemoryBytes int64 `json:"memory_bytes"`
	TTLSeconds  int64 `json:"ttl_seconds"`
}

func (router *Router) getCacheStats(w http.ResponseWriter, req *http.Request) {
	stats, err := router.svc.CacheStats(req.Context())
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResponse{Entries: stats.Entries, MemoryBytes: stats.MemoryBytes, TTLSeconds: stats.TTLSeconds})
}
