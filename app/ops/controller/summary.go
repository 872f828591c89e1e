package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"

	"github.com/socialpulse/pulsex/pkg/redis"
)

// HandleSummary serves one precomputed summary entry. The Redis mirror is the
// fast path; a cold or disabled mirror falls back to the ClickHouse row.
func (c *Controller) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	owner, metric, periodName := vars["owner"], vars["metric"], vars["period"]

	if c.App.RedisClient != nil {
		payload, err := c.App.RedisClient.GetSummary(ctx, redis.SummaryKey(owner, metric, periodName))
		if err == nil && payload != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
	}

	entry, err := c.App.MetricsDB.GetSummary(ctx, owner, metric, periodName)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "summary lookup failed"})
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "summary not found"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(entry)
}
