package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

// HandleHealth is the liveness probe: the process is up.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleReady is the readiness probe: every dependency must answer.
func (c *Controller) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := c.App.MetricsDB.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "errored", "error": "database connection error"})
		return
	}

	temporalHealth, err := c.App.TemporalClient.Health(ctx)
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "errored", "error": "temporal connection error"})
		return
	}

	if c.App.RedisClient != nil {
		if err = c.App.RedisClient.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"temporal": temporalHealth,
	})
}
