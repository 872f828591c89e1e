package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleRun triggers one scheduled job immediately: POST /run/{job} with job
// being daily, backfill or summary. The trigger fires the exact unit of work
// the schedule would have run.
func (c *Controller) HandleRun(w http.ResponseWriter, r *http.Request) {
	job := mux.Vars(r)["job"]

	if _, err := c.App.TemporalClient.ScheduleID(job); err != nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if err := c.App.TemporalClient.TriggerJob(r.Context(), job); err != nil {
		c.App.Logger.Error("Failed to trigger job", zap.String("job", job), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "trigger failed"})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "triggered", "job": job})
}
