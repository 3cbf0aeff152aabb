package sidecar

import (
	"encoding/json"
	"log"
	"net/http"
)

// healthStatus is the activity report consumed by the hub's garbage
// collector.
type healthStatus struct {
	Status                string `json:"status"`
	LastActivityTimestamp int64  `json:"last_activity_timestamp"`
	IdleSeconds           int64  `json:"idle_seconds"`
}

// HealthHandler serves the activity report for the given tracker.
func HealthHandler(tracker *Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(healthStatus{
			Status:                "ok",
			LastActivityTimestamp: tracker.LastActivity(),
			IdleSeconds:           tracker.IdleSeconds(),
		})
		if err != nil {
			log.Printf("Failed to encode health status: %v", err)
		}
	})
}
