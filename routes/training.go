package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opsec-k9/backend/workflow"
)

// --- CREATE ---
func CreateTraining(trainingLog *workflow.TrainingLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		var body struct {
			K9ID            int64  `json:"k9_id"`
			Discipline      string `json:"discipline"`
			Area            string `json:"area"`
			DurationMinutes int    `json:"duration_minutes"`
			Notes           string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, fmt.Errorf("%w: invalid JSON", workflow.ErrInvalidInput))
			return
		}
		defer r.Body.Close()

		s, err := trainingLog.Record(r.Context(), p, workflow.TrainingInput{
			K9ID:            body.K9ID,
			Discipline:      body.Discipline,
			Area:            body.Area,
			DurationMinutes: body.DurationMinutes,
			Notes:           body.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": s.ID})
	}
}

// --- LIST ALL ---
func ListTraining(trainingLog *workflow.TrainingLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		sessions, err := trainingLog.List(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}
