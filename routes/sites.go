package routes

import (
	"fmt"
	"net/http"

	"github.com/opsec-k9/backend/geo"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
	"github.com/opsec-k9/backend/workflow"
)

// --- NEAREST SITE ---
//
// POST {lat, lon} -> the closest site and the great-circle distance in
// meters.
func NearestSite(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		}
		if err := jsonDecode(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if body.Lat == nil || body.Lon == nil {
			writeError(w, fmt.Errorf("%w: lat and lon are required", workflow.ErrInvalidInput))
			return
		}

		sites, err := st.Sites(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if len(sites) == 0 {
			writeError(w, fmt.Errorf("no sites: %w", store.ErrNotFound))
			return
		}

		var best models.Site
		bestD := -1.0
		for _, s := range sites {
			d, err := geo.Distance(*body.Lat, *body.Lon, s.Lat, s.Lon)
			if err != nil {
				writeError(w, err)
				return
			}
			if bestD < 0 || d < bestD {
				best = s
				bestD = d
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"site":            best,
			"distance_meters": bestD,
		})
	}
}
