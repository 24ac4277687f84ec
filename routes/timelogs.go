package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opsec-k9/backend/media"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
	"github.com/opsec-k9/backend/workflow"
)

const maxUploadBytes = 10 << 20

// --- CLOCK IN ---
//
// Accepts multipart form data (fields lat, lon, siteId, jobCode plus an
// optional "selfie" file) or a plain JSON body without media.
func ClockIn(engine *workflow.Engine, uploads *media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		in, err := parseClockIn(r, uploads)
		if err != nil {
			writeError(w, err)
			return
		}

		rec, err := engine.SubmitClockIn(r.Context(), p, in)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"id":     rec.ID,
			"record": rec,
		})
	}
}

func parseClockIn(r *http.Request, uploads *media.Store) (workflow.ClockInInput, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return parseClockInMultipart(r, uploads)
	}

	var body struct {
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
		SiteID  *int64   `json:"siteId"`
		JobCode string   `json:"jobCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return workflow.ClockInInput{}, fmt.Errorf("%w: invalid JSON", workflow.ErrInvalidInput)
	}
	defer r.Body.Close()

	// missing numerics are an error, never coerced to zero
	if body.Lat == nil || body.Lon == nil {
		return workflow.ClockInInput{}, fmt.Errorf("%w: lat and lon are required", workflow.ErrInvalidInput)
	}
	if body.SiteID == nil {
		return workflow.ClockInInput{}, fmt.Errorf("%w: siteId is required", workflow.ErrInvalidInput)
	}

	return workflow.ClockInInput{
		Lat:     *body.Lat,
		Lon:     *body.Lon,
		SiteID:  *body.SiteID,
		JobCode: strings.TrimSpace(body.JobCode),
	}, nil
}

func parseClockInMultipart(r *http.Request, uploads *media.Store) (workflow.ClockInInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return workflow.ClockInInput{}, fmt.Errorf("%w: invalid multipart form", workflow.ErrInvalidInput)
	}

	lat, err := requiredFloat(r, "lat")
	if err != nil {
		return workflow.ClockInInput{}, err
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		return workflow.ClockInInput{}, err
	}
	siteID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("siteId")), 10, 64)
	if err != nil {
		return workflow.ClockInInput{}, fmt.Errorf("%w: siteId must be an integer", workflow.ErrInvalidInput)
	}

	in := workflow.ClockInInput{
		Lat:     lat,
		Lon:     lon,
		SiteID:  siteID,
		JobCode: strings.TrimSpace(r.FormValue("jobCode")),
	}

	file, header, err := r.FormFile("selfie")
	if err == nil {
		defer file.Close()
		ref, err := uploads.Save(header.Filename, file)
		if err != nil {
			return workflow.ClockInInput{}, err
		}
		in.Selfie = ref
	} else if !errors.Is(err, http.ErrMissingFile) {
		return workflow.ClockInInput{}, fmt.Errorf("%w: bad selfie upload", workflow.ErrInvalidInput)
	}

	return in, nil
}

func requiredFloat(r *http.Request, field string) (float64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", workflow.ErrInvalidInput, field)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", workflow.ErrInvalidInput, field)
	}
	return v, nil
}

// --- PENDING LIST ---
func ListPending(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		pending, err := engine.ListPending(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pending)
	}
}

// --- APPROVE / REJECT ---
func Approve(engine *workflow.Engine) http.HandlerFunc {
	return decide(engine, (*workflow.Engine).Approve)
}

func Reject(engine *workflow.Engine) http.HandlerFunc {
	return decide(engine, (*workflow.Engine).Reject)
}

func decide(engine *workflow.Engine, fn func(*workflow.Engine, context.Context, models.Principal, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid id", workflow.ErrInvalidInput))
			return
		}

		if err := fn(engine, r.Context(), p, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// --- REPORT ---
//
// GET /time/logs with optional user_id, state, from, to (YYYY-MM-DD),
// limit, offset query params. Admin only.
func ReportTimeLogs(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		f := store.TimeLogFilter{
			UserID: strings.TrimSpace(q.Get("user_id")),
			State:  models.ApprovalState(strings.TrimSpace(q.Get("state"))),
			Limit:  50,
		}

		if v := q.Get("from"); v != "" {
			d, err := parseDateOnly(v)
			if err != nil {
				writeError(w, fmt.Errorf("%w: invalid from (use YYYY-MM-DD)", workflow.ErrInvalidInput))
				return
			}
			f.From = &d
		}
		if v := q.Get("to"); v != "" {
			d, err := parseDateOnly(v)
			if err != nil {
				writeError(w, fmt.Errorf("%w: invalid to (use YYYY-MM-DD)", workflow.ErrInvalidInput))
				return
			}
			// include the whole end day
			d = d.AddDate(0, 0, 1)
			f.To = &d
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				f.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		items, err := engine.Logs(r.Context(), p, f)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"limit":  f.Limit,
			"offset": f.Offset,
			"items":  items,
		})
	}
}

func parseDateOnly(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}
