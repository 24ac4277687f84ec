package routes

import (
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

// --- LIST ALL ---
func ListK9s(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k9s, err := st.K9s(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, k9s)
	}
}

// --- GET BY ID ---
func GetK9(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid id", workflow.ErrInvalidInput))
			return
		}

		k9, err := st.K9(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, k9)
	}
}

// --- ADD VACCINATION ---
//
// Multipart form (type, date, expires plus optional "file" document) or
// plain JSON. type and expires are required; date defaults to now.
func AddVaccination(st store.Store, uploads *media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k9ID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid id", workflow.ErrInvalidInput))
			return
		}

		// make sure the K9 exists before recording anything for it
		if _, err := st.K9(r.Context(), k9ID); err != nil {
			writeError(w, err)
			return
		}

		v, err := parseVaccination(r, uploads)
		if err != nil {
			writeError(w, err)
			return
		}
		v.K9ID = k9ID

		if err := st.AppendVaccination(r.Context(), &v); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": v.ID})
	}
}

func parseVaccination(r *http.Request, uploads *media.Store) (models.Vaccination, error) {
	var typ, date, expires, fileRef string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return models.Vaccination{}, fmt.Errorf("%w: invalid multipart form", workflow.ErrInvalidInput)
		}
		typ = r.FormValue("type")
		date = r.FormValue("date")
		expires = r.FormValue("expires")

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			ref, err := uploads.Save(header.Filename, file)
			if err != nil {
				return models.Vaccination{}, err
			}
			fileRef = ref
		} else if !errors.Is(err, http.ErrMissingFile) {
			return models.Vaccination{}, fmt.Errorf("%w: bad file upload", workflow.ErrInvalidInput)
		}
	} else {
		var body struct {
			Type    string `json:"type"`
			Date    string `json:"date"`
			Expires string `json:"expires"`
		}
		if err := jsonDecode(r, &body); err != nil {
			return models.Vaccination{}, err
		}
		typ, date, expires = body.Type, body.Date, body.Expires
	}

	if typ == "" || expires == "" {
		return models.Vaccination{}, fmt.Errorf("%w: type and expires are required", workflow.ErrInvalidInput)
	}

	expiresAt, err := parseDateOnly(expires)
	if err != nil {
		return models.Vaccination{}, fmt.Errorf("%w: invalid expires (use YYYY-MM-DD)", workflow.ErrInvalidInput)
	}

	dateAt := time.Now().UTC()
	if date != "" {
		dateAt, err = parseDateOnly(date)
		if err != nil {
			return models.Vaccination{}, fmt.Errorf("%w: invalid date (use YYYY-MM-DD)", workflow.ErrInvalidInput)
		}
	}

	return models.Vaccination{Type: typ, Date: dateAt, Expires: expiresAt, File: fileRef}, nil
}

// --- UPCOMING EXPIRATIONS ---
func UpcomingVaccinations(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cutoff := time.Now().Add(30 * 24 * time.Hour)
		due, err := st.VaccinationsExpiringBefore(r.Context(), cutoff)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, due)
	}
}
