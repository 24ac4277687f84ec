package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/opsec-k9/backend/geo"
	middleware "github.com/opsec-k9/backend/middlewares"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
	"github.com/opsec-k9/backend/workflow"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the domain error taxonomy onto HTTP statuses:
// invalid input 400, forbidden 403, not found 404, invalid state 409.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput) || errors.Is(err, geo.ErrInvalidCoordinate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, workflow.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Println("internal error:", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// jsonDecode reads a JSON body into dst, mapping decode failures to the
// invalid-input kind.
func jsonDecode(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON", workflow.ErrInvalidInput)
	}
	return nil
}

// principal pulls the authenticated caller out of the request. AuthJWT
// always runs first, so a miss means a wiring bug; answer 401 anyway.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return models.Principal{}, false
	}
	return p, true
}
