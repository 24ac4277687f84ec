package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
)

// --- CREATE ---
//
// Admin-only (gated by RequireRoles at the router).
func CreateUser(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name     string      `json:"name"`
			Email    string      `json:"email"`
			Password string      `json:"password"`
			Role     models.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(body.Email)
		if body.Name == "" || body.Email == "" || body.Password == "" {
			http.Error(w, "name, email, password are required", http.StatusBadRequest)
			return
		}
		if !body.Role.Valid() {
			http.Error(w, "role must be admin, trainer or handler", http.StatusBadRequest)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, err)
			return
		}

		u := models.User{
			UserID:       uuid.NewString(),
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hashed),
			Role:         body.Role,
		}
		if err := st.CreateUser(r.Context(), &u); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, u)
	}
}
