package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// issueToken creates an HS256 JWT for the principal, 12h expiry.
func issueToken(secret []byte, userID string, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(12 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Login authenticates by email and password and returns a bearer token
// signed with the same secret AuthJWT verifies with.
func Login(st store.Store, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&body); err != nil {
			var syntaxErr *json.SyntaxError
			var unmarshalTypeErr *json.UnmarshalTypeError

			switch {
			case errors.Is(err, io.EOF):
				http.Error(w, "Empty body", http.StatusBadRequest)
			case errors.As(err, &syntaxErr):
				http.Error(w, "Malformed JSON", http.StatusBadRequest)
			case errors.As(err, &unmarshalTypeErr):
				http.Error(w, "Wrong type for a field", http.StatusBadRequest)
			default:
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
			}
			return
		}

		if body.Email == "" || body.Password == "" {
			http.Error(w, "email and password are required", http.StatusBadRequest)
			return
		}

		user, err := st.UserByEmail(r.Context(), body.Email)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		} else if err != nil {
			writeError(w, err)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}

		token, err := issueToken([]byte(secret), user.UserID, user.Role)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
	}
}

// Me returns the directory record of the authenticated caller.
func Me(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		user, err := st.UserByUserID(r.Context(), p.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
