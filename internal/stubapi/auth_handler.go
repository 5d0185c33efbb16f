package stubapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// RegisterAuthRoutes registers the public auth routes
func (h *Handler) RegisterAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup", h.signup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

// signup creates a user from a JSON body
func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: []ValidationError{{
			Loc: []string{"body"}, Msg: "Invalid JSON body", Type: "json_invalid",
		}}})
		return
	}

	if problems := validateSignup(req); len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: problems})
		return
	}

	user, err := h.users.Create(req)
	if errors.Is(err, ErrUserExists) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "User already exists"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Failed to create user"})
		return
	}

	h.logger.Info("user registered", "username", user.Username, "request_id", r.Header.Get("X-Request-ID"))
	writeJSON(w, http.StatusCreated, user)
}

func validateSignup(req SignupRequest) []ValidationError {
	var problems []ValidationError
	add := func(field, msg string) {
		problems = append(problems, ValidationError{Loc: []string{"body", field}, Msg: msg, Type: "value_error"})
	}
	if strings.TrimSpace(req.Name) == "" {
		add("name", "String should have at least 1 character")
	}
	if len(req.Username) < 3 {
		add("username", "String should have at least 3 characters")
	}
	if at := strings.Index(req.Email, "@"); at < 1 || at == len(req.Email)-1 {
		add("email", "value is not a valid email address")
	}
	if len(req.Password) < 8 {
		add("password", "String should have at least 8 characters")
	}
	return problems
}

// login accepts a form-encoded username (or email) and password
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: []ValidationError{{
			Loc: []string{"body"}, Msg: "Form data required", Type: "missing",
		}}})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid form body"})
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: []ValidationError{{
			Loc: []string{"body", "username"}, Msg: "Field required", Type: "missing",
		}}})
		return
	}

	user, err := h.users.Authenticate(username, password)
	if err != nil {
		writeUnauthorized(w, "Invalid username/email or password")
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Failed to issue token"})
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
