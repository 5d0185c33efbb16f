package stubapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Options configures the stub service.
type Options struct {
	Secret     []byte
	TokenTTL   time.Duration
	Now        func() time.Time // token clock, defaults to time.Now
	BcryptCost int
	Logger     *slog.Logger
}

// Handler serves a local stand-in for the remote prescription service.
type Handler struct {
	users  *UserStore
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewHandler creates a Handler with an empty user store.
func NewHandler(opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		users:  NewUserStore(opts.BcryptCost),
		tokens: NewTokenIssuer(opts.Secret, opts.TokenTTL, opts.Now),
		logger: opts.Logger,
	}
}

// NewRouter creates the router and registers all routes
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint (public, no auth)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// Public auth routes
	h.RegisterAuthRoutes(r)

	// Protected routes
	protected := r.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware())
	h.RegisterMedicineRoutes(protected)

	return r
}
