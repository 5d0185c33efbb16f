package stubapi

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when the username or email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when the login does not match a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type user struct {
	UserResponse
	passwordHash []byte
}

// UserStore holds registered users in memory.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]*user // by lowercase username
	nextID int64
	cost   int
}

// NewUserStore creates an empty store hashing passwords with the given bcrypt cost.
func NewUserStore(cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{users: make(map[string]*user), nextID: 1, cost: cost}
}

// Create registers a user. Username and email must both be unused.
func (s *UserStore) Create(req SignupRequest) (*UserResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(req.Username) != nil || s.lookup(req.Email) != nil {
		return nil, ErrUserExists
	}

	u := &user{
		UserResponse: UserResponse{
			ID:       s.nextID,
			Name:     req.Name,
			Username: req.Username,
			Email:    req.Email,
		},
		passwordHash: hash,
	}
	s.nextID++
	s.users[strings.ToLower(req.Username)] = u

	resp := u.UserResponse
	return &resp, nil
}

// Authenticate matches login against username or email and checks the password.
func (s *UserStore) Authenticate(login, password string) (*UserResponse, error) {
	s.mu.RLock()
	u := s.lookup(login)
	s.mu.RUnlock()

	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	resp := u.UserResponse
	return &resp, nil
}

// RecordVisit increments the visit counter of username.
func (s *UserStore) RecordVisit(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.lookup(username); u != nil {
		u.Visits++
	}
}

// Count returns the number of registered users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserStore) lookup(login string) *user {
	key := strings.ToLower(login)
	if u, ok := s.users[key]; ok {
		return u
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) {
			return u
		}
	}
	return nil
}
