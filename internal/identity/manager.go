package identity

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidUsername    = errors.New("identity: invalid username")
	ErrInvalidPassword    = errors.New("identity: invalid password")
	ErrUsernameTaken      = errors.New("identity: username already exists")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager is an in-memory account directory issuing HS256 bearer tokens.
// Swappable for a persistent accounts table without changing gateway
// contracts, same as the teacher's session.Manager.
type Manager struct {
	mu sync.Mutex

	secret     []byte
	tokenTTL   time.Duration
	nextUserID uint64
	byKey      map[string]uint64 // normalized username -> user id
	byID       map[uint64]account
}

type account struct {
	UserID       uint64
	Username     string
	PasswordHash []byte
}

func NewManager(secret []byte) *Manager {
	return &Manager{
		secret:     secret,
		tokenTTL:   defaultTokenTTL,
		nextUserID: 100000,
		byKey:      make(map[string]uint64),
		byID:       make(map[uint64]account),
	}
}

func normalize(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

// Register creates an account and returns a signed bearer token.
func (m *Manager) Register(username, password string) (userID string, token string, err error) {
	if err = validateUsername(username); err != nil {
		return "", "", err
	}
	if err = validatePassword(password); err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	m.mu.Lock()
	key := normalize(username)
	if _, exists := m.byKey[key]; exists {
		m.mu.Unlock()
		return "", "", ErrUsernameTaken
	}
	m.nextUserID++
	id := m.nextUserID
	m.byID[id] = account{UserID: id, Username: key, PasswordHash: hash}
	m.byKey[key] = id
	m.mu.Unlock()

	return m.issue(id)
}

// Login validates credentials and returns a fresh signed bearer token.
func (m *Manager) Login(username, password string) (userID string, token string, err error) {
	key := normalize(username)
	if key == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	m.mu.Lock()
	id, exists := m.byKey[key]
	var acct account
	if exists {
		acct = m.byID[id]
	}
	m.mu.Unlock()

	if !exists || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}
	return m.issue(id)
}

func (m *Manager) issue(id uint64) (string, string, error) {
	subject := formatUserID(id)
	token, err := Sign(m.secret, subject, m.tokenTTL)
	if err != nil {
		return "", "", err
	}
	return subject, token, nil
}

// ResolveToken verifies a bearer token and returns the subject user-id.
// An empty token resolves to ("", false) rather than an error — §4.4
// allows unauthenticated channel subscribers as spectators.
func (m *Manager) ResolveToken(token string) (userID string, ok bool) {
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	claims, err := Verify(m.secret, token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

func formatUserID(id uint64) string {
	return "u" + strconv.FormatUint(id, 10)
}

// Username resolves a subject user-id back to its registered username,
// for display purposes (e.g. chat messages the gateway attributes to a
// sender). Returns ok=false for an unknown or malformed id.
func (m *Manager) Username(userID string) (username string, ok bool) {
	id, err := strconv.ParseUint(strings.TrimPrefix(userID, "u"), 10, 64)
	if err != nil {
		return "", false
	}
	m.mu.Lock()
	acct, exists := m.byID[id]
	m.mu.Unlock()
	if !exists {
		return "", false
	}
	return acct.Username, true
}
