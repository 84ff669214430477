// Package session authenticates the console operator and tracks the live
// operator sessions. The engine's collection subscription follows the
// session state: it opens when the first session appears and closes when the
// last one ends.
package session

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"veridesk/pkg/secrets"

	dErrors "veridesk/pkg/domain-errors"
)

// ChangeFunc observes operator presence transitions. active is true while at
// least one session is live.
type ChangeFunc func(ctx context.Context, active bool)

// Config carries the operator credential and token parameters.
type Config struct {
	Username      string
	SecretHash    string
	SigningKey    string
	Issuer        string
	TTL           time.Duration
	DeviceBinding bool
}

// Manager owns operator authentication and the set of live sessions.
type Manager struct {
	username   string
	secretHash string
	tokens     *TokenService
	device     *DeviceService
	logger     *slog.Logger
	onChange   ChangeFunc

	mu     sync.Mutex
	active map[string]string // jti -> device display name
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithChangeFunc registers the presence transition observer.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates a session manager for the configured operator.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		username:   cfg.Username,
		secretHash: cfg.SecretHash,
		tokens:     NewTokenService(cfg.SigningKey, cfg.Issuer, cfg.TTL),
		device:     NewDeviceService(cfg.DeviceBinding),
		logger:     slog.Default(),
		active:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login verifies the operator credential and opens a session. The returned
// token authenticates subsequent console requests.
func (m *Manager) Login(ctx context.Context, username, secret, userAgent string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) != 1 {
		// Burn a comparison anyway so unknown usernames cost the same.
		_ = secrets.Verify(secret, m.secretHash)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := secrets.Verify(secret, m.secretHash); err != nil {
		m.logger.Warn("operator login rejected", "username", username)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	fingerprint := m.device.ComputeFingerprint(userAgent)
	deviceName := ParseUserAgent(userAgent)

	token, jti, err := m.tokens.Generate(username, fingerprint, deviceName)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	m.mu.Lock()
	m.active[jti] = deviceName
	first := len(m.active) == 1
	m.mu.Unlock()

	m.logger.Info("operator session opened", "device", deviceName)
	if first && m.onChange != nil {
		m.onChange(ctx, true)
	}
	return token, nil
}

// Logout ends the session identified by the token. Unknown or already ended
// sessions are a no-op.
func (m *Manager) Logout(ctx context.Context, token string) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return
	}

	m.mu.Lock()
	device, known := m.active[claims.ID]
	delete(m.active, claims.ID)
	last := known && len(m.active) == 0
	m.mu.Unlock()

	if known {
		m.logger.Info("operator session closed", "device", device)
	}
	if last && m.onChange != nil {
		m.onChange(ctx, false)
	}
}

// Verify authenticates a request token against the live session set and
// checks for device drift since login.
func (m *Manager) Verify(ctx context.Context, token, userAgent string) (*Claims, error) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	_, live := m.active[claims.ID]
	m.mu.Unlock()
	if !live {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session ended")
	}

	if claims.Fingerprint != "" {
		current := m.device.ComputeFingerprint(userAgent)
		if _, drift := m.device.CompareFingerprints(claims.Fingerprint, current); drift {
			// Soft launch: log the signal, do not enforce.
			m.logger.Warn("device fingerprint drift", "device", claims.Device)
		}
	}
	return claims, nil
}

// ActiveSessions returns the number of live operator sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
