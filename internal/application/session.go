package application

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fduhole/dxkit/internal/domain/model"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Keys used in the secret and preference stores.
const (
	credentialKey        = "token"
	notificationTokenKey = "notification-token"
)

// ErrNotLoggedIn is returned by operations that need a credential when none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// CacheClearer is implemented by caches that must be emptied on logout.
type CacheClearer interface {
	ClearAll()
}

// Session owns the credential lifecycle. It is the only writer of the
// credential: every change is persisted to the secret store first, then
// swapped into the CredentialHolder, then published to observers.
type Session struct {
	auth     driven.AuthAPI
	push     driven.NotificationAPI
	secrets  driven.SecretStore
	prefs    driven.PreferenceStore
	holder   *CredentialHolder
	caches   CacheClearer
	deviceID string
	isLogged *Observable[bool]
	now      func() time.Time

	mu sync.Mutex // serializes credential writes
}

// NewSession restores the persisted credential, if any, and returns a Session.
// A missing or undecodable credential leaves the session logged out without
// error; only a failing secret store is reported.
func NewSession(
	ctx context.Context,
	auth driven.AuthAPI,
	push driven.NotificationAPI,
	secrets driven.SecretStore,
	prefs driven.PreferenceStore,
	holder *CredentialHolder,
	caches CacheClearer,
	deviceID string,
	dispatcher Dispatcher,
) (*Session, error) {
	s := &Session{
		auth:     auth,
		push:     push,
		secrets:  secrets,
		prefs:    prefs,
		holder:   holder,
		caches:   caches,
		deviceID: deviceID,
		isLogged: NewObservable[bool](dispatcher),
		now:      time.Now,
	}

	cred, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}
	s.holder.Replace(cred)
	s.isLogged.publish(cred != nil)

	return s, nil
}

func (s *Session) restore(ctx context.Context) (*model.Credential, error) {
	data, err := s.secrets.Get(ctx, credentialKey)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("secret store disabled, starting logged out", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil || cred.Access == "" {
		slog.Warn("discarding unreadable stored credential", "error", err)
		return nil, nil
	}
	return &cred, nil
}

// IsLogged reports whether a credential is held.
func (s *Session) IsLogged() bool {
	return s.isLogged.Get()
}

// LoginState is the observable logged-in flag.
func (s *Session) LoginState() *Observable[bool] {
	return s.isLogged
}

// Credential returns a copy of the current credential, or nil.
func (s *Session) Credential() *model.Credential {
	return s.holder.Get()
}

// DeviceID returns the identifier push tokens are registered under.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// Login authenticates with email and password and stores the new credential.
// Remote errors are returned unchanged and leave the session untouched.
func (s *Session) Login(ctx context.Context, email, password string) error {
	cred, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setCredential(ctx, &cred); err != nil {
		return err
	}

	slog.Info("logged in", "email", email)
	return nil
}

// Register creates an account (create=true) or resets the password of an
// existing one, then stores the returned credential like Login.
func (s *Session) Register(ctx context.Context, email, password, verification string, create bool) error {
	cred, err := s.auth.Register(ctx, email, password, verification, create)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setCredential(ctx, &cred); err != nil {
		return err
	}

	slog.Info("registered", "email", email, "create", create)
	return nil
}

// RefreshToken exchanges the refresh token for a new credential.
// Refreshes are serialized so a single-use refresh token is presented once.
func (s *Session) RefreshToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.holder.Get()
	if current == nil {
		return ErrNotLoggedIn
	}

	cred, err := s.auth.RefreshToken(ctx, current.Refresh)
	if err != nil {
		return err
	}
	if cred.Refresh == "" {
		cred.Refresh = current.Refresh
	}

	if err := s.setCredential(ctx, &cred); err != nil {
		return err
	}

	slog.Info("token refreshed")
	return nil
}

// EnsureFresh refreshes the credential when its access token expires within
// leeway. Tokens without a readable expiry are left alone.
func (s *Session) EnsureFresh(ctx context.Context, leeway time.Duration) error {
	current := s.holder.Get()
	if current == nil {
		return ErrNotLoggedIn
	}
	if !current.ExpiresWithin(s.now(), leeway) {
		return nil
	}
	return s.RefreshToken(ctx)
}

// Logout signs out locally and never fails. Unregistering the push token and
// the remote logout are best effort; their errors are logged and dropped.
// The credential, the last uploaded push token and every cache are cleared
// regardless.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holder.HasCredential() {
		if s.deviceID != "" {
			if err := s.push.DeleteNotificationToken(ctx, s.deviceID); err != nil {
				slog.Warn("delete notification token failed", "device_id", s.deviceID, "error", err)
			}
		}
		if err := s.auth.Logout(ctx); err != nil {
			slog.Warn("remote logout failed", "error", err)
		}
	}

	if err := s.secrets.Delete(ctx, credentialKey); err != nil {
		slog.Warn("delete stored credential failed", "error", err)
	}
	s.holder.Replace(nil)

	if err := s.prefs.Delete(ctx, notificationTokenKey); err != nil {
		slog.Warn("forget notification token failed", "error", err)
	}

	s.caches.ClearAll()
	s.isLogged.publish(false)

	slog.Info("logged out")
}

// ReceiveNotificationToken registers the device's push token with the forum.
// The token is hex encoded and uploaded only when it differs from the last
// uploaded one. It does nothing while logged out.
func (s *Session) ReceiveNotificationToken(ctx context.Context, tokenData []byte) error {
	if !s.holder.HasCredential() {
		return nil
	}

	token := hex.EncodeToString(tokenData)

	last, err := s.prefs.Get(ctx, notificationTokenKey)
	if err != nil {
		return fmt.Errorf("read last notification token: %w", err)
	}
	if last == token {
		slog.Debug("notification token unchanged, skipping upload")
		return nil
	}

	if err := s.push.UploadNotificationToken(ctx, s.deviceID, token); err != nil {
		return err
	}
	if err := s.prefs.Set(ctx, notificationTokenKey, token); err != nil {
		return fmt.Errorf("record notification token: %w", err)
	}

	slog.Info("notification token uploaded", "device_id", s.deviceID)
	return nil
}

// setCredential persists cred, then installs and publishes it.
// Must be called with s.mu held.
func (s *Session) setCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.secrets.Set(ctx, credentialKey, data); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	s.holder.Replace(cred)
	s.isLogged.publish(true)
	return nil
}
