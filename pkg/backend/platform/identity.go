package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgAuth "github.com/wanterio/wanterio-backend/pkg/auth"
	authsession "github.com/wanterio/wanterio-backend/pkg/auth/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/db"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/storage"
	"gorm.io/gorm"
)

func (b *Backend) OnSessionChange(fn func(backend.SessionChange)) func() {
	return b.changes.Subscribe(fn)
}

// GetCurrentSession restores the session from the persisted token. A revoked or
// unreadable token is discarded; an expired one is rotated.
func (b *Backend) GetCurrentSession(ctx context.Context) (*backend.Session, error) {
	claims, err := b.storedClaims(ctx)
	if err != nil || claims == nil {
		return nil, err
	}

	active, err := b.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !active {
		b.discardToken(ctx)
		return nil, nil
	}

	if claims.ExpiresAt != nil && !b.now().Before(claims.ExpiresAt.Time) {
		return b.rotate(ctx, claims)
	}

	token, err := b.local.Get(ctx, AuthTokenKey)
	if err != nil {
		return nil, fmt.Errorf("read auth token: %w", err)
	}
	return sessionFromClaims(claims, token), nil
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, backend.ErrInvalidCredentials
	}

	var user models.AuthUser
	err := b.db.DB().WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find auth user: %w", err)
	}

	ok, err := b.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, backend.ErrInvalidCredentials
	}

	now := b.now().UTC()
	updates := map[string]any{"last_sign_in_at": now}
	if b.hasher.NeedsRehash(user.PasswordHash) {
		if rehashed, err := b.hasher.Hash(password); err == nil {
			updates["password_hash"] = rehashed
		}
	}
	if err := b.db.DB().WithContext(ctx).Model(&models.AuthUser{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		b.logg.Warn(b.logg.WithUserID(ctx, user.ID.String()), "failed to record sign-in")
	}

	sess, err := b.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	b.changes.Publish(backend.SessionChange{Event: backend.EventSignedIn, Session: sess})
	return sess, nil
}

func (b *Backend) SignUp(ctx context.Context, input backend.SignUpInput) (*backend.Session, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	hash, err := b.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.AuthUser{Email: email, PasswordHash: hash}
	if name := strings.TrimSpace(input.FullName); name != "" {
		user.FullName = &name
	}
	if err := b.db.DB().WithContext(ctx).Create(&user).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, backend.ErrEmailTaken
		}
		return nil, fmt.Errorf("create auth user: %w", err)
	}

	sess, err := b.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	b.changes.Publish(backend.SessionChange{Event: backend.EventSignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the server-side session and forgets the local token.
func (b *Backend) SignOut(ctx context.Context) error {
	claims, err := b.storedClaims(ctx)
	if err != nil {
		return err
	}
	if claims != nil {
		if err := b.sessions.Revoke(ctx, claims.ID); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	if err := b.local.Delete(ctx, AuthTokenKey); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	b.changes.Publish(backend.SessionChange{Event: backend.EventSignedOut})
	return nil
}

func (b *Backend) RefreshSession(ctx context.Context) (*backend.Session, error) {
	claims, err := b.storedClaims(ctx)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, authsession.ErrInvalidSession
	}
	return b.rotate(ctx, claims)
}

func (b *Backend) rotate(ctx context.Context, claims *pkgAuth.AccessTokenClaims) (*backend.Session, error) {
	newAccessID, userID, err := b.sessions.Rotate(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, authsession.ErrInvalidSession) {
			b.discardToken(ctx)
		}
		return nil, err
	}

	var user models.AuthUser
	if err := b.db.DB().WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("load auth user: %w", err)
	}
	sess, err := b.mint(ctx, user, newAccessID)
	if err != nil {
		return nil, err
	}
	b.changes.Publish(backend.SessionChange{Event: backend.EventTokenRefreshed, Session: sess})
	return sess, nil
}

func (b *Backend) issue(ctx context.Context, user models.AuthUser) (*backend.Session, error) {
	accessID := authsession.NewAccessID()
	if err := b.sessions.Open(ctx, accessID, user.ID); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return b.mint(ctx, user, accessID)
}

func (b *Backend) mint(ctx context.Context, user models.AuthUser, accessID string) (*backend.Session, error) {
	fullName := ""
	if user.FullName != nil {
		fullName = *user.FullName
	}
	token, err := pkgAuth.MintAccessToken(b.jwtCfg, b.now(), pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: fullName,
		JTI:      accessID,
	})
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	if err := b.local.Set(ctx, AuthTokenKey, token); err != nil {
		return nil, fmt.Errorf("persist auth token: %w", err)
	}
	return &backend.Session{
		User:        backend.User{ID: user.ID, Email: user.Email, FullName: fullName},
		AccessToken: token,
		ExpiresAt:   b.now().Add(b.jwtCfg.TTL()),
	}, nil
}

// storedClaims returns nil claims when no usable token is stored.
func (b *Backend) storedClaims(ctx context.Context) (*pkgAuth.AccessTokenClaims, error) {
	token, err := b.local.Get(ctx, AuthTokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read auth token: %w", err)
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(b.jwtCfg, token)
	if err != nil {
		b.logg.Warn(ctx, "discarding unreadable auth token")
		b.discardToken(ctx)
		return nil, nil
	}
	return claims, nil
}

func (b *Backend) discardToken(ctx context.Context) {
	if err := b.local.Delete(ctx, AuthTokenKey); err != nil {
		b.logg.Error(ctx, "failed to delete auth token", err)
	}
}

func sessionFromClaims(claims *pkgAuth.AccessTokenClaims, token string) *backend.Session {
	sess := &backend.Session{
		User: backend.User{
			ID:       claims.UserID,
			Email:    claims.Email,
			FullName: claims.FullName,
		},
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
