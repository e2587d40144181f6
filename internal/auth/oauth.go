package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/pkg/usernames"

	"github.com/google/uuid"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// OAuthIdentity is what a provider told us about the user after the code exchange.
type OAuthIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}

// OAuthResult holds either a signed-in user or the id of a pending session that
// still needs a role and username.
type OAuthResult struct {
	User      models.User
	Token     string
	SessionID string
}

func (r OAuthResult) Pending() bool {
	return r.SessionID != ""
}

// OAuthLogin signs in a known identity, links a verified provider email to an
// existing account, or parks a pending session for first-time users.
func (a *Auth) OAuthLogin(ctx context.Context, identity OAuthIdentity) (OAuthResult, error) {
	const op = "auth.OAuthLogin"

	log := a.log.With(
		slog.String("op", op),
		slog.String("provider", identity.Provider),
	)

	user, err := a.users.UserByProvider(ctx, identity.Provider, identity.ProviderUserID)
	switch {
	case err == nil:
		return a.oauthSignedIn(log, op, user)
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to look up identity", sl.Err(err))
		return OAuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	email := normalizeEmail(identity.Email)
	if email == "" {
		log.Info("provider did not share an email")
		return OAuthResult{}, ErrOAuthEmailMissing
	}

	user, err = a.users.User(ctx, email)
	switch {
	case err == nil:
		if err := a.users.LinkOAuthIdentity(ctx, user.ID, identity.Provider, identity.ProviderUserID); err != nil {
			log.Error("failed to link identity", sl.Err(err))
			return OAuthResult{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("identity linked", slog.String("uid", user.ID.String()))
		return a.oauthSignedIn(log, op, user)
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to get user", sl.Err(err))
		return OAuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	session := models.OAuthSession{
		ID:             uuid.NewString(),
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		Email:          email,
		Name:           strings.TrimSpace(identity.Name),
	}

	if err := a.ephemeral.SaveOAuthSession(ctx, session, a.settings.OAuthSessionTTL); err != nil {
		log.Error("failed to save oauth session", sl.Err(err))
		return OAuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("oauth session parked")

	return OAuthResult{SessionID: session.ID}, nil
}

func (a *Auth) oauthSignedIn(log *slog.Logger, op string, user models.User) (OAuthResult, error) {
	token, err := a.issueToken(user)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return OAuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user signed in", slog.String("uid", user.ID.String()))

	return OAuthResult{User: user, Token: token}, nil
}

// PendingOAuthSession returns the parked provider identity.
func (a *Auth) PendingOAuthSession(ctx context.Context, id string) (models.OAuthSession, error) {
	const op = "auth.PendingOAuthSession"

	if id == "" {
		return models.OAuthSession{}, ErrOAuthSessionExpired
	}

	s, err := a.ephemeral.OAuthSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOAuthSessionNotFound) {
			return models.OAuthSession{}, ErrOAuthSessionExpired
		}

		a.log.Error("failed to load oauth session", slog.String("op", op), sl.Err(err))
		return models.OAuthSession{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// CompleteSocialSignup creates the account for a pending OAuth session. An
// empty provider accepts a session from any provider.
func (a *Auth) CompleteSocialSignup(
	ctx context.Context,
	sessionID, provider string,
	role models.Role,
	username string,
) (models.User, string, error) {
	const op = "auth.CompleteSocialSignup"

	log := a.log.With(slog.String("op", op))

	if !role.Valid() {
		return models.User{}, "", ErrInvalidRole
	}

	username = usernames.Normalize(username)
	if !usernames.Valid(username) {
		return models.User{}, "", ErrInvalidUsername
	}

	session, err := a.PendingOAuthSession(ctx, sessionID)
	if err != nil {
		return models.User{}, "", err
	}

	if provider != "" && session.Provider != provider {
		log.Info("provider mismatch", slog.String("session_provider", session.Provider))
		return models.User{}, "", ErrProviderMismatch
	}

	taken, err := a.usernameTaken(ctx, username)
	if err != nil {
		log.Error("failed to check username", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return models.User{}, "", ErrUsernameTaken
	}

	name := session.Name
	if name == "" {
		name = username
	}

	user := models.User{
		ID:         uuid.New(),
		Role:       role,
		Name:       name,
		Email:      session.Email,
		Username:   username,
		IsVerified: true,
		CreatedAt:  a.now(),
	}

	id, err := a.users.SaveOAuthUser(ctx, user, session.Provider, session.ProviderUserID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameTaken):
			return models.User{}, "", ErrUsernameTaken
		case errors.Is(err, storage.ErrUserExists):
			return models.User{}, "", ErrEmailTaken
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id

	if err := a.ephemeral.DeleteOAuthSession(ctx, sessionID); err != nil {
		log.Warn("failed to delete oauth session", sl.Err(err))
	}
	a.taken.SetDefault(username, true)

	token, err := a.issueToken(user)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("social user registered", slog.String("uid", user.ID.String()), slog.String("provider", session.Provider))

	return user, token, nil
}
