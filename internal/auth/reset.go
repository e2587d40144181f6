package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/pkg/passwords"

	"golang.org/x/crypto/bcrypt"
)

const cooldownReset = "reset"

// ForgotPassword mails a reset link when the email belongs to a user. Unknown
// emails succeed silently. The returned duration is the cooldown the client
// should show before offering a resend.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (time.Duration, error) {
	const op = "auth.ForgotPassword"

	return a.sendResetLink(ctx, op, email, a.settings.ResetCooldown)
}

// ResendPasswordResetEmail is ForgotPassword with the longer resend window.
func (a *Auth) ResendPasswordResetEmail(ctx context.Context, email string) (time.Duration, error) {
	const op = "auth.ResendPasswordResetEmail"

	return a.sendResetLink(ctx, op, email, a.settings.ResetResendCooldown)
}

func (a *Auth) sendResetLink(ctx context.Context, op, email string, cooldown time.Duration) (time.Duration, error) {
	email = normalizeEmail(email)
	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	started, remaining, err := a.ephemeral.StartCooldown(ctx, cooldownReset, email, cooldown)
	if err != nil {
		log.Error("failed to start cooldown", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !started {
		log.Info("reset requested during cooldown")
		return 0, &CooldownError{RetryAfter: remaining}
	}

	user, err := a.users.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("reset requested for unknown email")
			return cooldown, nil
		}

		log.Error("failed to get user", sl.Err(err))
		a.clearCooldown(ctx, cooldownReset, email)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	token, err := newResetToken()
	if err != nil {
		log.Error("failed to generate reset token", sl.Err(err))
		a.clearCooldown(ctx, cooldownReset, email)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := a.now().Add(a.settings.ResetTokenTTL)
	if err := a.resets.SaveResetToken(ctx, user.ID, hashResetToken(token), expiresAt); err != nil {
		log.Error("failed to save reset token", sl.Err(err))
		a.clearCooldown(ctx, cooldownReset, email)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	err = a.publisher.SendMessage(ctx, models.Message{
		Email:   user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nFollow this link to choose a new password:\n%s\n\nThe link expires in %d minutes. If you did not ask for this, ignore this email.\n",
			user.Name, a.resetLink(token), int(a.settings.ResetTokenTTL.Minutes()),
		),
		Purpose: models.PurposePasswordReset,
	})
	if err != nil {
		log.Error("failed to queue reset email", sl.Err(err))
		a.clearCooldown(ctx, cooldownReset, email)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reset link sent", slog.String("uid", user.ID.String()))

	return cooldown, nil
}

// ResetPassword consumes a single-use token and replaces the password.
func (a *Auth) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) > passwords.MaxBytes {
		return ErrPasswordTooLong
	}

	rt, err := a.resets.ResetToken(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrResetTokenNotFound) {
			log.Info("unknown reset token")
			return ErrInvalidResetToken
		}

		log.Error("failed to load reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if rt.IsUsed() {
		log.Info("reset token already used", slog.String("uid", rt.UserID.String()))
		return ErrInvalidResetToken
	}
	if rt.IsExpired(a.now()) {
		log.Info("reset token expired", slog.String("uid", rt.UserID.String()))
		return ErrResetTokenExpired
	}

	if _, err := a.users.UserByID(ctx, rt.UserID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("reset token for deleted user", slog.String("uid", rt.UserID.String()))
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.resets.ConsumeResetToken(ctx, rt.ID, rt.UserID, passHash); err != nil {
		switch {
		case errors.Is(err, storage.ErrResetTokenNotFound):
			log.Info("reset token consumed concurrently")
			return ErrInvalidResetToken
		case errors.Is(err, storage.ErrUserNotFound):
			return ErrUserNotFound
		}

		log.Error("failed to consume reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.String("uid", rt.UserID.String()))

	return nil
}

func (a *Auth) resetLink(token string) string {
	return strings.TrimRight(a.settings.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashResetToken is what gets stored; the raw token only travels in the email.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
