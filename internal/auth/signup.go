package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/pkg/passwords"
	"marketplace/pkg/usernames"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const cooldownOTP = "otp"

type SignupRequest struct {
	Role     models.Role
	Name     string
	Email    string
	Username string
	Password string
}

// RequestSignupOTP reserves the email and username, then mails a verification
// code. The reservation returned carries the absolute expiry the client keeps.
func (a *Auth) RequestSignupOTP(ctx context.Context, req SignupRequest) (models.Reservation, error) {
	const op = "auth.RequestSignupOTP"

	email := normalizeEmail(req.Email)
	username := usernames.Normalize(req.Username)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	if !req.Role.Valid() {
		return models.Reservation{}, ErrInvalidRole
	}
	if !usernames.Valid(username) {
		return models.Reservation{}, ErrInvalidUsername
	}
	if len(req.Password) > passwords.MaxBytes {
		return models.Reservation{}, ErrPasswordTooLong
	}

	exists, err := a.users.EmailExists(ctx, email)
	if err != nil {
		log.Error("failed to check email", sl.Err(err))
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Info("email already registered")
		return models.Reservation{}, ErrEmailTaken
	}

	taken, err := a.users.UsernameExists(ctx, username)
	if err != nil {
		log.Error("failed to check username", sl.Err(err))
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		log.Info("username already taken", slog.String("username", username))
		return models.Reservation{}, ErrUsernameTaken
	}

	previous, err := a.ephemeral.Reservation(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrReservationNotFound) {
		log.Error("failed to load reservation", sl.Err(err))
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	hasPrevious := err == nil

	if err := a.startOTPCooldown(ctx, email, previous.LastOTPSentAt); err != nil {
		log.Info("otp requested during cooldown")
		return models.Reservation{}, err
	}

	held, err := a.ephemeral.HoldUsername(ctx, username, email, a.settings.ReservationTTL)
	if err != nil {
		log.Error("failed to hold username", sl.Err(err))
		a.clearCooldown(ctx, cooldownOTP, email)
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	if !held {
		log.Info("username reserved by another signup", slog.String("username", username))
		a.clearCooldown(ctx, cooldownOTP, email)
		return models.Reservation{}, ErrUsernameTaken
	}

	// A hold that already belonged to the live reservation outlives a failed retry.
	ownHold := hasPrevious && previous.Username == username
	abort := func() {
		a.clearCooldown(ctx, cooldownOTP, email)
		if ownHold {
			return
		}
		if err := a.ephemeral.ReleaseUsername(ctx, username); err != nil {
			log.Warn("failed to release username", sl.Err(err))
		}
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		abort()
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	secret, err := newOTPSecret()
	if err != nil {
		log.Error("failed to generate otp secret", sl.Err(err))
		abort()
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()
	res := models.Reservation{
		Role:      req.Role,
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Username:  username,
		PassHash:  passHash,
		ExpiresAt: now.Add(a.settings.ReservationTTL),
		OTPSecret: secret,
	}

	if err := a.sendOTP(ctx, &res, now); err != nil {
		log.Error("failed to send otp", sl.Err(err))
		abort()
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if hasPrevious && previous.Username != username {
		if err := a.ephemeral.ReleaseUsername(ctx, previous.Username); err != nil {
			log.Warn("failed to release previous username", sl.Err(err))
		}
	}

	log.Info("signup reservation created", slog.String("username", username))

	return res, nil
}

// ResendSignupOTP issues a new code for a live reservation. The HOTP counter
// moves forward so the previous code no longer validates; the reservation
// expiry is left untouched.
func (a *Auth) ResendSignupOTP(ctx context.Context, email string) (models.Reservation, error) {
	const op = "auth.ResendSignupOTP"

	email = normalizeEmail(email)
	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	res, err := a.liveReservation(ctx, email)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) {
			log.Info("reservation missing or expired")
			return models.Reservation{}, err
		}

		log.Error("failed to load reservation", sl.Err(err))
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.startOTPCooldown(ctx, email, res.LastOTPSentAt); err != nil {
		log.Info("otp resend during cooldown")
		return models.Reservation{}, err
	}

	res.OTPCounter++
	res.Attempts = 0

	if err := a.sendOTP(ctx, &res, a.now()); err != nil {
		log.Error("failed to resend otp", sl.Err(err))
		a.clearCooldown(ctx, cooldownOTP, email)
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("otp resent")

	return res, nil
}

// VerifySignupOTP turns a reservation into a user. Missing or expired
// reservations and exhausted attempts return errors that send the client back
// to the start of signup.
func (a *Auth) VerifySignupOTP(ctx context.Context, email, code string) (models.User, string, error) {
	const op = "auth.VerifySignupOTP"

	email = normalizeEmail(email)
	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	res, err := a.liveReservation(ctx, email)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) {
			log.Info("reservation missing or expired")
			return models.User{}, "", err
		}

		log.Error("failed to load reservation", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()
	if now.After(res.OTPExpiresAt) {
		log.Info("otp expired")
		return models.User{}, "", ErrOTPExpired
	}

	if !otpValid(code, res.OTPSecret, res.OTPCounter) {
		res.Attempts++

		if res.Attempts >= a.settings.OTPMaxAttempts {
			log.Warn("otp attempts exhausted")
			if err := a.ephemeral.DeleteReservation(ctx, email, res.Username); err != nil {
				log.Error("failed to delete reservation", sl.Err(err))
			}
			return models.User{}, "", ErrTooManyAttempts
		}

		if err := a.ephemeral.SaveReservation(ctx, res); err != nil {
			log.Error("failed to save attempt count", sl.Err(err))
			return models.User{}, "", fmt.Errorf("%s: %w", op, err)
		}

		log.Info("invalid otp", slog.Int("attempts", res.Attempts))
		return models.User{}, "", ErrInvalidOTP
	}

	user := models.User{
		ID:         uuid.New(),
		Role:       res.Role,
		Name:       res.Name,
		Email:      res.Email,
		Username:   res.Username,
		PassHash:   res.PassHash,
		IsVerified: true,
		CreatedAt:  now,
	}

	id, err := a.users.SaveUser(ctx, user)
	if err != nil {
		var target error
		switch {
		case errors.Is(err, storage.ErrUserExists):
			target = ErrEmailTaken
		case errors.Is(err, storage.ErrUsernameTaken):
			target = ErrUsernameTaken
		default:
			log.Error("failed to save user", sl.Err(err))
			return models.User{}, "", fmt.Errorf("%s: %w", op, err)
		}

		log.Info("signup lost a race", sl.Err(err))
		if err := a.ephemeral.DeleteReservation(ctx, email, res.Username); err != nil {
			log.Error("failed to delete reservation", sl.Err(err))
		}
		return models.User{}, "", target
	}
	user.ID = id

	if err := a.ephemeral.DeleteReservation(ctx, email, res.Username); err != nil {
		log.Warn("failed to delete reservation", sl.Err(err))
	}
	a.taken.SetDefault(user.Username, true)

	token, err := a.issueToken(user)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", user.ID.String()))

	return user, token, nil
}

func (a *Auth) liveReservation(ctx context.Context, email string) (models.Reservation, error) {
	res, err := a.ephemeral.Reservation(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrReservationNotFound) {
			return models.Reservation{}, ErrReservationExpired
		}
		return models.Reservation{}, err
	}

	if res.IsExpired(a.now()) {
		_ = a.ephemeral.DeleteReservation(ctx, email, res.Username)
		return models.Reservation{}, ErrReservationExpired
	}

	return res, nil
}

// sendOTP stamps the reservation with a code for its current counter, saves it
// and queues the email.
func (a *Auth) sendOTP(ctx context.Context, res *models.Reservation, now time.Time) error {
	code, err := otpCode(res.OTPSecret, res.OTPCounter)
	if err != nil {
		return err
	}

	res.LastOTPSentAt = now
	res.OTPExpiresAt = now.Add(a.settings.OTPTTL)
	if res.OTPExpiresAt.After(res.ExpiresAt) {
		res.OTPExpiresAt = res.ExpiresAt
	}

	if err := a.ephemeral.SaveReservation(ctx, *res); err != nil {
		return err
	}

	return a.publisher.SendMessage(ctx, models.Message{
		Email:   res.Email,
		Subject: "Your verification code",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n",
			res.Name, code, int(a.settings.OTPTTL.Minutes()),
		),
		Purpose: models.PurposeSignupOTP,
	})
}

func (a *Auth) startOTPCooldown(ctx context.Context, email string, lastSentAt time.Time) error {
	started, remaining, err := a.ephemeral.StartCooldown(ctx, cooldownOTP, email, a.settings.OTPCooldown)
	if err != nil {
		return fmt.Errorf("auth.startOTPCooldown: %w", err)
	}
	if started {
		return nil
	}

	if lastSentAt.IsZero() {
		lastSentAt = a.now().Add(remaining - a.settings.OTPCooldown)
	}

	return &CooldownError{RetryAfter: remaining, LastSentAt: lastSentAt}
}

func (a *Auth) clearCooldown(ctx context.Context, scope, subject string) {
	if err := a.ephemeral.ClearCooldown(ctx, scope, subject); err != nil {
		a.log.Warn("failed to clear cooldown", slog.String("scope", scope), sl.Err(err))
	}
}
