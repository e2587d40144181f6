package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"marketplace/internal/lib/jwt"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/pkg/usernames"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidRole         = errors.New("invalid role")
	ErrReservationExpired  = errors.New("signup reservation expired")
	ErrTooManyAttempts     = errors.New("too many invalid codes")
	ErrInvalidOTP          = errors.New("invalid verification code")
	ErrOTPExpired          = errors.New("verification code expired")
	ErrInvalidResetToken   = errors.New("invalid reset token")
	ErrResetTokenExpired   = errors.New("reset token expired")
	ErrUserNotFound        = errors.New("user not found")
	ErrOAuthSessionExpired = errors.New("oauth session expired")
	ErrProviderMismatch    = errors.New("oauth session belongs to another provider")
	ErrOAuthEmailMissing   = errors.New("oauth provider did not share an email")
	ErrCooldownActive      = errors.New("cooldown active")
	ErrPasswordTooLong     = errors.New("password too long")
)

// CooldownError is returned while a resend window is still open.
type CooldownError struct {
	RetryAfter time.Duration
	LastSentAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

type UserStorage interface {
	SaveUser(ctx context.Context, u models.User) (uuid.UUID, error)
	SaveOAuthUser(ctx context.Context, u models.User, provider, providerUserID string) (uuid.UUID, error)
	LinkOAuthIdentity(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UserByProvider(ctx context.Context, provider, providerUserID string) (models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type ResetTokenStorage interface {
	SaveResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ResetToken(ctx context.Context, tokenHash string) (models.PasswordResetToken, error)
	ConsumeResetToken(ctx context.Context, tokenID, userID uuid.UUID, passHash []byte) error
}

// EphemeralStorage keeps short-lived state: reservations, cooldowns and
// pending OAuth sessions.
type EphemeralStorage interface {
	SaveReservation(ctx context.Context, res models.Reservation) error
	Reservation(ctx context.Context, email string) (models.Reservation, error)
	DeleteReservation(ctx context.Context, email, username string) error
	HoldUsername(ctx context.Context, username, email string, ttl time.Duration) (bool, error)
	ReleaseUsername(ctx context.Context, username string) error
	UsernameHeld(ctx context.Context, username string) (bool, error)
	StartCooldown(ctx context.Context, scope, subject string, ttl time.Duration) (bool, time.Duration, error)
	ClearCooldown(ctx context.Context, scope, subject string) error
	SaveOAuthSession(ctx context.Context, s models.OAuthSession, ttl time.Duration) error
	OAuthSession(ctx context.Context, id string) (models.OAuthSession, error)
	DeleteOAuthSession(ctx context.Context, id string) error
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Settings struct {
	JWTSecret           string
	SessionTTL          time.Duration
	ReservationTTL      time.Duration
	OTPTTL              time.Duration
	OTPCooldown         time.Duration
	OTPMaxAttempts      int
	ResetTokenTTL       time.Duration
	ResetCooldown       time.Duration
	ResetResendCooldown time.Duration
	OAuthSessionTTL     time.Duration
	FrontendURL         string
}

type Auth struct {
	log       *slog.Logger
	users     UserStorage
	resets    ResetTokenStorage
	ephemeral EphemeralStorage
	publisher Publisher
	settings  Settings

	now func() time.Time

	genMu     sync.Mutex
	generator *usernames.Generator
	taken     *cache.Cache
}

func New(
	log *slog.Logger,
	users UserStorage,
	resets ResetTokenStorage,
	ephemeral EphemeralStorage,
	publisher Publisher,
	settings Settings,
) *Auth {
	return &Auth{
		log:       log,
		users:     users,
		resets:    resets,
		ephemeral: ephemeral,
		publisher: publisher,
		settings:  settings,
		now:       time.Now,
		generator: usernames.NewGenerator(),
		taken:     cache.New(30*time.Second, time.Minute),
	}
}

// SignIn checks the credentials and returns the user with a fresh session token.
func (a *Auth) SignIn(ctx context.Context, email, password string) (models.User, string, error) {
	const op = "auth.SignIn"

	log := a.log.With(slog.String("op", op))

	user, err := a.users.User(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return models.User{}, "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	if len(user.PassHash) == 0 {
		log.Info("password sign in for social-only account", slog.String("uid", user.ID.String()))
		return models.User{}, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := a.issueToken(user)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user signed in", slog.String("uid", user.ID.String()))

	return user, token, nil
}

// SessionTTL is the lifetime of issued session tokens and cookies.
func (a *Auth) SessionTTL() time.Duration {
	return a.settings.SessionTTL
}

func (a *Auth) issueToken(user models.User) (string, error) {
	return jwt.NewToken(user, a.settings.JWTSecret, a.settings.SessionTTL)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
