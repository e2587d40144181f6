package auth

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/lib/logger/handlers/slogdiscard"
	"marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) SaveUser(ctx context.Context, u models.User) (uuid.UUID, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockUsers) SaveOAuthUser(ctx context.Context, u models.User, provider, providerUserID string) (uuid.UUID, error) {
	args := m.Called(ctx, u, provider, providerUserID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockUsers) LinkOAuthIdentity(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	args := m.Called(ctx, userID, provider, providerUserID)
	return args.Error(0)
}

func (m *MockUsers) User(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUsers) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUsers) UserByProvider(ctx context.Context, provider, providerUserID string) (models.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockResets struct {
	mock.Mock
}

func (m *MockResets) SaveResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockResets) ResetToken(ctx context.Context, tokenHash string) (models.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(models.PasswordResetToken), args.Error(1)
}

func (m *MockResets) ConsumeResetToken(ctx context.Context, tokenID, userID uuid.UUID, passHash []byte) error {
	args := m.Called(ctx, tokenID, userID, passHash)
	return args.Error(0)
}

type MockEphemeral struct {
	mock.Mock
}

func (m *MockEphemeral) SaveReservation(ctx context.Context, res models.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockEphemeral) Reservation(ctx context.Context, email string) (models.Reservation, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.Reservation), args.Error(1)
}

func (m *MockEphemeral) DeleteReservation(ctx context.Context, email, username string) error {
	args := m.Called(ctx, email, username)
	return args.Error(0)
}

func (m *MockEphemeral) HoldUsername(ctx context.Context, username, email string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, username, email, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockEphemeral) ReleaseUsername(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockEphemeral) UsernameHeld(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockEphemeral) StartCooldown(ctx context.Context, scope, subject string, ttl time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, scope, subject, ttl)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func (m *MockEphemeral) ClearCooldown(ctx context.Context, scope, subject string) error {
	args := m.Called(ctx, scope, subject)
	return args.Error(0)
}

func (m *MockEphemeral) SaveOAuthSession(ctx context.Context, s models.OAuthSession, ttl time.Duration) error {
	args := m.Called(ctx, s, ttl)
	return args.Error(0)
}

func (m *MockEphemeral) OAuthSession(ctx context.Context, id string) (models.OAuthSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.OAuthSession), args.Error(1)
}

func (m *MockEphemeral) DeleteOAuthSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) SendMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

const testSecret = "test-secret"

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	auth      *Auth
	users     *MockUsers
	resets    *MockResets
	ephemeral *MockEphemeral
	publisher *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:     new(MockUsers),
		resets:    new(MockResets),
		ephemeral: new(MockEphemeral),
		publisher: new(MockPublisher),
	}

	f.auth = New(
		slogdiscard.NewDiscardLogger(),
		f.users,
		f.resets,
		f.ephemeral,
		f.publisher,
		Settings{
			JWTSecret:           testSecret,
			SessionTTL:          time.Hour,
			ReservationTTL:      15 * time.Minute,
			OTPTTL:              10 * time.Minute,
			OTPCooldown:         time.Minute,
			OTPMaxAttempts:      5,
			ResetTokenTTL:       30 * time.Minute,
			ResetCooldown:       time.Minute,
			ResetResendCooldown: 2 * time.Minute,
			OAuthSessionTTL:     15 * time.Minute,
			FrontendURL:         "http://localhost:3000",
		},
	)
	f.auth.now = func() time.Time { return testNow }

	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.resets.AssertExpectations(t)
		f.ephemeral.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	return f
}
