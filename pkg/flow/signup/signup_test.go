package signup

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"marketplace/internal/models"
	"marketplace/pkg/apiclient"
	"marketplace/pkg/usernames"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) CheckUsername(ctx context.Context, username string) (apiclient.UsernameCheck, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(apiclient.UsernameCheck), args.Error(1)
}

func (m *MockAPI) RequestOTP(ctx context.Context, req apiclient.SignupRequest) (apiclient.Reservation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(apiclient.Reservation), args.Error(1)
}

func (m *MockAPI) ResendOTP(ctx context.Context, email string) (apiclient.Reservation, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(apiclient.Reservation), args.Error(1)
}

func (m *MockAPI) VerifyOTP(ctx context.Context, email, otp string) (models.PublicUser, error) {
	args := m.Called(ctx, email, otp)
	return args.Get(0).(models.PublicUser), args.Error(1)
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, api *MockAPI, store Store) (*Machine, *clock) {
	t.Helper()

	clk := &clock{t: start}
	gen := usernames.NewGeneratorWith(rand.New(rand.NewPCG(1, 2)), clk.now)

	return New(api, store, Options{Now: clk.now, Generator: gen}), clk
}

// toOTP walks a fresh machine to the code screen.
func toOTP(t *testing.T, api *MockAPI, store Store) (*Machine, *clock) {
	t.Helper()

	m, clk := newMachine(t, api, store)

	require.NoError(t, m.SelectRole(models.RoleInfluencer))
	m.SetField("Sam", "sam@example.com", "Abc12345!")

	api.On("CheckUsername", mock.Anything, "sam").
		Return(apiclient.UsernameCheck{Username: "sam", Available: true}, nil).Once()
	m.TypeUsername(context.Background(), "sam")
	require.NoError(t, m.CheckUsername(context.Background()))

	sentAt := start
	api.On("RequestOTP", mock.Anything, apiclient.SignupRequest{
		Role:     models.RoleInfluencer,
		Name:     "Sam",
		Email:    "sam@example.com",
		Username: "sam",
		Password: "Abc12345!",
	}).Return(apiclient.Reservation{
		Email:                "sam@example.com",
		Username:             "sam",
		Role:                 models.RoleInfluencer,
		ReservationExpiresAt: start.Add(15 * time.Minute),
		LastOTPSentAt:        &sentAt,
		Cooldown:             60,
	}, nil).Once()

	require.NoError(t, m.Submit(context.Background()))
	require.Equal(t, OtpPending, m.State())

	return m, clk
}

func TestRoleSelect(t *testing.T) {
	m, _ := newMachine(t, new(MockAPI), &MemoryStore{})

	assert.Equal(t, RoleSelect, m.State())
	assert.ErrorIs(t, m.SelectRole("admin"), ErrInvalidRole)
	assert.Equal(t, RoleSelect, m.State())

	require.NoError(t, m.SelectRole(models.RoleBrand))
	assert.Equal(t, BasicInfo, m.State())
	assert.Equal(t, models.RoleBrand, m.Role())

	require.NoError(t, m.Back())
	assert.Equal(t, RoleSelect, m.State())
}

func TestSubmitRequiresAvailableUsername(t *testing.T) {
	api := new(MockAPI)
	api.On("CheckUsername", mock.Anything, mock.Anything).Return(apiclient.UsernameCheck{}, nil).Maybe()
	m, _ := newMachine(t, api, &MemoryStore{})

	require.NoError(t, m.SelectRole(models.RoleBrand))
	m.SetField("Sam", "sam@example.com", "Abc12345!")
	m.TypeUsername(context.Background(), "sam")

	assert.ErrorIs(t, m.Submit(context.Background()), ErrUsernameUnavailable)
	api.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
}

func TestMixedCaseHandleSubmitsNormalized(t *testing.T) {
	api := new(MockAPI)
	m, _ := newMachine(t, api, &MemoryStore{})

	require.NoError(t, m.SelectRole(models.RoleInfluencer))
	m.SetField("Maya", "maya@example.com", "Abc12345!")

	api.On("CheckUsername", mock.Anything, "MayaLin").
		Return(apiclient.UsernameCheck{Username: "mayalin", Available: true}, nil).Once()
	m.TypeUsername(context.Background(), "MayaLin")
	require.NoError(t, m.CheckUsername(context.Background()))

	status, _ := m.Username()
	assert.Equal(t, UsernameAvailable, status)
	assert.Equal(t, "mayalin", m.Form().Username)

	sentAt := start
	api.On("RequestOTP", mock.Anything, mock.MatchedBy(func(r apiclient.SignupRequest) bool {
		return r.Username == "mayalin"
	})).Return(apiclient.Reservation{
		Email:                "maya@example.com",
		Username:             "mayalin",
		Role:                 models.RoleInfluencer,
		ReservationExpiresAt: start.Add(15 * time.Minute),
		LastOTPSentAt:        &sentAt,
		Cooldown:             60,
	}, nil).Once()

	require.NoError(t, m.Submit(context.Background()))
	assert.Equal(t, OtpPending, m.State())
	api.AssertExpectations(t)
}

func TestDebouncedUsernameCheck(t *testing.T) {
	api := new(MockAPI)
	m, _ := newMachine(t, api, &MemoryStore{})
	require.NoError(t, m.SelectRole(models.RoleBrand))

	api.On("CheckUsername", mock.Anything, "sam").Return(apiclient.UsernameCheck{
		Username:    "sam",
		Suggestions: []string{"sam42", "sam_hq", "sam2026"},
	}, nil).Once()

	ctx := context.Background()
	m.TypeUsername(ctx, "s")
	m.TypeUsername(ctx, "sa")
	m.TypeUsername(ctx, "sam")

	status, _ := m.Username()
	assert.Equal(t, UsernameChecking, status)

	assert.Eventually(t, func() bool {
		s, _ := m.Username()
		return s == UsernameTaken
	}, 3*time.Second, 20*time.Millisecond)

	api.AssertNotCalled(t, "CheckUsername", mock.Anything, "s")
	api.AssertNotCalled(t, "CheckUsername", mock.Anything, "sa")

	_, suggestions := m.Username()
	assert.Equal(t, []string{"sam42", "sam_hq", "sam2026"}, suggestions)

	require.NoError(t, m.SelectSuggestion("sam_hq"))
	status, _ = m.Username()
	assert.Equal(t, UsernameAvailable, status)
	assert.Equal(t, "sam_hq", m.Form().Username)

	assert.ErrorIs(t, m.SelectSuggestion("nope"), ErrUnknownSuggestion)
	api.AssertExpectations(t)
}

func TestShuffleSuggestions(t *testing.T) {
	api := new(MockAPI)
	api.On("CheckUsername", mock.Anything, mock.Anything).Return(apiclient.UsernameCheck{}, nil).Maybe()

	m, _ := newMachine(t, api, &MemoryStore{})
	m.TypeUsername(context.Background(), "Sam Smith")

	first := m.ShuffleSuggestions()
	require.Len(t, first, usernames.SuggestionCount)
	for _, s := range first {
		assert.NotEqual(t, usernames.Sanitize("Sam Smith"), s)
		assert.NotEmpty(t, s)
	}

	_, offered := m.Username()
	assert.Equal(t, first, offered)
}

func TestCooldown(t *testing.T) {
	api := new(MockAPI)
	store := &MemoryStore{}
	m, clk := toOTP(t, api, store)

	assert.Equal(t, 60, m.CooldownSeconds())
	assert.False(t, m.CanResend())

	clk.advance(20 * time.Second)
	assert.Equal(t, 40, m.CooldownSeconds())
	assert.ErrorIs(t, m.Resend(context.Background()), ErrCooldownActive)

	clk.advance(41 * time.Second)
	assert.True(t, m.CanResend())

	t.Run("ServerRetryAfterWins", func(t *testing.T) {
		api.On("ResendOTP", mock.Anything, "sam@example.com").Return(apiclient.Reservation{}, &apiclient.Error{
			Kind:       apiclient.KindRateLimited,
			Status:     429,
			RetryAfter: 30 * time.Second,
		}).Once()

		require.Error(t, m.Resend(context.Background()))
		assert.Equal(t, OtpPending, m.State())
		assert.Equal(t, 30, m.CooldownSeconds())
	})

	t.Run("ServerLastSentAt", func(t *testing.T) {
		clk.advance(31 * time.Second)

		last := clk.now().Add(-10 * time.Second)
		api.On("ResendOTP", mock.Anything, "sam@example.com").Return(apiclient.Reservation{}, &apiclient.Error{
			Kind:          apiclient.KindRateLimited,
			Status:        429,
			LastOTPSentAt: &last,
		}).Once()

		require.Error(t, m.Resend(context.Background()))
		assert.Equal(t, 50, m.CooldownSeconds())
	})

	t.Run("ResendRestartsCooldown", func(t *testing.T) {
		clk.advance(time.Minute)

		sent := clk.now()
		api.On("ResendOTP", mock.Anything, "sam@example.com").Return(apiclient.Reservation{
			LastOTPSentAt: &sent,
			Cooldown:      60,
		}, nil).Once()

		require.NoError(t, m.Resend(context.Background()))
		assert.Equal(t, 60, m.CooldownSeconds())

		res, ok := store.Load()
		require.True(t, ok)
		assert.Equal(t, start.Add(15*time.Minute), res.ExpiresAt)
	})
}

func TestExpiredReservation(t *testing.T) {
	t.Run("AtLoad", func(t *testing.T) {
		store := &MemoryStore{}
		store.Save(Reservation{
			Role:      models.RoleBrand,
			Email:     "sam@example.com",
			ExpiresAt: start.Add(-time.Second),
		})

		m, _ := newMachine(t, new(MockAPI), store)
		assert.Equal(t, RoleSelect, m.State())

		_, ok := store.Load()
		assert.False(t, ok)
	})

	t.Run("LiveReservationResumes", func(t *testing.T) {
		store := &MemoryStore{}
		store.Save(Reservation{
			Role:          models.RoleBrand,
			Email:         "sam@example.com",
			Username:      "sam",
			ExpiresAt:     start.Add(time.Minute),
			LastOTPSentAt: start.Add(-15 * time.Second),
		})

		m, _ := newMachine(t, new(MockAPI), store)
		assert.Equal(t, OtpPending, m.State())
		assert.Equal(t, 45, m.CooldownSeconds())
	})

	t.Run("BeforeVerify", func(t *testing.T) {
		api := new(MockAPI)
		m, clk := toOTP(t, api, &MemoryStore{})

		require.True(t, m.OTP.Paste("123456"))
		clk.advance(15*time.Minute + time.Second)

		assert.ErrorIs(t, m.Verify(context.Background()), ErrReservationExpired)
		assert.Equal(t, RoleSelect, m.State())
		api.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReservationExpiryBoundary(t *testing.T) {
	r := Reservation{ExpiresAt: start}

	assert.False(t, r.Expired(start.Add(-time.Nanosecond)))
	assert.False(t, r.Expired(start), "the expiry instant is still live")
	assert.True(t, r.Expired(start.Add(time.Nanosecond)))
}

func TestVerify(t *testing.T) {
	t.Run("IncompleteCode", func(t *testing.T) {
		m, _ := toOTP(t, new(MockAPI), &MemoryStore{})
		m.OTP.Type(0, "1")

		assert.ErrorIs(t, m.Verify(context.Background()), ErrIncompleteCode)
	})

	t.Run("WrongCodeStays", func(t *testing.T) {
		api := new(MockAPI)
		m, _ := toOTP(t, api, &MemoryStore{})
		require.True(t, m.OTP.Paste("123456"))

		api.On("VerifyOTP", mock.Anything, "sam@example.com", "123456").Return(models.PublicUser{}, &apiclient.Error{
			Kind:    apiclient.KindFieldError,
			Status:  400,
			Field:   "otp",
			Message: "Invalid verification code",
		}).Once()

		require.Error(t, m.Verify(context.Background()))
		assert.Equal(t, OtpPending, m.State())
		assert.Equal(t, "otp", m.Err().Field)
	})

	t.Run("RedirectClearsState", func(t *testing.T) {
		api := new(MockAPI)
		store := &MemoryStore{}
		m, _ := toOTP(t, api, store)
		require.True(t, m.OTP.Paste("123456"))

		api.On("VerifyOTP", mock.Anything, "sam@example.com", "123456").Return(models.PublicUser{}, &apiclient.Error{
			Kind:       apiclient.KindRedirect,
			Status:     410,
			RedirectTo: "/signup",
		}).Once()

		require.Error(t, m.Verify(context.Background()))
		assert.Equal(t, RoleSelect, m.State())
		assert.Equal(t, "/signup", m.Redirect())
		assert.Empty(t, m.Redirect())

		_, ok := store.Load()
		assert.False(t, ok)
	})

	t.Run("Success", func(t *testing.T) {
		api := new(MockAPI)
		store := &MemoryStore{}
		m, _ := toOTP(t, api, store)
		require.True(t, m.OTP.Paste("654321"))

		api.On("VerifyOTP", mock.Anything, "sam@example.com", "654321").
			Return(models.PublicUser{Username: "sam", Role: models.RoleInfluencer}, nil).Once()

		require.NoError(t, m.Verify(context.Background()))
		assert.Equal(t, Verified, m.State())
		require.NotNil(t, m.User())
		assert.Equal(t, "sam", m.User().Username)
		assert.Zero(t, m.CooldownSeconds())

		_, ok := store.Load()
		assert.False(t, ok)
	})
}

func TestOTPInput(t *testing.T) {
	var in OTPInput

	assert.False(t, in.Type(0, "a"))
	assert.Equal(t, "", in.Cell(0))

	for i, d := range []string{"1", "2", "3"} {
		require.True(t, in.Type(i, d))
	}
	assert.Equal(t, 3, in.Focus())
	assert.Equal(t, "123", in.Code())
	assert.False(t, in.Complete())

	in.Backspace(3)
	assert.Equal(t, 2, in.Focus())
	assert.Equal(t, "12", in.Code())

	in.Backspace(1)
	assert.Equal(t, 1, in.Focus())
	assert.Equal(t, "1", in.Code())

	assert.False(t, in.Paste("12a456"))
	assert.False(t, in.Paste("12345"))
	assert.Equal(t, "1", in.Code())

	require.True(t, in.Type(0, " 987654 "))
	assert.True(t, in.Complete())
	assert.Equal(t, "987654", in.Code())
	assert.Equal(t, OTPLength-1, in.Focus())

	require.True(t, in.Type(5, "0"))
	assert.Equal(t, OTPLength-1, in.Focus())
	assert.Equal(t, "987650", in.Code())
}
