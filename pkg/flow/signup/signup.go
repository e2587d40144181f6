// Package signup is the client-side signup and email verification flow as an
// explicit state machine: role selection, basic info with a debounced username
// check, OTP entry and the verified end state.
package signup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"marketplace/internal/models"
	"marketplace/pkg/apiclient"
	"marketplace/pkg/usernames"
)

type State int

const (
	RoleSelect State = iota
	BasicInfo
	OtpPending
	Verified
)

func (s State) String() string {
	switch s {
	case RoleSelect:
		return "role-select"
	case BasicInfo:
		return "basic-info"
	case OtpPending:
		return "otp-pending"
	case Verified:
		return "verified"
	}
	return "unknown"
}

type UsernameStatus int

const (
	UsernameIdle UsernameStatus = iota
	UsernameChecking
	UsernameAvailable
	UsernameTaken
)

const (
	DefaultCooldown = 60 * time.Second

	MinDebounce     = 500 * time.Millisecond
	MaxDebounce     = time.Second
	DefaultDebounce = MinDebounce
)

var (
	ErrWrongState          = errors.New("signup: action not allowed in current state")
	ErrInvalidRole         = errors.New("signup: invalid role")
	ErrMissingFields       = errors.New("signup: name, email, username and password are required")
	ErrUsernameUnavailable = errors.New("signup: username is not confirmed available")
	ErrUnknownSuggestion   = errors.New("signup: not one of the offered suggestions")
	ErrCooldownActive      = errors.New("signup: resend cooldown active")
	ErrReservationExpired  = errors.New("signup: reservation expired")
	ErrIncompleteCode      = errors.New("signup: code must have 6 digits")
)

// API is the part of the REST client the flow talks to.
type API interface {
	CheckUsername(ctx context.Context, username string) (apiclient.UsernameCheck, error)
	RequestOTP(ctx context.Context, req apiclient.SignupRequest) (apiclient.Reservation, error)
	ResendOTP(ctx context.Context, email string) (apiclient.Reservation, error)
	VerifyOTP(ctx context.Context, email, otp string) (models.PublicUser, error)
}

var _ API = (*apiclient.Client)(nil)

type Form struct {
	Name     string
	Email    string
	Username string
	Password string
}

type Options struct {
	Now       func() time.Time
	Debounce  time.Duration
	Generator *usernames.Generator
}

// Machine is safe for concurrent use; the debounced username check completes
// on its own goroutine.
type Machine struct {
	api      API
	store    Store
	now      func() time.Time
	gen      *usernames.Generator
	debounce time.Duration

	mu          sync.Mutex
	state       State
	role        models.Role
	form        Form
	username    UsernameStatus
	suggestions []string
	timer       *time.Timer
	checkSeq    uint64

	lastSentAt    time.Time
	cooldown      time.Duration
	retryDeadline time.Time

	user     *models.PublicUser
	lastErr  *apiclient.Error
	redirect string

	// OTP is driven by the code screen. Do not edit it while Verify runs.
	OTP OTPInput
}

// New builds a machine and resumes any reservation left in store.
func New(api API, store Store, opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generator == nil {
		opts.Generator = usernames.NewGenerator()
	}

	m := &Machine{
		api:      api,
		store:    store,
		now:      opts.Now,
		gen:      opts.Generator,
		debounce: clampDebounce(opts.Debounce),
	}
	m.Resume()

	return m
}

func clampDebounce(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultDebounce
	case d < MinDebounce:
		return MinDebounce
	case d > MaxDebounce:
		return MaxDebounce
	}
	return d
}

// Resume restores the OTP screen from a live reservation. A missing or
// expired one sends the flow back to role selection.
func (m *Machine) Resume() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.store.Load()
	if !ok || res.Expired(m.now()) {
		m.resetLocked()
		return m.state
	}

	m.state = OtpPending
	m.role = res.Role
	m.form = Form{Name: res.Name, Email: res.Email, Username: res.Username}
	m.username = UsernameAvailable
	m.lastSentAt = res.LastOTPSentAt
	m.cooldown = res.Cooldown

	return m.state
}

func (m *Machine) resetLocked() {
	m.store.Clear()
	m.stopTimerLocked()

	m.state = RoleSelect
	m.role = ""
	m.form = Form{}
	m.username = UsernameIdle
	m.suggestions = nil
	m.lastSentAt = time.Time{}
	m.cooldown = 0
	m.retryDeadline = time.Time{}
	m.OTP.Reset()
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.checkSeq++
}

func (m *Machine) SelectRole(role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != RoleSelect && m.state != BasicInfo {
		return ErrWrongState
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	m.role = role
	m.state = BasicInfo

	return nil
}

// Back returns from basic info to role selection, keeping the entered fields.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != BasicInfo {
		return ErrWrongState
	}
	m.state = RoleSelect

	return nil
}

// SetField updates name, email or password. Usernames go through TypeUsername.
func (m *Machine) SetField(name, email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.form.Name = name
	m.form.Email = strings.TrimSpace(email)
	m.form.Password = password
}

// TypeUsername records a keystroke and schedules an availability check once
// typing settles. Only the latest check may update the status.
func (m *Machine) TypeUsername(ctx context.Context, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.form.Username = raw
	m.suggestions = nil

	if strings.TrimSpace(raw) == "" {
		m.username = UsernameIdle
		return
	}

	m.username = UsernameChecking
	seq := m.checkSeq
	m.timer = time.AfterFunc(m.debounce, func() {
		m.check(ctx, raw, seq)
	})
}

// CheckUsername runs the availability check now.
func (m *Machine) CheckUsername(ctx context.Context) error {
	m.mu.Lock()
	m.stopTimerLocked()
	raw := m.form.Username
	seq := m.checkSeq
	m.username = UsernameChecking
	m.mu.Unlock()

	return m.check(ctx, raw, seq)
}

func (m *Machine) check(ctx context.Context, raw string, seq uint64) error {
	res, err := m.api.CheckUsername(ctx, raw)

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.checkSeq {
		return nil
	}
	m.timer = nil

	if err != nil {
		m.username = UsernameIdle
		m.lastErr = apiclient.AsError(err)
		return err
	}

	if res.Available {
		// the server answers for its normalized form of the handle
		if res.Username != "" {
			m.form.Username = res.Username
		}
		m.username = UsernameAvailable
		m.suggestions = nil
		return nil
	}

	m.username = UsernameTaken
	m.suggestions = res.Suggestions
	if len(m.suggestions) == 0 {
		m.suggestions = m.gen.Suggest(raw)
	}

	return nil
}

// SelectSuggestion adopts an offered handle without another round trip.
func (m *Machine) SelectSuggestion(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.suggestions {
		if c == s {
			m.stopTimerLocked()
			m.form.Username = s
			m.username = UsernameAvailable
			m.suggestions = nil
			return nil
		}
	}

	return ErrUnknownSuggestion
}

// ShuffleSuggestions replaces the offered handles with a fresh set.
func (m *Machine) ShuffleSuggestions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.suggestions = m.gen.Suggest(m.form.Username)

	return append([]string(nil), m.suggestions...)
}

// Submit reserves the account and moves to the OTP screen.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.state != BasicInfo {
		m.mu.Unlock()
		return ErrWrongState
	}
	if !m.role.Valid() {
		m.mu.Unlock()
		return ErrInvalidRole
	}
	f := m.form
	if f.Name == "" || f.Email == "" || f.Username == "" || f.Password == "" {
		m.mu.Unlock()
		return ErrMissingFields
	}
	if m.username != UsernameAvailable {
		m.mu.Unlock()
		return ErrUsernameUnavailable
	}
	role := m.role
	m.mu.Unlock()

	res, err := m.api.RequestOTP(ctx, apiclient.SignupRequest{
		Role:     role,
		Name:     f.Name,
		Email:    f.Email,
		Username: f.Username,
		Password: f.Password,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		e := apiclient.AsError(err)
		m.lastErr = e

		switch e.Kind {
		case apiclient.KindFieldError:
			if e.Field == "username" {
				m.username = UsernameTaken
				m.suggestions = m.gen.Suggest(f.Username)
			}
		case apiclient.KindRateLimited:
			m.adoptRateLimitLocked(e)
		}

		return err
	}

	m.lastErr = nil
	m.form.Password = ""
	m.state = OtpPending
	m.OTP.Reset()
	m.adoptReservationLocked(res)

	return nil
}

func (m *Machine) adoptReservationLocked(res apiclient.Reservation) {
	m.lastSentAt = m.now()
	if res.LastOTPSentAt != nil {
		m.lastSentAt = *res.LastOTPSentAt
	}
	m.cooldown = time.Duration(res.Cooldown) * time.Second
	m.retryDeadline = time.Time{}

	expires := res.ReservationExpiresAt
	if existing, ok := m.store.Load(); ok && expires.IsZero() {
		expires = existing.ExpiresAt
	}

	m.store.Save(Reservation{
		Role:          m.role,
		Name:          m.form.Name,
		Email:         m.form.Email,
		Username:      m.form.Username,
		ExpiresAt:     expires,
		LastOTPSentAt: m.lastSentAt,
		Cooldown:      m.cooldown,
	})
}

// adoptRateLimitLocked takes the server's word for the remaining wait.
func (m *Machine) adoptRateLimitLocked(e *apiclient.Error) {
	switch {
	case e.RetryAfter > 0:
		m.retryDeadline = m.now().Add(e.RetryAfter)
	case e.LastOTPSentAt != nil:
		m.lastSentAt = *e.LastOTPSentAt
		m.retryDeadline = time.Time{}
	}

	if res, ok := m.store.Load(); ok {
		res.LastOTPSentAt = m.lastSentAt
		m.store.Save(res)
	}
}

// Cooldown is the remaining wait before another code may be requested.
func (m *Machine) Cooldown() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cooldownLocked()
}

func (m *Machine) cooldownLocked() time.Duration {
	now := m.now()

	if !m.retryDeadline.IsZero() {
		if left := m.retryDeadline.Sub(now); left > 0 {
			return left
		}
		return 0
	}

	if m.lastSentAt.IsZero() {
		return 0
	}

	period := m.cooldown
	if period <= 0 {
		period = DefaultCooldown
	}

	if left := period - now.Sub(m.lastSentAt); left > 0 {
		return left
	}
	return 0
}

// CooldownSeconds is Cooldown rounded up for display.
func (m *Machine) CooldownSeconds() int {
	d := m.Cooldown()
	return int((d + time.Second - 1) / time.Second)
}

func (m *Machine) CanResend() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state == OtpPending && m.cooldownLocked() == 0
}

// expiredLocked resets the flow when the reservation is gone.
func (m *Machine) expiredLocked() bool {
	res, ok := m.store.Load()
	if ok && !res.Expired(m.now()) {
		return false
	}

	m.resetLocked()
	return true
}

func (m *Machine) Resend(ctx context.Context) error {
	m.mu.Lock()
	if m.state != OtpPending {
		m.mu.Unlock()
		return ErrWrongState
	}
	if m.expiredLocked() {
		m.mu.Unlock()
		return ErrReservationExpired
	}
	if m.cooldownLocked() > 0 {
		m.mu.Unlock()
		return ErrCooldownActive
	}
	email := m.form.Email
	m.mu.Unlock()

	res, err := m.api.ResendOTP(ctx, email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failLocked(err)
		return err
	}

	m.lastErr = nil
	m.OTP.Reset()
	m.adoptReservationLocked(res)

	return nil
}

func (m *Machine) Verify(ctx context.Context) error {
	m.mu.Lock()
	if m.state != OtpPending {
		m.mu.Unlock()
		return ErrWrongState
	}
	if m.expiredLocked() {
		m.mu.Unlock()
		return ErrReservationExpired
	}
	if !m.OTP.Complete() {
		m.mu.Unlock()
		return ErrIncompleteCode
	}
	email, code := m.form.Email, m.OTP.Code()
	m.mu.Unlock()

	user, err := m.api.VerifyOTP(ctx, email, code)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failLocked(err)
		return err
	}

	m.store.Clear()
	m.lastErr = nil
	m.lastSentAt = time.Time{}
	m.retryDeadline = time.Time{}
	m.user = &user
	m.state = Verified

	return nil
}

// failLocked applies an OTP-screen failure. A redirect drops all local state;
// anything else leaves the user on the code screen.
func (m *Machine) failLocked(err error) {
	e := apiclient.AsError(err)
	m.lastErr = e

	switch e.Kind {
	case apiclient.KindRedirect:
		m.resetLocked()
		m.redirect = e.RedirectTo
	case apiclient.KindRateLimited:
		m.adoptRateLimitLocked(e)
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Machine) Role() models.Role {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.role
}

func (m *Machine) Form() Form {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.form
}

func (m *Machine) Username() (UsernameStatus, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.username, append([]string(nil), m.suggestions...)
}

// User is set once the flow reaches Verified.
func (m *Machine) User() *models.PublicUser {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.user
}

// Err is the last error to show inline, nil after a success.
func (m *Machine) Err() *apiclient.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}

// Redirect returns and clears a pending server-requested navigation.
func (m *Machine) Redirect() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	to := m.redirect
	m.redirect = ""

	return to
}
