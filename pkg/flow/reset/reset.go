// Package reset is the client-side password reset flow: request a link, wait
// out the resend cooldown, consume the token and land on a result view.
package reset

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"marketplace/pkg/apiclient"
	"marketplace/pkg/passwords"
)

type State int

const (
	RequestEmail State = iota
	AwaitingLink
	TokenConsume
	Result
)

const (
	DefaultCooldown = 60 * time.Second
	ResendCooldown  = 120 * time.Second

	mismatchMessage = "Passwords do not match"
)

var (
	ErrWrongState     = errors.New("reset: action not allowed in current state")
	ErrEmptyEmail     = errors.New("reset: email is required")
	ErrCooldownActive = errors.New("reset: resend cooldown active")
	ErrNotReady       = errors.New("reset: password does not meet the requirements")
)

type API interface {
	ForgotPassword(ctx context.Context, email string) (time.Duration, error)
	ResendPasswordResetEmail(ctx context.Context, email string) (time.Duration, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var _ API = (*apiclient.Client)(nil)

type Machine struct {
	api API
	now func() time.Time

	mu       sync.Mutex
	state    State
	email    string
	deadline time.Time

	token          string
	password       string
	confirm        string
	confirmTouched bool

	status  Status
	lastErr *apiclient.Error
}

func New(api API, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{api: api, now: now}
}

// RequestLink mails a reset link and starts the resend cooldown.
func (m *Machine) RequestLink(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}

	m.mu.Lock()
	if m.state != RequestEmail && m.state != AwaitingLink {
		m.mu.Unlock()
		return ErrWrongState
	}
	if m.state == AwaitingLink && m.cooldownLocked() > 0 {
		m.mu.Unlock()
		return ErrCooldownActive
	}
	m.mu.Unlock()

	cd, err := m.api.ForgotPassword(ctx, email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failLinkLocked(err)
		return err
	}

	m.lastErr = nil
	m.email = email
	m.state = AwaitingLink
	m.startCooldownLocked(cd, DefaultCooldown)

	return nil
}

// Resend asks for another link once the cooldown has run out. The server
// usually answers with a longer wait after a manual resend.
func (m *Machine) Resend(ctx context.Context) error {
	m.mu.Lock()
	if m.state != AwaitingLink {
		m.mu.Unlock()
		return ErrWrongState
	}
	if m.cooldownLocked() > 0 {
		m.mu.Unlock()
		return ErrCooldownActive
	}
	email := m.email
	m.mu.Unlock()

	cd, err := m.api.ResendPasswordResetEmail(ctx, email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failLinkLocked(err)
		return err
	}

	m.lastErr = nil
	m.startCooldownLocked(cd, ResendCooldown)

	return nil
}

func (m *Machine) startCooldownLocked(cd, fallback time.Duration) {
	if cd <= 0 {
		cd = fallback
	}
	m.deadline = m.now().Add(cd)
}

func (m *Machine) failLinkLocked(err error) {
	e := apiclient.AsError(err)
	m.lastErr = e

	if e.Kind == apiclient.KindRateLimited && e.RetryAfter > 0 {
		m.deadline = m.now().Add(e.RetryAfter)
	}
}

func (m *Machine) Cooldown() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cooldownLocked()
}

func (m *Machine) cooldownLocked() time.Duration {
	if left := m.deadline.Sub(m.now()); left > 0 {
		return left
	}
	return 0
}

func (m *Machine) CooldownSeconds() int {
	d := m.Cooldown()
	return int((d + time.Second - 1) / time.Second)
}

// OpenLink enters the flow from a reset link. Without a token the flow ends
// at the invalid-token result.
func (m *Machine) OpenLink(token string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.password, m.confirm, m.confirmTouched = "", "", false
	m.lastErr = nil

	token = strings.TrimSpace(token)
	if token == "" {
		m.finishLocked(StatusInvalidToken)
		return m.state
	}

	m.token = token
	m.state = TokenConsume

	return m.state
}

func (m *Machine) SetPassword(pw string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.password = pw
}

// SetConfirm marks the confirmation as touched; from then on every password
// change re-checks the match.
func (m *Machine) SetConfirm(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.confirm = c
	m.confirmTouched = true
}

func (m *Machine) Checks() passwords.Checks {
	m.mu.Lock()
	defer m.mu.Unlock()

	return passwords.Evaluate(m.password)
}

// ConfirmError is the inline message under the confirmation field.
func (m *Machine) ConfirmError() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.confirmTouched && m.confirm != m.password {
		return mismatchMessage
	}
	return ""
}

func (m *Machine) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.canSubmitLocked()
}

func (m *Machine) canSubmitLocked() bool {
	return m.state == TokenConsume &&
		passwords.Evaluate(m.password).OK() &&
		m.password == m.confirm
}

// Submit consumes the token. Errors the server tags with errorIn end the flow
// at the matching result; anything else stays on the form.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if !m.canSubmitLocked() {
		m.mu.Unlock()
		return ErrNotReady
	}
	token, pw := m.token, m.password
	m.mu.Unlock()

	err := m.api.ResetPassword(ctx, token, pw)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.finishLocked(StatusSuccess)
		return nil
	}

	e := apiclient.AsError(err)
	if status, ok := resultFor(e); ok {
		m.finishLocked(status)
		return err
	}

	m.lastErr = e

	return err
}

func resultFor(e *apiclient.Error) (Status, bool) {
	if e.Kind == apiclient.KindRateLimited {
		return StatusRateLimited, true
	}

	switch Status(e.ErrorIn) {
	case StatusExpired, StatusUserNotFound, StatusInvalidToken, StatusRateLimited, StatusError:
		return Status(e.ErrorIn), true
	}

	return "", false
}

func (m *Machine) finishLocked(s Status) {
	m.state = Result
	m.status = s
	m.token = ""
	m.password, m.confirm = "", ""
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Status is set once the flow reaches Result.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

// ResultURL is where the browser goes once the flow reaches Result.
func (m *Machine) ResultURL() string {
	return ResultURL(m.Status())
}

func (m *Machine) View() View {
	return ViewFor(m.Status())
}

func (m *Machine) Err() *apiclient.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}
