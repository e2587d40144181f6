// Package invites keeps an influencer's invite list in memory and applies
// accept/reject answers to it without refetching.
package invites

import (
	"context"
	"errors"
	"sync"

	"marketplace/internal/models"
	"marketplace/pkg/apiclient"
)

var (
	ErrNotFound      = errors.New("invites: invite not in list")
	ErrInvalidAnswer = errors.New("invites: answer must be accepted or rejected")
)

type API interface {
	Invites(ctx context.Context, status models.InviteStatus) ([]apiclient.Invite, error)
	RespondInvite(ctx context.Context, id string, status models.InviteStatus) (apiclient.Invite, string, error)
}

var _ API = (*apiclient.Client)(nil)

type List struct {
	api API

	mu      sync.Mutex
	filter  models.InviteStatus
	items   []apiclient.Invite
	message string
	lastErr *apiclient.Error
}

func New(api API) *List {
	return &List{api: api}
}

// Load replaces the list with the server's invites for status.
func (l *List) Load(ctx context.Context, status models.InviteStatus) error {
	items, err := l.api.Invites(ctx, status)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.lastErr = apiclient.AsError(err)
		return err
	}

	l.filter = status
	l.items = items
	l.lastErr = nil

	return nil
}

// Respond answers one invite and updates only that entry.
func (l *List) Respond(ctx context.Context, id string, status models.InviteStatus) error {
	if status != models.InviteAccepted && status != models.InviteRejected {
		return ErrInvalidAnswer
	}

	l.mu.Lock()
	if l.indexLocked(id) < 0 {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.mu.Unlock()

	updated, msg, err := l.api.RespondInvite(ctx, id, status)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.lastErr = apiclient.AsError(err)
		l.message = l.lastErr.Message
		return err
	}

	i := l.indexLocked(id)
	if i < 0 {
		return nil
	}

	if updated.ID == id {
		l.items[i] = updated
	} else {
		l.items[i].Status = status
	}

	if msg == "" {
		msg = Message(status)
	}
	l.message = msg
	l.lastErr = nil

	return nil
}

func (l *List) indexLocked(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Message is the confirmation shown after an answer.
func Message(status models.InviteStatus) string {
	if status == models.InviteAccepted {
		return "Invite accepted."
	}
	return "Invite rejected."
}

func (l *List) Items() []apiclient.Invite {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]apiclient.Invite(nil), l.items...)
}

func (l *List) Filter() models.InviteStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.filter
}

// Message is the last confirmation or error text.
func (l *List) Message() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.message
}

func (l *List) Err() *apiclient.Error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lastErr
}
