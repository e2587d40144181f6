package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}

	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestInviteStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to InviteStatus
		ok       bool
	}{
		{InvitePending, InviteAccepted, true},
		{InvitePending, InviteRejected, true},
		{InvitePending, InviteExpired, true},
		{InvitePending, InvitePending, false},
		{InviteAccepted, InviteRejected, false},
		{InviteRejected, InviteAccepted, false},
		{InviteExpired, InviteAccepted, false},
		{InviteAccepted, InviteExpired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestReservationIsExpired(t *testing.T) {
	now := time.Now()
	r := Reservation{ExpiresAt: now}

	assert.False(t, r.IsExpired(now))
	assert.True(t, r.IsExpired(now.Add(time.Millisecond)))
}
