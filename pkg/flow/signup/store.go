package signup

import (
	"sync"
	"time"

	"marketplace/internal/models"
)

// Reservation is what survives between the signup screens.
type Reservation struct {
	Role          models.Role
	Name          string
	Email         string
	Username      string
	ExpiresAt     time.Time
	LastOTPSentAt time.Time

	// Cooldown is the resend wait the server asked for; zero means the default.
	Cooldown time.Duration
}

// Expired reports whether the reservation can no longer be acted on. The
// expiry instant itself is still live.
func (r Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store holds the reservation for the lifetime of one browser tab.
type Store interface {
	Load() (Reservation, bool)
	Save(Reservation)
	Clear()
}

type MemoryStore struct {
	mu  sync.Mutex
	res *Reservation
}

func (s *MemoryStore) Load() (Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.res == nil {
		return Reservation{}, false
	}
	return *s.res, true
}

func (s *MemoryStore) Save(r Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.res = &r
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.res = nil
}
