package auth

import (
	"context"
	"fmt"
	"log/slog"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/pkg/usernames"
)

// suggestionRounds bounds how many times Suggest is re-run when candidates
// collide with existing handles.
const suggestionRounds = 4

type UsernameAvailability struct {
	Username    string
	Available   bool
	Suggestions []string
}

// CheckUsername reports whether raw can be registered. Taken or malformed
// handles come back with up to three free alternatives.
func (a *Auth) CheckUsername(ctx context.Context, raw string) (UsernameAvailability, error) {
	const op = "auth.CheckUsername"

	log := a.log.With(slog.String("op", op))

	username := usernames.Normalize(raw)
	out := UsernameAvailability{Username: username}

	if usernames.Valid(username) {
		taken, err := a.usernameTaken(ctx, username)
		if err != nil {
			log.Error("failed to check username", sl.Err(err))
			return UsernameAvailability{}, fmt.Errorf("%s: %w", op, err)
		}
		if !taken {
			out.Available = true
			return out, nil
		}
	}

	suggestions, err := a.freeSuggestions(ctx, username)
	if err != nil {
		log.Error("failed to build suggestions", sl.Err(err))
		return UsernameAvailability{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Suggestions = suggestions

	return out, nil
}

func (a *Auth) freeSuggestions(ctx context.Context, raw string) ([]string, error) {
	out := make([]string, 0, usernames.SuggestionCount)
	seen := make(map[string]struct{})

	for round := 0; round < suggestionRounds && len(out) < usernames.SuggestionCount; round++ {
		for _, candidate := range a.suggest(raw) {
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}

			if !usernames.Valid(candidate) {
				continue
			}

			taken, err := a.usernameTaken(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if !taken {
				out = append(out, candidate)
			}
			if len(out) == usernames.SuggestionCount {
				break
			}
		}
	}

	return out, nil
}

func (a *Auth) suggest(raw string) []string {
	a.genMu.Lock()
	defer a.genMu.Unlock()

	return a.generator.Suggest(raw)
}

// usernameTaken checks registered users and live signup holds. Only positive
// answers are cached, a free handle is always re-checked.
func (a *Auth) usernameTaken(ctx context.Context, username string) (bool, error) {
	if _, ok := a.taken.Get(username); ok {
		return true, nil
	}

	exists, err := a.users.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	if !exists {
		exists, err = a.ephemeral.UsernameHeld(ctx, username)
		if err != nil {
			return false, err
		}
	}

	if exists {
		a.taken.SetDefault(username, true)
	}

	return exists, nil
}
