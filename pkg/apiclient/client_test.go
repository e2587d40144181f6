package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	return c
}

func TestSessionCookieIsReplayed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "tok", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "OK",
			"user":   map[string]string{"username": "sam", "role": "brand"},
		})
	})
	mux.HandleFunc("GET /api/profile/me", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("auth_token")
		if err != nil || c.Value != "tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "Error", "error": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "OK",
			"profile": map[string]string{"username": "sam", "role": "brand"},
		})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, AsError(err).Status)

	user, err := c.SignIn(ctx, "sam@example.com", "Abc12345!")
	require.NoError(t, err)
	assert.Equal(t, "sam", user.Username)

	profile, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBrand, profile.Role)
}

func TestErrorDecoding(t *testing.T) {
	sentAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name   string
		status int
		body   any
		check  func(t *testing.T, e *Error)
	}{
		{
			name:   "RedirectWinsOverField",
			status: http.StatusGone,
			body:   map[string]string{"status": "Error", "error": "expired", "redirectTo": "/signup", "field": "otp"},
			check: func(t *testing.T, e *Error) {
				assert.Equal(t, KindRedirect, e.Kind)
				assert.Equal(t, "/signup", e.RedirectTo)
				assert.Empty(t, e.Field)
			},
		},
		{
			name:   "RateLimited",
			status: http.StatusTooManyRequests,
			body:   map[string]any{"status": "Error", "error": "wait", "errorIn": "rate-limited", "retryAfter": 42, "lastOtpSentAt": sentAt},
			check: func(t *testing.T, e *Error) {
				assert.Equal(t, KindRateLimited, e.Kind)
				assert.Equal(t, 42*time.Second, e.RetryAfter)
				require.NotNil(t, e.LastOTPSentAt)
				assert.True(t, sentAt.Equal(*e.LastOTPSentAt))
			},
		},
		{
			name:   "Field",
			status: http.StatusConflict,
			body:   map[string]string{"status": "Error", "error": "taken", "field": "username"},
			check: func(t *testing.T, e *Error) {
				assert.Equal(t, KindFieldError, e.Kind)
				assert.Equal(t, "username", e.Field)
				assert.Equal(t, "taken", e.Message)
			},
		},
		{
			name:   "GenericKeepsErrorIn",
			status: http.StatusGone,
			body:   map[string]string{"status": "Error", "error": "expired", "errorIn": "expired"},
			check: func(t *testing.T, e *Error) {
				assert.Equal(t, KindGeneric, e.Kind)
				assert.Equal(t, "expired", e.ErrorIn)
			},
		},
		{
			name:   "NotJSON",
			status: http.StatusBadGateway,
			body:   nil,
			check: func(t *testing.T, e *Error) {
				assert.Equal(t, KindGeneric, e.Kind)
				assert.Equal(t, http.StatusBadGateway, e.Status)
				assert.Equal(t, fallbackMessage, e.Message)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.body == nil {
					w.WriteHeader(tc.status)
					_, _ = w.Write([]byte("bad gateway"))
					return
				}
				writeJSON(w, tc.status, tc.body)
			}))

			err := c.ResetPassword(context.Background(), "abc123", "Abc12345!")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			tc.check(t, apiErr)
		})
	}
}

func TestRateLimitFromHeader(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.ForgotPassword(context.Background(), "sam@example.com")

	e := AsError(err)
	assert.Equal(t, KindRateLimited, e.Kind)
	assert.Equal(t, 15*time.Second, e.RetryAfter)
}

func TestNetworkErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.CheckUsername(context.Background(), "sam")
	require.Error(t, err)

	e := AsError(err)
	assert.Equal(t, KindGeneric, e.Kind)
	assert.Equal(t, fallbackMessage, e.Message)
	assert.NotNil(t, e.Unwrap())
}

func TestForgotPasswordCooldown(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "OK", "cooldown": 120})
	}))

	cd, err := c.ResendPasswordResetEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cd)
}

func TestInvites(t *testing.T) {
	id := uuid.NewString()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/discover/invites", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "OK",
			"invites": []map[string]string{{"id": id, "status": "pending"}},
		})
	})
	mux.HandleFunc("PATCH /api/discover/invites/{id}/respond", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, id, r.PathValue("id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "OK",
			"message": "Invite accepted.",
			"invite":  map[string]string{"id": id, "status": body["status"]},
		})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	list, err := c.Invites(ctx, models.InvitePending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	inv, msg, err := c.RespondInvite(ctx, id, models.InviteAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.InviteAccepted, inv.Status)
	assert.Equal(t, "Invite accepted.", msg)
}

func TestRespondInviteKeepsIDOpaque(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/discover/invites/{id}/respond", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "OK",
			"message": "Invite rejected.",
			"invite":  map[string]string{"id": "1", "status": "rejected"},
		})
	})

	c := newTestClient(t, mux)

	inv, msg, err := c.RespondInvite(context.Background(), "1", models.InviteRejected)
	require.NoError(t, err)
	assert.Equal(t, "1", inv.ID)
	assert.Equal(t, models.InviteRejected, inv.Status)
	assert.Equal(t, "Invite rejected.", msg)
}
