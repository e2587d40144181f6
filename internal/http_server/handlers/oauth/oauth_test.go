package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/http_server/cookie"
	"marketplace/internal/lib/logger/handlers/slogdiscard"
	"marketplace/internal/lib/validation"
	"marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const frontend = "http://localhost:3000"

type MockService struct {
	mock.Mock
}

func (m *MockService) OAuthLogin(ctx context.Context, identity auth.OAuthIdentity) (auth.OAuthResult, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(auth.OAuthResult), args.Error(1)
}

func (m *MockService) PendingOAuthSession(ctx context.Context, id string) (models.OAuthSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.OAuthSession), args.Error(1)
}

func (m *MockService) CompleteSocialSignup(ctx context.Context, sessionID, provider string, role models.Role, username string) (models.User, string, error) {
	args := m.Called(ctx, sessionID, provider, role, username)
	return args.Get(0).(models.User), args.String(1), args.Error(2)
}

func (m *MockService) SessionTTL() time.Duration {
	return time.Hour
}

// fakeProvider serves a token endpoint and a userinfo endpoint.
func fakeProvider(t *testing.T, userinfo map[string]any) *Provider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &Provider{
		Name: auth.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://api.test/api/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/auth",
				TokenURL: srv.URL + "/token",
			},
		},
		UserInfoURL:          srv.URL + "/userinfo",
		RequireVerifiedEmail: true,
	}
}

func callback(t *testing.T, h http.HandlerFunc, state, cookieState, code string) *http.Response {
	t.Helper()

	q := url.Values{"state": {state}, "code": {code}}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+q.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: cookie.OAuthStateName, Value: cookieState})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec.Result()
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	p := fakeProvider(t, nil)

	rec := httptest.NewRecorder()
	Login(slogdiscard.NewDiscardLogger(), p, cookie.Settings{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	res := rec.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)

	state := findCookie(res, cookie.OAuthStateName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)

	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
	assert.Equal(t, "client", loc.Query().Get("client_id"))
}

func TestCallback(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	verified := map[string]any{"id": "g-1", "email": "nia@example.com", "verified_email": true, "name": "Nia"}

	t.Run("KnownUserSignedIn", func(t *testing.T) {
		p := fakeProvider(t, verified)
		svc := new(MockService)
		svc.On("OAuthLogin", mock.Anything, auth.OAuthIdentity{
			Provider: auth.ProviderGoogle, ProviderUserID: "g-1", Email: "nia@example.com", Name: "Nia",
		}).Return(auth.OAuthResult{User: models.User{ID: uuid.New()}, Token: "signed.jwt"}, nil).Once()

		res := callback(t, Callback(log, p, svc, cookie.Settings{}, frontend, 15*time.Minute), "st", "st", "good-code")
		defer res.Body.Close()

		assert.Equal(t, frontend+"/dashboard", res.Header.Get("Location"))
		session := findCookie(res, cookie.DefaultName)
		require.NotNil(t, session)
		assert.Equal(t, "signed.jwt", session.Value)
		svc.AssertExpectations(t)
	})

	t.Run("FirstTimeUserParked", func(t *testing.T) {
		p := fakeProvider(t, verified)
		svc := new(MockService)
		svc.On("OAuthLogin", mock.Anything, mock.Anything).Return(auth.OAuthResult{SessionID: "sess-1"}, nil).Once()

		res := callback(t, Callback(log, p, svc, cookie.Settings{}, frontend, 15*time.Minute), "st", "st", "good-code")
		defer res.Body.Close()

		assert.Equal(t, frontend+"/complete-signup?provider=google", res.Header.Get("Location"))
		pending := findCookie(res, cookie.OAuthSessionName)
		require.NotNil(t, pending)
		assert.Equal(t, "sess-1", pending.Value)
		assert.Nil(t, findCookie(res, cookie.DefaultName))
	})

	t.Run("UnverifiedEmailDropped", func(t *testing.T) {
		p := fakeProvider(t, map[string]any{"id": "g-2", "email": "x@example.com", "verified_email": false})
		svc := new(MockService)
		svc.On("OAuthLogin", mock.Anything, mock.MatchedBy(func(id auth.OAuthIdentity) bool {
			return id.Email == ""
		})).Return(auth.OAuthResult{}, auth.ErrOAuthEmailMissing).Once()

		res := callback(t, Callback(log, p, svc, cookie.Settings{}, frontend, 15*time.Minute), "st", "st", "good-code")
		defer res.Body.Close()

		assert.Equal(t, frontend+"/signin?error=oauth_email", res.Header.Get("Location"))
	})

	t.Run("StateMismatch", func(t *testing.T) {
		p := fakeProvider(t, verified)
		svc := new(MockService)

		res := callback(t, Callback(log, p, svc, cookie.Settings{}, frontend, 15*time.Minute), "st", "other", "good-code")
		defer res.Body.Close()

		assert.Equal(t, frontend+"/signin?error=oauth", res.Header.Get("Location"))
		svc.AssertNotCalled(t, "OAuthLogin", mock.Anything, mock.Anything)
	})

	t.Run("ExchangeFails", func(t *testing.T) {
		p := fakeProvider(t, verified)
		svc := new(MockService)

		res := callback(t, Callback(log, p, svc, cookie.Settings{}, frontend, 15*time.Minute), "st", "st", "bad-code")
		defer res.Body.Close()

		assert.Equal(t, frontend+"/signin?error=oauth", res.Header.Get("Location"))
	})
}

func TestSession(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()

	t.Run("Pending", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PendingOAuthSession", mock.Anything, "sess-1").
			Return(models.OAuthSession{ID: "sess-1", Provider: "google", Email: "nia@example.com", Name: "Nia"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/auth/get-oauth-session", nil)
		req.AddCookie(&http.Cookie{Name: cookie.OAuthSessionName, Value: "sess-1"})
		rec := httptest.NewRecorder()
		Session(log, svc).ServeHTTP(rec, req)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nia@example.com", body["email"])
		assert.Equal(t, "google", body["provider"])
	})

	t.Run("Expired", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PendingOAuthSession", mock.Anything, "").Return(models.OAuthSession{}, auth.ErrOAuthSessionExpired).Once()

		rec := httptest.NewRecorder()
		Session(log, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/get-oauth-session", nil))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, SignInPath, body["redirectTo"])
	})
}

func TestComplete(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	v := validation.New()

	do := func(h http.HandlerFunc, body map[string]string) (*httptest.ResponseRecorder, map[string]any) {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
		req.AddCookie(&http.Cookie{Name: cookie.OAuthSessionName, Value: "sess-1"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return rec, out
	}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		user := models.User{ID: uuid.New(), Role: models.RoleInfluencer, Username: "nia", Email: "nia@example.com"}
		svc.On("CompleteSocialSignup", mock.Anything, "sess-1", "", models.RoleInfluencer, "nia").Return(user, "signed.jwt", nil).Once()

		rec, body := do(Complete(log, v, svc, cookie.Settings{}, ""), map[string]string{"role": "influencer", "username": "nia"})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "nia", body["user"].(map[string]any)["username"])

		res := rec.Result()
		defer res.Body.Close()
		session := findCookie(res, cookie.DefaultName)
		require.NotNil(t, session)
		assert.Equal(t, "signed.jwt", session.Value)
	})

	t.Run("GoogleOnlyPassesProvider", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CompleteSocialSignup", mock.Anything, "sess-1", auth.ProviderGoogle, models.RoleBrand, "acme").
			Return(models.User{}, "", auth.ErrProviderMismatch).Once()

		rec, _ := do(Complete(log, v, svc, cookie.Settings{}, auth.ProviderGoogle), map[string]string{"role": "brand", "username": "acme"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CompleteSocialSignup", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(models.User{}, "", auth.ErrUsernameTaken).Once()

		rec, body := do(Complete(log, v, svc, cookie.Settings{}, ""), map[string]string{"role": "brand", "username": "acme"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "username", body["field"])
	})

	t.Run("SessionGone", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CompleteSocialSignup", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(models.User{}, "", auth.ErrOAuthSessionExpired).Once()

		rec, body := do(Complete(log, v, svc, cookie.Settings{}, ""), map[string]string{"role": "brand", "username": "acme"})
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, SignInPath, body["redirectTo"])
	})

	t.Run("InvalidRole", func(t *testing.T) {
		svc := new(MockService)

		rec, body := do(Complete(log, v, svc, cookie.Settings{}, ""), map[string]string{"role": "admin", "username": "acme"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "role", body["field"])
	})
}
