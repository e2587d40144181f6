package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/lib/logger/handlers/slogdiscard"
	"marketplace/internal/lib/validation"
	"marketplace/internal/marketplace"
	"marketplace/internal/middleware/authn"
	"marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Profile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Profile), args.Error(1)
}

func (m *MockService) UpdateBrandProfile(ctx context.Context, userID uuid.UUID, name string, details models.BrandDetails) (models.Profile, error) {
	args := m.Called(ctx, userID, name, details)
	return args.Get(0).(models.Profile), args.Error(1)
}

func (m *MockService) UpdateInfluencerProfile(ctx context.Context, userID uuid.UUID, name string, details models.InfluencerDetails) (models.Profile, error) {
	args := m.Called(ctx, userID, name, details)
	return args.Get(0).(models.Profile), args.Error(1)
}

func serve(t *testing.T, h http.HandlerFunc, method string, uid uuid.UUID, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/", &buf)
	if uid != uuid.Nil {
		req = req.WithContext(authn.WithClaims(req.Context(), models.Claims{ID: uid.String()}))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return rec, out
}

func TestGet(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	uid := uuid.New()

	t.Run("Found", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Profile", mock.Anything, uid).Return(models.Profile{UserID: uid, Role: models.RoleBrand, Username: "acme"}, nil).Once()

		rec, body := serve(t, Get(log, svc), http.MethodGet, uid, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", body["profile"].(map[string]any)["username"])
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Profile", mock.Anything, uid).Return(models.Profile{}, marketplace.ErrProfileNotFound).Once()

		rec, _ := serve(t, Get(log, svc), http.MethodGet, uid, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("NoClaims", func(t *testing.T) {
		svc := new(MockService)

		rec, body := serve(t, Get(log, svc), http.MethodGet, uuid.Nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized", body["error"])
	})
}

func TestUpdateBrand(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	v := validation.New()
	uid := uuid.New()

	t.Run("ReplacesDetails", func(t *testing.T) {
		svc := new(MockService)
		want := models.BrandDetails{CompanyName: "Acme Inc", Website: "https://acme.example", Industry: "retail"}
		svc.On("UpdateBrandProfile", mock.Anything, uid, "Acme", want).
			Return(models.Profile{UserID: uid, Name: "Acme", BrandDetails: &want}, nil).Once()

		rec, body := serve(t, UpdateBrand(log, v, svc), http.MethodPatch, uid, map[string]any{
			"name": "Acme",
			"brandDetails": map[string]any{
				"companyName": "Acme Inc",
				"website":     "https://acme.example",
				"industry":    "retail",
			},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		details := body["profile"].(map[string]any)["brandDetails"].(map[string]any)
		assert.Equal(t, "Acme Inc", details["companyName"])
		svc.AssertExpectations(t)
	})

	t.Run("BadWebsite", func(t *testing.T) {
		svc := new(MockService)

		rec, body := serve(t, UpdateBrand(log, v, svc), http.MethodPatch, uid, map[string]any{
			"brandDetails": map[string]any{"website": "not a url"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "website", body["field"])
	})
}

func TestUpdateInfluencer(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	v := validation.New()
	uid := uuid.New()

	t.Run("ReplacesDetails", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateInfluencerProfile", mock.Anything, uid, "", mock.MatchedBy(func(d models.InfluencerDetails) bool {
			return d.Bio == "travel" && d.FollowerCount == 12000 && len(d.Niches) == 2
		})).Return(models.Profile{UserID: uid}, nil).Once()

		rec, _ := serve(t, UpdateInfluencer(log, v, svc), http.MethodPatch, uid, map[string]any{
			"influencerDetails": map[string]any{
				"bio":           "travel",
				"niches":        []string{"travel", "food"},
				"followerCount": 12000,
			},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("EngagementOutOfRange", func(t *testing.T) {
		svc := new(MockService)

		rec, body := serve(t, UpdateInfluencer(log, v, svc), http.MethodPatch, uid, map[string]any{
			"influencerDetails": map[string]any{"engagementRate": 140},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "engagementRate", body["field"])
	})
}
