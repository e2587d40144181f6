package campaigns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

func (m *MockService) CreateCampaign(ctx context.Context, brandID uuid.UUID, in marketplace.CampaignInput) (models.Campaign, error) {
	args := m.Called(ctx, brandID, in)
	return args.Get(0).(models.Campaign), args.Error(1)
}

func (m *MockService) Campaigns(ctx context.Context, brandID uuid.UUID) ([]models.Campaign, error) {
	args := m.Called(ctx, brandID)
	list, _ := args.Get(0).([]models.Campaign)
	return list, args.Error(1)
}

func serve(t *testing.T, h http.HandlerFunc, method string, brandID uuid.UUID, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/api/campaigns", &buf)
	req = req.WithContext(authn.WithClaims(req.Context(), models.Claims{ID: brandID.String(), Role: models.RoleBrand}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return rec, out
}

func TestCreate(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	v := validation.New()
	brandID := uuid.New()

	t.Run("Created", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CreateCampaign", mock.Anything, brandID, mock.MatchedBy(func(in marketplace.CampaignInput) bool {
			return in.Title == "Summer drop" && in.Budget == 5000 && in.StartDate != nil
		})).Return(models.Campaign{ID: uuid.New(), BrandID: brandID, Title: "Summer drop", Status: models.CampaignDraft}, nil).Once()

		rec, body := serve(t, Create(log, v, svc), http.MethodPost, brandID, map[string]any{
			"title":     "Summer drop",
			"budget":    5000,
			"startDate": "2026-06-01T00:00:00Z",
			"platforms": []string{"instagram"},
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "draft", body["campaign"].(map[string]any)["status"])
		svc.AssertExpectations(t)
	})

	t.Run("MissingTitle", func(t *testing.T) {
		svc := new(MockService)

		rec, body := serve(t, Create(log, v, svc), http.MethodPost, brandID, map[string]any{"budget": 10})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title", body["field"])
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := new(MockService)

		rec, body := serve(t, Create(log, v, svc), http.MethodPost, brandID, map[string]any{"title": "x", "status": "paused"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "status", body["field"])
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CreateCampaign", mock.Anything, brandID, mock.Anything).Return(models.Campaign{}, marketplace.ErrInvalidDates).Once()

		rec, body := serve(t, Create(log, v, svc), http.MethodPost, brandID, map[string]any{
			"title":     "x",
			"startDate": "2026-06-10T00:00:00Z",
			"endDate":   "2026-06-01T00:00:00Z",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "endDate", body["field"])
	})
}

func TestList(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()
	brandID := uuid.New()

	t.Run("Empty", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Campaigns", mock.Anything, brandID).Return(nil, nil).Once()

		rec, body := serve(t, List(log, svc), http.MethodGet, brandID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, body["campaigns"])
	})

	t.Run("Failure", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Campaigns", mock.Anything, brandID).Return(nil, errors.New("db down")).Once()

		rec, _ := serve(t, List(log, svc), http.MethodGet, brandID, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
