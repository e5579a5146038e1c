package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/api/middleware"
	"github.com/mercatohq/barter-backend/internal/exchanges"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubExchangeService struct {
	created   *exchanges.CreateExchangeInput
	createErr error
	detail    *exchanges.ExchangeDetail
}

func (s *stubExchangeService) CreateExchange(ctx context.Context, initiatorID uuid.UUID, input exchanges.CreateExchangeInput) (*exchanges.ExchangeDetail, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &input
	if s.detail != nil {
		return s.detail, nil
	}
	return &exchanges.ExchangeDetail{Exchange: models.Exchange{ID: uuid.New(), InitiatorID: initiatorID}}, nil
}

func (s *stubExchangeService) GetExchangeByID(ctx context.Context, id, callerID uuid.UUID) (*exchanges.ExchangeDetail, error) {
	if s.detail != nil {
		return s.detail, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
}

func (s *stubExchangeService) ListExchanges(ctx context.Context, userID uuid.UUID, params exchanges.ListParams) (*exchanges.ExchangeList, error) {
	return &exchanges.ExchangeList{}, nil
}

func TestExchangeCreate(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	body := `{
		"receiver_id": "` + uuid.NewString() + `",
		"initiator_items": [{"product_id": "` + uuid.NewString() + `", "product_name": "Oolong Sampler", "quantity": 2, "unit_price": "10"}],
		"receiver_items": [{"product_id": "` + uuid.NewString() + `", "product_name": "Ceramic Teapot", "quantity": 1, "unit_price": "25"}]
	}`

	t.Run("missing user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ExchangeCreate(&stubExchangeService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without identity, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges", strings.NewReader(`{"receiver_id": ""}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		ExchangeCreate(&stubExchangeService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
		}
	})

	t.Run("eligibility failure maps to 422", func(t *testing.T) {
		stub := &stubExchangeService{createErr: pkgerrors.New(pkgerrors.CodeEligibility, "both parties must be approved sellers")}
		ctx := middleware.WithUserID(context.Background(), userID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges", strings.NewReader(body))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		ExchangeCreate(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for eligibility failure, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubExchangeService{}
		ctx := middleware.WithUserID(context.Background(), userID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges", strings.NewReader(body))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		ExchangeCreate(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.created == nil || len(stub.created.InitiatorItems) != 1 {
			t.Fatal("expected decoded input forwarded to the service")
		}

		var envelope struct {
			Data exchanges.ExchangeDetail `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.Exchange.InitiatorID != userID {
			t.Fatal("expected the caller recorded as initiator")
		}
	})
}

type stubLifecycleService struct {
	approved    bool
	lastAddress uuid.UUID
}

func (s *stubLifecycleService) ApproveExchange(ctx context.Context, id, callerID, receiverAddressID uuid.UUID) (*models.Exchange, error) {
	s.approved = true
	s.lastAddress = receiverAddressID
	return &models.Exchange{ID: id, Status: enums.ExchangeStatusApproved}, nil
}

func (s *stubLifecycleService) RejectExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error) {
	return &models.Exchange{ID: id, Status: enums.ExchangeStatusRejected, CancellationReason: reason}, nil
}

func (s *stubLifecycleService) CancelExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error) {
	return &models.Exchange{ID: id, Status: enums.ExchangeStatusCancelled, CancellationReason: reason}, nil
}

func (s *stubLifecycleService) CompleteExchange(ctx context.Context, id uuid.UUID) error {
	return nil
}

func withExchangeRoute(ctx context.Context, exchangeID string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("exchangeId", exchangeID)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func TestExchangeApprove(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	exchangeID := uuid.New()
	addressID := uuid.New()

	t.Run("invalid exchange id", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		ctx = withExchangeRoute(ctx, "not-a-uuid")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges/not-a-uuid/approve", strings.NewReader(`{}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		ExchangeApprove(&stubLifecycleService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad id, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubLifecycleService{}
		ctx := middleware.WithUserID(context.Background(), userID.String())
		ctx = withExchangeRoute(ctx, exchangeID.String())
		body := `{"receiver_address_id": "` + addressID.String() + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges/"+exchangeID.String()+"/approve", strings.NewReader(body))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		ExchangeApprove(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !stub.approved || stub.lastAddress != addressID {
			t.Fatal("expected the approval forwarded with the address")
		}
	})
}

func TestExchangeRejectWithReason(t *testing.T) {
	logg := testLogger()
	exchangeID := uuid.New()

	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = withExchangeRoute(ctx, exchangeID.String())
	body := `{"reason": "inventory no longer available"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges/"+exchangeID.String()+"/reject", strings.NewReader(body))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	ExchangeReject(&stubLifecycleService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data models.Exchange `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CancellationReason == nil || *envelope.Data.CancellationReason != "inventory no longer available" {
		t.Fatal("expected reason forwarded to the transition")
	}
}

func TestExchangeListParsesFilters(t *testing.T) {
	logg := testLogger()

	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exchanges?role=bystander", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	ExchangeList(&stubExchangeService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/exchanges?role=initiator&status=pending&limit=10", nil)
	req = req.WithContext(ctx)
	rec = httptest.NewRecorder()
	ExchangeList(&stubExchangeService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
