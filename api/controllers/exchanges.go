package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/api/middleware"
	"github.com/mercatohq/barter-backend/api/responses"
	"github.com/mercatohq/barter-backend/api/validators"
	"github.com/mercatohq/barter-backend/internal/exchanges"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/pagination"
)

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}

func exchangeIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "exchangeId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid exchange id")
	}
	return id, nil
}

// ExchangeCreate proposes a new exchange on behalf of the authenticated user.
func ExchangeCreate(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input exchanges.CreateExchangeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.CreateExchange(ctx, userID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// ExchangeFetch returns the full aggregate to one of the two parties.
func ExchangeFetch(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		exchangeID, err := exchangeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.GetExchangeByID(ctx, exchangeID, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ExchangeList returns the authenticated user's exchanges with optional role
// and status filters plus cursor pagination.
func ExchangeList(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := exchanges.ListParams{
			Pagination: pagination.Params{
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params.Pagination.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			role, err := enums.ParseExchangeSide(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role filter"))
				return
			}
			params.Filters.Role = &role
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseExchangeStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Filters.Status = &status
		}

		list, err := svc.ListExchanges(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type approveExchangePayload struct {
	ReceiverAddressID uuid.UUID `json:"receiver_address_id" validate:"required"`
}

type closeExchangePayload struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// ExchangeApprove lets the receiver accept a pending exchange.
func ExchangeApprove(svc exchanges.LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		exchangeID, err := exchangeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload approveExchangePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exchange, err := svc.ApproveExchange(ctx, exchangeID, userID, payload.ReceiverAddressID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}

// ExchangeReject lets the receiver decline a pending exchange.
func ExchangeReject(svc exchanges.LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return closeExchange(logg, svc.RejectExchange)
}

// ExchangeCancel lets the initiator withdraw a pending exchange.
func ExchangeCancel(svc exchanges.LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return closeExchange(logg, svc.CancelExchange)
}

func closeExchange(logg *logger.Logger, transition func(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		exchangeID, err := exchangeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := closeExchangePayload{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		exchange, err := transition(ctx, exchangeID, userID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}

// ExchangeDeliveryUpdate records one party's shipment progress.
func ExchangeDeliveryUpdate(svc exchanges.DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		exchangeID, err := exchangeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input exchanges.DeliveryUpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exchange, err := svc.UpdateDeliveryStatus(ctx, exchangeID, userID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}
