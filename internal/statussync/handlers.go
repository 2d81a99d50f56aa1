package statussync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hotelsync/internal/api"
	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

type Handlers struct {
	Engine   *Engine
	Validate *validator.Validate
	Log      *slog.Logger
}

func NewHandlers(e *Engine, log *slog.Logger) Handlers {
	if log == nil {
		log = slog.Default()
	}
	return Handlers{Engine: e, Validate: validator.New(validator.WithRequiredStructEnabled()), Log: log}
}

// PairView is a pair plus the targets the policy currently allows, so
// screens can disable options that would be rejected.
type PairView struct {
	Booking                booking.Booking  `json:"booking"`
	Payment                *payment.Payment `json:"payment,omitempty"`
	AllowedBookingStatuses []booking.Status `json:"allowedBookingStatuses"`
	AllowedPaymentStatuses []payment.Status `json:"allowedPaymentStatuses"`
	Changed                bool             `json:"changed"`
}

func viewOf(p Pair, changed bool) PairView {
	v := PairView{
		Booking:                p.Booking,
		Payment:                p.Payment,
		AllowedBookingStatuses: AllowedBookingTargets(p),
		AllowedPaymentStatuses: []payment.Status{},
		Changed:                changed,
	}
	if v.AllowedBookingStatuses == nil {
		v.AllowedBookingStatuses = []booking.Status{}
	}
	if p.Payment != nil {
		if pt := AllowedPaymentTargets(p); pt != nil {
			v.AllowedPaymentStatuses = pt
		}
	}
	return v
}

type CreateBookingRequest struct {
	UserRef      string    `json:"userRef" validate:"required,max=128"`
	HotelRef     string    `json:"hotelRef" validate:"required,max=128"`
	RoomRef      string    `json:"roomRef" validate:"required,max=128"`
	CheckInDate  time.Time `json:"checkInDate" validate:"required"`
	CheckOutDate time.Time `json:"checkOutDate" validate:"required,gtfield=CheckInDate"`
}

type OpenPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,max=32"`
}

type BookingStatusRequest struct {
	Status    string `json:"status" validate:"required,oneof=Pending Confirmed Cancelled"`
	Confirmed bool   `json:"confirmed"`
}

type PaymentStatusRequest struct {
	Status    string `json:"status" validate:"required,oneof=Pending Unpaid Deposit Paid"`
	Confirmed bool   `json:"confirmed"`
}

type ConfirmationResponse struct {
	Confirmation Confirmation `json:"confirmation"`
}

func (h Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Engine.CreateBooking(r.Context(), NewBooking{
		UserRef:      req.UserRef,
		HotelRef:     req.HotelRef,
		RoomRef:      req.RoomRef,
		CheckInDate:  req.CheckInDate,
		CheckOutDate: req.CheckOutDate,
	}, h.meta(r, false))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, viewOf(p, true))
}

func (h Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.Engine.GetBooking(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, viewOf(p, false))
}

func (h Handlers) PatchBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req BookingStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := booking.ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}
	res, err := h.Engine.RequestBookingStatus(r.Context(), id, to, h.meta(r, req.Confirmed))
	h.writeResult(w, res, err)
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	evs, err := h.Engine.Events(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if evs == nil {
		evs = []Event{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": evs})
}

func (h Handlers) OpenPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req OpenPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Engine.OpenPayment(r.Context(), id, req.Amount, req.Method, h.meta(r, false))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	status := http.StatusOK
	if res.Changed {
		status = http.StatusCreated
	}
	api.WriteJSON(w, status, viewOf(res.Pair, res.Changed))
}

func (h Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.Engine.GetPayment(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, viewOf(p, false))
}

func (h Handlers) PatchPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := payment.ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}
	res, err := h.Engine.RequestPaymentStatus(r.Context(), id, to, h.meta(r, req.Confirmed))
	h.writeResult(w, res, err)
}

// PatchBookingPaymentStatus changes the linked payment from the booking side.
func (h Handlers) PatchBookingPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := payment.ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}
	res, err := h.Engine.RequestBookingPaymentStatus(r.Context(), id, to, h.meta(r, req.Confirmed))
	h.writeResult(w, res, err)
}

func (h Handlers) writeResult(w http.ResponseWriter, res Result, err error) {
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if res.Confirmation != nil {
		api.WriteJSON(w, http.StatusPreconditionRequired, ConfirmationResponse{Confirmation: *res.Confirmation})
		return
	}
	api.WriteJSON(w, http.StatusOK, viewOf(res.Pair, res.Changed))
}

func (h Handlers) meta(r *http.Request, confirmed bool) Meta {
	m := Meta{Confirmed: confirmed}
	if op := api.OperatorFromContext(r.Context()); op != nil {
		m.Actor = op.Subject
	}
	return m
}

func (h Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		msg := "invalid request"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "invalid field: " + verrs[0].Field()
		}
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", msg)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid id")
		return "", false
	}
	return id, true
}

func (h Handlers) writeErr(w http.ResponseWriter, err error) {
	var se *Error
	if !errors.As(err, &se) {
		h.Log.Error("request failed", "err", err)
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	switch se.Kind {
	case KindNotFound:
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", se.Error())
	case KindConflict:
		w.Header().Set("Retry-After", "0")
		api.WriteError(w, http.StatusConflict, "STALE_VERSION", se.Error())
	case KindPaymentLocked:
		api.WriteError(w, http.StatusConflict, "PAYMENT_LOCKED", se.Error())
	case KindIrreversiblePayment:
		api.WriteError(w, http.StatusConflict, "IRREVERSIBLE_PAYMENT", se.Error())
	case KindInvalidInput:
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", se.Error())
	case KindInvalidTransition:
		api.WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", se.Error())
	default:
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
