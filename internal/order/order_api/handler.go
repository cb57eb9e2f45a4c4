package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tradehub/internal/auth"
	"tradehub/internal/logger"
	"tradehub/internal/models"
	"tradehub/internal/order"
	"tradehub/internal/order/slip"
	"tradehub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Slip         *slip.Generator
	Logger       *logger.Logger
}

// RegisterRoutes mounts the order surface on the given router. The auth
// middleware must already have run; every handler reads the caller identity
// from the request context and trusts it completely.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/place", h.PlaceOrder)
		r.Get("/regenerate-otp/{orderId}", h.RegenerateOTP)
		r.Post("/verify-otp", h.VerifyDelivery)
		r.Get("/fetch-orders", h.FetchOrders)
		r.Get("/handoff-slip/{orderId}", h.HandoffSlip)
	})
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("PlaceOrder: buyer=%s", buyerID))

	var req models.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body"))
		return
	}

	placements, err := h.OrderService.PlaceOrder(buyerID, req.Orders)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: %v", err))
		h.writeError(w, err)
		return
	}
	h.Logger.LogOrder("PLACE", buyerID, fmt.Sprintf("%d order(s) created", len(placements)))

	h.writeJSON(w, http.StatusCreated, struct {
		Success bool                 `json:"success"`
		Orders  []models.PlacedOrder `json:"orders"`
	}{Success: true, Orders: placements})
}

func (h *Handler) RegenerateOTP(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("RegenerateOTP: orderId=%s", orderID))

	code, err := h.OrderService.RegenerateOTP(callerID, orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegenerateOTP: %v", err))
		h.writeError(w, err)
		return
	}
	h.Logger.LogOrder("REGENERATE", orderID, "delivery code replaced")

	h.writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		OTP     string `json:"otp"`
	}{Success: true, OTP: code})
}

func (h *Handler) VerifyDelivery(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())

	var req models.VerifyDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("VerifyDelivery: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("VerifyDelivery: orderId=%s", req.OrderID))

	updated, err := h.OrderService.VerifyDelivery(callerID, req.OrderID, req.OTP)
	if err != nil {
		if errors.Is(err, order.ErrInvalidOTP) {
			h.Logger.LogSecurity("OTP_MISMATCH", fmt.Sprintf("order %s", req.OrderID))
		} else {
			h.Logger.Error("API", fmt.Sprintf("VerifyDelivery: %v", err))
		}
		h.writeError(w, err)
		return
	}
	h.Logger.LogOrder("DELIVERED", updated.ID, "delivery confirmed")

	h.writeJSON(w, http.StatusOK, struct {
		Success bool          `json:"success"`
		Order   *models.Order `json:"order"`
	}{Success: true, Order: updated})
}

func (h *Handler) FetchOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("FetchOrders: user=%s", userID))

	views, err := h.OrderService.FetchOrders(userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("FetchOrders: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Success      bool               `json:"success"`
		Orders       []models.OrderView `json:"orders"`
		SellerOrders []models.OrderView `json:"sellerOrders"`
	}{Success: true, Orders: views.Bought, SellerOrders: views.Sold})
}

func (h *Handler) HandoffSlip(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("HandoffSlip: orderId=%s", orderID))

	orderData, err := h.OrderService.GetOrderForParticipant(callerID, orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("HandoffSlip: %v", err))
		h.writeError(w, err)
		return
	}

	png, err := h.Slip.GenerateHandoffQR(*orderData)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("HandoffSlip: failed to render QR: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to render handoff slip"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("HandoffSlip: failed to write response: %v", err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, order.ErrEmptyOrderList), errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidOTP), errors.Is(err, order.ErrOrderCompleted),
		errors.Is(err, order.ErrInsufficientStock):
		status = http.StatusBadRequest
	case errors.Is(err, order.ErrItemNotFound), errors.Is(err, order.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, order.ErrNotOrderSeller), errors.Is(err, order.ErrNotOrderParticipant):
		status = http.StatusForbidden
	case errors.Is(err, order.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	}
	h.writeJSON(w, status, utils.ErrorResponse(err.Error()))
}
