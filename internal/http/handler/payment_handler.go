package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/http/middleware"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
	"github.com/MaezenDigital/Enemamar-backend/internal/webhook"
)

// maxWebhookBody caps webhook payload reads.
const maxWebhookBody = 1 << 20

// PaymentHandler exposes checkout, callback and webhook endpoints.
type PaymentHandler struct {
	Payments *service.PaymentService
	Verifier *webhook.Verifier
	Logger   *zap.Logger
}

// NewPaymentHandler wires dependencies.
func NewPaymentHandler(payments *service.PaymentService, verifier *webhook.Verifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Verifier: verifier, Logger: logger}
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "course_id")
	if !ok {
		return
	}
	checkout, err := h.Payments.Initiate(c.Request.Context(), identity.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Checkout ready.", "data": checkout})
}

// Callback handles the gateway redirect after checkout. The transaction
// state is re-verified against the gateway before anything changes.
func (h *PaymentHandler) Callback(c *gin.Context) {
	txRef := c.Query("trx_ref")
	if txRef == "" {
		txRef = c.Query("tx_ref")
	}
	payment, err := h.Payments.Callback(c.Request.Context(), txRef)
	if err != nil {
		respondError(c, err)
		return
	}
	if payment.Status != domain.PaymentSuccess {
		c.JSON(http.StatusPaymentRequired, gin.H{"detail": "Payment failed.", "data": service.NewPaymentViewModel(payment)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Payment processed.", "data": service.NewPaymentViewModel(payment)})
}

// Webhook handles gateway event deliveries. The signature is checked
// over the exact bytes received before the payload is parsed; an
// unverified body is never decoded.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Unreadable payload."})
		return
	}

	if err := h.Verifier.Verify(c.Request.Header, body); err != nil {
		status := http.StatusUnauthorized
		code := "invalid_signature"
		if errors.Is(err, webhook.ErrMissingSignature) {
			code = "missing_signature"
		}
		h.Logger.Warn("webhook rejected",
			zap.String("reason", code),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(status, gin.H{"error": code, "error_description": "Webhook signature verification failed."})
		return
	}

	var event domain.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	payment, err := h.Payments.ProcessEvent(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Event processed.", "data": gin.H{"tx_ref": payment.TxRef, "status": payment.Status}})
}

func (h *PaymentHandler) ListByUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	params := listParams(c)
	payments, total, err := h.Payments.ListByUser(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewPaymentViewModels(payments), total, params)
}

func (h *PaymentHandler) ListByCourse(c *gin.Context) {
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	params := listParams(c)
	payments, total, err := h.Payments.ListByCourse(c.Request.Context(), courseID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewPaymentViewModels(payments), total, params)
}
