package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Value decimal.Decimal `json:"value"`
	Payer int64           `json:"payer"`
	Payee int64           `json:"payee"`
}

type transferResponse struct {
	ID           string          `json:"id"`
	SenderID     int64           `json:"sender_id"`
	SenderName   string          `json:"sender_name"`
	ReceiverID   int64           `json:"receiver_id"`
	ReceiverName string          `json:"receiver_name"`
	Value        decimal.Decimal `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Transfer processes a wallet-to-wallet transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	view, err := h.service.Transfer(c.UserContext(), req.Payer, req.Payee, req.Value)
	if err != nil {
		var nf *ledger.NotFoundError
		switch {
		case errors.As(err, &nf):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrTransactionAborted):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(transferResponse{
		ID:           view.ID.String(),
		SenderID:     view.SenderID,
		SenderName:   view.SenderName,
		ReceiverID:   view.ReceiverID,
		ReceiverName: view.ReceiverName,
		Value:        view.Value,
		CreatedAt:    view.CreatedAt,
	})
}
