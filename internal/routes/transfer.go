package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mbongo-pay/mbongo_pay/internal/transfer"
)

// RegisterTransferRoutes wires the transfer endpoint behind its rate limiter.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, limiter fiber.Handler) {
	r.Post("/transfer", limiter, h.Transfer)
}
