package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mbongo-pay/mbongo_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Get("/wallets/:walletId/historical-balance", h.HistoricalBalance)
	r.Get("/wallets/:walletId/statement", h.Statement)
	r.Post("/wallets/:walletId/deposit", h.Deposit)
	r.Post("/wallets/:walletId/withdraw", h.Withdraw)
}
