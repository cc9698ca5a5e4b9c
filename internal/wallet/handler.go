package wallet

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	FullName string `json:"full_name"`
	TaxID    string `json:"tax_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type walletResponse struct {
	ID        int64           `json:"id"`
	FullName  string          `json:"full_name"`
	TaxID     string          `json:"tax_id"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type entryResponse struct {
	ID           int64           `json:"id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Timestamp    time.Time       `json:"timestamp"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// Create opens a new wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{
		FullName: req.FullName,
		TaxID:    req.TaxID,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:        w.ID,
		FullName:  w.FullName,
		TaxID:     w.TaxID,
		Email:     w.Email,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
	})
}

// Balance returns the live wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), id)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// HistoricalBalance reconstructs the balance as of the dateTime query param.
func (h *Handler) HistoricalBalance(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return err
	}
	asOf, err := time.Parse(time.RFC3339, c.Query("dateTime"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "dateTime must be RFC3339")
	}
	balance, err := h.service.HistoricalBalance(c.UserContext(), id, asOf)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Statement lists ledger entries up to the dateTime query param, newest
// first. Defaults to now.
func (h *Handler) Statement(c *fiber.Ctx) error {
	id, err := walletID(c)
	if err != nil {
		return err
	}
	asOf := time.Now().UTC()
	if v := c.Query("dateTime"); v != "" {
		if asOf, err = time.Parse(time.RFC3339, v); err != nil {
			return fiber.NewError(http.StatusBadRequest, "dateTime must be RFC3339")
		}
	}
	entries, err := h.service.Statement(c.UserContext(), id, asOf)
	if err != nil {
		return walletError(err)
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:           e.ID,
			Kind:         string(e.Kind),
			Amount:       e.Amount,
			Description:  e.Description,
			Timestamp:    e.Timestamp,
			BalanceAfter: e.BalanceAfter,
		})
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Deposit credits the wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.post(c, h.service.Deposit)
}

// Withdraw debits the wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.post(c, h.service.Withdraw)
}

func (h *Handler) post(c *fiber.Ctx, op func(ctx context.Context, id int64, amount decimal.Decimal) (ledger.Entry, error)) error {
	id, err := walletID(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := op(c.UserContext(), id, req.Amount)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":   entry.BalanceAfter,
		"timestamp": entry.Timestamp,
	})
}

func walletID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("walletId"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "wallet id must be numeric")
	}
	return id, nil
}

func walletError(err error) error {
	var nf *ledger.NotFoundError
	switch {
	case errors.Is(err, ledger.ErrDuplicateWallet):
		return fiber.NewError(http.StatusConflict, err.Error())
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
