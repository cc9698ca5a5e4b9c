package wallet

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	h := NewHandler(NewService(ledger.NewInMemory()))
	app := fiber.New()
	app.Post("/wallets", h.Create)
	app.Get("/wallets/:walletId/balance", h.Balance)
	app.Get("/wallets/:walletId/historical-balance", h.HistoricalBalance)
	return app
}

func request(t *testing.T, app *fiber.App, method, target, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestWalletHandlerCreateAndDuplicate(t *testing.T) {
	app := testApp(t)

	body := `{"full_name": "Ada", "tax_id": "123", "email": "ada@x.com", "password": "p"}`
	if code := request(t, app, fiber.MethodPost, "/wallets", body); code != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	if code := request(t, app, fiber.MethodPost, "/wallets", body); code != fiber.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", code)
	}
}

func TestWalletHandlerBalanceNotFound(t *testing.T) {
	app := testApp(t)

	if code := request(t, app, fiber.MethodGet, "/wallets/77/balance", ""); code != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := request(t, app, fiber.MethodGet, "/wallets/abc/balance", ""); code != fiber.StatusBadRequest {
		t.Fatalf("non-numeric id: expected 400, got %d", code)
	}
}

func TestWalletHandlerHistoricalBalanceBadTimestamp(t *testing.T) {
	app := testApp(t)

	body := `{"full_name": "Ada", "tax_id": "123", "email": "ada@x.com", "password": "p"}`
	if code := request(t, app, fiber.MethodPost, "/wallets", body); code != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	if code := request(t, app, fiber.MethodGet, "/wallets/1/historical-balance?dateTime=yesterday", ""); code != fiber.StatusBadRequest {
		t.Fatalf("bad dateTime: expected 400, got %d", code)
	}
	if code := request(t, app, fiber.MethodGet, "/wallets/1/historical-balance?dateTime=2024-01-01T00:00:00Z", ""); code != fiber.StatusOK {
		t.Fatalf("valid dateTime: expected 200, got %d", code)
	}
}
