package transfer

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
)

func testApp(t *testing.T) (*fiber.App, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory()
	app := fiber.New()
	app.Post("/transfer", NewHandler(NewService(store, nil)).Transfer)
	return app, store
}

func postTransfer(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/transfer", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestTransferHandlerStatusMapping(t *testing.T) {
	app, store := testApp(t)
	ctx := context.Background()

	sender, err := store.CreateWallet(ctx, ledger.NewWallet{FullName: "S", TaxID: "1", Email: "s@x.com"})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	receiver, err := store.CreateWallet(ctx, ledger.NewWallet{FullName: "R", TaxID: "2", Email: "r@x.com"})
	if err != nil {
		t.Fatalf("create receiver: %v", err)
	}
	if _, err := store.Credit(ctx, sender.ID, dec(t, "10.00"), "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := func(value string, payer, payee int64) string {
		return fmt.Sprintf(`{"value": %q, "payer": %d, "payee": %d}`, value, payer, payee)
	}

	if code := postTransfer(t, app, body("5.00", sender.ID, receiver.ID)); code != fiber.StatusCreated {
		t.Fatalf("success: expected 201, got %d", code)
	}
	if code := postTransfer(t, app, body("50.00", sender.ID, receiver.ID)); code != fiber.StatusUnprocessableEntity {
		t.Fatalf("insufficient: expected 422, got %d", code)
	}
	if code := postTransfer(t, app, body("1.00", 99, receiver.ID)); code != fiber.StatusNotFound {
		t.Fatalf("missing sender: expected 404, got %d", code)
	}
	if code := postTransfer(t, app, body("-1.00", sender.ID, receiver.ID)); code != fiber.StatusBadRequest {
		t.Fatalf("invalid value: expected 400, got %d", code)
	}
}
