package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/cache"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/payment"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/service"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, payment.NewSimulatedMpesa(0), cache.NoopReportCache{}, "main-store")
	auth := NewAuthManager("test-secret-key", time.Hour, "123456", svc)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
	if body["role"] != "admin" {
		t.Fatalf("expected role admin, got %v", body["role"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "attendant", "attendant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?store_id=main-store", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products in response")
	}
}

func TestHandleCheckout_CashEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "attendant", "attendant123")
	csrf := fetchCSRFToken(t, api)

	products := listProducts(t, api, token)
	item := products[0]

	payload, _ := json.Marshal(domain.CheckoutRequest{
		StoreID:           "main-store",
		AttendantID:       "attendant",
		PaymentMethod:     domain.PayCash,
		CashReceivedCents: item.RetailPriceCents + 5000,
		Lines:             []domain.CartLine{{ProductID: item.ID, Qty: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if resp.Transaction.TotalCents != item.RetailPriceCents {
		t.Fatalf("expected total %d, got %d", item.RetailPriceCents, resp.Transaction.TotalCents)
	}
	if resp.Transaction.ChangeCents != 5000 {
		t.Fatalf("expected change 5000, got %d", resp.Transaction.ChangeCents)
	}
}

func TestHandleVoid_RequiresManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)
	txID := checkoutOne(t, api, token, csrf)

	payload, _ := json.Marshal(map[string]string{
		"store_id":    "main-store",
		"reason":      "keyed wrong item",
		"manager_pin": "000000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+txID+"/void", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong pin, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleVoid_WithManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)
	txID := checkoutOne(t, api, token, csrf)

	payload, _ := json.Marshal(map[string]string{
		"store_id":    "main-store",
		"reason":      "keyed wrong item",
		"manager_pin": "123456",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+txID+"/void", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode void response: %v", err)
	}
	if body.Transaction.Status != domain.TxStatusVoided {
		t.Fatalf("expected voided status, got %s", body.Transaction.Status)
	}
}

func TestHandleSalesReport_AttendantForbidden(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "attendant", "attendant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/sales?store_id=main-store&range=today", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for attendant report access, got %d", rec.Code)
	}
}

func TestHandleSalesReport_CSVDownload(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)
	checkoutOne(t, api, token, csrf)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/sales?store_id=main-store&range=today&format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Fatalf("expected csv content type, got %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="sales_report_today.csv"` {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected csv body")
	}
}

func TestHandleAttendants_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	attendantToken := loginAs(t, api, "attendant", "attendant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/attendants", nil)
	req.Header.Set("Authorization", "Bearer "+attendantToken)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for attendant access, got %d", rec.Code)
	}
}

func TestHandleAttendants_CreateAndLogin(t *testing.T) {
	api := newTestAPI(t)
	adminToken := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.AttendantCreateRequest{
		Username: "wanjiku",
		Password: "duka-pass-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/attendants", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	loginAs(t, api, "wanjiku", "duka-pass-1")
}

func TestHandleReceipt_NotFound(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "attendant", "attendant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts/tx-missing?store_id=main-store", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

// checkoutOne performs a single-item cash checkout and returns the transaction ID.
func checkoutOne(t *testing.T, api *API, token, csrf string) string {
	t.Helper()

	products := listProducts(t, api, token)
	item := products[0]

	payload, _ := json.Marshal(domain.CheckoutRequest{
		StoreID:           "main-store",
		AttendantID:       "attendant",
		IdempotencyKey:    fmt.Sprintf("test-%d", time.Now().UnixNano()),
		PaymentMethod:     domain.PayCash,
		CashReceivedCents: item.RetailPriceCents,
		Lines:             []domain.CartLine{{ProductID: item.ID, Qty: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	return resp.Transaction.ID
}

func listProducts(t *testing.T, api *API, token string) []domain.Product {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?store_id=main-store", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list products failed: %d %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
	return body.Products
}

func loginAs(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = fmt.Sprintf("192.0.2.%d:40000", len(username))
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, rec.Code, rec.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}
