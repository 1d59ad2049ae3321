package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/config"
	"github.com/hansal/butchershop/internal/logging"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/pdf"
	"github.com/hansal/butchershop/internal/service/admin"
	"github.com/hansal/butchershop/internal/service/inventory"
	"github.com/hansal/butchershop/internal/service/invoices"
	"github.com/hansal/butchershop/internal/service/orders"
	"github.com/hansal/butchershop/internal/service/slaughters"
)

type testEnv struct {
	E  *echo.Echo
	DB *gorm.DB
	P  *ProductHandler
	O  *OrderHandler
	I  *InvoiceHandler
	M  *MeatCutHandler
	S  *SlaughterHandler
	A  *AdminHandler
	L  *LogHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &testEnv{
		E:  echo.New(),
		DB: db,
		P:  &ProductHandler{DB: db},
		O:  &OrderHandler{Orders: &orders.Service{DB: db}},
		I:  &InvoiceHandler{Invoices: &invoices.Service{DB: db, Renderer: pdf.NewRenderer()}},
		M:  &MeatCutHandler{Inventory: &inventory.Service{DB: db}},
		S:  &SlaughterHandler{Slaughters: &slaughters.Service{DB: db}},
		A:  &AdminHandler{Admin: &admin.Service{DB: db}},
		L:  &LogHandler{Buffer: logging.NewBuffer(100)},
	}
}

func (env *testEnv) doJSONRequest(method, target string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedCut(t *testing.T) *models.MeatCut {
	product := models.Product{Name: "Filet", Price: decimal.RequireFromString("36.00")}
	require.NoError(t, env.DB.Create(&product).Error)

	slaughter := models.Slaughter{CowTag: "AT-001", SlaughterDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, env.DB.Create(&slaughter).Error)

	cut := models.MeatCut{
		SlaughterID:     slaughter.ID,
		ProductID:       product.ID,
		TotalWeight:     decimal.RequireFromString("10.00"),
		AvailableWeight: decimal.RequireFromString("10.00"),
		PricePerKg:      decimal.RequireFromString("36.00"),
	}
	require.NoError(t, env.DB.Create(&cut).Error)
	return &cut
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/products", map[string]any{
		"name":  "Bio-Speck",
		"price": "24.00",
	})
	require.NoError(t, env.P.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bio-Speck", resp.Name)
	require.NotZero(t, resp.ID)
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/products", map[string]any{
		"price": "24.00",
	})
	require.NoError(t, env.P.CreateProduct(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/products/7", nil)
	c.SetParamNames("id")
	c.SetParamValues("7")
	require.NoError(t, env.P.GetProduct(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteReferencedProductConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.P.DeleteProduct(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	cut := env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{
		"customerName": "Maria Huber",
		"items": []map[string]any{
			{"meatCutId": cut.ID, "weight": "2.50"},
		},
	})
	require.NoError(t, env.O.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, models.OrderStatusPending, resp.Status)
	require.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("90.00")))
}

func TestCreateOrderInsufficientStockEndpoint(t *testing.T) {
	env := newTestEnv(t)
	cut := env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{
		"customerName": "Maria Huber",
		"items": []map[string]any{
			{"meatCutId": cut.ID, "weight": "11.00"},
		},
	})
	require.NoError(t, env.O.CreateOrder(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateOrderStatusRejectsJump(t *testing.T) {
	env := newTestEnv(t)
	env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{
		"customerName": "Maria Huber",
	})
	require.NoError(t, env.O.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	rec, c = env.doJSONRequest(http.MethodPatch, "/api/v1/orders/1/status", map[string]any{
		"status": "COMPLETED",
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.O.UpdateOrderStatus(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAllocateAndReleaseEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/meat-cuts/1/allocate", map[string]any{
		"weight": "4.00",
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.M.AllocateWeight(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.MeatCut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.AvailableWeight.Equal(decimal.RequireFromString("6.00")))

	// Releasing more than was drawn is a ledger inconsistency.
	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/meat-cuts/1/release", map[string]any{
		"weight": "5.00",
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.M.ReleaseWeight(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResetDatabaseResponseContract(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/reset-database", nil)
	require.NoError(t, env.A.ResetDatabase(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success        bool   `json:"success"`
		Message        string `json:"message"`
		ProductsLoaded int    `json:"productsLoaded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Message)
	require.Equal(t, len(admin.DefaultProducts()), resp.ProductsLoaded)
}

func TestResetDatabaseFailureResponseContract(t *testing.T) {
	env := newTestEnv(t)
	env.A.Admin.Defaults = []models.Product{
		{Name: "Doppelt", Price: decimal.RequireFromString("1.00")},
		{Name: "Doppelt", Price: decimal.RequireFromString("2.00")},
	}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/reset-database", nil)
	require.NoError(t, env.A.ResetDatabase(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Message)
}

func TestSlaughterDateRangeParams(t *testing.T) {
	env := newTestEnv(t)
	env.seedCut(t)

	rec, c := env.doJSONRequest(http.MethodGet,
		"/api/v1/slaughters/date-range?startDate=2026-01-01&endDate=2026-12-31", nil)
	require.NoError(t, env.S.GetSlaughtersByDateRange(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []models.Slaughter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	require.Equal(t, "AT-001", recs[0].CowTag)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/slaughters/date-range?startDate=2026-01-01", nil)
	require.NoError(t, env.S.GetSlaughtersByDateRange(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	env.L.Buffer.Append(logging.Entry{Timestamp: now.Add(-time.Hour), Level: "INFO", Message: "booted"})
	env.L.Buffer.Append(logging.Entry{Timestamp: now, Level: "ERROR", Message: "kafka down"})

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/logs", nil)
	require.NoError(t, env.L.GetLogs(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []logging.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "kafka down", entries[0].Message)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/logs/level/error", nil)
	c.SetParamNames("level")
	c.SetParamValues("error")
	require.NoError(t, env.L.GetLogsByLevel(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	rec, c = env.doJSONRequest(http.MethodGet,
		"/api/v1/logs/since?since="+now.Add(-time.Minute).Format(time.RFC3339), nil)
	require.NoError(t, env.L.GetLogsSince(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/logs/count", nil)
	require.NoError(t, env.L.GetLogCount(c))
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	require.Equal(t, 2, count.Count)

	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/logs", nil)
	require.NoError(t, env.L.ClearLogs(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, env.L.Buffer.Len())
}

func TestInvoiceLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	order := models.Order{
		CustomerName: "Maria Huber",
		Status:       models.OrderStatusPending,
		TotalAmount:  decimal.RequireFromString("100.00"),
		OrderDate:    time.Now(),
	}
	require.NoError(t, env.DB.Create(&order).Error)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/invoices", map[string]any{
		"orderId": order.ID,
		"taxRate": "0.19",
	})
	require.NoError(t, env.I.CreateInvoice(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.True(t, inv.GrandTotal.Equal(decimal.RequireFromString("119.00")))

	// A second invoice for the same order is refused.
	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/invoices", map[string]any{
		"orderId": order.ID,
	})
	require.NoError(t, env.I.CreateInvoice(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/invoices/1/pdf", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.I.GetInvoicePDF(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
