package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/gouwadan/internal/cart/application"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	"github.com/wyfcoding/gouwadan/internal/cart/infrastructure/messaging"
	"github.com/wyfcoding/gouwadan/internal/cart/infrastructure/persistence/memory"
)

type stubProvider struct {
	products map[string]domain.ProductSnapshot
}

func (p *stubProvider) Snapshot(_ context.Context, storeID, productID string) (domain.ProductSnapshot, domain.StoreSnapshot, error) {
	ps, ok := p.products[storeID+"/"+productID]
	if !ok {
		return domain.ProductSnapshot{}, domain.StoreSnapshot{}, application.ErrProductNotFound
	}
	return ps, domain.StoreSnapshot{ID: storeID, Name: "Toko " + storeID, Slug: storeID}, nil
}

type brokenRepo struct{}

func (brokenRepo) Load(context.Context, string) (*domain.StoredCart, error) {
	return nil, errors.New("connection refused")
}

func (brokenRepo) Save(context.Context, string, []byte, int64) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenRepo) Delete(context.Context, string) error { return nil }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(repo domain.CartRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	provider := &stubProvider{products: map[string]domain.ProductSnapshot{
		"s1/kopi":  {ID: "kopi", Name: "Kopi", Price: decimal.NewFromInt(15000), Stock: 3},
		"s1/ebook": {ID: "ebook", Name: "E-book", Price: decimal.NewFromInt(50000), IsDigital: true},
		"s2/teh":   {ID: "teh", Name: "Teh", Price: decimal.NewFromInt(8000), Stock: 10},
	}}
	app := application.NewCartApplicationService(repo, messaging.NoopPublisher{}, provider)
	r := gin.New()
	NewCartHandler(app).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, "sess-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCartHandler_AddAndQuery(t *testing.T) {
	r := newRouter(memory.NewRepository())

	w, _ := do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s2", "product_id": "teh"})
	require.Equal(t, http.StatusOK, w.Code)

	_, env := do(t, r, http.MethodGet, "/api/v1/cart/count", nil)
	assert.JSONEq(t, `{"item_count":3}`, string(env.Data))

	_, env = do(t, r, http.MethodGet, "/api/v1/cart/total?store_id=s1", nil)
	var total struct {
		Total decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &total))
	assert.True(t, total.Total.Equal(decimal.NewFromInt(30000)))

	_, env = do(t, r, http.MethodGet, "/api/v1/cart/stores", nil)
	var groups []domain.StoreGroup
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "s1", groups[0].StoreID)

	_, env = do(t, r, http.MethodGet, "/api/v1/cart/items/s1/kopi", nil)
	var status application.LineStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.InCart)
	assert.Equal(t, 2, status.Quantity)

	_, env = do(t, r, http.MethodGet, "/api/v1/cart", nil)
	var summary application.CartSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Len(t, summary.Lines, 2)
	assert.Equal(t, "sess-1", summary.SessionID)
}

func TestCartHandler_StockRejection(t *testing.T) {
	r := newRouter(memory.NewRepository())

	w, env := do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi", "quantity": 5})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_stock", env.Message)

	var data stockRejection
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "insufficient_stock", data.Reason)
	assert.Equal(t, 5, data.Requested)
	assert.Equal(t, 3, data.Available)

	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi", "quantity": 1})
	w, _ = do(t, r, http.MethodPut, "/api/v1/cart/items/s1/kopi", gin.H{"quantity": 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	_, env = do(t, r, http.MethodGet, "/api/v1/cart/count", nil)
	assert.JSONEq(t, `{"item_count":1}`, string(env.Data))
}

func TestCartHandler_UpdateRemoveClear(t *testing.T) {
	r := newRouter(memory.NewRepository())
	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi"})
	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "ebook"})

	w, _ := do(t, r, http.MethodPut, "/api/v1/cart/items/s1/ebook", gin.H{"quantity": 99})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPut, "/api/v1/cart/items/s1/kopi", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	_, env := do(t, r, http.MethodGet, "/api/v1/cart/items/s1/kopi", nil)
	assert.Contains(t, string(env.Data), `"in_cart":false`)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/cart/items/s1/ebook", nil)
	require.Equal(t, http.StatusOK, w.Code)

	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s2", "product_id": "teh"})
	w, _ = do(t, r, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = do(t, r, http.MethodGet, "/api/v1/cart/count", nil)
	assert.JSONEq(t, `{"item_count":0}`, string(env.Data))
}

func TestCartHandler_DiscardSession(t *testing.T) {
	r := newRouter(memory.NewRepository())
	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi", "quantity": 2})

	w, env := do(t, r, http.MethodDelete, "/api/v1/cart/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"discarded":true}`, string(env.Data))

	_, env = do(t, r, http.MethodGet, "/api/v1/cart/count", nil)
	assert.JSONEq(t, `{"item_count":0}`, string(env.Data))
}

func TestCartHandler_Errors(t *testing.T) {
	r := newRouter(memory.NewRepository())

	w, _ := do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, "/api/v1/cart/items/s1/kopi", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	broken := newRouter(brokenRepo{})
	w, _ = do(t, broken, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCartHandler_SessionCookie(t *testing.T) {
	r := newRouter(memory.NewRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/count", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-sess"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartHandler_ValidateStock(t *testing.T) {
	r := newRouter(memory.NewRepository())
	do(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"store_id": "s1", "product_id": "kopi"})

	w, env := do(t, r, http.MethodPost, "/api/v1/cart/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"issues":[]}`, string(env.Data))
}
