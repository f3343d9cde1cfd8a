package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/gouwadan/internal/catalog/application"
	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/response"
	"github.com/wyfcoding/gouwadan/pkg/utils"
)

// CatalogHandler HTTP 处理器
// 负责店铺与商品的维护和查询
type CatalogHandler struct {
	app *application.CatalogApplicationService
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(app *application.CatalogApplicationService) *CatalogHandler {
	return &CatalogHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/stores")
	{
		api.POST("", h.CreateStore)
		api.GET("/:store_id", h.GetStore)
		api.POST("/:store_id/products", h.CreateProduct)
		api.GET("/:store_id/products", h.ListProducts)
		api.GET("/:store_id/products/:product_id", h.GetProduct)
		api.PUT("/:store_id/products/:product_id/stock", h.UpdateStock)
	}
}

type createStoreRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	AccentColor string `json:"accent_color"`
}

type createProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Stock       int    `json:"stock"`
	IsDigital   bool   `json:"is_digital"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
}

type updateStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

// CreateStore 创建店铺
func (h *CatalogHandler) CreateStore(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	store, err := h.app.CreateStore(c.Request.Context(), application.CreateStoreCommand{
		Name:        req.Name,
		Slug:        req.Slug,
		AccentColor: req.AccentColor,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, store)
}

// GetStore 获取店铺
func (h *CatalogHandler) GetStore(c *gin.Context) {
	store, err := h.app.GetStore(c.Request.Context(), c.Param("store_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, store)
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", err.Error())
		return
	}

	product, err := h.app.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		StoreID:     c.Param("store_id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		IsDigital:   req.IsDigital,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, product)
}

// ListProducts 列出店铺商品
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid page", "")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid page_size", "")
		return
	}

	products, total, err := h.app.ListProducts(c.Request.Context(), c.Param("store_id"), c.Query("category"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": products, "pagination": utils.NewPagination(page, size, int64(total))})
}

// GetProduct 获取商品
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.app.GetProduct(c.Request.Context(), c.Param("store_id"), c.Param("product_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateStock 更新库存
func (h *CatalogHandler) UpdateStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.app.GetProduct(ctx, c.Param("store_id"), c.Param("product_id")); err != nil {
		fail(c, err)
		return
	}
	product, err := h.app.UpdateStock(ctx, application.UpdateStockCommand{
		ProductID: c.Param("product_id"),
		Stock:     *req.Stock,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, product)
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidStore):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
	default:
		logger.Error(c.Request.Context(), "catalog request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", "")
	}
}
