package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/gouwadan/internal/cart/application"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/response"
)

const (
	// SessionHeader 会话 id 请求头
	SessionHeader = "X-Session-ID"
	// SessionCookie 会话 id cookie
	SessionCookie = "cart_session"
)

// CartHandler HTTP 处理器
// 负责处理与购物车相关的 HTTP 请求
type CartHandler struct {
	app *application.CartApplicationService
}

// NewCartHandler 创建 HTTP 处理器实例
func NewCartHandler(app *application.CartApplicationService) *CartHandler {
	return &CartHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/cart")
	api.Use(requireSession())
	{
		api.GET("", h.GetCart)
		api.DELETE("", h.ClearCart)
		api.DELETE("/session", h.DiscardCart)
		api.GET("/count", h.ItemCount)
		api.GET("/total", h.Total)
		api.GET("/stores", h.StoreGroups)
		api.POST("/validate", h.ValidateStock)
		api.POST("/items", h.AddItem)
		api.GET("/items/:store_id/:product_id", h.LineStatus)
		api.PUT("/items/:store_id/:product_id", h.UpdateQuantity)
		api.DELETE("/items/:store_id/:product_id", h.RemoveItem)
	}
}

type addItemRequest struct {
	StoreID   string `json:"store_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type stockRejection struct {
	Reason    string                   `json:"reason"`
	ProductID string                   `json:"product_id"`
	StoreID   string                   `json:"store_id"`
	Requested int                      `json:"requested"`
	Available int                      `json:"available"`
	Cart      *application.CartSummary `json:"cart,omitempty"`
}

const sessionKey = "cart_session_id"

func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				id = cookie
			}
		}
		if id == "" {
			response.ErrorWithStatus(c, http.StatusBadRequest, "session id is required", "")
			return
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func session(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// GetCart 获取购物车概览
func (h *CartHandler) GetCart(c *gin.Context) {
	summary, err := h.app.Summary(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, summary)
}

// ItemCount 获取商品件数
func (h *CartHandler) ItemCount(c *gin.Context) {
	count, err := h.app.ItemCount(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, gin.H{"item_count": count})
}

// Total 获取总金额，store_id 为空时统计全部店铺
func (h *CartHandler) Total(c *gin.Context) {
	storeID := c.Query("store_id")
	total, err := h.app.Total(c.Request.Context(), session(c), storeID)
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, gin.H{"store_id": storeID, "total": total})
}

// StoreGroups 按店铺分组
func (h *CartHandler) StoreGroups(c *gin.Context) {
	groups, err := h.app.StoreGroups(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, groups)
}

// LineStatus 查询商品是否在购物车中及其数量
func (h *CartHandler) LineStatus(c *gin.Context) {
	status, err := h.app.LineStatus(c.Request.Context(), session(c), c.Param("store_id"), c.Param("product_id"))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, status)
}

// AddItem 添加商品
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	summary, err := h.app.AddProduct(c.Request.Context(), session(c), req.StoreID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(c, summary, err)
		return
	}
	response.Success(c, summary)
}

// UpdateQuantity 修改数量，数量小于等于 0 时移除该行
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	summary, err := h.app.UpdateQuantity(c.Request.Context(), session(c), c.Param("store_id"), c.Param("product_id"), *req.Quantity)
	if err != nil {
		h.fail(c, summary, err)
		return
	}
	response.Success(c, summary)
}

// RemoveItem 移除商品
func (h *CartHandler) RemoveItem(c *gin.Context) {
	summary, err := h.app.RemoveItem(c.Request.Context(), session(c), c.Param("store_id"), c.Param("product_id"))
	if err != nil {
		h.fail(c, summary, err)
		return
	}
	response.Success(c, summary)
}

// ClearCart 清空购物车
func (h *CartHandler) ClearCart(c *gin.Context) {
	summary, err := h.app.ClearCart(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, summary, err)
		return
	}
	response.Success(c, summary)
}

// DiscardCart 会话结束，删除购物车槽位
func (h *CartHandler) DiscardCart(c *gin.Context) {
	if err := h.app.DiscardCart(c.Request.Context(), session(c)); err != nil {
		h.fail(c, nil, err)
		return
	}
	response.Success(c, gin.H{"discarded": true})
}

// ValidateStock 结算前复核库存
func (h *CartHandler) ValidateStock(c *gin.Context) {
	issues, err := h.app.ValidateStock(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	if issues == nil {
		issues = []application.StockIssue{}
	}
	response.Success(c, gin.H{"ok": len(issues) == 0, "issues": issues})
}

func (h *CartHandler) fail(c *gin.Context, summary *application.CartSummary, err error) {
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &stockErr):
		response.ErrorWithData(c, http.StatusConflict, "insufficient_stock", stockRejection{
			Reason:    "insufficient_stock",
			ProductID: stockErr.ProductID,
			StoreID:   stockErr.StoreID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
			Cart:      summary,
		})
	case errors.Is(err, application.ErrInvalidInput):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, application.ErrProductNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "product not found", err.Error())
	default:
		logger.Error(c.Request.Context(), "cart request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", "")
	}
}
