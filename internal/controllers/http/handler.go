package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/services"
)

const orderCacheTTL = 10 * time.Second

type Handler struct {
	carts  *services.CartService
	orders *services.OrderService
	rdb    *redis.Client
}

func NewHandler(carts *services.CartService, orders *services.OrderService, rdb *redis.Client) *Handler {
	return &Handler{carts: carts, orders: orders, rdb: rdb}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/cart", h.GetCart)
	r.POST("/cart/items", h.AddToCart)
	r.PUT("/cart/items/:itemId", h.UpdateCartItem)
	r.DELETE("/cart/items/:itemId", h.RemoveCartItem)
	r.DELETE("/cart", h.ClearCart)

	r.POST("/orders", h.Checkout)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:orderNumber", h.GetOrder)
	r.GET("/orders/:orderNumber/history", h.GetOrderHistory)
	r.POST("/orders/:orderNumber/cancel", h.CancelOrder)

	r.PUT("/admin/orders/:orderNumber/status", h.UpdateOrderStatus)
}

// Authentication runs upstream of this service; the gateway forwards the
// authenticated identity in headers.
func userID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return 0, false
	}
	return id, true
}

func adminID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.GetHeader("X-Admin-ID"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing admin identity"})
		return 0, false
	}
	return id, true
}

func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	snap, err := h.carts.Get(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) AddToCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := h.carts.AddItem(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := h.carts.UpdateItemQty(c.Request.Context(), uid, itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	snap, err := h.carts.RemoveItem(c.Request.Context(), uid, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	snap, err := h.carts.Clear(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := domain.CheckoutInput{
		UserID:          uid,
		DeliveryAddress: req.DeliveryAddress,
		DeliverySlot:    req.DeliverySlot,
		PaymentMethod:   req.PaymentMethod,
		OrderNotes:      req.OrderNotes,
		Discount:        decimal.Zero,
	}
	if req.DeliveryDate != "" {
		d, err := time.Parse("2006-01-02", req.DeliveryDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deliveryDate must be YYYY-MM-DD"})
			return
		}
		input.DeliveryDate = &d
	}
	if req.Discount != "" {
		d, err := decimal.NewFromString(req.Discount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount"})
			return
		}
		input.Discount = d
	}

	order, err := h.orders.Checkout(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orders, err := h.orders.ListForUser(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	number := c.Param("orderNumber")
	ctx := c.Request.Context()

	cacheKey := orderCacheKey(number, uid)
	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var order domain.Order
			if json.Unmarshal([]byte(cached), &order) == nil {
				c.JSON(http.StatusOK, order)
				return
			}
		}
	}

	order, err := h.orders.GetByNumber(ctx, number, uid)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.rdb != nil {
		if data, err := json.Marshal(order); err == nil {
			h.rdb.Set(ctx, cacheKey, data, orderCacheTTL)
		}
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) GetOrderHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	history, err := h.orders.History(c.Request.Context(), c.Param("orderNumber"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	number := c.Param("orderNumber")
	// Body is optional; an absent or malformed body means no reason given.
	var req CancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.Cancel(c.Request.Context(), number, uid, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	h.invalidateOrderCache(number, uid)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	aid, ok := adminID(c)
	if !ok {
		return
	}
	number := c.Param("orderNumber")
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), number, status, req.Notes, aid)
	if err != nil {
		writeError(c, err)
		return
	}

	h.invalidateOrderCache(number, order.UserID)
	c.JSON(http.StatusOK, order)
}

func orderCacheKey(number string, userID uint64) string {
	return "order:" + number + ":" + strconv.FormatUint(userID, 10)
}

func (h *Handler) invalidateOrderCache(number string, userID uint64) {
	if h.rdb == nil {
		return
	}
	h.rdb.Del(context.Background(), orderCacheKey(number, userID))
}

// writeError maps domain errors onto HTTP responses; anything unrecognized is
// a 500 with a generic message.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		stockErr      *domain.StockError
		stockErrs     domain.StockErrors
		transitionErr *domain.IllegalTransitionError
		conflictErr   *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &stockErrs):
		c.JSON(http.StatusConflict, gin.H{"error": stockErrs.Error(), "items": stockErrs})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"error": stockErr.Error(), "availableStock": stockErr.AvailableStock})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error(), "currentStatus": transitionErr.From})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.Is(err, domain.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartItemNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
