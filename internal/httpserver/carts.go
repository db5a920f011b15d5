package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	"storefront-api/internal/money"
	cartsvc "storefront-api/internal/service/cart"
)

type CartService interface {
	Create(ctx context.Context, userID string, items []cartsvc.RequestedItem) (*domain.Cart, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Cart, error)
	Get(ctx context.Context, userID, cartID string) (*domain.Cart, error)
	AddItems(ctx context.Context, userID, cartID string, in cartsvc.AddItemsInput) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, cartID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID, cartID string) (*domain.Cart, error)
	Delete(ctx context.Context, userID, cartID string) error
}

type createCartRequest struct {
	CartItems []cartsvc.RequestedItem `json:"cartItems" binding:"required,dive"`
}

type addItemsRequest struct {
	CartItems []cartsvc.RequestedItem `json:"cartItems" binding:"required,dive"`
	Version   *int                    `json:"version" binding:"omitempty,min=1"`
}

// cartView adds the formatted total next to the cent amount.
type cartView struct {
	domain.Cart
	TotalAmount string `json:"totalAmount"`
}

func toCartView(c domain.Cart) cartView {
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return cartView{Cart: c, TotalAmount: money.Format(c.TotalCents)}
}

type cartHandler struct {
	svc CartService
	log *logger.Logger
}

func (h *cartHandler) create(c *gin.Context) {
	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	cart, err := h.svc.Create(c.Request.Context(), currentUserID(c), req.CartItems)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "cart created", toCartView(*cart))
}

func (h *cartHandler) list(c *gin.Context) {
	carts, err := h.svc.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	views := make([]cartView, 0, len(carts))
	for _, cart := range carts {
		views = append(views, toCartView(cart))
	}
	respond(c, http.StatusOK, "", views)
}

func (h *cartHandler) get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "cart")
	if !ok {
		return
	}
	cart, err := h.svc.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", toCartView(*cart))
}

func (h *cartHandler) addItems(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "cart")
	if !ok {
		return
	}
	var req addItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	cart, err := h.svc.AddItems(c.Request.Context(), currentUserID(c), id, cartsvc.AddItemsInput{
		Items:   req.CartItems,
		Version: req.Version,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "cart updated", toCartView(*cart))
}

func (h *cartHandler) removeItem(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "cart")
	if !ok {
		return
	}
	productID, ok := pathID(c, h.log, "productId", "cart item")
	if !ok {
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), currentUserID(c), id, productID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "item removed", toCartView(*cart))
}

func (h *cartHandler) clear(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "cart")
	if !ok {
		return
	}
	cart, err := h.svc.Clear(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "cart cleared", toCartView(*cart))
}

func (h *cartHandler) delete(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "cart")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "cart deleted", nil)
}
