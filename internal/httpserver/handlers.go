package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

func (h *handlers) getProduct(c *gin.Context) {
	page, err := h.ProductSvc.Page(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) productID(c *gin.Context) (string, bool) {
	page, err := h.ProductSvc.Page(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return "", false
	}
	return page.Product.ID, true
}

func (h *handlers) listReviews(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	reviews, err := h.ReviewSvc.List(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *handlers) myReview(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	review, err := h.ReviewSvc.Mine(c.Request.Context(), identity(c), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

type reviewRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
}

func (h *handlers) upsertReview(c *gin.Context) {
	var req reviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	res, err := h.ReviewSvc.Upsert(c.Request.Context(), identity(c), domain.Review{
		ProductID:   productID,
		Title:       req.Title,
		Description: req.Description,
		Rating:      req.Rating,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeResult(c, http.StatusOK, res)
}

func (h *handlers) getCart(c *gin.Context) {
	id := identity(c)
	cart, err := h.CartSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if cart == nil {
		cart = &domain.Cart{SessionCartID: id.SessionCartID, Items: []domain.LineItem{}, Prices: domain.ZeroPrices}
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var item domain.AddItemInput
	if !h.bindJSON(c, &item) {
		return
	}
	h.writeResult(c, http.StatusOK, h.CartSvc.AddItem(c.Request.Context(), identity(c), item))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	h.writeResult(c, http.StatusOK, h.CartSvc.RemoveItem(c.Request.Context(), identity(c), c.Param("productId")))
}

func (h *handlers) signUp(c *gin.Context) {
	var in usersvc.SignUpInput
	if !h.bindJSON(c, &in) {
		return
	}
	session, err := h.UserSvc.SignUp(c.Request.Context(), identity(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *handlers) signIn(c *gin.Context) {
	var in usersvc.SignInInput
	if !h.bindJSON(c, &in) {
		return
	}
	session, err := h.UserSvc.SignIn(c.Request.Context(), identity(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *handlers) signOut(c *gin.Context) {
	token := c.GetString(tokenCtxKey)
	if err := h.UserSvc.SignOut(c.Request.Context(), identity(c), token); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.OK("signed out"))
}

func (h *handlers) me(c *gin.Context) {
	u, err := h.UserSvc.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) updateAddress(c *gin.Context) {
	var addr domain.ShippingAddress
	if !h.bindJSON(c, &addr) {
		return
	}
	h.writeResult(c, http.StatusOK, h.UserSvc.UpdateAddress(c.Request.Context(), currentUser(c).ID, addr))
}

type paymentMethodRequest struct {
	Type string `json:"type"`
}

func (h *handlers) updatePaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.writeResult(c, http.StatusOK, h.UserSvc.UpdatePaymentMethod(c.Request.Context(), currentUser(c).ID, req.Type))
}

type profileRequest struct {
	Name string `json:"name"`
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req profileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.writeResult(c, http.StatusOK, h.UserSvc.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.Name))
}

func (h *handlers) createOrder(c *gin.Context) {
	res, err := h.OrderSvc.CreateOrder(c.Request.Context(), identity(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !res.Success && res.RedirectTo != "" {
		// checkout is incomplete; the client follows RedirectTo
		c.JSON(http.StatusConflict, res)
		return
	}
	h.writeResult(c, http.StatusCreated, res)
}

func (h *handlers) listMyOrders(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("page must be a number"))
		return
	}
	orders, err := h.OrderSvc.ListMine(c.Request.Context(), identity(c), page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ownedOrder loads the order when the caller owns it or is an admin. Other
// callers get a 404.
func (h *handlers) ownedOrder(c *gin.Context) (*domain.Order, bool) {
	order, err := h.OrderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	u := currentUser(c)
	if order.UserID != u.ID && !u.IsAdmin() {
		c.JSON(http.StatusNotFound, errorBody(domain.ErrNotFound.Error()))
		return nil, false
	}
	return order, true
}

func (h *handlers) getOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) createPayPalOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	h.writeResult(c, http.StatusOK, h.PaymentSvc.CreatePaymentOrder(c.Request.Context(), order.ID))
}

type captureRequest struct {
	OrderID string `json:"orderID" binding:"required"`
}

func (h *handlers) capturePayPalOrder(c *gin.Context) {
	var req captureRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	h.writeResult(c, http.StatusOK, h.PaymentSvc.ApprovePayment(c.Request.Context(), order.ID, req.OrderID))
}

func (h *handlers) markPaidCOD(c *gin.Context) {
	h.writeResult(c, http.StatusOK, h.PaymentSvc.MarkPaidCOD(c.Request.Context(), c.Param("id")))
}

func (h *handlers) deliverOrder(c *gin.Context) {
	h.writeResult(c, http.StatusOK, h.FulfillmentSvc.DeliverOrder(c.Request.Context(), c.Param("id")))
}

func (h *handlers) deleteOrder(c *gin.Context) {
	h.writeResult(c, http.StatusOK, h.OrderSvc.Delete(c.Request.Context(), c.Param("id")))
}

func (h *handlers) summary(c *gin.Context) {
	summary, err := h.OrderSvc.Summary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) adminUpdateUser(c *gin.Context) {
	var in usersvc.AdminUpdateInput
	if !h.bindJSON(c, &in) {
		return
	}
	h.writeResult(c, http.StatusOK, h.UserSvc.AdminUpdate(c.Request.Context(), c.Param("id"), in))
}

func (h *handlers) adminDeleteUser(c *gin.Context) {
	h.writeResult(c, http.StatusOK, h.UserSvc.Delete(c.Request.Context(), c.Param("id")))
}
