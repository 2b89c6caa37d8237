package httpserver

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
	usersvc "storefront/internal/service/user"
)

type productService interface {
	Page(ctx context.Context, slug string) (*cache.ProductPage, error)
}

type reviewService interface {
	Upsert(ctx context.Context, id domain.Identity, in domain.Review) (domain.Result, error)
	List(ctx context.Context, productID string) ([]domain.Review, error)
	Mine(ctx context.Context, id domain.Identity, productID string) (*domain.Review, error)
}

type cartService interface {
	Get(ctx context.Context, id domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, id domain.Identity, in domain.AddItemInput) domain.Result
	RemoveItem(ctx context.Context, id domain.Identity, productID string) domain.Result
}

type userService interface {
	SignUp(ctx context.Context, id domain.Identity, in usersvc.SignUpInput) (*usersvc.Session, error)
	SignIn(ctx context.Context, id domain.Identity, in usersvc.SignInInput) (*usersvc.Session, error)
	SignOut(ctx context.Context, id domain.Identity, token string) error
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateAddress(ctx context.Context, userID string, addr domain.ShippingAddress) domain.Result
	UpdatePaymentMethod(ctx context.Context, userID, method string) domain.Result
	UpdateProfile(ctx context.Context, userID, name string) domain.Result
	AdminUpdate(ctx context.Context, userID string, in usersvc.AdminUpdateInput) domain.Result
	Delete(ctx context.Context, userID string) domain.Result
}

type orderService interface {
	CreateOrder(ctx context.Context, id domain.Identity) (domain.Result, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListMine(ctx context.Context, id domain.Identity, page int) (*ordersvc.OrderPage, error)
	Delete(ctx context.Context, orderID string) domain.Result
	Summary(ctx context.Context) (*domain.SalesSummary, error)
}

type paymentService interface {
	CreatePaymentOrder(ctx context.Context, orderID string) domain.Result
	ApprovePayment(ctx context.Context, orderID, clientPaymentID string) domain.Result
	MarkPaidCOD(ctx context.Context, orderID string) domain.Result
}

type fulfillmentService interface {
	DeliverOrder(ctx context.Context, orderID string) domain.Result
}

// Deps carries the services the router exposes.
type Deps struct {
	ProductSvc     productService
	ReviewSvc      reviewService
	CartSvc        cartService
	UserSvc        userService
	OrderSvc       orderService
	PaymentSvc     paymentService
	FulfillmentSvc fulfillmentService
	Checks         []Check
	AllowOrigins   []string
	SecureCookies  bool
}

type handlers struct {
	Deps
	logger *log.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) *gin.Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Checks))

	h := &handlers{Deps: deps, logger: logger}
	api := router.Group("/api", identityMiddleware(deps.UserSvc, deps.SecureCookies, logger))

	products := api.Group("/products/:slug")
	products.GET("", h.getProduct)
	products.GET("/reviews", h.listReviews)
	products.GET("/reviews/mine", requireAuth(), h.myReview)
	products.POST("/reviews", requireAuth(), h.upsertReview)

	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addCartItem)
	api.DELETE("/cart/items/:productId", uuidParams("productId"), h.removeCartItem)

	users := api.Group("/users")
	users.POST("/sign-up", h.signUp)
	users.POST("/sign-in", h.signIn)
	users.POST("/sign-out", h.signOut)

	me := api.Group("/me", requireAuth())
	me.GET("", h.me)
	me.PUT("/address", h.updateAddress)
	me.PUT("/payment-method", h.updatePaymentMethod)
	me.PUT("/profile", h.updateProfile)

	orders := api.Group("/orders", requireAuth(), uuidParams("id"))
	orders.GET("", h.listMyOrders)
	orders.POST("", h.createOrder)
	orders.GET("/:id", h.getOrder)
	orders.POST("/:id/paypal", h.createPayPalOrder)
	orders.POST("/:id/paypal/capture", h.capturePayPalOrder)

	admin := api.Group("/admin", requireAdmin(), uuidParams("id"))
	admin.POST("/orders/:id/pay-cod", h.markPaidCOD)
	admin.POST("/orders/:id/deliver", h.deliverOrder)
	admin.DELETE("/orders/:id", h.deleteOrder)
	admin.GET("/summary", h.summary)
	admin.PUT("/users/:id", h.adminUpdateUser)
	admin.DELETE("/users/:id", h.adminDeleteUser)

	return router
}
