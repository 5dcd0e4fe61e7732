package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/service/auth"
	"storefront/internal/service/cart"
	"storefront/internal/service/catalog"
	"storefront/internal/service/checkout"
	"storefront/internal/service/contact"
	"storefront/internal/service/customer"
)

type AuthService interface {
	Guest(ctx context.Context) (auth.Principal, error)
	SignUp(ctx context.Context, guestToken string, in customer.RegisterInput) (*auth.SignedIn, error)
	SignIn(ctx context.Context, guestToken, email, password string) (*auth.SignedIn, error)
	Lookup(ctx context.Context, token string) (auth.Principal, error)
	SignOut(ctx context.Context, token string) error
}

type CustomerService interface {
	Get(ctx context.Context, email string) (*domain.Customer, error)
}

type CatalogService interface {
	List(ctx context.Context, q catalog.Query) ([]domain.Product, error)
}

type CartService interface {
	Get(ctx context.Context, owner string) (*domain.Cart, error)
	Add(ctx context.Context, owner string, in cart.AddItemInput) (*domain.Cart, error)
	Remove(ctx context.Context, owner string, index int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, owner string, index, qty int) (*domain.Cart, error)
	SavePending(ctx context.Context, sessionID string, in cart.PendingInput) (*domain.PendingItem, error)
}

type LoyaltyService interface {
	Load(ctx context.Context, email string) (*domain.LoyaltyAccount, error)
	Redeem(ctx context.Context, email string, points int64) (*domain.LoyaltyAccount, error)
	AddReferral(ctx context.Context, referrer, referred string) (bool, error)
	AddReferralByCode(ctx context.Context, code, referred string) (bool, error)
}

type CheckoutService interface {
	Complete(ctx context.Context, email string, in checkout.Input) (*checkout.Result, error)
	Orders(ctx context.Context, email string) ([]domain.Order, error)
}

type ContactService interface {
	Submit(ctx context.Context, in contact.Input) (*contact.Receipt, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	Auth      AuthService
	Customers CustomerService
	Catalog   CatalogService
	Carts     CartService
	Loyalty   LoyaltyService
	Checkout  CheckoutService
	Contact   ContactService
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return errors.New("auth service is required")
	case d.Customers == nil:
		return errors.New("customer service is required")
	case d.Catalog == nil:
		return errors.New("catalog service is required")
	case d.Carts == nil:
		return errors.New("cart service is required")
	case d.Loyalty == nil:
		return errors.New("loyalty service is required")
	case d.Checkout == nil:
		return errors.New("checkout service is required")
	case d.Contact == nil:
		return errors.New("contact service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db Pinger, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), corsMiddleware(corsOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps}
	authed := router.Group("/", sessionMiddleware(deps.Auth))

	authed.POST("/sessions/guest", h.guest)
	authed.POST("/accounts/register", h.register)
	authed.POST("/accounts/login", h.login)
	authed.POST("/accounts/logout", h.logout)
	authed.GET("/me", requireCustomer(), h.me)

	authed.GET("/products", h.listProducts)

	authed.GET("/cart", requireCustomer(), h.getCart)
	authed.POST("/cart/items", h.addCartItem)
	authed.PATCH("/cart/items/:index", requireCustomer(), h.updateCartItem)
	authed.DELETE("/cart/items/:index", requireCustomer(), h.removeCartItem)

	authed.GET("/loyalty", requireCustomer(), h.getLoyalty)
	authed.POST("/loyalty/redeem", requireCustomer(), h.redeem)
	authed.POST("/loyalty/referrals", requireCustomer(), h.addReferral)

	authed.POST("/checkout", requireCustomer(), h.checkout)
	authed.GET("/orders", requireCustomer(), h.orders)

	authed.POST("/contact", h.contact)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
