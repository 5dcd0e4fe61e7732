package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/service/auth"
	"storefront/internal/service/cart"
	"storefront/internal/service/catalog"
	"storefront/internal/service/checkout"
	"storefront/internal/service/contact"
	"storefront/internal/service/customer"
)

type handlers struct {
	deps Deps
}

type sessionResponse struct {
	Token       string              `json:"token"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	AnonymousID string              `json:"anonymousId,omitempty"`
	Customer    *domain.Customer    `json:"customer,omitempty"`
	Replayed    *domain.PendingItem `json:"replayedItem,omitempty"`
}

func (h *handlers) guest(c *gin.Context) {
	p, err := h.deps.Auth.Guest(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: p.Token, ExpiresAt: p.ExpiresAt, AnonymousID: p.AnonymousID})
}

func (h *handlers) register(c *gin.Context) {
	var in customer.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	out, err := h.deps.Auth.SignUp(c.Request.Context(), guestToken(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signedInResponse(out))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	out, err := h.deps.Auth.SignIn(c.Request.Context(), guestToken(c), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signedInResponse(out))
}

func (h *handlers) logout(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrNotAuthenticated)
		return
	}
	if err := h.deps.Auth.SignOut(c.Request.Context(), p.Token); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	cust, err := h.deps.Customers.Get(c.Request.Context(), customerEmail(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": cust})
}

func (h *handlers) listProducts(c *gin.Context) {
	q := catalog.Query{
		Search:    c.Query("search"),
		Types:     splitParam(c.QueryArray("type")),
		Materials: splitParam(c.QueryArray("material")),
		Sort:      c.Query("sort"),
	}
	if raw := strings.TrimSpace(c.Query("maxPrice")); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(c, domain.Invalid("maxPrice", "must be a number"))
			return
		}
		q.MaxPrice = &limit
	}
	products, err := h.deps.Catalog.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(products), "results": products})
}

type cartResponse struct {
	Lines     []domain.CartLine `json:"lines"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func toCartResponse(ct *domain.Cart) cartResponse {
	lines := ct.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return cartResponse{Lines: lines, Total: ct.Total(), ItemCount: ct.ItemCount()}
}

func (h *handlers) getCart(c *gin.Context) {
	out, err := h.deps.Carts.Get(c.Request.Context(), customerEmail(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(out))
}

// addCartItem adds to a customer's cart. A guest session keeps the item pending until sign in.
func (h *handlers) addCartItem(c *gin.Context) {
	var in cart.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	p, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrNotAuthenticated)
		return
	}
	if p.Guest() {
		item, err := h.deps.Carts.SavePending(c.Request.Context(), p.AnonymousID, cart.PendingInput{
			ProductID: in.ProductID,
			Name:      in.Name,
			Price:     in.Price,
			Size:      in.Size,
			Color:     in.Color,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending": item})
		return
	}
	out, err := h.deps.Carts.Add(c.Request.Context(), p.Email, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(out))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	idx, ok := lineIndex(c)
	if !ok {
		return
	}
	var in quantityRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if in.Quantity == nil {
		writeError(c, domain.Invalid("quantity", "required"))
		return
	}
	out, err := h.deps.Carts.UpdateQuantity(c.Request.Context(), customerEmail(c), idx, *in.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(out))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	idx, ok := lineIndex(c)
	if !ok {
		return
	}
	out, err := h.deps.Carts.Remove(c.Request.Context(), customerEmail(c), idx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(out))
}

type loyaltyResponse struct {
	*domain.LoyaltyAccount
	Multiplier   decimal.Decimal `json:"multiplier"`
	NextLevel    domain.Level    `json:"nextLevel,omitempty"`
	PointsToNext int64           `json:"pointsToNext,omitempty"`
}

func toLoyaltyResponse(a *domain.LoyaltyAccount) loyaltyResponse {
	out := loyaltyResponse{LoyaltyAccount: a, Multiplier: a.Level.Multiplier()}
	if next, missing, ok := a.Progress(); ok {
		out.NextLevel, out.PointsToNext = next, missing
	}
	return out
}

func (h *handlers) getLoyalty(c *gin.Context) {
	acct, err := h.deps.Loyalty.Load(c.Request.Context(), customerEmail(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoyaltyResponse(acct))
}

type redeemRequest struct {
	Points int64 `json:"points"`
}

func (h *handlers) redeem(c *gin.Context) {
	var in redeemRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	acct, err := h.deps.Loyalty.Redeem(c.Request.Context(), customerEmail(c), in.Points)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoyaltyResponse(acct))
}

// referralRequest carries either the email the caller referred or the code of whoever referred the caller.
type referralRequest struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referralCode"`
}

func (h *handlers) addReferral(c *gin.Context) {
	var in referralRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()
	email := customerEmail(c)

	var (
		added bool
		err   error
	)
	if strings.TrimSpace(in.ReferralCode) != "" {
		added, err = h.deps.Loyalty.AddReferralByCode(ctx, in.ReferralCode, email)
	} else {
		added, err = h.deps.Loyalty.AddReferral(ctx, email, in.Email)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"added": added})
}

func (h *handlers) checkout(c *gin.Context) {
	var in checkout.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	res, err := h.deps.Checkout.Complete(c.Request.Context(), customerEmail(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) orders(c *gin.Context) {
	list, err := h.deps.Checkout.Orders(c.Request.Context(), customerEmail(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *handlers) contact(c *gin.Context) {
	var in contact.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	receipt, err := h.deps.Contact.Submit(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusAccepted
	if receipt.Delivered {
		status = http.StatusCreated
	}
	c.JSON(status, receipt)
}

func signedInResponse(out *auth.SignedIn) sessionResponse {
	return sessionResponse{Token: out.Token, ExpiresAt: out.ExpiresAt, Customer: out.Customer, Replayed: out.Replayed}
}

// guestToken returns the caller's token when it belongs to a guest session.
func guestToken(c *gin.Context) string {
	if p, ok := principalFrom(c); ok && p.Guest() {
		return p.Token
	}
	return ""
}

func lineIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, domain.Invalid("index", "must be an integer"))
		return 0, false
	}
	return idx, true
}

// splitParam accepts both repeated parameters and comma separated values.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
