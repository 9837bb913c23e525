package checkout

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/wecr8/damp-backend/internal/cart"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
	stripeclient "github.com/wecr8/damp-backend/pkg/stripe"
)

const (
	checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"
	salesStatsSessionLimit     = 100
	maxLineItems               = 20
)

// ErrCheckoutSession is returned whenever the payment provider cannot produce a usable session.
var ErrCheckoutSession = pkgerrors.New(pkgerrors.CodeDependency, "checkout session could not be created")

type cartLoader interface {
	Get(ctx context.Context, cartID string) (*cart.Cart, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Sessions    stripeclient.CheckoutSessions
	Carts       cartLoader
	Catalog     *catalog.Catalog
	Config      config.CheckoutConfig
	Environment string
	Events      *events.Emitter
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service proxies hosted checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	CreateSessionForCart(ctx context.Context, cartID string, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error)
	SalesStats(ctx context.Context) (*SalesStats, error)
}

type service struct {
	sessions    stripeclient.CheckoutSessions
	carts       cartLoader
	catalog     *catalog.Catalog
	cfg         config.CheckoutConfig
	siteURL     *url.URL
	environment string
	events      *events.Emitter
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout sessions api is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	site, err := url.Parse(strings.TrimRight(params.Config.SiteURL, "/"))
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout site url must be absolute")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessions:    params.Sessions,
		carts:       params.Carts,
		catalog:     params.Catalog,
		cfg:         params.Config,
		siteURL:     site,
		environment: params.Environment,
		events:      params.Events,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// CreateSessionForCart checks out a stored cart. The cart is left intact; the
// payment webhook clears it once the session completes.
func (s *service) CreateSessionForCart(ctx context.Context, cartID string, req SessionRequest) (*Session, error) {
	if s.carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotConfigured, "cart storage is not configured")
	}
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, cart.ErrCartEmpty
	}
	req.CartID = c.ID
	req.Items = make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		req.Items = append(req.Items, LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return s.CreateSession(ctx, req)
}

func (s *service) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(req.Items) == 0 {
		return nil, cart.ErrCartEmpty
	}
	if len(req.Items) > maxLineItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many line items")
	}

	successURL, err := s.resolveURL(req.SuccessURL, s.cfg.SuccessPath+"?session_id="+checkoutSessionPlaceholder)
	if err != nil {
		return nil, err
	}
	cancelURL, err := s.resolveURL(req.CancelURL, s.cfg.CancelPath)
	if err != nil {
		return nil, err
	}

	currency := s.currency()
	var (
		lineItems   []*stripe.CheckoutSessionLineItemParams
		productIDs  []string
		itemSpecs   []string
		quantity    int
		total       int64
		depositOwed int64
	)
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, cart.ErrInvalidQuantity
		}
		product, err := s.catalog.Get(item.ProductID)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(product.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(lineItemName(product)),
					Description: stripe.String("Estimated delivery " + product.EstimatedDelivery),
					Metadata:    map[string]string{"product_id": product.ID},
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
		productIDs = append(productIDs, product.ID)
		itemSpecs = append(itemSpecs, product.ID+":"+strconv.Itoa(item.Quantity))
		quantity += item.Quantity
		total += product.Price * int64(item.Quantity)
		depositOwed += product.Deposit * int64(item.Quantity)
	}

	metadata := map[string]string{
		"order_type":     "pre_order",
		"environment":    s.environment,
		"product_ids":    strings.Join(productIDs, ","),
		"items":          strings.Join(itemSpecs, ","),
		"quantity":       strconv.Itoa(quantity),
		"deposit_amount": strconv.FormatInt(depositOwed, 10),
		"total_price":    strconv.FormatInt(total, 10),
	}
	if req.CartID != "" {
		metadata["cart_id"] = req.CartID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		ExpiresAt:  stripe.Int64(s.now().Add(s.sessionTTL()).Unix()),
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.AllowedCountries),
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
			Metadata:      metadata,
		},
		Metadata: metadata,
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	sess, err := s.sessions.Create(ctx, params)
	if err != nil {
		s.metrics.Checkout("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrCheckoutSession.Message())
	}
	if sess == nil || sess.ID == "" || sess.URL == "" {
		s.metrics.Checkout("error")
		return nil, ErrCheckoutSession
	}

	s.metrics.Checkout("created")
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"session_id": sess.ID,
			"cart_id":    req.CartID,
			"total":      total,
		}), "checkout.session_created")
	}
	s.events.Emit(ctx, enums.EventCheckoutSessionCreated, "checkout_session", sess.ID, events.CheckoutSessionCreated{
		SessionID:   sess.ID,
		CartID:      req.CartID,
		ProductIDs:  productIDs,
		Quantity:    quantity,
		AmountTotal: total,
		Currency:    currency,
	})

	return &Session{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *service) RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	sessionID = strings.TrimSpace(sessionID)
	if !strings.HasPrefix(sessionID, "cs_") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout session id")
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if isResourceMissing(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}
	items, err := s.sessions.LineItems(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout line items")
	}

	details := &SessionDetails{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Status:        string(sess.Status),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
		LineItems:     make([]SessionLineItem, 0, len(items)),
	}
	if sess.CustomerDetails != nil {
		details.CustomerEmail = sess.CustomerDetails.Email
	}
	if details.CustomerEmail == "" {
		details.CustomerEmail = sess.CustomerEmail
	}
	for _, li := range items {
		line := SessionLineItem{
			Description: li.Description,
			AmountTotal: li.AmountTotal,
			Quantity:    li.Quantity,
		}
		if li.Price != nil {
			line.UnitAmount = li.Price.UnitAmount
		}
		details.LineItems = append(details.LineItems, line)
	}
	return details, nil
}

func (s *service) SalesStats(ctx context.Context) (*SalesStats, error) {
	sessions, err := s.sessions.ListCompleted(ctx, salesStatsSessionLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed checkout sessions")
	}

	byProduct := map[string]*ProductSales{}
	for _, p := range s.catalog.List() {
		byProduct[p.ID] = &ProductSales{ProductID: p.ID, Name: p.Name}
	}

	stats := &SalesStats{SessionsCount: len(sessions)}
	for _, sess := range sessions {
		if sess.LineItems == nil {
			continue
		}
		for _, li := range sess.LineItems.Data {
			productID := s.lineItemProductID(li)
			entry, ok := byProduct[productID]
			if !ok {
				continue
			}
			entry.UnitsSold += li.Quantity
			entry.Revenue += li.AmountTotal
			stats.TotalUnits += li.Quantity
			stats.TotalRevenue += li.AmountTotal
		}
	}
	for _, p := range s.catalog.List() {
		stats.Products = append(stats.Products, *byProduct[p.ID])
	}
	return stats, nil
}

// resolveURL returns raw when it points at the configured site, otherwise the default path.
func (s *service) resolveURL(raw, defaultPath string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.siteURL.String() + defaultPath, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != s.siteURL.Scheme || u.Host != s.siteURL.Host {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "redirect url must be on the site origin")
	}
	return raw, nil
}

func (s *service) currency() string {
	if c := strings.ToLower(strings.TrimSpace(s.cfg.Currency)); c != "" {
		return c
	}
	return s.catalog.Currency()
}

func (s *service) sessionTTL() time.Duration {
	if s.cfg.SessionTTL < 30*time.Minute {
		return 30 * time.Minute
	}
	return s.cfg.SessionTTL
}

func lineItemName(p catalog.Product) string {
	return p.Name + " (Pre-order)"
}

// lineItemProductID resolves a completed line item back to a catalog product. The
// list endpoint cannot expand products that deep, so the description is the key.
func (s *service) lineItemProductID(li *stripe.LineItem) string {
	if li == nil {
		return ""
	}
	if li.Price != nil && li.Price.Product != nil {
		if id := li.Price.Product.Metadata["product_id"]; id != "" {
			return id
		}
	}
	for _, p := range s.catalog.List() {
		if li.Description == lineItemName(p) || li.Description == p.Name {
			return p.ID
		}
	}
	return ""
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
