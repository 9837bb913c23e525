package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/internal/catalog"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
)

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Store   Store
	Catalog *catalog.Catalog
	Now     func() time.Time
}

// Service manages server-owned carts.
type Service interface {
	Create(ctx context.Context) (*Cart, error)
	Get(ctx context.Context, cartID string) (*Cart, error)
	AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error)
	SetQuantity(ctx context.Context, cartID, productID string, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error)
	Delete(ctx context.Context, cartID string) error
	Currency() string
}

type service struct {
	store   Store
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: params.Store, catalog: params.Catalog, now: now}, nil
}

func (s *service) Currency() string {
	return s.catalog.Currency()
}

func (s *service) Create(ctx context.Context) (*Cart, error) {
	c := New(uuid.NewString(), s.now().UTC())
	if err := s.store.Save(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, cartID string) (*Cart, error) {
	if _, err := uuid.Parse(strings.TrimSpace(cartID)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id")
	}
	c, err := s.store.Load(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	product, err := s.catalog.Get(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.AddItem(product, qty)
		return nil
	})
}

func (s *service) SetQuantity(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		return c.SetQuantity(productID, qty)
	})
}

func (s *service) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

func (s *service) Delete(ctx context.Context, cartID string) error {
	if err := s.store.Delete(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

func (s *service) mutate(ctx context.Context, cartID string, fn func(*Cart) error) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return c, nil
}
