package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var productsYAML []byte

// Product is a pre-order SKU. Prices are in minor units.
type Product struct {
	ID                string           `yaml:"id" json:"id"`
	Name              string           `yaml:"name" json:"name"`
	Description       string           `yaml:"description" json:"description"`
	Price             int64            `yaml:"price" json:"price"`
	OriginalPrice     int64            `yaml:"original_price" json:"originalPrice"`
	Deposit           int64            `yaml:"deposit" json:"deposit"`
	EstimatedDelivery string           `yaml:"estimated_delivery" json:"estimatedDelivery"`
	VoteOption        enums.VoteOption `yaml:"vote_option" json:"voteOption,omitempty"`
}

type file struct {
	Currency string    `yaml:"currency"`
	Products []Product `yaml:"products"`
}

// Catalog is an immutable product list.
type Catalog struct {
	currency string
	products []Product
	byID     map[string]Product
}

var ErrUnknownProduct = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")

// Default returns the embedded catalog. It panics if the embedded file is malformed.
func Default() *Catalog {
	c, err := Parse(productsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	c := &Catalog{
		currency: strings.ToLower(strings.TrimSpace(f.Currency)),
		products: make([]Product, 0, len(f.Products)),
		byID:     make(map[string]Product, len(f.Products)),
	}
	if c.currency == "" {
		c.currency = "usd"
	}
	for _, p := range f.Products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product without id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product %q", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("product %q must have a positive price", p.ID)
		}
		if p.Deposit < 0 || p.Deposit > p.Price {
			return nil, fmt.Errorf("product %q deposit must be between 0 and price", p.ID)
		}
		if p.VoteOption != "" && !p.VoteOption.IsValid() {
			return nil, fmt.Errorf("product %q has unknown vote option %q", p.ID, p.VoteOption)
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) Currency() string { return c.currency }

// List returns products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get returns a product or ErrUnknownProduct.
func (c *Catalog) Get(id string) (Product, error) {
	p, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, ErrUnknownProduct
	}
	return p, nil
}

// ForVoteOption maps a vote option onto its product.
func (c *Catalog) ForVoteOption(opt enums.VoteOption) (Product, bool) {
	for _, p := range c.products {
		if p.VoteOption == opt {
			return p, true
		}
	}
	return Product{}, false
}
