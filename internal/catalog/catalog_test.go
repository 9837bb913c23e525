package catalog

import (
	"errors"
	"testing"

	"github.com/wecr8/damp-backend/pkg/enums"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Currency() != "usd" {
		t.Fatalf("unexpected currency %q", c.Currency())
	}
	want := map[string][3]int64{
		"damp-handle":     {4999, 6999, 1999},
		"silicone-bottom": {2999, 3999, 999},
		"cup-sleeve":      {3499, 4499, 1499},
		"baby-bottle":     {7999, 9999, 2999},
	}
	if len(c.List()) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(c.List()))
	}
	for id, prices := range want {
		p, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if p.Price != prices[0] || p.OriginalPrice != prices[1] || p.Deposit != prices[2] {
			t.Fatalf("unexpected pricing for %s: %+v", id, p)
		}
	}
	if c.List()[0].ID != "damp-handle" {
		t.Fatalf("expected catalog order preserved")
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Default().Get("mug"); !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestForVoteOption(t *testing.T) {
	p, ok := Default().ForVoteOption(enums.VoteOptionBabyBottle)
	if !ok || p.ID != "baby-bottle" {
		t.Fatalf("unexpected mapping %+v %v", p, ok)
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":       "products: []",
		"duplicate":   "products:\n  - {id: a, price: 1}\n  - {id: a, price: 1}",
		"no price":    "products:\n  - {id: a, price: 0}",
		"big deposit": "products:\n  - {id: a, price: 10, deposit: 11}",
		"bad option":  "products:\n  - {id: a, price: 10, vote_option: mug}",
		"bad yaml":    "products: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestListReturnsCopy(t *testing.T) {
	c := Default()
	list := c.List()
	list[0].Price = 1
	if p, _ := c.Get("damp-handle"); p.Price != 4999 {
		t.Fatal("catalog mutated through List")
	}
}
