package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type demoProduct struct {
	name       string
	price      string
	inventory  int
	categoryID int64
}

var demoProducts = []demoProduct{
	{name: "Mechanical Keyboard", price: "89.99", inventory: 25, categoryID: 1},
	{name: "Wireless Mouse", price: "29.50", inventory: 60, categoryID: 1},
	{name: "27\" Monitor", price: "249.00", inventory: 8, categoryID: 2},
	{name: "USB-C Dock", price: "129.90", inventory: 15, categoryID: 3},
	{name: "Laptop Stand", price: "39.00", inventory: 40, categoryID: 3},
}

var demoCustomers = []domain.Customer{
	{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+44 20 0000 0001"},
	{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
}

// SeedDemoData заполняет пустой каталог демонстрационными товарами и покупателями.
// Непустой каталог не трогается.
func SeedDemoData(ctx context.Context, store domain.Store, logger *log.Entry) error {
	existing, err := store.Products().List(ctx, domain.ProductQuery{})
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	if len(existing) > 0 {
		logger.WithField("products", len(existing)).Debug("catalog is not empty, skipping demo data")
		return nil
	}

	return store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		for _, p := range demoProducts {
			price, err := decimal.NewFromString(p.price)
			if err != nil {
				return errors.Wrapf(err, "parse price of %q", p.name)
			}
			if _, err := tx.Products().Create(ctx, domain.Product{
				Name:       p.name,
				Price:      domain.NewMoney(price, domain.DefaultCurrency),
				Inventory:  p.inventory,
				CategoryID: p.categoryID,
				IsActive:   true,
			}); err != nil {
				return errors.Wrapf(err, "create product %q", p.name)
			}
		}
		for _, c := range demoCustomers {
			if _, err := tx.Customers().Create(ctx, c); err != nil {
				return errors.Wrapf(err, "create customer %s", c.Email)
			}
		}
		logger.WithFields(log.Fields{
			"products":  len(demoProducts),
			"customers": len(demoCustomers),
		}).Info("demo data seeded")
		return nil
	})
}
