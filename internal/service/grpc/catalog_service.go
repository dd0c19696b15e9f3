package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

// Catalog — операции каталога, доступные через gRPC.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateInventory(ctx context.Context, productID int64, quantity int) (domain.Product, error)
}

// CatalogService реализует storefront.v1.CatalogService.
type CatalogService struct {
	catalog Catalog
	logger  *log.Entry
}

// NewCatalogService конструирует gRPC-обёртку каталога.
func NewCatalogService(c Catalog, logger *log.Entry) *CatalogService {
	if logger == nil {
		logger = log.WithField("component", "grpc-catalog")
	}
	return &CatalogService{catalog: c, logger: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	query := domain.ProductQuery{
		Name:       f.str("name"),
		CategoryID: f.int("category_id"),
		MinPrice:   f.decimal("min_price"),
		MaxPrice:   f.decimal("max_price"),
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	products, err := s.catalog.ListProducts(ctx, query)
	if err != nil {
		return nil, toStatus(s.logger, "ListProducts", err)
	}
	result := make([]any, 0, len(products))
	for _, p := range products {
		result = append(result, productValue(p))
	}
	return encode(map[string]any{"products": result})
}

func (s *CatalogService) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	id := f.requiredInt("product_id")
	if err := f.err(); err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, toStatus(s.logger, "GetProduct", err)
	}
	return encode(map[string]any{"product": productValue(product)})
}

// CreateProduct добавляет активный товар. Валюта по умолчанию — USD.
func (s *CatalogService) CreateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	name := f.requiredStr("name")
	price := f.decimal("price")
	currency := f.str("currency")
	product := domain.Product{
		Name:        name,
		Description: f.str("description"),
		Inventory:   int(f.int("inventory")),
		CategoryID:  f.int("category_id"),
		IsActive:    true,
	}
	if price == nil {
		f.fail("price is required")
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	product.Price = domain.NewMoney(*price, currency)

	created, err := s.catalog.CreateProduct(ctx, product)
	if err != nil {
		return nil, toStatus(s.logger, "CreateProduct", err)
	}
	return encode(map[string]any{"product": productValue(created)})
}

// UpdateInventory задаёт остаток товара.
func (s *CatalogService) UpdateInventory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	id := f.requiredInt("product_id")
	quantity := f.requiredInt("quantity")
	if err := f.err(); err != nil {
		return nil, err
	}

	product, err := s.catalog.UpdateInventory(ctx, id, int(quantity))
	if err != nil {
		return nil, toStatus(s.logger, "UpdateInventory", err)
	}
	return encode(map[string]any{"product": productValue(product)})
}

var (
	_ CatalogServiceServer = (*CatalogService)(nil)
	_ Catalog              = (*catalog.Service)(nil)
)
