package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	repos
}

// Create добавляет товар и присваивает ему ID, если он не задан.
func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	unlock := r.lock()
	defer unlock()

	if product.ID == 0 {
		r.s.nextProductID++
		product.ID = r.s.nextProductID
	} else if product.ID > r.s.nextProductID {
		r.s.nextProductID = product.ID
	}
	if _, exists := r.s.products[product.ID]; exists {
		return domain.Product{}, fmt.Errorf("%w: product %d already exists", domain.ErrInvalidArgument, product.ID)
	}
	ts := nowUTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = ts
	}
	product.UpdatedAt = ts

	r.s.products[product.ID] = product
	r.record(func() { delete(r.s.products, product.ID) })
	return product, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	unlock := r.rlock()
	defer unlock()

	product, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// GetMany возвращает найденные товары по списку ID.
func (r *productRepository) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.rlock()
	defer unlock()

	result := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

// List возвращает активные товары по фильтру, отсортированные по имени.
func (r *productRepository) List(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.rlock()
	result := make([]domain.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		if product.IsActive && query.Matches(product) {
			result = append(result, product)
		}
	}
	unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// AdjustInventory изменяет остаток под блокировкой хранилища; уход в минус запрещён.
func (r *productRepository) AdjustInventory(ctx context.Context, id int64, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	unlock := r.lock()
	defer unlock()

	product, ok := r.s.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	next := product.Inventory + delta
	if next < 0 {
		return product.Inventory, domain.ErrInsufficientInventory
	}

	previous := product
	product.Inventory = next
	product.UpdatedAt = nowUTC()
	r.s.products[id] = product
	r.record(func() { r.s.products[id] = previous })
	return next, nil
}

// SetInventory задаёт остаток и возвращает прежнее значение.
func (r *productRepository) SetInventory(ctx context.Context, id int64, quantity int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if quantity < 0 {
		return 0, fmt.Errorf("%w: inventory must be non-negative", domain.ErrInvalidArgument)
	}
	unlock := r.lock()
	defer unlock()

	product, ok := r.s.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}

	previous := product
	product.Inventory = quantity
	product.UpdatedAt = nowUTC()
	r.s.products[id] = product
	r.record(func() { r.s.products[id] = previous })
	return previous.Inventory, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
