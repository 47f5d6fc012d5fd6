package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
)

type ProductService struct {
	products storage.ProductRepository
}

func NewProductService(products storage.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// Create validates and stores a product. The repository registers its
// category in the same transaction.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*storage.Product, error) {
	product, err := buildProduct(req.Name, req.SellingPrice, req.BasePrice, req.ProductCode, req.Category)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.Insert(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// CreateBatch validates every request before writing any of them.
func (s *ProductService) CreateBatch(ctx context.Context, reqs []CreateProductRequest) ([]storage.Product, error) {
	products := make([]storage.Product, 0, len(reqs))
	for _, req := range reqs {
		product, err := buildProduct(req.Name, req.SellingPrice, req.BasePrice, req.ProductCode, req.Category)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if len(products) == 0 {
		return nil, nil
	}

	ids, err := s.products.InsertBatch(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("create products: %w", err)
	}
	for i := range products {
		products[i].ID = ids[i]
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*storage.Product, error) {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Subscribe(ctx context.Context, filter storage.ProductFilter) (*storage.Subscription[storage.Product], error) {
	return s.products.SubscribeFiltered(ctx, filter)
}

func (s *ProductService) Update(ctx context.Context, req UpdateProductRequest) (*storage.Product, error) {
	if req.ID <= 0 {
		return nil, &ValidationError{Entity: "product", Field: "id", Reason: "must be greater than 0"}
	}
	product, err := buildProduct(req.Name, req.SellingPrice, req.BasePrice, req.ProductCode, req.Category)
	if err != nil {
		return nil, err
	}
	product.ID = req.ID

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *ProductService) DeleteAll(ctx context.Context) error {
	if err := s.products.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete products: %w", err)
	}
	return nil
}

func buildProduct(name string, selling decimal.Decimal, base *decimal.Decimal, code, category string) (*storage.Product, error) {
	input := productInput{
		Name:         strings.TrimSpace(name),
		SellingPrice: selling,
		BasePrice:    selling,
		Category:     storage.NormalizeCategory(category),
	}
	if base != nil {
		input.BasePrice = *base
	}
	if err := validateInput("product", input); err != nil {
		return nil, err
	}

	product := &storage.Product{
		Name:         input.Name,
		SellingPrice: input.SellingPrice,
		BasePrice:    input.BasePrice,
		Category:     input.Category,
	}
	if code = strings.TrimSpace(code); code != "" {
		product.ProductCode = &code
	}
	return product, nil
}
