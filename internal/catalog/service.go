package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, search string, limit, offset int) ([]Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

// ProductInput carries the writable attributes of a product.
type ProductInput struct {
	SKU         *string `json:"sku" validate:"omitempty,min=1,max=64"`
	Name        string  `json:"name" validate:"required,max=255"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	MinQuantity *int    `json:"min_quantity" validate:"omitempty,gte=0"`
	Description *string `json:"description"`
}

// ErrInvalidInput wraps validation failures.
type ErrInvalidInput struct {
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return "catalog: invalid input: " + e.Reason
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create validates the input and inserts a new product.
func (s *Service) Create(ctx context.Context, input ProductInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, ErrInvalidInput{Reason: err.Error()}
	}
	now := time.Now().UTC()
	p := Product{
		ID:          uuid.New().String(),
		SKU:         input.SKU,
		Name:        input.Name,
		Category:    input.Category,
		Price:       input.Price,
		Quantity:    input.Quantity,
		MinQuantity: input.MinQuantity,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, fmt.Errorf("catalog: invalid product id: %w", ErrProductNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// List returns products matching the search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, search, limit, offset)
}

// Update validates the input and rewrites an existing product.
func (s *Service) Update(ctx context.Context, id string, input ProductInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, ErrInvalidInput{Reason: err.Error()}
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	existing.SKU = input.SKU
	existing.Name = input.Name
	existing.Category = input.Category
	existing.Price = input.Price
	existing.Quantity = input.Quantity
	existing.MinQuantity = input.MinQuantity
	existing.Description = input.Description
	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, existing); err != nil {
		return Product{}, err
	}
	return existing, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("catalog: invalid product id: %w", ErrProductNotFound)
	}
	return s.repo.Delete(ctx, id)
}
