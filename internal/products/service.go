package products

import (
	"context"
	"fmt"

	"github.com/meridian-shop/meridian/internal/platform/httpx"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Service handles product business logic.
type Service struct {
	repo         Repository
	defaultImage string
}

// NewService builds a Service instance. defaultImage fills the image field
// when callers leave it empty.
func NewService(repo Repository, defaultImage string) *Service {
	return &Service{repo: repo, defaultImage: defaultImage}
}

// List returns a page of products. limit defaults to 100 and caps at 500;
// page is zero-based.
func (s *Service) List(ctx context.Context, limit, page int) ([]Product, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		return nil, fmt.Errorf("%w: limit above %d", httpx.ErrValidation, maxLimit)
	}
	if page < 0 {
		return nil, fmt.Errorf("%w: negative page", httpx.ErrValidation)
	}
	return s.repo.List(ctx, limit, page*limit)
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id < 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a product from caller input.
func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	product := Product{
		Name:        form.Name,
		Description: form.Description,
		Price:       *form.Price,
		Image:       form.Image,
	}
	if product.Image == "" {
		product.Image = s.defaultImage
	}
	return s.repo.Create(ctx, product)
}

// Update applies the fields present in the form and returns the result.
func (s *Service) Update(ctx context.Context, id int64, form UpdateForm) (Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if form.Name != nil {
		product.Name = *form.Name
	}
	if form.Description != nil {
		product.Description = *form.Description
	}
	if form.Price != nil {
		product.Price = *form.Price
	}
	if form.Image != nil {
		product.Image = *form.Image
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Delete removes the product and returns its last state.
func (s *Service) Delete(ctx context.Context, id int64) (Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return Product{}, err
	}
	return product, nil
}
