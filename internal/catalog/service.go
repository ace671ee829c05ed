package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// Service exposes vendor and product catalog operations.
type Service interface {
	RegisterVendor(ctx context.Context, input RegisterVendorInput) (*models.Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListVendors(ctx context.Context, params pagination.Params, openOnly bool) (*VendorList, error)
	SetVendorOpen(ctx context.Context, vendorID, actorUserID uuid.UUID, open bool) error
	AddProduct(ctx context.Context, input AddProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, input UpdateProductInput) error
	ListProducts(ctx context.Context, vendorID uuid.UUID, params pagination.Params, availableOnly bool) (*ProductList, error)
	PriceSelection(ctx context.Context, vendorID uuid.UUID, selection []SelectionItem) (*PricedSelection, error)
}

type service struct {
	repo Repository
}

// RegisterVendorInput carries the fields required to open a storefront.
type RegisterVendorInput struct {
	OwnerUserID uuid.UUID
	Name        string
	Description *string
	Phone       *string
	Address     string
	Lat         float64
	Lng         float64
}

// AddProductInput carries the fields required to list a product.
type AddProductInput struct {
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
	ParentID    *uuid.UUID
	Name        string
	Description *string
	Price       decimal.Decimal
}

// UpdateProductInput carries partial product updates.
type UpdateProductInput struct {
	ProductID   uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
	Price       *decimal.Decimal
	IsAvailable *bool
}

// SelectionItem is one product/quantity pair from an order request.
type SelectionItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PricedSelection is a validated selection with catalog prices snapshotted.
type PricedSelection struct {
	Items    []models.OrderItem
	Subtotal decimal.Decimal
}

// VendorList is a cursor page of vendors.
type VendorList struct {
	Items      []models.Vendor
	NextCursor string
	HasMore    bool
}

// ProductList is a cursor page of products.
type ProductList struct {
	Items      []models.Product
	NextCursor string
	HasMore    bool
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RegisterVendor(ctx context.Context, input RegisterVendorInput) (*models.Vendor, error) {
	if input.OwnerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Name == "" || input.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name and address required")
	}
	if err := geo.ValidateCoordinate(input.Lat, input.Lng); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindVendorByOwner(ctx, input.OwnerUserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already owns a vendor")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor owner")
	}

	vendor := &models.Vendor{
		OwnerUserID: input.OwnerUserID,
		Name:        input.Name,
		Description: input.Description,
		Phone:       input.Phone,
		Address:     input.Address,
		Location:    types.GeographyPoint{Lat: input.Lat, Lng: input.Lng},
		IsOpen:      true,
	}
	vendor, err := s.repo.CreateVendor(ctx, vendor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	return vendor, nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) ListVendors(ctx context.Context, params pagination.Params, openOnly bool) (*VendorList, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	items, err := s.repo.ListVendors(ctx, params, openOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	list := &VendorList{Items: items}
	if pagination.HasMore(len(items), params.Limit) {
		list.Items = items[:params.Limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list, nil
}

func (s *service) SetVendorOpen(ctx context.Context, vendorID, actorUserID uuid.UUID, open bool) error {
	vendor, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return err
	}
	if vendor.OwnerUserID != actorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor does not belong to user")
	}
	if err := s.repo.UpdateVendor(ctx, vendorID, map[string]any{"is_open": open}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return nil
}

func (s *service) AddProduct(ctx context.Context, input AddProductInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	vendor, err := s.GetVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.OwnerUserID != input.ActorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor does not belong to user")
	}
	if input.ParentID != nil {
		parent, err := s.repo.FindProductByID(ctx, *input.ParentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent product")
		}
		if parent.VendorID != input.VendorID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent product belongs to another vendor")
		}
	}

	product := &models.Product{
		VendorID:    input.VendorID,
		ParentID:    input.ParentID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		IsAvailable: true,
	}
	product, err = s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, input UpdateProductInput) error {
	vendor, err := s.GetVendor(ctx, input.VendorID)
	if err != nil {
		return err
	}
	if vendor.OwnerUserID != input.ActorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor does not belong to user")
	}
	product, err := s.repo.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.VendorID != input.VendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to vendor")
	}

	updates := map[string]any{}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
		}
		updates["price"] = *input.Price
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateProduct(ctx, input.ProductID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, vendorID uuid.UUID, params pagination.Params, availableOnly bool) (*ProductList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)
	items, err := s.repo.ListProductsByVendor(ctx, vendorID, params, availableOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	list := &ProductList{Items: items}
	if pagination.HasMore(len(items), params.Limit) {
		list.Items = items[:params.Limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list, nil
}

// PriceSelection validates an order selection against the live catalog and
// snapshots names and prices into order item rows.
func (s *service) PriceSelection(ctx context.Context, vendorID uuid.UUID, selection []SelectionItem) (*PricedSelection, error) {
	if len(selection) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	ids := make([]uuid.UUID, 0, len(selection))
	for _, item := range selection {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.repo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	priced := &PricedSelection{Subtotal: decimal.Zero}
	for _, item := range selection {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]interface{}{
				"product_id": item.ProductID.String(),
			})
		}
		if product.VendorID != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product belongs to another vendor").WithDetails(map[string]interface{}{
				"product_id": item.ProductID.String(),
			})
		}
		if !product.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").WithDetails(map[string]interface{}{
				"product_id": item.ProductID.String(),
			})
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		priced.Items = append(priced.Items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
		})
		priced.Subtotal = priced.Subtotal.Add(lineTotal)
	}
	priced.Subtotal = priced.Subtotal.Round(2)
	return priced, nil
}
