package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cabangpos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports a sale line that could not be covered by
// available batches. It unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// AlertCandidate describes an alert the generator wants to create if the
// dedup rules allow it.
type AlertCandidate struct {
	Alert domain.Alert
	// DedupSameDay limits the unread-alert check to alerts created on the
	// candidate's UTC calendar day. Expired alerts dedup against any unread
	// alert regardless of age.
	DedupSameDay bool
}

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	FindProductByCode(ctx context.Context, code string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error)
	GetBranchByID(ctx context.Context, id string) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)

	FindOpenBatch(ctx context.Context, productID string, branchID string, batchNumber *string) (*domain.InventoryBatch, error)
	CreateBatch(ctx context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error)
	UpdateBatch(ctx context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error)
	ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error)
	ListOpenBatches(ctx context.Context, branchID string) ([]domain.InventoryBatch, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	GetSalesReport(ctx context.Context, branchID string, from, to time.Time) (*domain.SalesReport, error)

	CreateAlertIfAbsent(ctx context.Context, candidate AlertCandidate) (*domain.Alert, error)
	SetBatchStatus(ctx context.Context, batchID string, status string) error
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	MarkAlertRead(ctx context.Context, alertID string) (*domain.Alert, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, branchID string, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
