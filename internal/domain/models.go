package domain

import "time"

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Barcode        *string   `json:"barcode,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Category       string    `json:"category"`
	Brand          string    `json:"brand"`
	Supplier       string    `json:"supplier"`
	PriceCents     int64     `json:"price_cents"`
	CostPriceCents int64     `json:"cost_price_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductCreateRequest requires the cost price alongside the selling price;
// brand and supplier default to empty strings.
type ProductCreateRequest struct {
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Barcode        *string `json:"barcode,omitempty"`
	Description    *string `json:"description,omitempty"`
	Category       string  `json:"category"`
	Brand          string  `json:"brand,omitempty"`
	Supplier       string  `json:"supplier,omitempty"`
	PriceCents     int64   `json:"price_cents"`
	CostPriceCents *int64  `json:"cost_price_cents"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Barcode        *string `json:"barcode,omitempty"`
	Description    *string `json:"description,omitempty"`
	Category       *string `json:"category,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	Supplier       *string `json:"supplier,omitempty"`
	PriceCents     *int64  `json:"price_cents,omitempty"`
	CostPriceCents *int64  `json:"cost_price_cents,omitempty"`
}

type ProductFilter struct {
	Category string
	Search   string
	Limit    int
}

type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BranchCreateRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

type InventoryBatch struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	BranchID          string     `json:"branch_id"`
	BatchNumber       *string    `json:"batch_number,omitempty"`
	Quantity          int        `json:"quantity"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type InventoryUpdateRequest struct {
	ProductID         string     `json:"product_id"`
	BranchID          string     `json:"branch_id,omitempty"`
	BatchNumber       *string    `json:"batch_number,omitempty"`
	Quantity          *int       `json:"quantity,omitempty"`
	LowStockThreshold *int       `json:"low_stock_threshold,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Status            *string    `json:"status,omitempty"`
}

// InventoryItem joins a batch with the product fields list views need.
type InventoryItem struct {
	InventoryBatch
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
}

type InventoryFilter struct {
	BranchID     string
	ProductID    string
	LowStockOnly bool
}

type SaleLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SaleCreateRequest struct {
	BranchID    string            `json:"branch_id,omitempty"`
	PaymentType string            `json:"payment_type"`
	Items       []SaleLineRequest `json:"items"`
}

type SaleItem struct {
	ID             string `json:"id"`
	SaleID         string `json:"sale_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	PriceCents     int64  `json:"price_cents"`
}

type Sale struct {
	ID          string     `json:"id"`
	BranchID    string     `json:"branch_id"`
	CashierID   string     `json:"cashier_id"`
	PaymentType string     `json:"payment_type"`
	TotalCents  int64      `json:"total_cents"`
	CreatedAt   time.Time  `json:"created_at"`
	Items       []SaleItem `json:"items"`
}

type SaleFilter struct {
	BranchID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

type Alert struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	BranchID    string    `json:"branch_id"`
	BatchID     *string   `json:"batch_id,omitempty"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type AlertFilter struct {
	BranchID string
	IsRead   *bool
	Limit    int
}

type ProductSales struct {
	Name         string `json:"name"`
	QuantitySold int    `json:"quantity_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type SalesReportRequest struct {
	BranchID string     `json:"branch_id,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

type SalesReport struct {
	BranchID          string                  `json:"branch_id,omitempty"`
	From              time.Time               `json:"from"`
	To                time.Time               `json:"to"`
	TotalRevenueCents int64                   `json:"total_revenue_cents"`
	TotalTransactions int                     `json:"total_transactions"`
	TotalItemsSold    int                     `json:"total_items_sold"`
	ProductBreakdown  map[string]ProductSales `json:"product_breakdown"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	Role        string  `json:"role"`
	BranchID    *string `json:"branch_id,omitempty"`
	ExpiresAt   string  `json:"expires_at"`
}

// Principal identifies the authenticated user for a request.
type Principal struct {
	UserID   string
	Username string
	Role     string
	BranchID *string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	BranchID  *string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID         string    `json:"id"`
	BranchID   string    `json:"branch_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	BatchStatusAvailable    = "AVAILABLE"
	BatchStatusLowStock     = "LOW_STOCK"
	BatchStatusDiscontinued = "DISCONTINUED"
	BatchStatusExpired      = "EXPIRED"
)

const (
	PaymentCash   = "CASH"
	PaymentCard   = "CARD"
	PaymentMobile = "MOBILE"
)

const (
	AlertLowStock   = "LOW_STOCK"
	AlertNearExpiry = "NEAR_EXPIRY"
	AlertExpired    = "EXPIRED"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
