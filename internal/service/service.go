package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cabangpos/backend/internal/cache"
	"cabangpos/backend/internal/domain"
	"cabangpos/backend/internal/store"
	"cabangpos/backend/internal/xid"
)

// ErrUnauthenticated is returned when an operation runs without a principal
// in the context. The HTTP layer normally rejects these requests earlier.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when the principal's role does not permit the
// operation.
var ErrForbidden = errors.New("admin role required")

const (
	nearExpiryWindowDays  = 7
	defaultReportDays     = 7
	reportCacheTTL        = 2 * time.Minute
	lowStockThresholdDflt = 10
)

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(domain.Principal)
	return principal, ok
}

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	return &Service{repo: repo, reports: reports}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.Product{}, ErrUnauthenticated
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)
	req.Brand = strings.TrimSpace(req.Brand)
	req.Supplier = strings.TrimSpace(req.Supplier)
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode == "" {
			req.Barcode = nil
		} else {
			req.Barcode = &barcode
		}
	}

	if req.Name == "" || req.SKU == "" || req.Category == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.PriceCents < 0 {
		return domain.Product{}, store.ErrValidation
	}
	// The cost price must be supplied, not defaulted; zero is a valid cost.
	if req.CostPriceCents == nil || *req.CostPriceCents < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		ID:             xid.New("prd"),
		Name:           req.Name,
		SKU:            req.SKU,
		Barcode:        req.Barcode,
		Description:    req.Description,
		Category:       req.Category,
		Brand:          req.Brand,
		Supplier:       req.Supplier,
		PriceCents:     req.PriceCents,
		CostPriceCents: *req.CostPriceCents,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, branchOrEmpty(principal), "product_create", "product", created.ID, fmt.Sprintf("sku=%s,price=%d", created.SKU, created.PriceCents))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.Product{}, ErrUnauthenticated
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, store.ErrValidation
	}

	existing, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostPriceCents != nil {
		if *req.CostPriceCents < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Supplier != nil {
		updated.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode == "" {
			updated.Barcode = nil
		} else {
			updated.Barcode = &barcode
		}
	}
	if req.Description != nil {
		updated.Description = req.Description
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, branchOrEmpty(principal), "product_update", "product", saved.ID, fmt.Sprintf("sku=%s,price=%d", saved.SKU, saved.PriceCents))
	return *saved, nil
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return domain.Product{}, ErrUnauthenticated
	}
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

// LookupProduct resolves a scanned code, matching barcodes before SKUs.
func (s *Service) LookupProduct(ctx context.Context, code string) (domain.Product, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return domain.Product{}, ErrUnauthenticated
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Product{}, store.ErrValidation
	}
	product, err := s.repo.FindProductByCode(ctx, code)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (domain.Branch, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.Branch{}, ErrUnauthenticated
	}
	if principal.Role != domain.RoleAdmin {
		return domain.Branch{}, ErrForbidden
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Branch{}, store.ErrValidation
	}

	branch := domain.Branch{
		ID:      xid.New("brn"),
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	}
	created, err := s.repo.CreateBranch(ctx, branch)
	if err != nil {
		return domain.Branch{}, err
	}

	s.logAudit(ctx, created.ID, "branch_create", "branch", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListBranches(ctx)
}

// UpdateInventory is an upsert: the batch identified by the product, the
// effective branch and the batch number is updated in place when it exists,
// otherwise a new batch row is created with defaults. Only fields present in
// the request change.
func (s *Service) UpdateInventory(ctx context.Context, req domain.InventoryUpdateRequest) (domain.InventoryBatch, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.InventoryBatch{}, ErrUnauthenticated
	}

	branchID := effectiveBranch(principal, req.BranchID)
	if branchID == "" || strings.TrimSpace(req.ProductID) == "" {
		return domain.InventoryBatch{}, store.ErrValidation
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return domain.InventoryBatch{}, store.ErrValidation
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		return domain.InventoryBatch{}, store.ErrValidation
	}
	if req.Status != nil && !isValidBatchStatus(*req.Status) {
		return domain.InventoryBatch{}, store.ErrValidation
	}
	if req.BatchNumber != nil {
		bn := strings.TrimSpace(*req.BatchNumber)
		if bn == "" {
			req.BatchNumber = nil
		} else {
			req.BatchNumber = &bn
		}
	}

	if _, err := s.repo.GetProductByID(ctx, req.ProductID); err != nil {
		return domain.InventoryBatch{}, err
	}
	if _, err := s.repo.GetBranchByID(ctx, branchID); err != nil {
		return domain.InventoryBatch{}, err
	}

	existing, err := s.repo.FindOpenBatch(ctx, req.ProductID, branchID, req.BatchNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.InventoryBatch{}, err
	}

	var saved *domain.InventoryBatch
	if existing != nil {
		updated := *existing
		if req.Quantity != nil {
			updated.Quantity = *req.Quantity
		}
		if req.LowStockThreshold != nil {
			updated.LowStockThreshold = *req.LowStockThreshold
		}
		if req.ExpiryDate != nil {
			updated.ExpiryDate = req.ExpiryDate
		}
		if req.Status != nil {
			updated.Status = *req.Status
		}
		saved, err = s.repo.UpdateBatch(ctx, updated)
	} else {
		batch := domain.InventoryBatch{
			ProductID:         req.ProductID,
			BranchID:          branchID,
			BatchNumber:       req.BatchNumber,
			Quantity:          0,
			LowStockThreshold: lowStockThresholdDflt,
			ExpiryDate:        req.ExpiryDate,
			Status:            domain.BatchStatusAvailable,
		}
		if req.Quantity != nil {
			batch.Quantity = *req.Quantity
		}
		if req.LowStockThreshold != nil {
			batch.LowStockThreshold = *req.LowStockThreshold
		}
		if req.Status != nil {
			batch.Status = *req.Status
		}
		saved, err = s.repo.CreateBatch(ctx, batch)
	}
	if err != nil {
		return domain.InventoryBatch{}, err
	}

	s.logAudit(ctx, branchID, "inventory_update", "batch", saved.ID, fmt.Sprintf("product=%s,qty=%d,status=%s", saved.ProductID, saved.Quantity, saved.Status))
	return *saved, nil
}

func (s *Service) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	// Branch-affiliated users only see their own branch.
	if principal.BranchID != nil {
		filter.BranchID = *principal.BranchID
	}
	return s.repo.ListInventory(ctx, filter)
}

// CreateSale validates the whole basket and deducts stock from the freshest
// batches first. Any failing line aborts the sale with nothing persisted.
// The sale is always recorded at the principal's own branch; a principal
// without a branch affiliation cannot sell.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.Sale{}, ErrUnauthenticated
	}

	if principal.BranchID == nil || strings.TrimSpace(*principal.BranchID) == "" {
		return domain.Sale{}, store.ErrValidation
	}
	branchID := *principal.BranchID

	payment := strings.ToUpper(strings.TrimSpace(req.PaymentType))
	if !isValidPaymentType(payment) {
		return domain.Sale{}, store.ErrValidation
	}
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrValidation
	}
	for _, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity < 1 {
			return domain.Sale{}, store.ErrValidation
		}
	}
	if _, err := s.repo.GetBranchByID(ctx, branchID); err != nil {
		return domain.Sale{}, err
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return domain.Sale{}, err
		}
		items = append(items, domain.SaleItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			PriceCents:     product.PriceCents * int64(line.Quantity),
		})
	}

	sale := domain.Sale{
		BranchID:    branchID,
		CashierID:   principal.UserID,
		PaymentType: payment,
		Items:       items,
	}
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, branchID, "sale_create", "sale", created.ID, fmt.Sprintf("items=%d,total=%d,payment=%s", len(created.Items), created.TotalCents, created.PaymentType))
	return *created, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if principal.BranchID != nil {
		filter.BranchID = *principal.BranchID
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	return s.repo.ListSales(ctx, filter)
}

// GenerateAlerts scans open batches and raises low stock, near expiry and
// expired alerts, returning the alerts created by this pass. A principal tied
// to a branch scans that branch only; unaffiliated principals scan every
// branch. Expired batches also have their status forced to EXPIRED. Reruns
// within the same day create nothing new.
func (s *Service) GenerateAlerts(ctx context.Context) ([]domain.Alert, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	batches, err := s.repo.ListOpenBatches(ctx, branchOrEmpty(principal))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := dateUTC(now)
	horizon := today.AddDate(0, 0, nearExpiryWindowDays)

	names := map[string]string{}
	productName := func(productID string) string {
		if name, ok := names[productID]; ok {
			return name
		}
		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			log.Printf("[alerts] WARN: failed to resolve product %s: %v", productID, err)
			names[productID] = productID
			return productID
		}
		names[productID] = product.Name
		return product.Name
	}

	created := make([]domain.Alert, 0, 8)
	for _, batch := range batches {
		name := productName(batch.ProductID)

		// A batch whose expiry day has arrived counts as expired, not near
		// expiry.
		if batch.ExpiryDate != nil && !dateUTC(*batch.ExpiryDate).After(today) {
			alert, err := s.createAlert(ctx, store.AlertCandidate{
				Alert: domain.Alert{
					Type:        domain.AlertExpired,
					ProductID:   batch.ProductID,
					ProductName: name,
					BranchID:    batch.BranchID,
					BatchID:     &batch.ID,
					Message:     fmt.Sprintf("%s (batch %s) expired on %s", name, batchLabel(batch), batch.ExpiryDate.Format("2006-01-02")),
				},
				DedupSameDay: false,
			})
			if err != nil {
				continue
			}
			if alert != nil {
				created = append(created, *alert)
			}
			if err := s.repo.SetBatchStatus(ctx, batch.ID, domain.BatchStatusExpired); err != nil {
				log.Printf("[alerts] WARN: failed to expire batch %s: %v", batch.ID, err)
			}
			continue
		}

		if batch.ExpiryDate != nil && !dateUTC(*batch.ExpiryDate).After(horizon) {
			alert, err := s.createAlert(ctx, store.AlertCandidate{
				Alert: domain.Alert{
					Type:        domain.AlertNearExpiry,
					ProductID:   batch.ProductID,
					ProductName: name,
					BranchID:    batch.BranchID,
					BatchID:     &batch.ID,
					Message:     fmt.Sprintf("%s (batch %s) expires on %s", name, batchLabel(batch), batch.ExpiryDate.Format("2006-01-02")),
				},
				DedupSameDay: true,
			})
			if err == nil && alert != nil {
				created = append(created, *alert)
			}
		}

		if batch.Quantity <= batch.LowStockThreshold {
			alert, err := s.createAlert(ctx, store.AlertCandidate{
				Alert: domain.Alert{
					Type:        domain.AlertLowStock,
					ProductID:   batch.ProductID,
					ProductName: name,
					BranchID:    batch.BranchID,
					BatchID:     &batch.ID,
					Message:     fmt.Sprintf("Low stock: %s has %d units left (threshold %d)", name, batch.Quantity, batch.LowStockThreshold),
				},
				DedupSameDay: true,
			})
			if err == nil && alert != nil {
				created = append(created, *alert)
			}
		}
	}

	s.logAudit(ctx, branchOrEmpty(principal), "alerts_generate", "alert", "", fmt.Sprintf("created=%d", len(created)))
	return created, nil
}

func (s *Service) createAlert(ctx context.Context, candidate store.AlertCandidate) (*domain.Alert, error) {
	alert, err := s.repo.CreateAlertIfAbsent(ctx, candidate)
	if err != nil {
		log.Printf("[alerts] WARN: failed to create %s alert for product %s: %v", candidate.Alert.Type, candidate.Alert.ProductID, err)
		return nil, err
	}
	return alert, nil
}

func (s *Service) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if principal.BranchID != nil {
		filter.BranchID = *principal.BranchID
	}
	return s.repo.ListAlerts(ctx, filter)
}

func (s *Service) MarkAlertAsRead(ctx context.Context, alertID string) (domain.Alert, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return domain.Alert{}, ErrUnauthenticated
	}
	if strings.TrimSpace(alertID) == "" {
		return domain.Alert{}, store.ErrValidation
	}
	alert, err := s.repo.MarkAlertRead(ctx, alertID)
	if err != nil {
		return domain.Alert{}, err
	}
	s.logAudit(ctx, alert.BranchID, "alert_read", "alert", alert.ID, alert.Type)
	return *alert, nil
}

// GetSalesReport aggregates sales over a date range, defaulting to the
// trailing seven days. Results are cached briefly.
func (s *Service) GetSalesReport(ctx context.Context, req domain.SalesReportRequest) (domain.SalesReport, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return domain.SalesReport{}, ErrUnauthenticated
	}

	branchID := effectiveBranch(principal, req.BranchID)

	to := time.Now().UTC()
	if req.To != nil {
		to = req.To.UTC()
	}
	from := to.AddDate(0, 0, -defaultReportDays)
	if req.From != nil {
		from = req.From.UTC()
	}
	if from.After(to) {
		return domain.SalesReport{}, store.ErrValidation
	}

	key := fmt.Sprintf("report:sales:%s:%d:%d", branchID, from.Unix(), to.Unix())
	if cached, hit, err := s.reports.Get(ctx, key); err == nil && hit {
		return *cached, nil
	}

	report, err := s.repo.GetSalesReport(ctx, branchID, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	if err := s.reports.Set(ctx, key, report, reportCacheTTL); err != nil {
		log.Printf("[reports] WARN: failed to cache sales report: %v", err)
	}
	return *report, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, branchID string, limit int) ([]domain.AuditLog, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if principal.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, branchID, limit)
}

// effectiveBranch resolves which branch an operation acts on. A principal
// tied to a branch always operates on that branch; the request value only
// applies to unaffiliated users.
func effectiveBranch(principal domain.Principal, requested string) string {
	if principal.BranchID != nil && *principal.BranchID != "" {
		return *principal.BranchID
	}
	return strings.TrimSpace(requested)
}

func branchOrEmpty(principal domain.Principal) string {
	if principal.BranchID != nil {
		return *principal.BranchID
	}
	return ""
}

func batchLabel(batch domain.InventoryBatch) string {
	if batch.BatchNumber != nil {
		return *batch.BatchNumber
	}
	return "-"
}

func isValidBatchStatus(status string) bool {
	switch status {
	case domain.BatchStatusAvailable, domain.BatchStatusLowStock, domain.BatchStatusDiscontinued, domain.BatchStatusExpired:
		return true
	}
	return false
}

func isValidPaymentType(payment string) bool {
	switch payment {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentMobile:
		return true
	}
	return false
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) logAudit(ctx context.Context, branchID string, action string, entityType string, entityID string, detail string) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		principal = domain.Principal{UserID: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("adt"),
		BranchID:   branchID,
		ActorID:    principal.UserID,
		ActorRole:  principal.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
