package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cabangpos/backend/internal/domain"
	"cabangpos/backend/internal/store"
	"cabangpos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	branches        map[string]domain.Branch
	batches         map[string]domain.InventoryBatch
	sales           map[string]*domain.Sale
	alerts          map[string]domain.Alert
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		branches:        make(map[string]domain.Branch),
		batches:         make(map[string]domain.InventoryBatch),
		sales:           make(map[string]*domain.Sale),
		alerts:          make(map[string]domain.Alert),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(nil),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers(cashierBranchID *string) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		branchID *string
	}{
		{"admin", adminPwd, domain.RoleAdmin, nil},
		{"cashier", cashierPwd, domain.RoleCashier, cashierBranchID},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        xid.New("usr"),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			BranchID:  u.branchID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	branches := []domain.Branch{
		{ID: "brn-pusat", Name: "Cabang Pusat", Address: strPtr("Jl. Sudirman 12, Jakarta"), CreatedAt: now},
		{ID: "brn-kemang", Name: "Cabang Kemang", Address: strPtr("Jl. Kemang Raya 45, Jakarta"), CreatedAt: now},
	}

	products := []domain.Product{
		{ID: "prd-mie-01", Name: "Mie Goreng Instan", SKU: "SKU-MIE-01", Category: "grocery", Brand: "Indomie", PriceCents: 3500, CostPriceCents: 2700},
		{ID: "prd-telur-01", Name: "Telur 10 Butir", SKU: "SKU-TELUR-01", Category: "grocery", PriceCents: 26500, CostPriceCents: 22000},
		{ID: "prd-susu-01", Name: "Susu UHT 1L", SKU: "SKU-SUSU-01", Barcode: strPtr("8991002301122"), Category: "dairy", Brand: "Ultra", PriceCents: 18900, CostPriceCents: 15400},
		{ID: "prd-roti-01", Name: "Roti Tawar", SKU: "SKU-ROTI-01", Category: "bakery", PriceCents: 17800, CostPriceCents: 13500},
		{ID: "prd-kopi-01", Name: "Kopi Sachet", SKU: "SKU-KOPI-01", Category: "beverage", Brand: "Kapal Api", PriceCents: 2600, CostPriceCents: 1900},
		{ID: "prd-gula-01", Name: "Gula 1kg", SKU: "SKU-GULA-01", Category: "grocery", PriceCents: 17400, CostPriceCents: 14800},
		{ID: "prd-teh-01", Name: "Teh Celup", SKU: "SKU-TEH-01", Category: "beverage", PriceCents: 9800, CostPriceCents: 7600},
		{ID: "prd-air-01", Name: "Air Mineral 600ml", SKU: "SKU-AIR-01", Barcode: strPtr("8993675101011"), Category: "beverage", Brand: "Aqua", PriceCents: 3900, CostPriceCents: 2800},
		{ID: "prd-sabun-01", Name: "Sabun Mandi", SKU: "SKU-SABUN-01", Category: "household", PriceCents: 7400, CostPriceCents: 5500},
	}

	s := &Store{
		products:        make(map[string]domain.Product, len(products)),
		branches:        make(map[string]domain.Branch, len(branches)),
		batches:         make(map[string]domain.InventoryBatch),
		sales:           make(map[string]*domain.Sale),
		alerts:          make(map[string]domain.Alert),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(strPtr("brn-pusat")),
	}
	for _, b := range branches {
		s.branches[b.ID] = b
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	for _, p := range products {
		nearExpiry := now.AddDate(0, 0, 21)
		batch := domain.InventoryBatch{
			ID:                xid.New("bat"),
			ProductID:         p.ID,
			BranchID:          "brn-pusat",
			Quantity:          120,
			LowStockThreshold: 10,
			Status:            domain.BatchStatusAvailable,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if p.Category == "dairy" || p.Category == "bakery" {
			batch.BatchNumber = strPtr("B-" + p.SKU)
			batch.ExpiryDate = &nearExpiry
		}
		s.batches[batch.ID] = batch
	}
	return s
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SKU == "" || product.Category == "" || product.PriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrValidation
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrConflict
		}
		if product.Barcode != nil && existing.Barcode != nil && *existing.Barcode == *product.Barcode {
			return nil, store.ErrConflict
		}
	}

	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SKU == "" || product.Category == "" || product.PriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.products {
		if id == product.ID {
			continue
		}
		if existing.SKU == product.SKU {
			return nil, store.ErrConflict
		}
		if product.Barcode != nil && existing.Barcode != nil && *existing.Barcode == *product.Barcode {
			return nil, store.ErrConflict
		}
	}

	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

// FindProductByCode matches a barcode first, then an SKU.
func (s *Store) FindProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.products {
		if product.Barcode != nil && *product.Barcode == code {
			copyProduct := product
			return &copyProduct, nil
		}
	}
	upper := strings.ToUpper(code)
	for _, product := range s.products {
		if product.SKU == upper {
			copyProduct := product
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (s *Store) CreateBranch(_ context.Context, branch domain.Branch) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(branch.Name) == "" {
		return nil, store.ErrValidation
	}
	if branch.ID == "" {
		branch.ID = xid.New("brn")
	}
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = time.Now().UTC()
	}
	s.branches[branch.ID] = branch
	created := branch
	return &created, nil
}

func (s *Store) GetBranchByID(_ context.Context, id string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branch, exists := s.branches[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyBranch := branch
	return &copyBranch, nil
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	slices.SortFunc(branches, func(a, b domain.Branch) int {
		return cmpString(a.Name, b.Name)
	})
	return branches, nil
}

// FindOpenBatch looks up a batch by its (product, branch, batch number)
// identity among non-discontinued rows. A nil batch number only matches rows
// with no batch number.
func (s *Store) FindOpenBatch(_ context.Context, productID string, branchID string, batchNumber *string) (*domain.InventoryBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, batch := range s.batches {
		if batch.ProductID != productID || batch.BranchID != branchID {
			continue
		}
		if batch.Status == domain.BatchStatusDiscontinued {
			continue
		}
		if !batchNumberEqual(batch.BatchNumber, batchNumber) {
			continue
		}
		copyBatch := cloneBatch(batch)
		return &copyBatch, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateBatch(_ context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ProductID == "" || batch.BranchID == "" || batch.Quantity < 0 || batch.LowStockThreshold < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[batch.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.branches[batch.BranchID]; !exists {
		return nil, store.ErrNotFound
	}

	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = xid.New("bat")
	}
	if batch.Status == "" {
		batch.Status = domain.BatchStatusAvailable
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	s.batches[batch.ID] = cloneBatch(batch)
	created := cloneBatch(batch)
	return &created, nil
}

func (s *Store) UpdateBatch(_ context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.Quantity < 0 || batch.LowStockThreshold < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.batches[batch.ID]; !exists {
		return nil, store.ErrNotFound
	}
	batch.UpdatedAt = time.Now().UTC()
	s.batches[batch.ID] = cloneBatch(batch)
	updated := cloneBatch(batch)
	return &updated, nil
}

func (s *Store) ListInventory(_ context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryItem, 0, len(s.batches))
	for _, batch := range s.batches {
		if filter.BranchID != "" && batch.BranchID != filter.BranchID {
			continue
		}
		if filter.ProductID != "" && batch.ProductID != filter.ProductID {
			continue
		}
		if filter.LowStockOnly && batch.Quantity > batch.LowStockThreshold {
			continue
		}
		product, exists := s.products[batch.ProductID]
		if !exists {
			continue
		}
		result = append(result, domain.InventoryItem{
			InventoryBatch: cloneBatch(batch),
			ProductName:    product.Name,
			ProductSKU:     product.SKU,
		})
	}

	slices.SortFunc(result, func(a, b domain.InventoryItem) int {
		if a.ProductName == b.ProductName {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.ProductName, b.ProductName)
	})
	return result, nil
}

func (s *Store) ListOpenBatches(_ context.Context, branchID string) ([]domain.InventoryBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryBatch, 0, len(s.batches))
	for _, batch := range s.batches {
		if batch.Status != domain.BatchStatusAvailable {
			continue
		}
		if branchID != "" && batch.BranchID != branchID {
			continue
		}
		result = append(result, cloneBatch(batch))
	}
	slices.SortFunc(result, func(a, b domain.InventoryBatch) int {
		return cmpString(a.ID, b.ID)
	})
	return result, nil
}

// CreateSale validates every line against available batches before touching
// any of them, so a failure on a later line leaves no partial deduction.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.BranchID == "" || sale.PaymentType == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	type deduction struct {
		batchID string
		qty     int
	}
	plan := make([]deduction, 0, len(sale.Items))
	// Planned quantities per batch, so repeated lines for the same product
	// see what earlier lines already claimed.
	claimed := map[string]int{}

	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrValidation
		}
		candidates := s.openBatchesFor(item.ProductID, sale.BranchID)
		available := 0
		for _, b := range candidates {
			available += b.Quantity - claimed[b.ID]
		}
		if available < item.Quantity {
			return nil, &store.InsufficientStockError{
				ProductName: item.ProductName,
				Available:   available,
				Requested:   item.Quantity,
			}
		}
		remaining := item.Quantity
		for _, b := range candidates {
			if remaining == 0 {
				break
			}
			left := b.Quantity - claimed[b.ID]
			if left < 1 {
				continue
			}
			used := remaining
			if used > left {
				used = left
			}
			claimed[b.ID] += used
			plan = append(plan, deduction{batchID: b.ID, qty: used})
			remaining -= used
		}
	}

	now := time.Now().UTC()
	for _, d := range plan {
		batch := s.batches[d.batchID]
		batch.Quantity -= d.qty
		if batch.Quantity == 0 {
			batch.Status = domain.BatchStatusDiscontinued
		}
		batch.UpdatedAt = now
		s.batches[d.batchID] = batch
	}

	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	total := int64(0)
	for i := range sale.Items {
		if sale.Items[i].ID == "" {
			sale.Items[i].ID = xid.New("sli")
		}
		sale.Items[i].SaleID = sale.ID
		total += sale.Items[i].PriceCents
	}
	sale.TotalCents = total

	saved := cloneSale(&sale)
	s.sales[sale.ID] = saved
	return cloneSale(saved), nil
}

// openBatchesFor returns sellable batches for a product at a branch, ordered
// soonest expiry first (no expiry last), ties broken by creation time.
func (s *Store) openBatchesFor(productID string, branchID string) []domain.InventoryBatch {
	candidates := make([]domain.InventoryBatch, 0, 4)
	for _, batch := range s.batches {
		if batch.ProductID != productID || batch.BranchID != branchID {
			continue
		}
		if batch.Status != domain.BatchStatusAvailable || batch.Quantity < 1 {
			continue
		}
		candidates = append(candidates, batch)
	}
	slices.SortFunc(candidates, compareBatchFreshness)
	return candidates
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.BranchID != "" && sale.BranchID != filter.BranchID {
			continue
		}
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && sale.CreatedAt.After(*filter.To) {
			continue
		}
		result = append(result, *cloneSale(sale))
	}

	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) GetSalesReport(_ context.Context, branchID string, from, to time.Time) (*domain.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesReport{
		BranchID:         branchID,
		From:             from,
		To:               to,
		ProductBreakdown: map[string]domain.ProductSales{},
	}
	for _, sale := range s.sales {
		if branchID != "" && sale.BranchID != branchID {
			continue
		}
		// The range is inclusive on both ends.
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		report.TotalTransactions++
		report.TotalRevenueCents += sale.TotalCents
		for _, item := range sale.Items {
			report.TotalItemsSold += item.Quantity
			entry := report.ProductBreakdown[item.ProductID]
			if entry.Name == "" {
				entry.Name = item.ProductName
			}
			entry.QuantitySold += item.Quantity
			entry.RevenueCents += item.PriceCents
			report.ProductBreakdown[item.ProductID] = entry
		}
	}
	return &report, nil
}

// CreateAlertIfAbsent inserts the candidate unless an unread alert of the
// same type for the same product and branch already blocks it. Returns the
// new alert, or nil when the dedup rules suppressed it.
func (s *Store) CreateAlertIfAbsent(_ context.Context, candidate store.AlertCandidate) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert := candidate.Alert
	now := time.Now().UTC()
	today := nowDateUTC(now)
	for _, existing := range s.alerts {
		if existing.IsRead {
			continue
		}
		if existing.Type != alert.Type || existing.ProductID != alert.ProductID || existing.BranchID != alert.BranchID {
			continue
		}
		if candidate.DedupSameDay && !nowDateUTC(existing.CreatedAt).Equal(today) {
			continue
		}
		return nil, nil
	}

	if alert.ID == "" {
		alert.ID = xid.New("alr")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	s.alerts[alert.ID] = alert
	created := alert
	return &created, nil
}

func (s *Store) SetBatchStatus(_ context.Context, batchID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, exists := s.batches[batchID]
	if !exists {
		return store.ErrNotFound
	}
	batch.Status = status
	batch.UpdatedAt = time.Now().UTC()
	s.batches[batchID] = batch
	return nil
}

func (s *Store) ListAlerts(_ context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if filter.BranchID != "" && alert.BranchID != filter.BranchID {
			continue
		}
		if filter.IsRead != nil && alert.IsRead != *filter.IsRead {
			continue
		}
		result = append(result, alert)
	}

	slices.SortFunc(result, func(a, b domain.Alert) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) MarkAlertRead(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, exists := s.alerts[alertID]
	if !exists {
		return nil, store.ErrNotFound
	}
	alert.IsRead = true
	s.alerts[alertID] = alert
	copyAlert := alert
	return &copyAlert, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("adt")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, branchID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if branchID != "" && entry.BranchID != branchID {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func batchNumberEqual(a *string, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func compareBatchFreshness(a domain.InventoryBatch, b domain.InventoryBatch) int {
	if a.ExpiryDate == nil && b.ExpiryDate != nil {
		return 1
	}
	if a.ExpiryDate != nil && b.ExpiryDate == nil {
		return -1
	}
	if a.ExpiryDate != nil && b.ExpiryDate != nil {
		if a.ExpiryDate.Before(*b.ExpiryDate) {
			return -1
		}
		if a.ExpiryDate.After(*b.ExpiryDate) {
			return 1
		}
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	return cmpString(a.ID, b.ID)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneBatch(src domain.InventoryBatch) domain.InventoryBatch {
	dup := src
	if src.ExpiryDate != nil {
		expiry := src.ExpiryDate.UTC()
		dup.ExpiryDate = &expiry
	}
	if src.BatchNumber != nil {
		bn := *src.BatchNumber
		dup.BatchNumber = &bn
	}
	return dup
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}

func strPtr(s string) *string { return &s }
