package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cabangpos/backend/internal/domain"
	"cabangpos/backend/internal/store"
	"cabangpos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil)
}

func int64Ptr(v int64) *int64 { return &v }

func adminCtx() context.Context {
	return WithPrincipal(context.Background(), domain.Principal{
		UserID:   "usr-admin-test",
		Username: "admin",
		Role:     domain.RoleAdmin,
	})
}

func cashierCtx(branchID string) context.Context {
	return WithPrincipal(context.Background(), domain.Principal{
		UserID:   "usr-cashier-test",
		Username: "cashier",
		Role:     domain.RoleCashier,
		BranchID: &branchID,
	})
}

// seedBatches creates a product priced at 100 cents with two dated batches at
// brn-kemang: 5 units expiring soonest and 10 units expiring later. The
// seeded demo stock all lives at brn-pusat, so brn-kemang starts clean.
func seedBatches(t *testing.T, svc *Service) domain.Product {
	t.Helper()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           "Yogurt Cup",
		SKU:            "SKU-YOGURT-01",
		Category:       "dairy",
		PriceCents:     100,
		CostPriceCents: int64Ptr(60),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	soon := time.Now().UTC().AddDate(0, 0, 30)
	later := time.Now().UTC().AddDate(0, 0, 60)
	for _, b := range []struct {
		number string
		qty    int
		expiry time.Time
	}{
		{"B-001", 5, soon},
		{"B-002", 10, later},
	} {
		qty := b.qty
		number := b.number
		expiry := b.expiry
		if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
			ProductID:   product.ID,
			BranchID:    "brn-kemang",
			BatchNumber: &number,
			Quantity:    &qty,
			ExpiryDate:  &expiry,
		}); err != nil {
			t.Fatalf("seed batch %s: %v", b.number, err)
		}
	}
	return product
}

func batchByNumber(t *testing.T, svc *Service, productID string, number string) domain.InventoryItem {
	t.Helper()
	items, err := svc.ListInventory(adminCtx(), domain.InventoryFilter{ProductID: productID})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, item := range items {
		if item.BatchNumber != nil && *item.BatchNumber == number {
			return item
		}
	}
	t.Fatalf("batch %s not found for product %s", number, productID)
	return domain.InventoryItem{}
}

func TestCreateSaleDeductsFreshestBatchesFirst(t *testing.T) {
	svc := newTestService()
	product := seedBatches(t, svc)

	sale, err := svc.CreateSale(cashierCtx("brn-kemang"), domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items:       []domain.SaleLineRequest{{ProductID: product.ID, Quantity: 8}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 800 {
		t.Fatalf("expected total 800, got %d", sale.TotalCents)
	}
	if sale.PaymentType != domain.PaymentCash {
		t.Fatalf("expected CASH payment on sale, got %q", sale.PaymentType)
	}
	if len(sale.Items) != 1 || sale.Items[0].UnitPriceCents != 100 {
		t.Fatalf("unexpected sale items %+v", sale.Items)
	}

	first := batchByNumber(t, svc, product.ID, "B-001")
	if first.Quantity != 0 {
		t.Fatalf("expected first batch drained, got %d", first.Quantity)
	}
	if first.Status != domain.BatchStatusDiscontinued {
		t.Fatalf("expected drained batch DISCONTINUED, got %s", first.Status)
	}

	second := batchByNumber(t, svc, product.ID, "B-002")
	if second.Quantity != 7 {
		t.Fatalf("expected second batch at 7, got %d", second.Quantity)
	}
	if second.Status != domain.BatchStatusAvailable {
		t.Fatalf("expected second batch AVAILABLE, got %s", second.Status)
	}
}

func TestCreateSaleUndatedBatchesDrainLast(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           "Keripik Singkong",
		SKU:            "SKU-KERIPIK-01",
		Category:       "snack",
		PriceCents:     5500,
		CostPriceCents: int64Ptr(4000),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	expiry := time.Now().UTC().AddDate(0, 0, 90)
	dated, undated := "B-DATED", "B-UNDATED"
	qtyDated, qtyUndated := 4, 9
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: product.ID, BranchID: "brn-kemang", BatchNumber: &undated, Quantity: &qtyUndated,
	}); err != nil {
		t.Fatalf("seed undated batch: %v", err)
	}
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: product.ID, BranchID: "brn-kemang", BatchNumber: &dated, Quantity: &qtyDated, ExpiryDate: &expiry,
	}); err != nil {
		t.Fatalf("seed dated batch: %v", err)
	}

	if _, err := svc.CreateSale(cashierCtx("brn-kemang"), domain.SaleCreateRequest{
		PaymentType: domain.PaymentCard,
		Items:       []domain.SaleLineRequest{{ProductID: product.ID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if got := batchByNumber(t, svc, product.ID, "B-DATED").Quantity; got != 1 {
		t.Fatalf("expected dated batch drawn first (4-3=1), got %d", got)
	}
	if got := batchByNumber(t, svc, product.ID, "B-UNDATED").Quantity; got != 9 {
		t.Fatalf("expected undated batch untouched, got %d", got)
	}
}

func TestCreateSaleInsufficientStockLeavesNothingDeducted(t *testing.T) {
	svc := newTestService()
	product := seedBatches(t, svc)

	_, err := svc.CreateSale(cashierCtx("brn-kemang"), domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items: []domain.SaleLineRequest{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 20},
		},
	})
	if err == nil {
		t.Fatalf("expected insufficient stock error")
	}

	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductName != "Yogurt Cup" {
		t.Fatalf("unexpected product name %q", stockErr.ProductName)
	}
	// 15 on hand minus the 3 already claimed by the first line.
	if stockErr.Available != 12 || stockErr.Requested != 20 {
		t.Fatalf("unexpected available/requested %d/%d", stockErr.Available, stockErr.Requested)
	}

	// The valid first line must not have touched any batch.
	if got := batchByNumber(t, svc, product.ID, "B-001").Quantity; got != 5 {
		t.Fatalf("expected first batch untouched at 5, got %d", got)
	}
	if got := batchByNumber(t, svc, product.ID, "B-002").Quantity; got != 10 {
		t.Fatalf("expected second batch untouched at 10, got %d", got)
	}
}

func TestCreateSaleUsesCashierBranch(t *testing.T) {
	svc := newTestService()

	sale, err := svc.CreateSale(cashierCtx("brn-pusat"), domain.SaleCreateRequest{
		BranchID:    "brn-kemang",
		PaymentType: domain.PaymentMobile,
		Items:       []domain.SaleLineRequest{{ProductID: "prd-mie-01", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.BranchID != "brn-pusat" {
		t.Fatalf("expected sale at the cashier's branch, got %s", sale.BranchID)
	}
	if sale.CashierID != "usr-cashier-test" {
		t.Fatalf("expected cashier id on sale, got %s", sale.CashierID)
	}
}

func TestCreateSaleRejectsBranchlessPrincipal(t *testing.T) {
	svc := newTestService()

	// An unaffiliated user cannot sell, even with an explicit branch in the
	// request.
	_, err := svc.CreateSale(adminCtx(), domain.SaleCreateRequest{
		BranchID:    "brn-pusat",
		PaymentType: domain.PaymentCash,
		Items:       []domain.SaleLineRequest{{ProductID: "prd-mie-01", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for branchless principal, got %v", err)
	}

	items, err := svc.ListInventory(adminCtx(), domain.InventoryFilter{ProductID: "prd-mie-01"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 120 {
		t.Fatalf("expected seeded stock untouched, got %+v", items)
	}
}

func TestCreateSaleRejectsUnknownPaymentType(t *testing.T) {
	svc := newTestService()

	for _, payment := range []string{"", "BARTER", "cheque"} {
		_, err := svc.CreateSale(cashierCtx("brn-pusat"), domain.SaleCreateRequest{
			PaymentType: payment,
			Items:       []domain.SaleLineRequest{{ProductID: "prd-mie-01", Quantity: 1}},
		})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("payment %q: expected validation error, got %v", payment, err)
		}
	}

	// Lowercase spellings of the valid values are normalized, not rejected.
	sale, err := svc.CreateSale(cashierCtx("brn-pusat"), domain.SaleCreateRequest{
		PaymentType: "card",
		Items:       []domain.SaleLineRequest{{ProductID: "prd-mie-01", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.PaymentType != domain.PaymentCard {
		t.Fatalf("expected normalized CARD, got %q", sale.PaymentType)
	}
}

func TestCreateSaleUnknownProductFailsWhole(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateSale(cashierCtx("brn-pusat"), domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items: []domain.SaleLineRequest{
			{ProductID: "prd-mie-01", Quantity: 1},
			{ProductID: "prd-tidak-ada", Quantity: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	items, err := svc.ListInventory(adminCtx(), domain.InventoryFilter{ProductID: "prd-mie-01"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 120 {
		t.Fatalf("expected seeded stock untouched, got %+v", items)
	}
}

func TestUpdateInventoryUpsertsByBatchNumber(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	number := "B-100"
	qty := 30
	created, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:   "prd-mie-01",
		BranchID:    "brn-kemang",
		BatchNumber: &number,
		Quantity:    &qty,
	})
	if err != nil {
		t.Fatalf("create upsert: %v", err)
	}
	if created.Quantity != 30 || created.LowStockThreshold != 10 {
		t.Fatalf("expected qty 30 with default threshold 10, got %d/%d", created.Quantity, created.LowStockThreshold)
	}
	if created.Status != domain.BatchStatusAvailable {
		t.Fatalf("expected AVAILABLE, got %s", created.Status)
	}

	// A second upsert for the same key updates in place; omitted fields stay.
	threshold := 15
	updated, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:         "prd-mie-01",
		BranchID:          "brn-kemang",
		BatchNumber:       &number,
		LowStockThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("expected same batch updated, got %s vs %s", updated.ID, created.ID)
	}
	if updated.Quantity != 30 || updated.LowStockThreshold != 15 {
		t.Fatalf("expected qty kept at 30 and threshold 15, got %d/%d", updated.Quantity, updated.LowStockThreshold)
	}

	// A different batch number creates a sibling batch.
	other := "B-200"
	sibling, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:   "prd-mie-01",
		BranchID:    "brn-kemang",
		BatchNumber: &other,
	})
	if err != nil {
		t.Fatalf("sibling upsert: %v", err)
	}
	if sibling.ID == created.ID {
		t.Fatalf("expected a new batch for a new batch number")
	}
	if sibling.Quantity != 0 {
		t.Fatalf("expected new batch to default to zero quantity, got %d", sibling.Quantity)
	}
}

func TestUpdateInventoryValidation(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	neg := -1
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-mie-01", BranchID: "brn-pusat", Quantity: &neg,
	}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}

	bad := "BROKEN"
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-mie-01", BranchID: "brn-pusat", Status: &bad,
	}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	lowStock := domain.BatchStatusLowStock
	batch, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-mie-01", BranchID: "brn-pusat", Status: &lowStock,
	})
	if err != nil {
		t.Fatalf("expected LOW_STOCK to be a valid status, got %v", err)
	}
	if batch.Status != domain.BatchStatusLowStock {
		t.Fatalf("expected status LOW_STOCK, got %s", batch.Status)
	}

	qty := 1
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-tidak-ada", BranchID: "brn-pusat", Quantity: &qty,
	}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestGenerateAlertsLowStockDedupSameDay(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	qty := 3
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-gula-01", BranchID: "brn-pusat", Quantity: &qty,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := svc.GenerateAlerts(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(first) < 1 {
		t.Fatalf("expected at least one alert, got %d", len(first))
	}

	isRead := false
	alerts, err := svc.ListAlerts(ctx, domain.AlertFilter{IsRead: &isRead})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	var lowStock *domain.Alert
	for i := range alerts {
		if alerts[i].Type == domain.AlertLowStock && alerts[i].ProductID == "prd-gula-01" {
			lowStock = &alerts[i]
			break
		}
	}
	if lowStock == nil {
		t.Fatalf("expected a low stock alert for prd-gula-01")
	}

	// Rerunning in the same day while the alert is unread adds nothing.
	count := countAlerts(t, svc, domain.AlertLowStock, "prd-gula-01")
	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertLowStock, "prd-gula-01"); got != count {
		t.Fatalf("expected no duplicate alert, had %d now %d", count, got)
	}

	// After the alert is read the next pass may raise a fresh one.
	if _, err := svc.MarkAlertAsRead(ctx, lowStock.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("third generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertLowStock, "prd-gula-01"); got != count+1 {
		t.Fatalf("expected a fresh alert after read, had %d now %d", count, got)
	}
}

func TestGenerateAlertsExpiresBatch(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	number := "B-OLD"
	qty := 8
	batch, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:   "prd-susu-01",
		BranchID:    "brn-kemang",
		BatchNumber: &number,
		Quantity:    &qty,
		ExpiryDate:  &yesterday,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got := countAlerts(t, svc, domain.AlertExpired, "prd-susu-01"); got != 1 {
		t.Fatalf("expected one expired alert, got %d", got)
	}

	items, err := svc.ListInventory(ctx, domain.InventoryFilter{ProductID: "prd-susu-01", BranchID: "brn-kemang"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	var found bool
	for _, item := range items {
		if item.ID == batch.ID {
			found = true
			if item.Status != domain.BatchStatusExpired {
				t.Fatalf("expected batch EXPIRED, got %s", item.Status)
			}
		}
	}
	if !found {
		t.Fatalf("expired batch missing from inventory listing")
	}

	// An EXPIRED batch leaves the open set, so a rerun adds nothing even on
	// a later day.
	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertExpired, "prd-susu-01"); got != 1 {
		t.Fatalf("expected still one expired alert, got %d", got)
	}
}

func countAlerts(t *testing.T, svc *Service, alertType string, productID string) int {
	t.Helper()
	alerts, err := svc.ListAlerts(adminCtx(), domain.AlertFilter{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	count := 0
	for _, alert := range alerts {
		if alert.Type == alertType && alert.ProductID == productID {
			count++
		}
	}
	return count
}

func TestGenerateAlertsScopedToCashierBranch(t *testing.T) {
	svc := newTestService()
	admin := adminCtx()

	// Low stock at both branches; the cashier's scan must only see kemang.
	qtyPusat := 3
	if _, err := svc.UpdateInventory(admin, domain.InventoryUpdateRequest{
		ProductID: "prd-gula-01", BranchID: "brn-pusat", Quantity: &qtyPusat,
	}); err != nil {
		t.Fatalf("upsert pusat: %v", err)
	}
	qtyKemang := 2
	if _, err := svc.UpdateInventory(admin, domain.InventoryUpdateRequest{
		ProductID: "prd-sabun-01", BranchID: "brn-kemang", Quantity: &qtyKemang,
	}); err != nil {
		t.Fatalf("upsert kemang: %v", err)
	}

	created, err := svc.GenerateAlerts(cashierCtx("brn-kemang"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(created) == 0 {
		t.Fatalf("expected the cashier scan to raise alerts at its branch")
	}
	for _, alert := range created {
		if alert.BranchID != "brn-kemang" {
			t.Fatalf("expected only brn-kemang alerts, got one for %s", alert.BranchID)
		}
	}
	if got := countAlerts(t, svc, domain.AlertLowStock, "prd-gula-01"); got != 0 {
		t.Fatalf("expected no alert for the other branch, got %d", got)
	}
}

func TestGenerateAlertsReturnsOnlyNewAlerts(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	qty := 4
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-kopi-01", BranchID: "brn-pusat", Quantity: &qty,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := svc.GenerateAlerts(ctx)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if len(first) == 0 {
		t.Fatalf("expected new alerts on the first pass")
	}
	for _, alert := range first {
		if alert.ID == "" || alert.CreatedAt.IsZero() {
			t.Fatalf("expected persisted alert in the result, got %+v", alert)
		}
	}

	second, err := svc.GenerateAlerts(ctx)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected an empty result when everything deduped, got %d", len(second))
	}
}

func TestGenerateAlertsLowStockOnZeroQuantityBatch(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	// The upsert defaults a fresh batch to zero quantity; it still counts as
	// low stock while AVAILABLE.
	number := "B-EMPTY"
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID: "prd-sabun-01", BranchID: "brn-kemang", BatchNumber: &number,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertLowStock, "prd-sabun-01"); got != 1 {
		t.Fatalf("expected a low stock alert for the empty batch, got %d", got)
	}
}

func TestGenerateAlertsNearExpiryWindow(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	soon := time.Now().UTC().AddDate(0, 0, 3)
	number := "B-SOON"
	qty := 50
	if _, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:   "prd-susu-01",
		BranchID:    "brn-kemang",
		BatchNumber: &number,
		Quantity:    &qty,
		ExpiryDate:  &soon,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertNearExpiry, "prd-susu-01"); got != 1 {
		t.Fatalf("expected one near expiry alert, got %d", got)
	}

	// Same-day rerun while unread adds nothing.
	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertNearExpiry, "prd-susu-01"); got != 1 {
		t.Fatalf("expected no duplicate near expiry alert, got %d", got)
	}

	// Once read, the next pass raises a fresh one.
	isRead := false
	alerts, err := svc.ListAlerts(ctx, domain.AlertFilter{IsRead: &isRead})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	for _, alert := range alerts {
		if alert.Type == domain.AlertNearExpiry && alert.ProductID == "prd-susu-01" {
			if _, err := svc.MarkAlertAsRead(ctx, alert.ID); err != nil {
				t.Fatalf("mark read: %v", err)
			}
		}
	}
	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("third generate: %v", err)
	}
	if got := countAlerts(t, svc, domain.AlertNearExpiry, "prd-susu-01"); got != 2 {
		t.Fatalf("expected a fresh near expiry alert after read, got %d", got)
	}
}

func TestGenerateAlertsExpiresBatchOnItsExpiryDay(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	today := time.Now().UTC()
	number := "B-TODAY"
	qty := 6
	batch, err := svc.UpdateInventory(ctx, domain.InventoryUpdateRequest{
		ProductID:   "prd-roti-01",
		BranchID:    "brn-kemang",
		BatchNumber: &number,
		Quantity:    &qty,
		ExpiryDate:  &today,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.GenerateAlerts(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// The expiry day itself counts as expired, not near expiry.
	if got := countAlerts(t, svc, domain.AlertExpired, "prd-roti-01"); got != 1 {
		t.Fatalf("expected one expired alert, got %d", got)
	}
	if got := countAlerts(t, svc, domain.AlertNearExpiry, "prd-roti-01"); got != 0 {
		t.Fatalf("expected no near expiry alert on the boundary day, got %d", got)
	}

	items, err := svc.ListInventory(ctx, domain.InventoryFilter{ProductID: "prd-roti-01", BranchID: "brn-kemang"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, item := range items {
		if item.ID == batch.ID && item.Status != domain.BatchStatusExpired {
			t.Fatalf("expected batch EXPIRED, got %s", item.Status)
		}
	}
}

func TestGetSalesReportDefaultsToTrailingWeek(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx("brn-pusat")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items:       []domain.SaleLineRequest{{ProductID: "prd-air-01", Quantity: 4}},
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	report, err := svc.GetSalesReport(ctx, domain.SalesReportRequest{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalTransactions != 1 {
		t.Fatalf("expected 1 transaction, got %d", report.TotalTransactions)
	}
	if report.TotalRevenueCents != 4*3900 {
		t.Fatalf("unexpected revenue %d", report.TotalRevenueCents)
	}
	if report.TotalItemsSold != 4 {
		t.Fatalf("expected 4 items sold, got %d", report.TotalItemsSold)
	}
	if span := report.To.Sub(report.From); span != 7*24*time.Hour {
		t.Fatalf("expected a seven day window, got %s", span)
	}
	entry, ok := report.ProductBreakdown["prd-air-01"]
	if !ok {
		t.Fatalf("expected breakdown entry for prd-air-01")
	}
	if entry.QuantitySold != 4 || entry.RevenueCents != 4*3900 {
		t.Fatalf("unexpected breakdown %+v", entry)
	}
}

func TestGetSalesReportIncludesSaleAtRangeEnd(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx("brn-pusat")

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items:       []domain.SaleLineRequest{{ProductID: "prd-teh-01", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// The range end is inclusive; a sale stamped exactly at it counts.
	from := sale.CreatedAt.AddDate(0, 0, -1)
	to := sale.CreatedAt
	report, err := svc.GetSalesReport(ctx, domain.SalesReportRequest{From: &from, To: &to})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalTransactions != 1 {
		t.Fatalf("expected the sale at the end instant to count, got %d transactions", report.TotalTransactions)
	}
	if report.TotalRevenueCents != 2*9800 {
		t.Fatalf("unexpected revenue %d", report.TotalRevenueCents)
	}
}

func TestGetSalesReportRejectsInvertedRange(t *testing.T) {
	svc := newTestService()
	from := time.Now().UTC()
	to := from.AddDate(0, 0, -1)

	_, err := svc.GetSalesReport(adminCtx(), domain.SalesReportRequest{From: &from, To: &to})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLookupProductMatchesBarcodeBeforeSKU(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	barcode := "SKU-MIE-01"
	shadow, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           "Mie Goreng Ekspor",
		SKU:            "SKU-MIE-EXP",
		Barcode:        &barcode,
		Category:       "grocery",
		PriceCents:     4100,
		CostPriceCents: int64Ptr(3200),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	found, err := svc.LookupProduct(ctx, "SKU-MIE-01")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != shadow.ID {
		t.Fatalf("expected barcode match to win, got %s", found.ID)
	}
}

func TestCreateProductRequiresCostPrice(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:       "Minyak Goreng 1L",
		SKU:        "SKU-MINYAK-01",
		Category:   "grocery",
		PriceCents: 21000,
	}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error without cost price, got %v", err)
	}

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           "Minyak Goreng 1L",
		SKU:            "SKU-MINYAK-01",
		Category:       "grocery",
		PriceCents:     21000,
		CostPriceCents: int64Ptr(-1),
	}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative cost price, got %v", err)
	}

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           "Minyak Goreng 1L",
		SKU:            "SKU-MINYAK-01",
		Category:       "grocery",
		Brand:          "Bimoli",
		Supplier:       "PT Sumber Pangan",
		PriceCents:     21000,
		CostPriceCents: int64Ptr(17500),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.CostPriceCents != 17500 || product.Brand != "Bimoli" || product.Supplier != "PT Sumber Pangan" {
		t.Fatalf("unexpected product fields %+v", product)
	}
}

func TestCreateProductAllowsZeroPrice(t *testing.T) {
	svc := newTestService()

	// Free sample items carry a zero selling price.
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:           "Sampel Kopi",
		SKU:            "SKU-SAMPEL-01",
		Category:       "beverage",
		PriceCents:     0,
		CostPriceCents: int64Ptr(0),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.PriceCents != 0 {
		t.Fatalf("expected zero price kept, got %d", product.PriceCents)
	}
}

func TestMarkAlertAsReadUnknownID(t *testing.T) {
	svc := newTestService()
	if _, err := svc.MarkAlertAsRead(adminCtx(), "alr-nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOperationsRequireAuthentication(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.ListProducts(ctx, domain.ProductFilter{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("list products: expected unauthenticated, got %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentType: domain.PaymentCash,
		Items:       []domain.SaleLineRequest{{ProductID: "prd-mie-01", Quantity: 1}},
	}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("create sale: expected unauthenticated, got %v", err)
	}
	if _, err := svc.GetSalesReport(ctx, domain.SalesReportRequest{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("report: expected unauthenticated, got %v", err)
	}
}

func TestBranchScopedListsIgnoreRequestedBranch(t *testing.T) {
	svc := newTestService()

	// The cashier is tied to brn-pusat; asking for brn-kemang still yields
	// brn-pusat data only.
	items, err := svc.ListInventory(cashierCtx("brn-pusat"), domain.InventoryFilter{BranchID: "brn-kemang"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected seeded inventory at brn-pusat")
	}
	for _, item := range items {
		if item.BranchID != "brn-pusat" {
			t.Fatalf("expected only brn-pusat batches, got %s", item.BranchID)
		}
	}
}
