package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cabangpos/backend/internal/domain"
)

func TestCreateSaleDrainsBatchesByExpiry(t *testing.T) {
	databaseURL := os.Getenv("CABANGPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CABANGPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd-sale-it-%d", stamp)
	branchID := fmt.Sprintf("brn-sale-it-%d", stamp)
	sku := fmt.Sprintf("SKU-SALE-IT-%d", stamp)
	batchA := fmt.Sprintf("bat-sale-it-a-%d", stamp)
	batchB := fmt.Sprintf("bat-sale-it-b-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE branch_id = $1`, branchID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_batches WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, branchID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, category, brand, supplier, price_cents, cost_price_cents, created_at, updated_at)
		VALUES ($1, 'Produk Sale IT', $2, 'dairy', 'Merek IT', 'PT Pemasok IT', 100, 60, now(), now())
	`, productID, sku); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, name, created_at)
		VALUES ($1, 'Cabang Sale IT', now())
	`, branchID); err != nil {
		t.Fatalf("insert branch: %v", err)
	}

	// Batch A expires first and holds 5 units, batch B holds 10.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_batches (id, product_id, branch_id, batch_number, quantity, low_stock_threshold, expiry_date, status, created_at, updated_at)
		VALUES
			($1, $3, $4, 'B-A', 5, 10, now() + interval '10 days', 'AVAILABLE', now(), now()),
			($2, $3, $4, 'B-B', 10, 10, now() + interval '40 days', 'AVAILABLE', now(), now())
	`, batchA, batchB, productID, branchID); err != nil {
		t.Fatalf("seed batches: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		BranchID:    branchID,
		CashierID:   "usr-sale-it",
		PaymentType: domain.PaymentCash,
		Items: []domain.SaleItem{{
			ProductID:      productID,
			ProductName:    "Produk Sale IT",
			Quantity:       8,
			UnitPriceCents: 100,
			PriceCents:     800,
		}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 800 {
		t.Fatalf("expected total 800, got %d", sale.TotalCents)
	}

	var qtyA, qtyB int
	var statusA, statusB string
	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity, status FROM inventory_batches WHERE id = $1
	`, batchA).Scan(&qtyA, &statusA); err != nil {
		t.Fatalf("query batch A: %v", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity, status FROM inventory_batches WHERE id = $1
	`, batchB).Scan(&qtyB, &statusB); err != nil {
		t.Fatalf("query batch B: %v", err)
	}

	if qtyA != 0 || statusA != "DISCONTINUED" {
		t.Fatalf("expected batch A drained and discontinued, got qty=%d status=%s", qtyA, statusA)
	}
	if qtyB != 7 || statusB != "AVAILABLE" {
		t.Fatalf("expected batch B at 7 and available, got qty=%d status=%s", qtyB, statusB)
	}

	// A basket larger than the remaining stock fails whole.
	_, err = s.CreateSale(ctx, domain.Sale{
		BranchID:    branchID,
		CashierID:   "usr-sale-it",
		PaymentType: domain.PaymentCard,
		Items: []domain.SaleItem{{
			ProductID:      productID,
			ProductName:    "Produk Sale IT",
			Quantity:       20,
			UnitPriceCents: 100,
			PriceCents:     2000,
		}},
	})
	if err == nil {
		t.Fatalf("expected insufficient stock error")
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity FROM inventory_batches WHERE id = $1
	`, batchB).Scan(&qtyB); err != nil {
		t.Fatalf("re-query batch B: %v", err)
	}
	if qtyB != 7 {
		t.Fatalf("expected failed sale to leave batch B at 7, got %d", qtyB)
	}
}
