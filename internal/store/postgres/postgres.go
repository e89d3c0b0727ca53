package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cabangpos/backend/internal/domain"
	"cabangpos/backend/internal/store"
	"cabangpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SKU == "" || product.Category == "" || product.PriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, barcode, description, category, brand, supplier, price_cents, cost_price_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, product.Name, product.SKU, nullStrPtr(product.Barcode), nullStrPtr(product.Description),
		product.Category, product.Brand, product.Supplier, product.PriceCents, product.CostPriceCents,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SKU == "" || product.Category == "" || product.PriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, sku = $3, barcode = $4, description = $5, category = $6, brand = $7, supplier = $8,
		    price_cents = $9, cost_price_cents = $10, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.SKU, nullStrPtr(product.Barcode), nullStrPtr(product.Description),
		product.Category, product.Brand, product.Supplier, product.PriceCents, product.CostPriceCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	product.UpdatedAt = time.Now().UTC()
	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.queryProduct(ctx, `WHERE id = $1`, id)
}

// FindProductByCode matches a barcode first, then an SKU.
func (s *Store) FindProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	product, err := s.queryProduct(ctx, `WHERE barcode = $1`, code)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.queryProduct(ctx, `WHERE sku = $1`, strings.ToUpper(code))
}

func (s *Store) queryProduct(ctx context.Context, where string, arg any) (*domain.Product, error) {
	var product domain.Product
	var barcode, description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, sku, barcode, description, category, brand, supplier, price_cents, cost_price_cents, created_at, updated_at
		FROM products
	`+where, arg).Scan(&product.ID, &product.Name, &product.SKU, &barcode, &description,
		&product.Category, &product.Brand, &product.Supplier, &product.PriceCents, &product.CostPriceCents,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if barcode.Valid {
		product.Barcode = &barcode.String
	}
	if description.Valid {
		product.Description = &description.String
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, barcode, description, category, brand, supplier, price_cents, cost_price_cents, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR sku ILIKE '%' || $2 || '%')
		ORDER BY category, name
		LIMIT $3
	`, filter.Category, strings.TrimSpace(filter.Search), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		var barcode, description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &barcode, &description, &p.Category, &p.Brand, &p.Supplier,
			&p.PriceCents, &p.CostPriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if barcode.Valid {
			p.Barcode = &barcode.String
		}
		if description.Valid {
			p.Description = &description.String
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	if strings.TrimSpace(branch.Name) == "" {
		return nil, store.ErrValidation
	}
	if branch.ID == "" {
		branch.ID = xid.New("brn")
	}
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, name, address, phone, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, branch.ID, branch.Name, nullStrPtr(branch.Address), nullStrPtr(branch.Phone), branch.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := branch
	return &created, nil
}

func (s *Store) GetBranchByID(ctx context.Context, id string) (*domain.Branch, error) {
	var branch domain.Branch
	var address, phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, phone, created_at
		FROM branches
		WHERE id = $1
	`, id).Scan(&branch.ID, &branch.Name, &address, &phone, &branch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if address.Valid {
		branch.Address = &address.String
	}
	if phone.Valid {
		branch.Phone = &phone.String
	}
	branch.CreatedAt = branch.CreatedAt.UTC()
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, phone, created_at
		FROM branches
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]domain.Branch, 0, 16)
	for rows.Next() {
		var branch domain.Branch
		var address, phone sql.NullString
		if err := rows.Scan(&branch.ID, &branch.Name, &address, &phone, &branch.CreatedAt); err != nil {
			return nil, err
		}
		if address.Valid {
			branch.Address = &address.String
		}
		if phone.Valid {
			branch.Phone = &phone.String
		}
		branch.CreatedAt = branch.CreatedAt.UTC()
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

// FindOpenBatch looks up a batch by its (product, branch, batch number)
// identity among non-discontinued rows. A null batch number only matches
// rows with no batch number.
func (s *Store) FindOpenBatch(ctx context.Context, productID string, branchID string, batchNumber *string) (*domain.InventoryBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, branch_id, batch_number, quantity, low_stock_threshold, expiry_date, status, created_at, updated_at
		FROM inventory_batches
		WHERE product_id = $1 AND branch_id = $2
		  AND batch_number IS NOT DISTINCT FROM $3
		  AND status <> 'DISCONTINUED'
		ORDER BY created_at ASC
		LIMIT 1
	`, productID, branchID, nullStrPtr(batchNumber))
	batch, err := scanBatch(row)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Store) CreateBatch(ctx context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error) {
	if batch.ProductID == "" || batch.BranchID == "" || batch.Quantity < 0 || batch.LowStockThreshold < 0 {
		return nil, store.ErrValidation
	}
	if batch.ID == "" {
		batch.ID = xid.New("bat")
	}
	if batch.Status == "" {
		batch.Status = domain.BatchStatusAvailable
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_batches (id, product_id, branch_id, batch_number, quantity, low_stock_threshold, expiry_date, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, batch.ID, batch.ProductID, batch.BranchID, nullStrPtr(batch.BatchNumber), batch.Quantity,
		batch.LowStockThreshold, nullDate(batch.ExpiryDate), batch.Status, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := batch
	return &created, nil
}

func (s *Store) UpdateBatch(ctx context.Context, batch domain.InventoryBatch) (*domain.InventoryBatch, error) {
	if batch.Quantity < 0 || batch.LowStockThreshold < 0 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_batches
		SET quantity = $2, low_stock_threshold = $3, expiry_date = $4, status = $5, updated_at = now()
		WHERE id = $1
	`, batch.ID, batch.Quantity, batch.LowStockThreshold, nullDate(batch.ExpiryDate), batch.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	batch.UpdatedAt = time.Now().UTC()
	updated := batch
	return &updated, nil
}

func (s *Store) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.product_id, b.branch_id, b.batch_number, b.quantity, b.low_stock_threshold,
		       b.expiry_date, b.status, b.created_at, b.updated_at, p.name, p.sku
		FROM inventory_batches b
		JOIN products p ON p.id = b.product_id
		WHERE ($1 = '' OR b.branch_id = $1)
		  AND ($2 = '' OR b.product_id = $2)
		  AND ($3 = false OR b.quantity <= b.low_stock_threshold)
		ORDER BY p.name, b.id
	`, filter.BranchID, filter.ProductID, filter.LowStockOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.InventoryItem, 0, 128)
	for rows.Next() {
		var item domain.InventoryItem
		var batchNumber sql.NullString
		var expiry sql.NullTime
		if err := rows.Scan(&item.ID, &item.ProductID, &item.BranchID, &batchNumber, &item.Quantity,
			&item.LowStockThreshold, &expiry, &item.Status, &item.CreatedAt, &item.UpdatedAt,
			&item.ProductName, &item.ProductSKU); err != nil {
			return nil, err
		}
		if batchNumber.Valid {
			item.BatchNumber = &batchNumber.String
		}
		if expiry.Valid {
			e := expiry.Time.UTC()
			item.ExpiryDate = &e
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListOpenBatches(ctx context.Context, branchID string) ([]domain.InventoryBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, branch_id, batch_number, quantity, low_stock_threshold, expiry_date, status, created_at, updated_at
		FROM inventory_batches
		WHERE status = 'AVAILABLE'
		  AND ($1 = '' OR branch_id = $1)
		ORDER BY id
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.InventoryBatch, 0, 128)
	for rows.Next() {
		batch, err := scanBatchRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *batch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSale deducts every line from available batches, soonest expiry first,
// inside one serializable transaction. Candidate batch rows are locked up
// front, so either the whole basket commits or nothing does.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.BranchID == "" || sale.PaymentType == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	total := int64(0)
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity < 1 {
			return nil, store.ErrValidation
		}

		batchRows, err := pgTx.QueryContext(ctx, `
			SELECT id, quantity
			FROM inventory_batches
			WHERE product_id = $1 AND branch_id = $2 AND status = 'AVAILABLE' AND quantity > 0
			ORDER BY expiry_date ASC NULLS LAST, created_at ASC
			FOR UPDATE
		`, item.ProductID, sale.BranchID)
		if err != nil {
			return nil, err
		}
		type batchState struct {
			id        string
			available int
		}
		batches := make([]batchState, 0, 8)
		available := 0
		for batchRows.Next() {
			var b batchState
			if err := batchRows.Scan(&b.id, &b.available); err != nil {
				_ = batchRows.Close()
				return nil, err
			}
			batches = append(batches, b)
			available += b.available
		}
		if err := batchRows.Err(); err != nil {
			_ = batchRows.Close()
			return nil, err
		}
		_ = batchRows.Close()

		if available < item.Quantity {
			return nil, &store.InsufficientStockError{
				ProductName: item.ProductName,
				Available:   available,
				Requested:   item.Quantity,
			}
		}

		remaining := item.Quantity
		for _, b := range batches {
			if remaining == 0 {
				break
			}
			used := remaining
			if used > b.available {
				used = b.available
			}
			_, err = pgTx.ExecContext(ctx, `
				UPDATE inventory_batches
				SET quantity = quantity - $1,
				    status = CASE WHEN quantity - $1 = 0 THEN 'DISCONTINUED' ELSE status END,
				    updated_at = now()
				WHERE id = $2
			`, used, b.id)
			if err != nil {
				return nil, err
			}
			remaining -= used
		}
		total += item.PriceCents
	}

	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.TotalCents = total

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, branch_id, cashier_id, payment_type, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sale.ID, sale.BranchID, sale.CashierID, sale.PaymentType, sale.TotalCents, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		if item.ID == "" {
			item.ID = xid.New("sli")
		}
		item.SaleID = sale.ID
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, unit_price_cents, price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPriceCents, item.PriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, cashier_id, payment_type, total_cents, created_at
		FROM sales
		WHERE ($1 = '' OR branch_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.BranchID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	index := map[string]int{}
	ids := make([]string, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.BranchID, &sale.CashierID, &sale.PaymentType, &sale.TotalCents, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sale.Items = make([]domain.SaleItem, 0, 4)
		index[sale.ID] = len(sales)
		ids = append(ids, sale.ID)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price_cents, price_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPriceCents, &item.PriceCents); err != nil {
			return nil, err
		}
		if pos, ok := index[item.SaleID]; ok {
			sales[pos].Items = append(sales[pos].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) GetSalesReport(ctx context.Context, branchID string, from, to time.Time) (*domain.SalesReport, error) {
	report := domain.SalesReport{
		BranchID:         branchID,
		From:             from,
		To:               to,
		ProductBreakdown: map[string]domain.ProductSales{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0), COUNT(*)
		FROM sales
		WHERE ($1 = '' OR branch_id = $1) AND created_at >= $2 AND created_at <= $3
	`, branchID, from, to).Scan(&report.TotalRevenueCents, &report.TotalTransactions)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.product_id, MAX(i.product_name), SUM(i.quantity), SUM(i.price_cents)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE ($1 = '' OR s.branch_id = $1) AND s.created_at >= $2 AND s.created_at <= $3
		GROUP BY i.product_id
	`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var entry domain.ProductSales
		if err := rows.Scan(&productID, &entry.Name, &entry.QuantitySold, &entry.RevenueCents); err != nil {
			return nil, err
		}
		report.TotalItemsSold += entry.QuantitySold
		report.ProductBreakdown[productID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &report, nil
}

// CreateAlertIfAbsent is a single conditional insert, so concurrent
// generator runs cannot produce duplicates. Returns the new alert, or nil
// when the dedup rules suppressed it.
func (s *Store) CreateAlertIfAbsent(ctx context.Context, candidate store.AlertCandidate) (*domain.Alert, error) {
	alert := candidate.Alert
	if alert.ID == "" {
		alert.ID = xid.New("alr")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO alerts (id, type, product_id, product_name, branch_id, batch_id, message, is_read, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, false, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts
			WHERE type = $2 AND product_id = $3 AND branch_id = $5 AND is_read = false
			  AND ($9 = false OR created_at >= date_trunc('day', $8::timestamptz))
		)
		RETURNING created_at
	`, alert.ID, alert.Type, alert.ProductID, alert.ProductName, alert.BranchID,
		nullStrPtr(alert.BatchID), alert.Message, alert.CreatedAt, candidate.DedupSameDay).Scan(&alert.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	created := alert
	return &created, nil
}

func (s *Store) SetBatchStatus(ctx context.Context, batchID string, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_batches
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, batchID, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, product_id, product_name, branch_id, batch_id, message, is_read, created_at
		FROM alerts
		WHERE ($1 = '' OR branch_id = $1)
		  AND ($2::boolean IS NULL OR is_read = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, filter.BranchID, nullBoolPtr(filter.IsRead), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0, limit)
	for rows.Next() {
		var alert domain.Alert
		var batchID sql.NullString
		if err := rows.Scan(&alert.ID, &alert.Type, &alert.ProductID, &alert.ProductName, &alert.BranchID,
			&batchID, &alert.Message, &alert.IsRead, &alert.CreatedAt); err != nil {
			return nil, err
		}
		if batchID.Valid {
			alert.BatchID = &batchID.String
		}
		alert.CreatedAt = alert.CreatedAt.UTC()
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *Store) MarkAlertRead(ctx context.Context, alertID string) (*domain.Alert, error) {
	var alert domain.Alert
	var batchID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		UPDATE alerts
		SET is_read = true
		WHERE id = $1
		RETURNING id, type, product_id, product_name, branch_id, batch_id, message, is_read, created_at
	`, alertID).Scan(&alert.ID, &alert.Type, &alert.ProductID, &alert.ProductName, &alert.BranchID,
		&batchID, &alert.Message, &alert.IsRead, &alert.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if batchID.Valid {
		alert.BatchID = &batchID.String
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	return &alert, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("adt")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, branch_id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, nullIfEmpty(entry.BranchID), entry.ActorID, entry.ActorRole, entry.Action,
		entry.EntityType, nullIfEmpty(entry.EntityID), entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, branchID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(branch_id, ''), actor_id, actor_role, action, entity_type, COALESCE(entity_id, ''), detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BranchID, &entry.ActorID, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, password, role, branch_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, user.ID, user.Username, user.Password, user.Role, nullStrPtr(user.BranchID), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, branch_id, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		var branchID sql.NullString
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &branchID, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		if branchID.Valid {
			user.BranchID = &branchID.String
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*domain.InventoryBatch, error) {
	batch, err := scanBatchRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return batch, nil
}

func scanBatchRows(row rowScanner) (*domain.InventoryBatch, error) {
	var batch domain.InventoryBatch
	var batchNumber sql.NullString
	var expiry sql.NullTime
	if err := row.Scan(&batch.ID, &batch.ProductID, &batch.BranchID, &batchNumber, &batch.Quantity,
		&batch.LowStockThreshold, &expiry, &batch.Status, &batch.CreatedAt, &batch.UpdatedAt); err != nil {
		return nil, err
	}
	if batchNumber.Valid {
		batch.BatchNumber = &batchNumber.String
	}
	if expiry.Valid {
		e := expiry.Time.UTC()
		batch.ExpiryDate = &e
	}
	batch.CreatedAt = batch.CreatedAt.UTC()
	batch.UpdatedAt = batch.UpdatedAt.UTC()
	return &batch, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullStrPtr(val *string) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return nowDateUTC(*val)
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullBoolPtr(val *bool) any {
	if val == nil {
		return nil
	}
	return *val
}
