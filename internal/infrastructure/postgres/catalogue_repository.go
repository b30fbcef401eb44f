package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/palletspace/booking-service/internal/domain"
)

// CatalogueRepository implements domain.CatalogueRepository on PostgreSQL
type CatalogueRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogueRepository creates a new CatalogueRepository
func NewCatalogueRepository(pool *pgxpool.Pool) *CatalogueRepository {
	return &CatalogueRepository{pool: pool}
}

// GetWarehouse retrieves a warehouse with its drop-in slots
func (r *CatalogueRepository) GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	var (
		w           domain.Warehouse
		workingDays []int16
		goodsTypes  []string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, name, working_days, total_pallet_slots, total_sqft,
		       requires_prepayment, goods_type_options
		FROM warehouses
		WHERE id = $1`, warehouseID).
		Scan(&w.ID, &w.CompanyID, &w.Name, &workingDays, &w.TotalPalletSlots, &w.TotalSqFt,
			&w.RequiresPrepayment, &goodsTypes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}

	w.WorkingDays = make([]time.Weekday, 0, len(workingDays))
	for _, d := range workingDays {
		w.WorkingDays = append(w.WorkingDays, time.Weekday(d))
	}
	for _, g := range goodsTypes {
		w.GoodsTypeOptions = append(w.GoodsTypeOptions, domain.GoodsType(g))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT slot_time, max_drop_ins
		FROM warehouse_time_slots
		WHERE warehouse_id = $1
		ORDER BY slot_time`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get time slots: %w", err)
	}
	w.TimeSlots, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SlotDefinition, error) {
		var s domain.SlotDefinition
		err := row.Scan(&s.Time, &s.MaxDropIns)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan time slots: %w", err)
	}

	return &w, nil
}

// GetPricing loads the pricing configuration of a warehouse from one
// snapshot. A warehouse without any configuration returns nil.
func (r *CatalogueRepository) GetPricing(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin pricing read: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)`, warehouseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check warehouse: %w", err)
	}
	if !exists {
		return nil, domain.ErrWarehouseNotFound
	}

	var rs pricingRows
	if err := rs.load(ctx, tx, warehouseID); err != nil {
		return nil, err
	}
	return rs.assemble(warehouseID)
}

// SavePricing replaces the whole pricing configuration of a warehouse
func (r *CatalogueRepository) SavePricing(ctx context.Context, pricing *domain.WarehousePricing) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM warehouses WHERE id = $1 FOR UPDATE`, pricing.WarehouseID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWarehouseNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock warehouse: %w", err)
		}

		batch := &pgx.Batch{}
		for _, table := range []string{"pricing_entries", "free_storage_rules", "volume_discounts", "warehouse_flat_rates"} {
			batch.Queue(`DELETE FROM `+table+` WHERE warehouse_id = $1`, pricing.WarehouseID)
		}
		queuePricing(batch, pricing)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save pricing: %w", err)
		}
		return nil
	})
}

// queuePricing appends the inserts for pricing to batch. Entry and custom
// size ids are namespaced by warehouse since they are only unique within one.
func queuePricing(batch *pgx.Batch, pricing *domain.WarehousePricing) {
	wh := pricing.WarehouseID

	if pricing.PricePerPalletPerDay != nil || pricing.PricePerSqFtPerMonth != nil {
		batch.Queue(`
			INSERT INTO warehouse_flat_rates (warehouse_id, price_per_pallet_per_day, price_per_sqft_per_month)
			VALUES ($1, $2::numeric, $3::numeric)`,
			wh, decimalArg(pricing.PricePerPalletPerDay), decimalArg(pricing.PricePerSqFtPerMonth))
	}

	for i, e := range pricing.Entries {
		entryID := rowID(wh, e.ID, fmt.Sprintf("entry-%d", i))
		batch.Queue(`
			INSERT INTO pricing_entries (id, warehouse_id, goods_type, pallet_type, pricing_period, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			entryID, wh, string(e.GoodsType), string(e.PalletKind), string(e.Period), i)

		for j, h := range e.HeightRanges {
			queueHeightRange(batch, entryID, nil, h, j)
		}
		for j, w := range e.WeightRanges {
			batch.Queue(`
				INSERT INTO pricing_weight_ranges (id, entry_id, min_kg, max_kg, price_per_pallet, position)
				VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
				w.ID, entryID, w.MinKg, w.MaxKg, w.PricePerPallet.String(), j)
		}
		for j, c := range e.CustomSizes {
			sizeID := rowID(entryID, c.ID, fmt.Sprintf("size-%d", j))
			batch.Queue(`
				INSERT INTO pricing_custom_sizes (id, entry_id, name, length_cm, width_cm, position)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				sizeID, entryID, c.Name, c.LengthCm, c.WidthCm, j)
			for k, h := range c.HeightRanges {
				queueHeightRange(batch, entryID, &sizeID, h, k)
			}
		}
	}

	for i, rule := range pricing.FreeStorageRules {
		batch.Queue(`
			INSERT INTO free_storage_rules (id, warehouse_id, min_duration, max_duration, duration_unit, free_amount, free_unit, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rule.ID, wh, rule.MinDuration, rule.MaxDuration, string(rule.DurationUnit), rule.FreeAmount, string(rule.FreeUnit), i)
	}

	for _, d := range pricing.VolumeDiscounts {
		batch.Queue(`
			INSERT INTO volume_discounts (warehouse_id, id, min_pallets, discount_percent)
			VALUES ($1, $2, $3, $4::numeric)`,
			wh, d.ID, d.MinPallets, d.DiscountPercent.String())
	}
}

func queueHeightRange(batch *pgx.Batch, entryID string, sizeID *string, h domain.HeightRange, position int) {
	batch.Queue(`
		INSERT INTO pricing_height_ranges (id, entry_id, custom_size_id, min_cm, max_cm, price_per_unit, position)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
		h.ID, entryID, sizeID, h.MinCm, h.MaxCm, h.PricePerUnit.String(), position)
}

// rowID prefixes id, or fallback when id is empty, with scope
func rowID(scope, id, fallback string) string {
	if id == "" {
		id = fallback
	}
	return scope + "/" + id
}

// localID strips the scope rowID added
func localID(scope, id string) string {
	return strings.TrimPrefix(id, scope+"/")
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
