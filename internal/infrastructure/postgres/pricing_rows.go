package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/palletspace/booking-service/internal/domain"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type entryRow struct {
	ID         string
	GoodsType  string
	PalletKind string
	Period     string
}

type customSizeRow struct {
	ID       string
	EntryID  string
	Name     string
	LengthCm float64
	WidthCm  float64
}

type heightRangeRow struct {
	ID           string
	EntryID      string
	CustomSizeID *string
	MinCm        float64
	MaxCm        *float64
	PricePerUnit string
}

type weightRangeRow struct {
	ID             string
	EntryID        string
	MinKg          float64
	MaxKg          *float64
	PricePerPallet string
}

type discountRow struct {
	ID              string
	MinPallets      int
	DiscountPercent string
}

// pricingRows is the flat relational form of a warehouse's pricing
type pricingRows struct {
	PalletPerDay *string
	SqFtPerMonth *string
	HasFlatRates bool
	Entries      []entryRow
	CustomSizes  []customSizeRow
	HeightRanges []heightRangeRow
	WeightRanges []weightRangeRow
	Rules        []domain.FreeStorageRule
	Discounts    []discountRow
}

func (rs *pricingRows) load(ctx context.Context, q querier, warehouseID string) error {
	rows, err := q.Query(ctx, `
		SELECT price_per_pallet_per_day::text, price_per_sqft_per_month::text
		FROM warehouse_flat_rates
		WHERE warehouse_id = $1`, warehouseID)
	if err != nil {
		return fmt.Errorf("failed to query flat rates: %w", err)
	}
	for rows.Next() {
		rs.HasFlatRates = true
		if err := rows.Scan(&rs.PalletPerDay, &rs.SqFtPerMonth); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan flat rates: %w", err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read flat rates: %w", err)
	}

	rs.Entries, err = collect(ctx, q, "pricing entries", `
		SELECT id, goods_type, pallet_type, pricing_period
		FROM pricing_entries
		WHERE warehouse_id = $1
		ORDER BY position`, warehouseID,
		func(row pgx.CollectableRow) (entryRow, error) {
			var e entryRow
			err := row.Scan(&e.ID, &e.GoodsType, &e.PalletKind, &e.Period)
			return e, err
		})
	if err != nil {
		return err
	}

	rs.CustomSizes, err = collect(ctx, q, "custom sizes", `
		SELECT s.id, s.entry_id, s.name, s.length_cm, s.width_cm
		FROM pricing_custom_sizes s
		JOIN pricing_entries e ON e.id = s.entry_id
		WHERE e.warehouse_id = $1
		ORDER BY s.entry_id, s.position`, warehouseID,
		func(row pgx.CollectableRow) (customSizeRow, error) {
			var c customSizeRow
			err := row.Scan(&c.ID, &c.EntryID, &c.Name, &c.LengthCm, &c.WidthCm)
			return c, err
		})
	if err != nil {
		return err
	}

	rs.HeightRanges, err = collect(ctx, q, "height ranges", `
		SELECT h.id, h.entry_id, h.custom_size_id, h.min_cm, h.max_cm, h.price_per_unit::text
		FROM pricing_height_ranges h
		JOIN pricing_entries e ON e.id = h.entry_id
		WHERE e.warehouse_id = $1
		ORDER BY h.entry_id, h.position`, warehouseID,
		func(row pgx.CollectableRow) (heightRangeRow, error) {
			var h heightRangeRow
			err := row.Scan(&h.ID, &h.EntryID, &h.CustomSizeID, &h.MinCm, &h.MaxCm, &h.PricePerUnit)
			return h, err
		})
	if err != nil {
		return err
	}

	rs.WeightRanges, err = collect(ctx, q, "weight ranges", `
		SELECT w.id, w.entry_id, w.min_kg, w.max_kg, w.price_per_pallet::text
		FROM pricing_weight_ranges w
		JOIN pricing_entries e ON e.id = w.entry_id
		WHERE e.warehouse_id = $1
		ORDER BY w.entry_id, w.position`, warehouseID,
		func(row pgx.CollectableRow) (weightRangeRow, error) {
			var w weightRangeRow
			err := row.Scan(&w.ID, &w.EntryID, &w.MinKg, &w.MaxKg, &w.PricePerPallet)
			return w, err
		})
	if err != nil {
		return err
	}

	rs.Rules, err = collect(ctx, q, "free storage rules", `
		SELECT id, min_duration, max_duration, duration_unit, free_amount, free_unit
		FROM free_storage_rules
		WHERE warehouse_id = $1
		ORDER BY position`, warehouseID,
		func(row pgx.CollectableRow) (domain.FreeStorageRule, error) {
			var (
				r domain.FreeStorageRule
				unit, freeUnit string
			)
			err := row.Scan(&r.ID, &r.MinDuration, &r.MaxDuration, &unit, &r.FreeAmount, &freeUnit)
			r.DurationUnit = domain.DurationUnit(unit)
			r.FreeUnit = domain.DurationUnit(freeUnit)
			return r, err
		})
	if err != nil {
		return err
	}

	rs.Discounts, err = collect(ctx, q, "volume discounts", `
		SELECT id, min_pallets, discount_percent::text
		FROM volume_discounts
		WHERE warehouse_id = $1
		ORDER BY min_pallets`, warehouseID,
		func(row pgx.CollectableRow) (discountRow, error) {
			var d discountRow
			err := row.Scan(&d.ID, &d.MinPallets, &d.DiscountPercent)
			return d, err
		})
	return err
}

func collect[T any](ctx context.Context, q querier, what, sql, warehouseID string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := q.Query(ctx, sql, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", what, err)
	}
	return out, nil
}

// assemble nests the flat rows back into a WarehousePricing. Nothing
// configured at all yields nil.
func (rs *pricingRows) assemble(warehouseID string) (*domain.WarehousePricing, error) {
	if !rs.HasFlatRates && len(rs.Entries) == 0 && len(rs.Rules) == 0 && len(rs.Discounts) == 0 {
		return nil, nil
	}

	pricing := &domain.WarehousePricing{
		WarehouseID:      warehouseID,
		Entries:          make([]domain.PricingEntry, 0, len(rs.Entries)),
		FreeStorageRules: rs.Rules,
		VolumeDiscounts:  make([]domain.VolumeDiscount, 0, len(rs.Discounts)),
	}

	var err error
	if pricing.PricePerPalletPerDay, err = optionalDecimal(rs.PalletPerDay); err != nil {
		return nil, err
	}
	if pricing.PricePerSqFtPerMonth, err = optionalDecimal(rs.SqFtPerMonth); err != nil {
		return nil, err
	}

	entryIndex := make(map[string]int, len(rs.Entries))
	for i, e := range rs.Entries {
		entryIndex[e.ID] = i
		pricing.Entries = append(pricing.Entries, domain.PricingEntry{
			ID:          localID(warehouseID, e.ID),
			WarehouseID: warehouseID,
			GoodsType:   domain.GoodsType(e.GoodsType),
			PalletKind:  domain.PalletKind(e.PalletKind),
			Period:      domain.PricingPeriod(e.Period),
		})
	}

	type sizeRef struct{ entry, size int }
	sizeIndex := make(map[string]sizeRef, len(rs.CustomSizes))
	for _, c := range rs.CustomSizes {
		i, ok := entryIndex[c.EntryID]
		if !ok {
			continue
		}
		entry := &pricing.Entries[i]
		sizeIndex[c.ID] = sizeRef{entry: i, size: len(entry.CustomSizes)}
		entry.CustomSizes = append(entry.CustomSizes, domain.CustomSize{
			ID:       localID(c.EntryID, c.ID),
			Name:     c.Name,
			LengthCm: c.LengthCm,
			WidthCm:  c.WidthCm,
		})
	}

	for _, h := range rs.HeightRanges {
		price, err := decimal.NewFromString(h.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("invalid height range price %q: %w", h.PricePerUnit, err)
		}
		hr := domain.HeightRange{ID: h.ID, MinCm: h.MinCm, MaxCm: h.MaxCm, PricePerUnit: price}

		if h.CustomSizeID != nil {
			ref, ok := sizeIndex[*h.CustomSizeID]
			if !ok {
				continue
			}
			size := &pricing.Entries[ref.entry].CustomSizes[ref.size]
			size.HeightRanges = append(size.HeightRanges, hr)
			continue
		}
		if i, ok := entryIndex[h.EntryID]; ok {
			pricing.Entries[i].HeightRanges = append(pricing.Entries[i].HeightRanges, hr)
		}
	}

	for _, w := range rs.WeightRanges {
		price, err := decimal.NewFromString(w.PricePerPallet)
		if err != nil {
			return nil, fmt.Errorf("invalid weight range price %q: %w", w.PricePerPallet, err)
		}
		if i, ok := entryIndex[w.EntryID]; ok {
			pricing.Entries[i].WeightRanges = append(pricing.Entries[i].WeightRanges, domain.WeightRange{
				ID: w.ID, MinKg: w.MinKg, MaxKg: w.MaxKg, PricePerPallet: price,
			})
		}
	}

	for _, d := range rs.Discounts {
		percent, err := decimal.NewFromString(d.DiscountPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid discount percent %q: %w", d.DiscountPercent, err)
		}
		pricing.VolumeDiscounts = append(pricing.VolumeDiscounts, domain.VolumeDiscount{
			ID: d.ID, MinPallets: d.MinPallets, DiscountPercent: percent,
		})
	}

	return pricing, nil
}

func optionalDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid flat rate %q: %w", *raw, err)
	}
	return &d, nil
}
