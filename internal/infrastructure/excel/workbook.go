package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/palletspace/booking-service/internal/domain"
)

// Pricing import columns. Each row is one height or weight bracket; rows
// sharing goods type, pallet type and period form one entry. Height rows
// naming a custom size belong to that size.
const (
	colGoodsType  = "goods_type"
	colPalletType = "pallet_type"
	colPeriod     = "pricing_period"
	colDimension  = "dimension"
	colMin        = "min"
	colMax        = "max"
	colPrice      = "price"
	colCustomSize = "custom_size"
	colLength     = "length_cm"
	colWidth      = "width_cm"
)

var requiredColumns = []string{colPalletType, colPeriod, colDimension, colMin, colPrice}

var bookingHeader = []interface{}{
	"booking_id", "status", "type", "flow", "customer_name", "customer_email",
	"warehouse_id", "start_date", "end_date", "pallets", "area_sqft",
	"total_amount", "slot_date", "slot_time", "created_at",
}

// Workbook reads and writes XLSX exchange files
type Workbook struct{}

// NewWorkbook creates a new Workbook
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// ParsePricingEntries reads the first sheet of an XLSX workbook into
// pallet pricing entries for warehouseID
func (w *Workbook) ParsePricingEntries(r io.Reader, warehouseID string) ([]domain.PricingEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.InputError{Field: "file", Message: "not a readable xlsx workbook"}
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &domain.InputError{Field: "file", Message: fmt.Sprintf("missing column %q", name)}
		}
	}

	p := &entryParser{warehouseID: warehouseID, index: make(map[entryKey]int)}
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlank(row) {
			continue
		}
		if err := p.add(cell); err != nil {
			return nil, &domain.InputError{Field: fmt.Sprintf("row %d", i+2), Message: err.Error()}
		}
	}
	return p.entries, nil
}

type entryKey struct {
	goods  domain.GoodsType
	kind   domain.PalletKind
	period domain.PricingPeriod
}

type entryParser struct {
	warehouseID string
	entries     []domain.PricingEntry
	index       map[entryKey]int
}

func (p *entryParser) add(cell func(string) string) error {
	key := entryKey{
		goods:  domain.GoodsType(cell(colGoodsType)).Normalize(),
		kind:   domain.PalletKind(strings.ToLower(cell(colPalletType))),
		period: domain.PricingPeriod(strings.ToLower(cell(colPeriod))),
	}
	switch key.kind {
	case domain.PalletKindStandard, domain.PalletKindEuro, domain.PalletKindCustom:
	default:
		return fmt.Errorf("unknown pallet type %q", key.kind)
	}
	switch key.period {
	case domain.PeriodDay, domain.PeriodWeek, domain.PeriodMonth:
	default:
		return fmt.Errorf("unknown pricing period %q", key.period)
	}

	lo, err := parseFloat(cell(colMin))
	if err != nil {
		return fmt.Errorf("min: %w", err)
	}
	var hi *float64
	if raw := cell(colMax); raw != "" {
		v, err := parseFloat(raw)
		if err != nil {
			return fmt.Errorf("max: %w", err)
		}
		hi = &v
	}
	price, err := decimal.NewFromString(cell(colPrice))
	if err != nil {
		return fmt.Errorf("price %q is not a number", cell(colPrice))
	}

	entry := p.entry(key)
	switch strings.ToLower(cell(colDimension)) {
	case "height":
		hr := domain.HeightRange{MinCm: lo, MaxCm: hi, PricePerUnit: price}
		name := cell(colCustomSize)
		if name == "" {
			hr.ID = fmt.Sprintf("h%d", len(entry.HeightRanges)+1)
			entry.HeightRanges = append(entry.HeightRanges, hr)
			return nil
		}
		size, err := customSize(entry, name, cell)
		if err != nil {
			return err
		}
		hr.ID = fmt.Sprintf("%s-h%d", size.ID, len(size.HeightRanges)+1)
		size.HeightRanges = append(size.HeightRanges, hr)
	case "weight":
		entry.WeightRanges = append(entry.WeightRanges, domain.WeightRange{
			ID:             fmt.Sprintf("w%d", len(entry.WeightRanges)+1),
			MinKg:          lo,
			MaxKg:          hi,
			PricePerPallet: price,
		})
	default:
		return fmt.Errorf("dimension must be height or weight, got %q", cell(colDimension))
	}
	return nil
}

func (p *entryParser) entry(key entryKey) *domain.PricingEntry {
	if i, ok := p.index[key]; ok {
		return &p.entries[i]
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, domain.PricingEntry{
		ID:          fmt.Sprintf("%s-%s-%s", key.goods, key.kind, key.period),
		WarehouseID: p.warehouseID,
		GoodsType:   key.goods,
		PalletKind:  key.kind,
		Period:      key.period,
	})
	return &p.entries[len(p.entries)-1]
}

func customSize(entry *domain.PricingEntry, name string, cell func(string) string) (*domain.CustomSize, error) {
	for i := range entry.CustomSizes {
		if strings.EqualFold(entry.CustomSizes[i].Name, name) {
			return &entry.CustomSizes[i], nil
		}
	}
	length, err := parseFloat(cell(colLength))
	if err != nil || length <= 0 {
		return nil, fmt.Errorf("custom size %q needs a positive length_cm", name)
	}
	width, err := parseFloat(cell(colWidth))
	if err != nil || width <= 0 {
		return nil, fmt.Errorf("custom size %q needs a positive width_cm", name)
	}
	entry.CustomSizes = append(entry.CustomSizes, domain.CustomSize{
		ID:       fmt.Sprintf("size%d", len(entry.CustomSizes)+1),
		Name:     name,
		LengthCm: length,
		WidthCm:  width,
	})
	return &entry.CustomSizes[len(entry.CustomSizes)-1], nil
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteBookings renders bookings as a single-sheet XLSX workbook
func (w *Workbook) WriteBookings(out io.Writer, bookings []*domain.Booking) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &bookingHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, b := range bookings {
		var slotDate, slotTime string
		if b.ConfirmedSlot != nil {
			slotDate = b.ConfirmedSlot.Date.Format(domain.DateLayout)
			slotTime = b.ConfirmedSlot.Time
		}
		row := []interface{}{
			b.ID,
			string(b.Status),
			string(b.Type),
			string(b.Flow),
			b.CustomerName,
			b.CustomerEmail,
			b.WarehouseID,
			b.StartDate.Format(domain.DateLayout),
			b.EndDate.Format(domain.DateLayout),
			b.PalletCount,
			b.AreaSqFt,
			b.TotalAmount,
			slotDate,
			slotTime,
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
