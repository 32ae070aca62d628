package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/services"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

const (
	FieldCode          = "code"
	FieldOnHandQty     = "on_hand_qty"
	FieldOpenOrdersQty = "open_orders_qty"
)

// Merger joins the stock export with the item master into one product catalog
type Merger struct {
	normalizer *services.CodeNormalizer
	log        *logger.Logger
}

// NewMerger creates a merger that normalizes codes according to codes
func NewMerger(codes entities.CodePolicy, log *logger.Logger) *Merger {
	return &Merger{
		normalizer: services.NewCodeNormalizer(codes),
		log:        logger.OrNop(log),
	}
}

// Merge validates the stock rows and enriches them with item attributes. Products come
// back in first-appearance order of the stock rows.
func (m *Merger) Merge(ctx context.Context, stockRows []dto.StockRow, itemRows []dto.ItemRow) ([]entities.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := m.indexItems(itemRows)

	products := make([]entities.Product, 0, len(stockRows))
	firstRow := make(map[entities.ProductCode]int, len(stockRows))
	position := make(map[entities.ProductCode]int, len(stockRows))

	for i, row := range stockRows {
		rowNum := row.Row
		if rowNum == 0 {
			rowNum = i + 1
		}

		rawCode := dto.Value(row.Code)
		code := m.normalizer.Normalize(rawCode)
		if code == "" {
			return nil, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldCode}
		}

		onHand, ok := parseQty(row.OnHandQty)
		if !ok {
			return nil, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldOnHandQty}
		}
		if onHand.IsNegative() {
			return nil, &entities.InvalidQuantityError{ProductCode: code, Field: FieldOnHandQty, Qty: onHand}
		}

		// only a blank or absent open orders cell means none
		openOrders := decimal.Zero
		if !isBlank(row.OpenOrdersQty) {
			parsed, ok := parseQty(row.OpenOrdersQty)
			if !ok {
				return nil, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldOpenOrdersQty}
			}
			openOrders = parsed
		}
		if openOrders.IsNegative() {
			return nil, &entities.InvalidQuantityError{ProductCode: code, Field: FieldOpenOrdersQty, Qty: openOrders}
		}

		if idx, dup := position[code]; dup {
			existing := products[idx]
			if existing.OnHandQty.Equal(onHand) && existing.OpenOrdersQty.Equal(openOrders) {
				m.log.Warn("identical duplicate stock row collapsed",
					"product_code", code, "first_row", firstRow[code], "row", rowNum)
				continue
			}
			return nil, &entities.DuplicateProductError{Code: code, FirstRow: firstRow[code], SecondRow: rowNum}
		}

		item := items[m.normalizer.JoinKey(rawCode)]
		product, err := entities.NewProduct(
			code,
			firstNonBlank(row.Description, item.Description),
			firstNonBlank(row.Category, item.Category),
			onHand,
			openOrders,
			firstNonBlank(row.UnitOfMeasure, item.UnitOfMeasure),
			entities.MachineID(firstNonBlank(row.AssignedMachine, item.AssignedMachine)),
		)
		if err != nil {
			return nil, err
		}
		for _, stage := range row.LaterStages {
			if stage = strings.TrimSpace(stage); stage != "" {
				product.StageMachines = append(product.StageMachines, entities.MachineID(stage))
			}
		}

		position[code] = len(products)
		firstRow[code] = rowNum
		products = append(products, *product)
	}

	m.log.Debug("catalog merged", "stock_rows", len(stockRows), "item_rows", len(itemRows), "products", len(products))
	return products, nil
}

func (m *Merger) indexItems(rows []dto.ItemRow) map[string]dto.ItemRow {
	index := make(map[string]dto.ItemRow, len(rows))
	for i, row := range rows {
		key := m.normalizer.JoinKey(dto.Value(row.Code))
		if key == "" {
			continue
		}
		if first, exists := index[key]; exists {
			m.log.Warn("duplicate item master row ignored",
				"key", key, "first_row", rowNumber(first.Row, -1), "row", rowNumber(row.Row, i+1))
			continue
		}
		index[key] = row
	}
	return index
}

func rowNumber(row, fallback int) int {
	if row == 0 {
		return fallback
	}
	return row
}

// parseQty reads a quantity cell, tolerating thousands separators. Blank and
// non-numeric cells report false.
func parseQty(cell *string) (decimal.Decimal, bool) {
	if cell == nil {
		return decimal.Zero, false
	}
	s := strings.ReplaceAll(strings.TrimSpace(*cell), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func isBlank(cell *string) bool {
	return cell == nil || strings.TrimSpace(*cell) == ""
}

func firstNonBlank(values ...*string) string {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(*v); s != "" {
			return s
		}
	}
	return ""
}
