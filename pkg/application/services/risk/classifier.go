package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// Classifier flags products whose coverage is below the policy thresholds and
// customer orders the available stock cannot serve
type Classifier struct {
	log *logger.Logger
}

// NewClassifier creates a new risk classifier
func NewClassifier(log *logger.Logger) *Classifier {
	return &Classifier{log: logger.OrNop(log)}
}

// Classify returns flags in catalog order. Per product the coverage flag comes first,
// followed by customer flags ordered by customer id.
func (c *Classifier) Classify(
	ctx context.Context,
	products []entities.Product,
	profiles []entities.DemandProfile,
	orders []entities.CustomerOrder,
	policy entities.PlanningPolicy,
) ([]entities.RiskFlag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profileByCode := make(map[entities.ProductCode]entities.DemandProfile, len(profiles))
	for _, p := range profiles {
		profileByCode[p.ProductCode] = p
	}

	catalog := make(map[entities.ProductCode]entities.Product, len(products))
	for _, p := range products {
		catalog[p.Code] = p
	}

	ordersByCode := make(map[entities.ProductCode][]indexedOrder)
	for i, order := range orders {
		if _, ok := catalog[order.ProductCode]; !ok {
			c.log.Warn("customer order for unknown product skipped",
				"product_code", order.ProductCode, "customer_id", order.CustomerID)
			continue
		}
		if order.Qty.IsNegative() {
			return nil, &entities.InvalidQuantityError{ProductCode: order.ProductCode, Field: "order_qty", Qty: order.Qty}
		}
		ordersByCode[order.ProductCode] = append(ordersByCode[order.ProductCode], indexedOrder{CustomerOrder: order, index: i})
	}

	critical := policy.CriticalDays()
	warning := policy.WarningDays()

	flags := make([]entities.RiskFlag, 0)
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile, ok := profileByCode[product.Code]
		if !ok {
			return nil, fmt.Errorf("no demand profile for product %s", product.Code)
		}
		if flag, ok := CoverageFlag(profile, critical, warning); ok {
			flags = append(flags, flag)
		}

		if policy.IsExcludedFromCustomerAlerts(product.Code) {
			continue
		}
		flags = append(flags, customerFlags(product, profile.CoverageDays, ordersByCode[product.Code])...)
	}

	c.log.Debug("risk classified", "products", len(products), "orders", len(orders), "flags", len(flags))
	return flags, nil
}

// CoverageFlag returns the CRITICAL or WARNING flag for a profile, if any. Infinite
// coverage is never flagged.
func CoverageFlag(profile entities.DemandProfile, critical, warning decimal.Decimal) (entities.RiskFlag, bool) {
	days, finite := profile.CoverageDays.Days()
	if !finite {
		return entities.RiskFlag{}, false
	}

	flag := entities.RiskFlag{
		ProductCode:  profile.ProductCode,
		CoverageDays: profile.CoverageDays,
		Shortfall:    profile.ShortageQty,
	}
	switch {
	case days.LessThan(critical):
		flag.Level = entities.RiskCritical
		flag.Reason = entities.ReasonCoverageBelowCritical
	case days.LessThan(warning):
		flag.Level = entities.RiskWarning
		flag.Reason = entities.ReasonCoverageBelowWarning
	default:
		return entities.RiskFlag{}, false
	}
	return flag, true
}

type indexedOrder struct {
	entities.CustomerOrder
	index int
}

type customerShortfall struct {
	shortfall decimal.Decimal
	earliest  time.Time
}

// customerFlags reserves stock for orders by required date and emits one flag per
// customer whose orders cannot be fully served from on-hand plus open orders
func customerFlags(product entities.Product, coverage entities.CoverageDays, orders []indexedOrder) []entities.RiskFlag {
	if len(orders) == 0 {
		return nil
	}

	sorted := make([]indexedOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.RequiredDate.Equal(b.RequiredDate) {
			return a.RequiredDate.Before(b.RequiredDate)
		}
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		return a.index < b.index
	})

	available := product.AvailableQty()
	reserved := decimal.Zero
	byCustomer := make(map[string]*customerShortfall)

	for _, order := range sorted {
		remaining := decimal.Max(decimal.Zero, available.Sub(reserved))
		reserved = reserved.Add(order.Qty)
		if !order.Qty.GreaterThan(remaining) {
			continue
		}

		short := order.Qty.Sub(remaining)
		entry, ok := byCustomer[order.CustomerID]
		if !ok {
			byCustomer[order.CustomerID] = &customerShortfall{shortfall: short, earliest: order.RequiredDate}
			continue
		}
		entry.shortfall = entry.shortfall.Add(short)
		if order.RequiredDate.Before(entry.earliest) {
			entry.earliest = order.RequiredDate
		}
	}

	customers := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		customers = append(customers, id)
	}
	sort.Strings(customers)

	flags := make([]entities.RiskFlag, 0, len(customers))
	for _, id := range customers {
		entry := byCustomer[id]
		due := entry.earliest
		flags = append(flags, entities.RiskFlag{
			Level:        entities.RiskCustomerShortage,
			Reason:       entities.ReasonCustomerOrderShortfall,
			ProductCode:  product.Code,
			CustomerID:   id,
			CoverageDays: coverage,
			Shortfall:    entry.shortfall,
			RequiredDate: &due,
		})
	}
	return flags
}
