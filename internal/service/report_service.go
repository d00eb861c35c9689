package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	unknownStatus  = "Unknown"
	unknownProduct = "Unknown Product"
	reportDays     = 7
	topProductsMax = 5
	dayLayout      = "2006-01-02"
)

type ReportService struct {
	orders   repository.OrderRepository
	location *time.Location
	now      func() time.Time
}

// NewReportService computes day and month boundaries in loc; nil means time.Local.
func NewReportService(orders repository.OrderRepository, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{orders: orders, location: loc, now: time.Now}
}

// SalesReport scans every order once. Nothing is cached.
func (s *ReportService) SalesReport(ctx context.Context) (*domain.SalesReport, error) {
	acc := newSalesAccumulator(s.now(), s.location)
	err := s.orders.ScanSalesRecords(ctx, func(r domain.SalesRecord) error {
		acc.add(r)
		return nil
	})
	if err != nil {
		return nil, internalError(ctx, "Failed to generate sales report", err)
	}
	return acc.report(), nil
}

type salesAccumulator struct {
	loc        *time.Location
	startOfDay time.Time
	startOfMon time.Time

	totalOrders int
	total       decimal.Decimal
	delivered   decimal.Decimal
	today       decimal.Decimal
	month       decimal.Decimal

	statusOrder []string
	statusCount map[string]int

	days       []string
	dayRevenue map[string]decimal.Decimal

	productOrder []string
	productUnits map[string]decimal.Decimal
}

func newSalesAccumulator(now time.Time, loc *time.Location) *salesAccumulator {
	now = now.In(loc)
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, loc)

	acc := &salesAccumulator{
		loc:          loc,
		startOfDay:   startOfDay,
		startOfMon:   time.Date(y, m, 1, 0, 0, 0, 0, loc),
		statusCount:  make(map[string]int),
		dayRevenue:   make(map[string]decimal.Decimal, reportDays),
		productUnits: make(map[string]decimal.Decimal),
	}
	for i := reportDays - 1; i >= 0; i-- {
		key := startOfDay.AddDate(0, 0, -i).Format(dayLayout)
		acc.days = append(acc.days, key)
		acc.dayRevenue[key] = decimal.Zero
	}
	return acc
}

func (a *salesAccumulator) add(r domain.SalesRecord) {
	a.totalOrders++
	amount := orderAmount(r)
	a.total = a.total.Add(amount)

	status := r.Status
	if status == "" {
		status = unknownStatus
	}
	if _, seen := a.statusCount[status]; !seen {
		a.statusOrder = append(a.statusOrder, status)
	}
	a.statusCount[status]++

	if status == string(domain.OrderStatusDelivered) {
		a.delivered = a.delivered.Add(amount)
	}

	if r.CreatedAt != nil {
		created := r.CreatedAt.In(a.loc)
		if !created.Before(a.startOfDay) {
			a.today = a.today.Add(amount)
		}
		if !created.Before(a.startOfMon) {
			a.month = a.month.Add(amount)
		}
		key := created.Format(dayLayout)
		if rev, ok := a.dayRevenue[key]; ok {
			a.dayRevenue[key] = rev.Add(amount)
		}
	}

	for _, item := range r.Items {
		name := item.Name
		if name == "" {
			name = item.ProductName
		}
		if name == "" {
			name = unknownProduct
		}
		units, seen := a.productUnits[name]
		if !seen {
			a.productOrder = append(a.productOrder, name)
		}
		a.productUnits[name] = units.Add(finite(item.Quantity))
	}
}

func (a *salesAccumulator) report() *domain.SalesReport {
	rep := &domain.SalesReport{
		TotalOrders:      a.totalOrders,
		TotalRevenue:     a.total.InexactFloat64(),
		DeliveredRevenue: a.delivered.InexactFloat64(),
		TodayRevenue:     a.today.InexactFloat64(),
		MonthRevenue:     a.month.InexactFloat64(),
		StatusBreakdown:  make([]domain.StatusCount, 0, len(a.statusOrder)),
		DailySales:       make([]domain.DailySales, 0, reportDays),
	}

	for _, status := range a.statusOrder {
		rep.StatusBreakdown = append(rep.StatusBreakdown, domain.StatusCount{Status: status, Count: a.statusCount[status]})
	}
	for _, day := range a.days {
		rep.DailySales = append(rep.DailySales, domain.DailySales{Date: day, Revenue: a.dayRevenue[day].InexactFloat64()})
	}

	products := make([]domain.ProductSales, 0, len(a.productOrder))
	for _, name := range a.productOrder {
		products = append(products, domain.ProductSales{Name: name, Units: a.productUnits[name].InexactFloat64()})
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Units > products[j].Units
	})
	if len(products) > topProductsMax {
		products = products[:topProductsMax]
	}
	rep.TopProducts = products

	return rep
}

// orderAmount prefers the stored total and falls back to summing the items.
func orderAmount(r domain.SalesRecord) decimal.Decimal {
	if r.TotalAmount != nil && !math.IsNaN(*r.TotalAmount) && !math.IsInf(*r.TotalAmount, 0) {
		return decimal.NewFromFloat(*r.TotalAmount)
	}

	sum := decimal.Zero
	for _, item := range r.Items {
		price := 0.0
		switch {
		case item.Price != nil:
			price = *item.Price
		case item.UnitPrice != nil:
			price = *item.UnitPrice
		}
		sum = sum.Add(finite(item.Quantity).Mul(finite(price)))
	}
	return sum
}

// finite converts f, mapping NaN and infinities to zero.
func finite(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
