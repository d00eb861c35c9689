package domain

import "time"

// SalesRecord is a lenient read of an order document used by the sales report.
// Older documents may lack totals or carry unitPrice/productName instead.
type SalesRecord struct {
	TotalAmount *float64          `bson:"totalAmount"`
	Status      string            `bson:"status"`
	CreatedAt   *time.Time        `bson:"createdAt"`
	Items       []SalesRecordItem `bson:"items"`
}

type SalesRecordItem struct {
	Name        string   `bson:"name"`
	ProductName string   `bson:"productName"`
	Quantity    float64  `bson:"quantity"`
	Price       *float64 `bson:"price"`
	UnitPrice   *float64 `bson:"unitPrice"`
}

type StatusCount struct {
	Status string `json:"_id"`
	Count  int    `json:"count"`
}

type DailySales struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type ProductSales struct {
	Name  string  `json:"name"`
	Units float64 `json:"units"`
}

type SalesReport struct {
	TotalOrders      int            `json:"totalOrders"`
	TotalRevenue     float64        `json:"totalRevenue"`
	DeliveredRevenue float64        `json:"deliveredRevenue"`
	TodayRevenue     float64        `json:"todayRevenue"`
	MonthRevenue     float64        `json:"monthRevenue"`
	StatusBreakdown  []StatusCount  `json:"statusBreakdown"`
	DailySales       []DailySales   `json:"dailySales"`
	TopProducts      []ProductSales `json:"topProducts"`
}
