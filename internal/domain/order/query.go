package order

import "github.com/shopspring/decimal"

// Filter narrows an admin order listing.
type Filter struct {
	Status Status
	// Search matches customer name, customer email or order id.
	Search string
	Limit  int
	Offset int
}

// Stats aggregates the whole order table for the admin dashboard.
type Stats struct {
	TotalOrders     int             `json:"totalOrders"`
	Revenue         decimal.Decimal `json:"revenue"`
	PendingOrders   int             `json:"pendingOrders"`
	CompletedOrders int             `json:"completedOrders"`
}

// Detail is an order with its status history.
type Detail struct {
	Order   *Order         `json:"order"`
	History []StatusChange `json:"history"`
}
