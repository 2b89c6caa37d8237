package domain

import "time"

type ShippingAddress struct {
	FullName      string   `json:"fullName" validate:"required,min=3"`
	StreetAddress string   `json:"streetAddress" validate:"required,min=3"`
	City          string   `json:"city" validate:"required,min=3"`
	PostalCode    string   `json:"postalCode" validate:"required,min=3"`
	Country       string   `json:"country" validate:"required,min=3"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
}

// PaymentResult is what the gateway reported when the order was captured.
// Before capture it only carries the gateway intent id.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	EmailAddress string `json:"email_address"`
	PricePaid    string `json:"pricePaid"`
}

type OrderItem struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Price     string `json:"price" validate:"required,money"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId" validate:"required"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,payment_method"`
	Prices
	IsPaid        bool           `json:"isPaid"`
	PaidAt        *time.Time     `json:"paidAt,omitempty"`
	IsDelivered   bool           `json:"isDelivered"`
	DeliveredAt   *time.Time     `json:"deliveredAt,omitempty"`
	PaymentResult *PaymentResult `json:"paymentResult,omitempty"`
	Items         []OrderItem    `json:"orderItems"`
	User          *OrderOwner    `json:"user,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// OrderOwner is the subset of the owning user shown with an order.
type OrderOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SalesSummary is the admin overview of orders and revenue.
type SalesSummary struct {
	OrdersCount   int            `json:"ordersCount"`
	ProductsCount int            `json:"productsCount"`
	UsersCount    int            `json:"usersCount"`
	TotalSales    string         `json:"totalSales"`
	SalesData     []MonthlySales `json:"salesData"`
	LatestSales   []Order        `json:"latestSales"`
}

type MonthlySales struct {
	Month      string `json:"month"`
	TotalSales string `json:"totalSales"`
}
