package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Payment methods accepted at checkout.
const (
	PaymentPayPal         = "PayPal"
	PaymentStripe         = "Stripe"
	PaymentCashOnDelivery = "CashOnDelivery"
)

var PaymentMethods = []string{PaymentPayPal, PaymentStripe, PaymentCashOnDelivery}

type User struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	PasswordHash  string           `json:"-"`
	Role          string           `json:"role"`
	Address       *ShippingAddress `json:"address,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
