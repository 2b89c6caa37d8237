package domain

import "time"

// Prices holds the four derived money fields of a cart or order, each a
// decimal string with exactly two fraction digits.
type Prices struct {
	ItemsPrice    string `json:"itemsPrice"`
	ShippingPrice string `json:"shippingPrice"`
	TaxPrice      string `json:"taxPrice"`
	TotalPrice    string `json:"totalPrice"`
}

// ZeroPrices is the price set of an empty cart.
var ZeroPrices = Prices{
	ItemsPrice:    "0.00",
	ShippingPrice: "0.00",
	TaxPrice:      "0.00",
	TotalPrice:    "0.00",
}

// LineItem is a product snapshot held by a cart.
type LineItem struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Slug      string `json:"slug" validate:"required"`
	Image     string `json:"image" validate:"required"`
	Price     string `json:"price" validate:"required,money"`
	Qty       int    `json:"qty" validate:"gte=0"`
}

// AddItemInput is a request to put one unit of a product in the cart. The
// line's name, slug and price always come from the catalog; Image is used
// only when the product has none.
type AddItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Image     string `json:"image"`
}

type Cart struct {
	ID            string     `json:"id"`
	UserID        *string    `json:"userId,omitempty"`
	SessionCartID string     `json:"sessionCartId"`
	Items         []LineItem `json:"items"`
	Prices
	CreatedAt time.Time `json:"createdAt"`
}

// Item returns the index of the line holding productID, or -1.
func (c *Cart) Item(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Identity is the caller's session as seen by the workflow: an optional
// signed-in user and the anonymous cart session token.
type Identity struct {
	UserID        string
	SessionCartID string
}

func (id Identity) Authenticated() bool {
	return id.UserID != ""
}
