package domain

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Rating      string    `json:"rating"`
	NumReviews  int       `json:"numReviews"`
	IsFeatured  bool      `json:"isFeatured"`
	Banner      *string   `json:"banner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
