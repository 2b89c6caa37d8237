package domain

import "time"

type Review struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId" validate:"required"`
	ProductID   string    `json:"productId" validate:"required"`
	Title       string    `json:"title" validate:"required,min=3"`
	Description string    `json:"description" validate:"required,min=3"`
	Rating      int       `json:"rating" validate:"min=1,max=5"`
	UserName    string    `json:"userName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
