package domain

import (
	"strconv"
	"time"
)

// Item is what the catalog hands to the cart: the product attributes at the moment of adding.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
	Price       Money  `json:"price"`
}

// CartLine is one product's accumulated quantity plus its frozen attributes.
// Retained lines always have Quantity >= 1.
type CartLine struct {
	Item
	Quantity int `json:"quantity"`
}

func (l CartLine) Subtotal() Money {
	return l.Price.Times(l.Quantity)
}

// Order is the cart snapshot handed to the order submitter on confirmation.
type Order struct {
	ID        string     `json:"order_id"`
	Lines     []CartLine `json:"lines"`
	Total     Money      `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

func ProductKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
