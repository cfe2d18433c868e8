package domain

import "github.com/shopspring/decimal"

// Product is a read-only catalog entry.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Rating      Rating          `json:"rating"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}
