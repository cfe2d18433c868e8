package domain

import "time"

// AddressType enumerates where an address is used.
type AddressType string

const (
	AddressHome AddressType = "home"
	AddressWork AddressType = "work"
)

// Address is an owner-scoped delivery address.
type Address struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Name        string      `json:"name"`
	Surname     string      `json:"surname"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	AddressType AddressType `json:"addressType"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Contact is an owner-scoped contact record. Email is unique across all owners.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
