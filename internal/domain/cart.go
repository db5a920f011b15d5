package domain

import "time"

// CartItem is one product line in a cart. TotalCents is the unit price at the
// time the line was written multiplied by Quantity; it is never re-priced.
type CartItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	TotalCents  int64  `json:"totalCents"`
}

type Cart struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"totalCents"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the cart.
func (c Cart) OwnedBy(userID string) bool {
	return userID != "" && c.UserID == userID
}
