package domain

// ItemDetails is a cart line without its quantity: what a shopper adds.
type ItemDetails struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Color     string  `json:"color,omitempty"`
	Size      string  `json:"size,omitempty"`
	Image     string  `json:"image,omitempty"`
	GroupSlug string  `json:"group_slug,omitempty"`
}

// CartItem is one line of the cart, keyed by SKU. Quantity is at least 1.
type CartItem struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Color     string  `json:"color,omitempty"`
	Size      string  `json:"size,omitempty"`
	Image     string  `json:"image,omitempty"`
	GroupSlug string  `json:"group_slug,omitempty"`
}

func (d ItemDetails) WithQuantity(quantity int) CartItem {
	return CartItem{
		SKU:       d.SKU,
		Name:      d.Name,
		Price:     d.Price,
		Quantity:  quantity,
		Color:     d.Color,
		Size:      d.Size,
		Image:     d.Image,
		GroupSlug: d.GroupSlug,
	}
}

// Summary is the cart as shown to the cart page and handed to checkout.
type Summary struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}
