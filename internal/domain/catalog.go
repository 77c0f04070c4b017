package domain

// Storefront is the top level of the catalog returned by GET /storefronts.
type Storefront struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Events []Event `json:"events"`
}

type Event struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// Product as served by the backend. Price is a decimal string, e.g. "15.00".
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Price       string  `json:"price"`
}

// PlaceholderLogoURL is shown for products without an image.
const PlaceholderLogoURL = "https://via.placeholder.com/40?text=%F0%9F%8D%B9"

// Key is the product identity used by the cart.
func (p Product) Key() string {
	return ProductKey(p.ID)
}

// DisplayImage returns the product image or the placeholder logo.
func (p Product) DisplayImage() string {
	if p.Image != nil && *p.Image != "" {
		return *p.Image
	}
	return PlaceholderLogoURL
}

// Item snapshots the product for the cart. Fails only when the price is not a valid decimal.
func (p Product) Item() (Item, error) {
	price, err := ParseMoney(p.Price)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		ID:    p.Key(),
		Name:  p.Name,
		Price: price,
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Image != nil {
		item.LogoURL = *p.Image
	}
	return item, nil
}

// Products flattens the storefront -> event -> product hierarchy, preserving order.
func Products(storefronts []Storefront) []Product {
	var out []Product
	for _, s := range storefronts {
		for _, e := range s.Events {
			out = append(out, e.Products...)
		}
	}
	return out
}

// FindProduct looks a product up by id across the whole catalog.
func FindProduct(storefronts []Storefront, id int64) (Product, bool) {
	for _, p := range Products(storefronts) {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
