package models

// ProductSnapshot is a product listing as fetched by the backend.
type ProductSnapshot struct {
	ID           string  `json:"id,omitempty"`
	AmazonURL    string  `json:"amazon_url"`
	ASIN         string  `json:"asin"`
	ProductName  string  `json:"product_name"`
	ImageURL     string  `json:"image_url"`
	CurrentPrice float64 `json:"current_price"`
	Availability string  `json:"availability"`
}

// TrackedProduct is a product registered for price tracking.
//
// CreatedAt is kept as the backend's string since its format depends on the datastore.
type TrackedProduct struct {
	ID           string  `json:"id"`
	ASIN         string  `json:"asin"`
	ProductName  string  `json:"product_name"`
	ImageURL     string  `json:"image_url"`
	AmazonURL    string  `json:"amazon_url"`
	CurrentPrice float64 `json:"current_price"`
	TargetPrice  float64 `json:"target_price"`
	LowestPrice  float64 `json:"lowest_price"`
	IsActive     bool    `json:"is_active"`
	CreatedAt    string  `json:"created_at"`
}

// TargetReached reports whether the lowest observed price has met the target.
func (p TrackedProduct) TargetReached() bool {
	return p.LowestPrice > 0 && p.LowestPrice <= p.TargetPrice
}

// CartSummary is the user's tracked product list with counters as reported by the backend.
type CartSummary struct {
	TotalProducts  int              `json:"total_products"`
	ActiveProducts int              `json:"active_products"`
	Products       []TrackedProduct `json:"products"`
}

// Completed is the number of tracked products no longer active (alert sent).
func (c *CartSummary) Completed() int {
	if c == nil {
		return 0
	}
	return c.TotalProducts - c.ActiveProducts
}

// Find returns the tracked product with the given id.
func (c *CartSummary) Find(id string) (TrackedProduct, bool) {
	if c == nil {
		return TrackedProduct{}, false
	}
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return TrackedProduct{}, false
}

// UserStats are account-wide counters.
type UserStats struct {
	TotalProducts   int     `json:"total_products"`
	ActiveProducts  int     `json:"active_products"`
	CompletedAlerts int     `json:"completed_alerts"`
	TotalSavings    float64 `json:"total_savings"`
}

// Profile is the editable part of the user's account.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TrackingRequest is the body of an add-to-cart call.
type TrackingRequest struct {
	AmazonURL   string  `json:"amazon_url"`
	TargetPrice float64 `json:"target_price"`
}

// TrackingNotice is the body of the tracking-started notification.
type TrackingNotice struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	ProductName  string  `json:"product_name"`
	CurrentPrice float64 `json:"current_price"`
	TargetPrice  float64 `json:"target_price"`
	ImageURL     string  `json:"image_url"`
	AmazonURL    string  `json:"amazon_url"`
}

// WelcomeNotice is the body of the signup notification.
type WelcomeNotice struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
