package models

import "time"

type Product struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url"`
	HairTypes   []string  `json:"hair_types"`
	Ingredients []string  `json:"ingredients"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Testimonial struct {
	TestimonialID string    `json:"testimonial_id"`
	CustomerName  string    `json:"customer_name"`
	Content       string    `json:"content"`
	Rating        int       `json:"rating"`
	HairConcern   string    `json:"hair_concern"`
	ImageURL      string    `json:"image_url"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BotInstruction struct {
	InstructionID string    `json:"instruction_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	Priority      int       `json:"priority"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Webhook struct {
	ID        int       `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Webhook event types fired after catalogue changes.
const (
	EventProductsChanged     = "products.changed"
	EventTestimonialsChanged = "testimonials.changed"
	EventInstructionsChanged = "bot_instructions.changed"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
