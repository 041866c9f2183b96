package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hairdash/internal/models"
	"hairdash/internal/store"
	"hairdash/internal/util"
)

// ---- Products ----

type productRequest struct {
	ProductName string   `json:"product_name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"max=100"`
	Price       float64  `json:"price" validate:"gte=0"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	HairTypes   []string `json:"hair_types" validate:"dive,max=50"`
	Ingredients []string `json:"ingredients" validate:"dive,max=200"`
	IsActive    *bool    `json:"is_active"`
}

func (p productRequest) model(id string) models.Product {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return models.Product{
		ProductID:   id,
		ProductName: util.NormalizeSpaces(p.ProductName),
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		HairTypes:   p.HairTypes,
		Ingredients: p.Ingredients,
		IsActive:    active,
	}
}

type changeEvent struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	filters := store.ProductFilters{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Active:   util.ParseBool(q.Get("active")),
		SortBy:   q.Get("sort_by"),
		SortDir:  q.Get("sort_dir"),
	}
	result, err := s.Store.ListProducts(r.Context(), page, pageSize, filters)
	if err != nil {
		s.writeStoreError(w, r, "products", err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, "product", err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productRequest
	if !s.decode(w, r, &payload) {
		return
	}
	p, err := s.Store.CreateProduct(r.Context(), payload.model(""))
	if err != nil {
		s.writeStoreError(w, r, "product", err)
		return
	}
	s.notify(r.Context(), models.EventProductsChanged, changeEvent{Action: "created", ID: p.ProductID})
	writeJSONStatus(w, http.StatusCreated, p)
}

func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productRequest
	if !s.decode(w, r, &payload) {
		return
	}
	p, err := s.Store.UpdateProduct(r.Context(), payload.model(chi.URLParam(r, "id")))
	if err != nil {
		s.writeStoreError(w, r, "product", err)
		return
	}
	s.notify(r.Context(), models.EventProductsChanged, changeEvent{Action: "updated", ID: p.ProductID})
	writeJSON(w, p)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteProduct(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "product", err)
		return
	}
	s.notify(r.Context(), models.EventProductsChanged, changeEvent{Action: "deleted", ID: id})
	writeJSON(w, map[string]string{"status": "deleted"})
}

// ---- Testimonials ----

type testimonialRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	Content      string `json:"content" validate:"required,max=5000"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	HairConcern  string `json:"hair_concern" validate:"max=100"`
	ImageURL     string `json:"image_url" validate:"omitempty,url"`
	IsFeatured   bool   `json:"is_featured"`
}

func (t testimonialRequest) model(id string) models.Testimonial {
	return models.Testimonial{
		TestimonialID: id,
		CustomerName:  util.NormalizeSpaces(t.CustomerName),
		Content:       t.Content,
		Rating:        t.Rating,
		HairConcern:   t.HairConcern,
		ImageURL:      t.ImageURL,
		IsFeatured:    t.IsFeatured,
	}
}

func (s *Server) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListTestimonials(r.Context(), util.ParseBool(r.URL.Query().Get("featured")))
	if err != nil {
		s.writeStoreError(w, r, "testimonials", err)
		return
	}
	writeJSON(w, items)
}

func (s *Server) CreateTestimonial(w http.ResponseWriter, r *http.Request) {
	var payload testimonialRequest
	if !s.decode(w, r, &payload) {
		return
	}
	t, err := s.Store.CreateTestimonial(r.Context(), payload.model(""))
	if err != nil {
		s.writeStoreError(w, r, "testimonial", err)
		return
	}
	s.notify(r.Context(), models.EventTestimonialsChanged, changeEvent{Action: "created", ID: t.TestimonialID})
	writeJSONStatus(w, http.StatusCreated, t)
}

func (s *Server) UpdateTestimonial(w http.ResponseWriter, r *http.Request) {
	var payload testimonialRequest
	if !s.decode(w, r, &payload) {
		return
	}
	t, err := s.Store.UpdateTestimonial(r.Context(), payload.model(chi.URLParam(r, "id")))
	if err != nil {
		s.writeStoreError(w, r, "testimonial", err)
		return
	}
	s.notify(r.Context(), models.EventTestimonialsChanged, changeEvent{Action: "updated", ID: t.TestimonialID})
	writeJSON(w, t)
}

func (s *Server) DeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteTestimonial(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "testimonial", err)
		return
	}
	s.notify(r.Context(), models.EventTestimonialsChanged, changeEvent{Action: "deleted", ID: id})
	writeJSON(w, map[string]string{"status": "deleted"})
}

// ---- Bot instructions ----
// Instructions are addressed by instruction_id in the body (PUT) or the
// query string (DELETE) rather than the path.

type instructionRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=20000"`
	Category string `json:"category" validate:"max=100"`
	Priority int    `json:"priority" validate:"gte=0,lte=1000"`
	IsActive *bool  `json:"is_active"`
}

type instructionUpdateRequest struct {
	instructionRequest
	InstructionID string `json:"instruction_id" validate:"required"`
}

func (b instructionRequest) model(id string) models.BotInstruction {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	category := b.Category
	if category == "" {
		category = "general"
	}
	return models.BotInstruction{
		InstructionID: id,
		Title:         b.Title,
		Content:       b.Content,
		Category:      category,
		Priority:      b.Priority,
		IsActive:      active,
	}
}

func (s *Server) ListInstructions(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListInstructions(r.Context(), util.ParseBool(r.URL.Query().Get("active")))
	if err != nil {
		s.writeStoreError(w, r, "bot instructions", err)
		return
	}
	writeJSON(w, items)
}

func (s *Server) CreateInstruction(w http.ResponseWriter, r *http.Request) {
	var payload instructionRequest
	if !s.decode(w, r, &payload) {
		return
	}
	b, err := s.Store.CreateInstruction(r.Context(), payload.model(""))
	if err != nil {
		s.writeStoreError(w, r, "bot instruction", err)
		return
	}
	s.notify(r.Context(), models.EventInstructionsChanged, changeEvent{Action: "created", ID: b.InstructionID})
	writeJSONStatus(w, http.StatusCreated, b)
}

func (s *Server) UpdateInstruction(w http.ResponseWriter, r *http.Request) {
	var payload instructionUpdateRequest
	if !s.decode(w, r, &payload) {
		return
	}
	b, err := s.Store.UpdateInstruction(r.Context(), payload.model(payload.InstructionID))
	if err != nil {
		s.writeStoreError(w, r, "bot instruction", err)
		return
	}
	s.notify(r.Context(), models.EventInstructionsChanged, changeEvent{Action: "updated", ID: b.InstructionID})
	writeJSON(w, b)
}

func (s *Server) DeleteInstruction(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("instruction_id")
	if id == "" {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "instruction_id is required", nil)
		return
	}
	if err := s.Store.DeleteInstruction(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "bot instruction", err)
		return
	}
	s.notify(r.Context(), models.EventInstructionsChanged, changeEvent{Action: "deleted", ID: id})
	writeJSON(w, map[string]string{"status": "deleted"})
}

// ---- Webhooks ----

type webhookRequest struct {
	URL    string   `json:"url" validate:"required,http_url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=products.changed testimonials.changed bot_instructions.changed"`
	Secret string   `json:"secret" validate:"max=200"`
}

func (s *Server) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.Store.ListWebhooks(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "webhooks", err)
		return
	}
	for i := range hooks {
		hooks[i].Secret = ""
	}
	writeJSON(w, hooks)
}

func (s *Server) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookRequest
	if !s.decode(w, r, &payload) {
		return
	}
	hook, err := s.Store.CreateWebhook(r.Context(), payload.URL, payload.Events, payload.Secret)
	if err != nil {
		s.writeStoreError(w, r, "webhook", err)
		return
	}
	hook.Secret = ""
	writeJSONStatus(w, http.StatusCreated, hook)
}

func (s *Server) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "invalid webhook id", nil)
		return
	}
	if err := s.Store.DeleteWebhook(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "webhook", err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
