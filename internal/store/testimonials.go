package store

import (
	"context"

	"github.com/google/uuid"

	"hairdash/internal/models"
)

const testimonialColumns = `testimonial_id::text, customer_name, content, rating, hair_concern, image_url, is_featured, created_at, updated_at`

// ListTestimonials returns testimonials newest first. A nil featured returns all of them.
func (s *Store) ListTestimonials(ctx context.Context, featured *bool) ([]models.Testimonial, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+testimonialColumns+` FROM testimonials
		WHERE ($1::boolean IS NULL OR is_featured=$1) ORDER BY created_at DESC`, featured)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []models.Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *Store) CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	t.TestimonialID = uuid.NewString()
	row := s.DB.QueryRow(ctx, `
		INSERT INTO testimonials (testimonial_id, customer_name, content, rating, hair_concern, image_url, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+testimonialColumns,
		t.TestimonialID, t.CustomerName, t.Content, t.Rating, t.HairConcern, t.ImageURL, t.IsFeatured)
	out, err := scanTestimonial(row)
	return out, mapErr(err)
}

func (s *Store) UpdateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	if _, err := uuid.Parse(t.TestimonialID); err != nil {
		return models.Testimonial{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `
		UPDATE testimonials SET customer_name=$2, content=$3, rating=$4, hair_concern=$5, image_url=$6,
			is_featured=$7, updated_at=now()
		WHERE testimonial_id=$1
		RETURNING `+testimonialColumns,
		t.TestimonialID, t.CustomerName, t.Content, t.Rating, t.HairConcern, t.ImageURL, t.IsFeatured)
	out, err := scanTestimonial(row)
	return out, mapErr(err)
}

func (s *Store) DeleteTestimonial(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return affected(s.DB.Exec(ctx, `DELETE FROM testimonials WHERE testimonial_id=$1`, id))
}

func scanTestimonial(row scannable) (models.Testimonial, error) {
	var t models.Testimonial
	err := row.Scan(&t.TestimonialID, &t.CustomerName, &t.Content, &t.Rating, &t.HairConcern, &t.ImageURL,
		&t.IsFeatured, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
