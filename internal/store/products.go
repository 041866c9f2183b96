package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hairdash/internal/models"
	"hairdash/internal/util"
)

type ProductFilters struct {
	Search   string
	Category string
	Active   *bool
	SortBy   string
	SortDir  string
}

type ProductPage struct {
	Data     []models.Product `json:"data"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const productColumns = `product_id::text, product_name, description, category, price, image_url, hair_types, ingredients, is_active, created_at, updated_at`

// productWhere builds the WHERE clause for a product listing; placeholders start at $1.
func productWhere(f ProductFilters) (string, []interface{}) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argN := 1

	if s := strings.TrimSpace(f.Search); s != "" {
		where += fmt.Sprintf(` AND (product_name ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, argN, argN)
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		argN++
	}
	if f.Category != "" {
		where += fmt.Sprintf(" AND lower(category)=lower($%d)", argN)
		args = append(args, f.Category)
		argN++
	}
	if f.Active != nil {
		where += fmt.Sprintf(" AND is_active=$%d", argN)
		args = append(args, *f.Active)
	}
	return where, args
}

func productOrder(f ProductFilters) string {
	sortCol := "created_at"
	switch f.SortBy {
	case "product_name", "category", "price", "created_at", "updated_at":
		sortCol = f.SortBy
	}
	sortDir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		sortDir = "ASC"
	}
	return sortCol + " " + sortDir
}

func (s *Store) ListProducts(ctx context.Context, page, pageSize int, f ProductFilters) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	where, args := productWhere(f)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	argN := len(args) + 1
	q := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, productOrder(f), argN, argN+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return &ProductPage{Data: items, Total: total, Page: page, PageSize: pageSize}, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Product{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE product_id=$1`, id)
	p, err := scanProduct(row)
	return p, mapErr(err)
}

func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.ProductID = uuid.NewString()
	p.ProductName = util.NormalizeSpaces(p.ProductName)
	row := s.DB.QueryRow(ctx, `
		INSERT INTO products (product_id, product_name, description, category, price, image_url, hair_types, ingredients, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		p.ProductID, p.ProductName, p.Description, p.Category, p.Price, p.ImageURL, nonNil(p.HairTypes), nonNil(p.Ingredients), p.IsActive)
	out, err := scanProduct(row)
	return out, mapErr(err)
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if _, err := uuid.Parse(p.ProductID); err != nil {
		return models.Product{}, ErrNotFound
	}
	p.ProductName = util.NormalizeSpaces(p.ProductName)
	row := s.DB.QueryRow(ctx, `
		UPDATE products SET product_name=$2, description=$3, category=$4, price=$5, image_url=$6,
			hair_types=$7, ingredients=$8, is_active=$9, updated_at=now()
		WHERE product_id=$1
		RETURNING `+productColumns,
		p.ProductID, p.ProductName, p.Description, p.Category, p.Price, p.ImageURL, nonNil(p.HairTypes), nonNil(p.Ingredients), p.IsActive)
	out, err := scanProduct(row)
	return out, mapErr(err)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return affected(s.DB.Exec(ctx, `DELETE FROM products WHERE product_id=$1`, id))
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ProductID, &p.ProductName, &p.Description, &p.Category, &p.Price, &p.ImageURL,
		&p.HairTypes, &p.Ingredients, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
