package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/fjod/storefront/product-service/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrGroupNotFound   = errors.New("product group not found")
	ErrVariantNotFound = errors.New("variant not found")
)

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	ListGroups(ctx context.Context) ([]domain.ProductGroup, error)
	GetGroup(ctx context.Context, slug string) (*domain.ProductGroup, error)
	GetVariant(ctx context.Context, sku string) (*domain.VariantRef, error)
	Close() error
	RunMigrations() error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) ListGroups(ctx context.Context) ([]domain.ProductGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slug, name
		FROM product_groups
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product groups: %w", err)
	}

	var groups []domain.ProductGroup
	for rows.Next() {
		var g domain.ProductGroup
		if err := rows.Scan(&g.GroupSlug, &g.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i := range groups {
		if err := r.loadVariants(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

func (r *Repository) GetGroup(ctx context.Context, slug string) (*domain.ProductGroup, error) {
	g := &domain.ProductGroup{GroupSlug: slug}
	err := r.db.QueryRowContext(ctx, `
		SELECT name
		FROM product_groups
		WHERE slug = ?
	`, slug).Scan(&g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product group: %w", err)
	}

	if err := r.loadVariants(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *Repository) GetVariant(ctx context.Context, sku string) (*domain.VariantRef, error) {
	ref := &domain.VariantRef{}
	var color, size sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT v.sku, v.color, v.size, v.price, v.in_stock, g.slug, g.name
		FROM variants v
		JOIN product_groups g ON g.slug = v.group_slug
		WHERE v.sku = ?
	`, sku).Scan(
		&ref.Variant.SKU,
		&color,
		&size,
		&ref.Variant.Price,
		&ref.Variant.InStock,
		&ref.GroupSlug,
		&ref.GroupName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}
	ref.Variant.Color = nullable(color)
	ref.Variant.Size = nullable(size)

	images, err := r.loadImages(ctx, `WHERE sku = ?`, sku)
	if err != nil {
		return nil, err
	}
	ref.Variant.Images = images[sku]
	if ref.Variant.Images == nil {
		ref.Variant.Images = []domain.Image{}
	}

	return ref, nil
}

// loadVariants fills g.Variants in catalog order and derives g.Facets.
func (r *Repository) loadVariants(ctx context.Context, g *domain.ProductGroup) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, color, size, price, in_stock
		FROM variants
		WHERE group_slug = ?
		ORDER BY position, sku
	`, g.GroupSlug)
	if err != nil {
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var v domain.Variant
		var color, size sql.NullString
		if err := rows.Scan(&v.SKU, &color, &size, &v.Price, &v.InStock); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		v.Color = nullable(color)
		v.Size = nullable(size)
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	images, err := r.loadImages(ctx, `WHERE sku IN (SELECT sku FROM variants WHERE group_slug = ?)`, g.GroupSlug)
	if err != nil {
		return err
	}
	for i := range variants {
		variants[i].Images = images[variants[i].SKU]
		if variants[i].Images == nil {
			variants[i].Images = []domain.Image{}
		}
	}

	g.Variants = variants
	g.Facets = domain.BuildFacets(variants)
	return nil
}

func (r *Repository) loadImages(ctx context.Context, where string, args ...any) (map[string][]domain.Image, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, url, alt, is_primary
		FROM variant_images
		`+where+`
		ORDER BY sku, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := make(map[string][]domain.Image)
	for rows.Next() {
		var sku string
		var img domain.Image
		if err := rows.Scan(&sku, &img.URL, &img.Alt, &img.Primary); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images[sku] = append(images[sku], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return images, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
