package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
)

// CategoryRepository manages a user's channel categories. Default
// categories are seeded once and refuse mutation.
type CategoryRepository interface {
	// ListByUser retrieves the user's categories, defaults first.
	ListByUser(ctx context.Context, userID string) ([]*models.Category, error)

	// GetByID retrieves a single category.
	GetByID(ctx context.Context, userID, categoryID string) (*models.Category, error)

	// SeedDefaults inserts the default categories, skipping any that
	// already exist. Safe to call on every sign-in.
	SeedDefaults(ctx context.Context, userID string) error

	// Create adds a user-defined category.
	Create(ctx context.Context, userID string, category *models.Category) error

	// Update mutates a user-defined category. Defaults are immutable.
	Update(ctx context.Context, userID string, category *models.Category) error

	// Delete removes a user-defined category. Channels filed under it
	// fall back to uncategorized.
	Delete(ctx context.Context, userID, categoryID string) error
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `category_id, name, description, color, is_default, created_at`

func (r *categoryRepository) ListByUser(ctx context.Context, userID string) ([]*models.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list categories")
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.Color,
			&category.IsDefault,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, db.WrapError(err, "scan category")
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate categories")
	}

	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1 AND category_id = $2
	`

	category := &models.Category{}
	err := r.pool.QueryRow(ctx, query, userID, categoryID).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.Color,
		&category.IsDefault,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get category by id")
	}

	return category, nil
}

func (r *categoryRepository) SeedDefaults(ctx context.Context, userID string) error {
	query := `
		INSERT INTO categories (user_id, category_id, name, description, color, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		ON CONFLICT (user_id, category_id) DO NOTHING
	`

	for _, category := range models.DefaultCategories() {
		_, err := r.pool.Exec(ctx, query,
			userID,
			category.ID,
			category.Name,
			category.Description,
			category.Color,
			category.CreatedAt,
		)
		if err != nil {
			return db.WrapError(err, "seed default categories")
		}
	}

	return nil
}

func (r *categoryRepository) Create(ctx context.Context, userID string, category *models.Category) error {
	query := `
		INSERT INTO categories (user_id, category_id, name, description, color, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		userID,
		category.ID,
		category.Name,
		category.Description,
		category.Color,
		category.CreatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create category")
	}

	return nil
}

func (r *categoryRepository) Update(ctx context.Context, userID string, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = $1, description = $2, color = $3
		WHERE user_id = $4 AND category_id = $5 AND is_default = FALSE
	`

	result, err := r.pool.Exec(ctx, query,
		category.Name,
		category.Description,
		category.Color,
		userID,
		category.ID,
	)
	if err != nil {
		return db.WrapError(err, "update category")
	}
	if result.RowsAffected() == 0 {
		return r.missingOrImmutable(ctx, userID, category.ID, "update category")
	}

	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, userID, categoryID string) error {
	query := `DELETE FROM categories WHERE user_id = $1 AND category_id = $2 AND is_default = FALSE`

	result, err := r.pool.Exec(ctx, query, userID, categoryID)
	if err != nil {
		return db.WrapError(err, "delete category")
	}
	if result.RowsAffected() == 0 {
		return r.missingOrImmutable(ctx, userID, categoryID, "delete category")
	}

	return nil
}

// missingOrImmutable distinguishes "no such category" from "category is
// a protected default" after a zero-row mutation.
func (r *categoryRepository) missingOrImmutable(ctx context.Context, userID, categoryID, operation string) error {
	var isDefault bool
	err := r.pool.QueryRow(ctx,
		`SELECT is_default FROM categories WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	).Scan(&isDefault)
	if err != nil {
		// Maps pgx.ErrNoRows to not-found; anything else is a real
		// database failure and surfaces as such.
		return db.WrapError(err, operation)
	}
	if isDefault {
		return db.WrapError(db.ErrImmutableRecord, operation)
	}
	return db.WrapError(pgx.ErrNoRows, operation)
}
