package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// CartSnapshotRepository keeps the last fetched [models.CartSummary] for each user.
type CartSnapshotRepository struct {
	db *sql.DB
}

// NewCartSnapshotRepository creates a new [CartSnapshotRepository] with the given database connection
func NewCartSnapshotRepository(db *sql.DB) *CartSnapshotRepository {
	return &CartSnapshotRepository{db: db}
}

// Replace overwrites the stored cart for userID with summary.
func (r *CartSnapshotRepository) Replace(ctx context.Context, userID string, summary *models.CartSummary) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidArgument)
	}
	if summary == nil {
		return fmt.Errorf("%w: cart summary is required", shared.ErrInvalidArgument)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_snapshot_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}

		query := `
			INSERT INTO cart_snapshots (user_id, total_products, active_products, fetched_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				total_products = excluded.total_products,
				active_products = excluded.active_products,
				fetched_at = excluded.fetched_at
		`
		if _, err := tx.ExecContext(ctx, query, userID, summary.TotalProducts, summary.ActiveProducts, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to save cart snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cart_snapshot_items (
				user_id, position, product_id, asin, product_name, image_url, amazon_url,
				current_price, target_price, lowest_price, is_active, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare cart item insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range summary.Products {
			_, err := stmt.ExecContext(ctx, userID, i, p.ID, p.ASIN, p.ProductName, p.ImageURL, p.AmazonURL,
				p.CurrentPrice, p.TargetPrice, p.LowestPrice, p.IsActive, p.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert cart item %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Load returns the stored cart for userID and when it was fetched, or [shared.ErrNoRecord].
func (r *CartSnapshotRepository) Load(ctx context.Context, userID string) (*models.CartSummary, time.Time, error) {
	var (
		summary   models.CartSummary
		fetchedAt time.Time
	)

	query := `SELECT total_products, active_products, fetched_at FROM cart_snapshots WHERE user_id = ?`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&summary.TotalProducts, &summary.ActiveProducts, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w: no cached cart for %s", shared.ErrNoRecord, userID)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query cart snapshot: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, asin, product_name, image_url, amazon_url,
			current_price, target_price, lowest_price, is_active, created_at
		FROM cart_snapshot_items
		WHERE user_id = ?
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	summary.Products = []models.TrackedProduct{}
	for rows.Next() {
		var p models.TrackedProduct
		if err := rows.Scan(&p.ID, &p.ASIN, &p.ProductName, &p.ImageURL, &p.AmazonURL,
			&p.CurrentPrice, &p.TargetPrice, &p.LowestPrice, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan cart item: %w", err)
		}
		summary.Products = append(summary.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to iterate cart items: %w", err)
	}

	return &summary, fetchedAt, nil
}

// Clear removes the stored cart for userID.
func (r *CartSnapshotRepository) Clear(ctx context.Context, userID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_snapshot_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart snapshot: %w", err)
		}
		return nil
	})
}
