package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tacit7/poi-markers/internal/models"
)

// POIRepository answers bounding-box POI queries against the relational
// store. It is the coordinator's single upstream: "POIs within bounds
// matching filters", nothing more.
type POIRepository struct {
	db *sql.DB
}

// NewPOIRepository creates a new POI repository
func NewPOIRepository(db *sql.DB) *POIRepository {
	return &POIRepository{db: db}
}

// QueryPOIs retrieves the POIs inside bounds that match the filter.
// MinRating is pushed down as a numeric lower bound and PriceLevels as a
// set-membership predicate; category filtering is deliberately NOT pushed
// down (the client narrows categories after clustering). Rows come back in
// stable id order so identical queries produce identical sequences.
func (r *POIRepository) QueryPOIs(ctx context.Context, bounds models.ViewportBounds, filter models.ClusterFilter) ([]models.POI, error) {
	query := `SELECT id, name, lat, lng, category, rating, reviews_count, price_level, address
		FROM pois
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`
	args := []interface{}{bounds.South, bounds.North, bounds.West, bounds.East}

	if filter.MinRating > 0 {
		query += " AND rating >= ?"
		args = append(args, filter.MinRating)
	}
	if len(filter.PriceLevels) > 0 {
		placeholders := strings.Repeat("?,", len(filter.PriceLevels))
		query += " AND price_level IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, level := range filter.PriceLevels {
			args = append(args, level)
		}
	}

	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pois: %w", err)
	}
	defer rows.Close()

	var pois []models.POI
	for rows.Next() {
		var p models.POI
		if err := rows.Scan(&p.ID, &p.Name, &p.Lat, &p.Lng, &p.Category,
			&p.Rating, &p.ReviewsCount, &p.PriceLevel, &p.Address); err != nil {
			return nil, fmt.Errorf("failed to scan poi: %w", err)
		}
		pois = append(pois, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pois: %w", err)
	}

	return pois, nil
}

// InsertPOI upserts a single POI record.
func (r *POIRepository) InsertPOI(ctx context.Context, p models.POI) error {
	query := `INSERT INTO pois (id, name, lat, lng, category, rating, reviews_count, price_level, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			lat = excluded.lat,
			lng = excluded.lng,
			category = excluded.category,
			rating = excluded.rating,
			reviews_count = excluded.reviews_count,
			price_level = excluded.price_level,
			address = excluded.address`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Lat, p.Lng,
		p.Category, p.Rating, p.ReviewsCount, p.PriceLevel, p.Address); err != nil {
		return fmt.Errorf("failed to insert poi %s: %w", p.ID, err)
	}
	return nil
}

// ReplacePOIs loads a full POI dump in one transaction, replacing whatever
// is in the table. Used when importing scraped POI data at startup.
func (r *POIRepository) ReplacePOIs(ctx context.Context, pois []models.POI) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pois"); err != nil {
		return fmt.Errorf("failed to clear pois: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pois
		(id, name, lat, lng, category, rating, reviews_count, price_level, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pois {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Lat, p.Lng,
			p.Category, p.Rating, p.ReviewsCount, p.PriceLevel, p.Address); err != nil {
			return fmt.Errorf("failed to insert poi %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pois: %w", err)
	}
	return nil
}

// CountPOIs returns the total number of stored POIs.
func (r *POIRepository) CountPOIs(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pois").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pois: %w", err)
	}
	return count, nil
}
