package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"supply-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetSupplierByID retrieves a supplier by its external identity reference
func (s *Store) GetSupplierByID(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.db.GetContext(ctx, &supplier, "SELECT * FROM suppliers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrSupplierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// GetSuppliers retrieves all suppliers
func (s *Store) GetSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.SelectContext(ctx, &suppliers, "SELECT * FROM suppliers ORDER BY id")
	return suppliers, err
}

// GetVendorByID retrieves a vendor by its external identity reference
func (s *Store) GetVendorByID(ctx context.Context, id string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.db.GetContext(ctx, &vendor, "SELECT * FROM vendors WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrVendorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// GetMaterialsBySupplier retrieves a supplier's full catalog
func (s *Store) GetMaterialsBySupplier(ctx context.Context, supplierID string) ([]models.Material, error) {
	var materials []models.Material
	err := s.db.SelectContext(ctx, &materials,
		"SELECT * FROM materials WHERE supplier_id = $1 ORDER BY id", supplierID)
	return materials, err
}

// GetAvailableMaterials retrieves every available material grouped by
// supplier id, for the discovery engine's candidate annotation.
func (s *Store) GetAvailableMaterials(ctx context.Context) (map[string][]models.Material, error) {
	var materials []models.Material
	err := s.db.SelectContext(ctx, &materials,
		"SELECT * FROM materials WHERE is_available = TRUE ORDER BY supplier_id, id")
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[string][]models.Material)
	for _, m := range materials {
		bySupplier[m.SupplierID] = append(bySupplier[m.SupplierID], m)
	}
	return bySupplier, nil
}

// GetMaterialsByIDs retrieves multiple materials by IDs
func (s *Store) GetMaterialsByIDs(ctx context.Context, ids []int64) ([]models.Material, error) {
	if len(ids) == 0 {
		return []models.Material{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM materials WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var materials []models.Material
	err = s.db.SelectContext(ctx, &materials, query, args...)
	return materials, err
}
