package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

// CompanyRepository serves companies and their locations.
type CompanyRepository interface {
	List(ctx context.Context) ([]*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	ListLocations(ctx context.Context, companyID string) ([]*models.Location, error)
	CreateLocation(ctx context.Context, loc *models.Location) error
}

type CompanySQLRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanySQLRepository {
	return &CompanySQLRepository{db: db}
}

// List returns all companies ordered by name.
func (r *CompanySQLRepository) List(ctx context.Context) ([]*models.Company, error) {
	query := database.ConvertPlaceholders(`SELECT id, name, website, phone FROM companies ORDER BY name`)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := []*models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.Phone); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func (r *CompanySQLRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	t := now()
	query := database.ConvertPlaceholders(`
		INSERT INTO companies (id, name, website, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, company.ID, company.Name, company.Website, company.Phone, t, t); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// ListLocations returns a company's locations ordered by name.
func (r *CompanySQLRepository) ListLocations(ctx context.Context, companyID string) ([]*models.Location, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, company_id, name, address, city, state, zip, phone
		FROM locations
		WHERE company_id = ?
		ORDER BY name`)
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := []*models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Address, &l.City, &l.State, &l.Zip, &l.Phone); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

func (r *CompanySQLRepository) CreateLocation(ctx context.Context, loc *models.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	query := database.ConvertPlaceholders(`
		INSERT INTO locations (id, company_id, name, address, city, state, zip, phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, loc.ID, loc.CompanyID, loc.Name, loc.Address, loc.City, loc.State, loc.Zip, loc.Phone); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}
