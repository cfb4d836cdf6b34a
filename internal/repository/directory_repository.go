package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

// DirectoryRepository serves the client and technician profile rows.
type DirectoryRepository interface {
	ListClients(ctx context.Context) ([]*models.Client, error)
	GetClientByUserID(ctx context.Context, userID string) (*models.Client, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) error
	ListTechnicians(ctx context.Context) ([]*models.Technician, error)
	GetTechnicianByUserID(ctx context.Context, userID string) (*models.Technician, error)
	CreateTechnician(ctx context.Context, tech *models.Technician) error
}

type DirectorySQLRepository struct {
	db *sql.DB
}

func NewDirectoryRepository(db *sql.DB) *DirectorySQLRepository {
	return &DirectorySQLRepository{db: db}
}

// ListClients returns every client with the joined user, company and
// location views attached.
func (r *DirectorySQLRepository) ListClients(ctx context.Context) ([]*models.Client, error) {
	query := database.ConvertPlaceholders(`
		SELECT c.id, c.user_id, c.company_id, c.location_id, c.job_title, c.phone,
		       u.full_name, u.email, u.avatar_url,
		       co.id, co.name, co.website, co.phone,
		       l.id, l.name, l.address, l.city, l.state, l.zip, l.phone
		FROM clients c
		JOIN users u ON u.id = c.user_id
		JOIN companies co ON co.id = c.company_id
		LEFT JOIN locations l ON l.id = c.location_id
		ORDER BY u.full_name`)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func scanClientRow(row interface{ Scan(...any) error }) (*models.Client, error) {
	var (
		c       models.Client
		user    models.UserSummary
		company models.Company
		locID   sql.NullString
		locName sql.NullString
		locAddr, locCity, locState, locZip, locPhone sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.CompanyID, &c.LocationID, &c.JobTitle, &c.Phone,
		&user.FullName, &user.Email, &user.AvatarURL,
		&company.ID, &company.Name, &company.Website, &company.Phone,
		&locID, &locName, &locAddr, &locCity, &locState, &locZip, &locPhone,
	)
	if err != nil {
		return nil, err
	}
	c.User = &user
	c.Company = &company
	if locID.Valid {
		loc := models.Location{ID: locID.String, CompanyID: c.CompanyID, Name: locName.String}
		if locAddr.Valid {
			loc.Address = &locAddr.String
		}
		if locCity.Valid {
			loc.City = &locCity.String
		}
		if locState.Valid {
			loc.State = &locState.String
		}
		if locZip.Valid {
			loc.Zip = &locZip.String
		}
		if locPhone.Valid {
			loc.Phone = &locPhone.String
		}
		c.Location = &loc
	}
	return &c, nil
}

func (r *DirectorySQLRepository) getClientWhere(ctx context.Context, where string, arg string) (*models.Client, error) {
	query := database.ConvertPlaceholders(`
		SELECT c.id, c.user_id, c.company_id, c.location_id, c.job_title, c.phone,
		       u.full_name, u.email, u.avatar_url,
		       co.id, co.name, co.website, co.phone,
		       l.id, l.name, l.address, l.city, l.state, l.zip, l.phone
		FROM clients c
		JOIN users u ON u.id = c.user_id
		JOIN companies co ON co.id = c.company_id
		LEFT JOIN locations l ON l.id = c.location_id
		WHERE ` + where + ` = ?`)
	c, err := scanClientRow(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *DirectorySQLRepository) GetClientByUserID(ctx context.Context, userID string) (*models.Client, error) {
	return r.getClientWhere(ctx, "c.user_id", userID)
}

func (r *DirectorySQLRepository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return r.getClientWhere(ctx, "c.id", id)
}

func (r *DirectorySQLRepository) CreateClient(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	query := database.ConvertPlaceholders(`
		INSERT INTO clients (id, user_id, company_id, location_id, job_title, phone)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		client.ID, client.UserID, client.CompanyID, client.LocationID, client.JobTitle, client.Phone); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// ListTechnicians returns every technician with the joined user view.
func (r *DirectorySQLRepository) ListTechnicians(ctx context.Context) ([]*models.Technician, error) {
	query := database.ConvertPlaceholders(`
		SELECT t.id, t.user_id, t.specialization, t.phone,
		       u.full_name, u.email, u.avatar_url
		FROM technicians t
		JOIN users u ON u.id = t.user_id
		ORDER BY u.full_name`)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	techs := []*models.Technician{}
	for rows.Next() {
		var (
			t    models.Technician
			user models.UserSummary
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Specialization, &t.Phone,
			&user.FullName, &user.Email, &user.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		t.User = &user
		techs = append(techs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate technicians: %w", err)
	}
	return techs, nil
}

func (r *DirectorySQLRepository) GetTechnicianByUserID(ctx context.Context, userID string) (*models.Technician, error) {
	query := database.ConvertPlaceholders(`
		SELECT t.id, t.user_id, t.specialization, t.phone,
		       u.full_name, u.email, u.avatar_url
		FROM technicians t
		JOIN users u ON u.id = t.user_id
		WHERE t.user_id = ?`)
	var (
		t    models.Technician
		user models.UserSummary
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&t.ID, &t.UserID, &t.Specialization, &t.Phone,
		&user.FullName, &user.Email, &user.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get technician: %w", err)
	}
	t.User = &user
	return &t, nil
}

func (r *DirectorySQLRepository) CreateTechnician(ctx context.Context, tech *models.Technician) error {
	if tech.ID == "" {
		tech.ID = uuid.NewString()
	}
	query := database.ConvertPlaceholders(`
		INSERT INTO technicians (id, user_id, specialization, phone)
		VALUES (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, tech.ID, tech.UserID, tech.Specialization, tech.Phone); err != nil {
		return fmt.Errorf("create technician: %w", err)
	}
	return nil
}
