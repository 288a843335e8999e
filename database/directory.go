package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"anketa-network/models"

	"github.com/google/uuid"
)

const identityColumns = `
    u.id, u.name, COALESCE(u.email, ''), COALESCE(u.phone, ''), u.is_active,
    u.latitude, u.longitude, u.birth_year, u.gender, u.region, u.district,
    COALESCE(i.path, ''), u.created_at`

const identityFrom = `
    FROM users u
    LEFT JOIN user_images i ON i.user_id = u.id AND i.is_main`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (models.Identity, error) {
	var id models.Identity
	var lat, lon sql.NullFloat64
	var birthYear sql.NullInt64
	err := row.Scan(&id.ID, &id.Name, &id.Email, &id.Phone, &id.Active,
		&lat, &lon, &birthYear, &id.Profile.Gender, &id.Profile.Region, &id.Profile.District,
		&id.Profile.ImageURL, &id.CreatedAt)
	if err != nil {
		return id, err
	}
	if lat.Valid {
		id.Coordinates.Latitude = &lat.Float64
	}
	if lon.Valid {
		id.Coordinates.Longitude = &lon.Float64
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		id.Profile.BirthYear = &y
	}
	return id, nil
}

// Lookup returns the identity with the given ID or a not_found error.
func (s *Store) Lookup(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+identityColumns+identityFrom+" WHERE u.id = ?", id)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ident, models.NewError(models.KindNotFound, "user %s not found", id)
	}
	if err != nil {
		return ident, fmt.Errorf("failed to look up user %s: %w", id, err)
	}
	return ident, nil
}

// FindByIdentifier resolves an email address or phone number to its identity.
func (s *Store) FindByIdentifier(ctx context.Context, ident models.Identifier) (models.Identity, error) {
	var column string
	switch ident.Kind {
	case models.IdentifierEmail:
		column = "u.email"
	case models.IdentifierPhone:
		column = "u.phone"
	default:
		return models.Identity{}, models.NewError(models.KindValidation, "unsupported identifier kind")
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+identityColumns+identityFrom+" WHERE "+column+" = ?", ident.Value)
	found, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return found, models.NewError(models.KindNotFound, "no user with %s %s", ident.Kind, ident.Value)
	}
	if err != nil {
		return found, fmt.Errorf("failed to look up %s: %w", ident, err)
	}
	return found, nil
}

// LocatedProfiles returns every active identity that has both coordinates set.
func (s *Store) LocatedProfiles(ctx context.Context) ([]models.LocatedProfile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+identityColumns+identityFrom+`
        WHERE u.is_active AND u.latitude IS NOT NULL AND u.longitude IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query located profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.LocatedProfile
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan located profile: %w", err)
		}
		profiles = append(profiles, models.LocatedProfile{
			ID:        ident.ID,
			Name:      ident.Name,
			Latitude:  *ident.Coordinates.Latitude,
			Longitude: *ident.Coordinates.Longitude,
			Profile:   ident.Profile,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating located profiles: %w", err)
	}
	return profiles, nil
}

// ActiveProfiles returns every active identity, with or without coordinates.
func (s *Store) ActiveProfiles(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+identityColumns+identityFrom+" WHERE u.is_active")
	if err != nil {
		return nil, fmt.Errorf("failed to query active profiles: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active profile: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active profiles: %w", err)
	}
	return identities, nil
}

// CreateUser inserts a new active identity with a fresh ID.
func (s *Store) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.Identity, error) {
	req, err := req.Normalize()
	if err != nil {
		return models.Identity{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO users (id, name, email, phone, latitude, longitude, birth_year, gender, region, district)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, id, req.Name, nullString(req.Email), nullString(req.Phone), req.Latitude, req.Longitude,
		req.BirthYear, req.Gender, req.Region, req.District)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.Identity{}, models.NewError(models.KindConflict, "a user with this email or phone already exists")
		}
		return models.Identity{}, fmt.Errorf("failed to insert user: %w", err)
	}
	if req.Image != "" {
		_, err = tx.ExecContext(ctx, "INSERT INTO user_images (user_id, path, is_main) VALUES (?, ?, TRUE)", id, req.Image)
		if err != nil {
			return models.Identity{}, fmt.Errorf("failed to insert main image: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Identity{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Lookup(ctx, id)
}

// UpdateLocation sets or clears the coordinates of an identity.
func (s *Store) UpdateLocation(ctx context.Context, id uuid.UUID, coords models.Coordinates) (models.Identity, error) {
	if err := coords.Validate(); err != nil {
		return models.Identity{}, err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE users SET latitude = ?, longitude = ? WHERE id = ?",
		coords.Latitude, coords.Longitude, id)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to update location of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Identity{}, models.NewError(models.KindNotFound, "user %s not found", id)
	}
	return s.Lookup(ctx, id)
}

// SetActive flags an identity as active or deactivated.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewError(models.KindNotFound, "user %s not found", id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
