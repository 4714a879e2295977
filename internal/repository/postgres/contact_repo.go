package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
)

// ContactRepository resolves phone numbers against the shared contact
// directory.
//
// Assumed table:
//
//	contacts (
//	  contact_id UUID PRIMARY KEY,
//	  name TEXT NOT NULL,
//	  phone TEXT,
//	  mobile TEXT,
//	  email TEXT,
//	  company TEXT
//	)
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository creates a new contact repository
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Formatting characters stripped before comparing stored numbers. Matches
// the normalization applied to lookup input in pkg/phone.
const numberStrip = `[ ()\-]`

func scanContact(row pgx.Row) (*domain.Contact, error) {
	contact := &domain.Contact{}
	err := row.Scan(
		&contact.ContactID,
		&contact.Name,
		&contact.Phone,
		&contact.Mobile,
		&contact.Email,
		&contact.Company,
	)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Candidates are ranked normalized-phone first, then normalized-mobile, then
// raw-phone, with name order breaking ties.
const findByNumberQuery = `
	SELECT contact_id, name, COALESCE(phone, ''), COALESCE(mobile, ''),
	       COALESCE(email, ''), COALESCE(company, '')
	FROM contacts
	WHERE regexp_replace(COALESCE(phone, ''), '` + numberStrip + `', '', 'g') = $1
	   OR regexp_replace(COALESCE(mobile, ''), '` + numberStrip + `', '', 'g') = $1
	   OR phone = $2
	ORDER BY
		CASE
			WHEN regexp_replace(COALESCE(phone, ''), '` + numberStrip + `', '', 'g') = $1 THEN 0
			WHEN regexp_replace(COALESCE(mobile, ''), '` + numberStrip + `', '', 'g') = $1 THEN 1
			ELSE 2
		END,
		name ASC, contact_id ASC
	LIMIT 1
`

// FindByNumber resolves a phone number to a contact. Returns NotFound when
// nothing matches.
func (r *ContactRepository) FindByNumber(ctx context.Context, normalized, raw string) (*domain.Contact, error) {
	contact, err := scanContact(r.pool.QueryRow(ctx, findByNumberQuery, normalized, raw))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundError("Contact")
		}
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to find contact by number: %w", err))
	}

	return contact, nil
}

// Search matches contacts by name or number substring, for the dial pad
// autocomplete. Only contacts with at least one number are returned.
func (r *ContactRepository) Search(ctx context.Context, term string, limit int) ([]*domain.Contact, error) {
	query := `
		SELECT contact_id, name, COALESCE(phone, ''), COALESCE(mobile, ''),
		       COALESCE(email, ''), COALESCE(company, '')
		FROM contacts
		WHERE (phone IS NOT NULL OR mobile IS NOT NULL)
		  AND (name ILIKE '%' || $1 || '%'
		       OR phone ILIKE '%' || $1 || '%'
		       OR mobile ILIKE '%' || $1 || '%')
		ORDER BY name ASC
		LIMIT $2
	`

	return r.queryContacts(ctx, query, term, limit)
}

// ListWithNumbers returns every dialable contact ordered by name
func (r *ContactRepository) ListWithNumbers(ctx context.Context, limit, offset int) ([]*domain.Contact, int64, error) {
	where := `WHERE phone IS NOT NULL OR mobile IS NOT NULL`

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts `+where).Scan(&total); err != nil {
		return nil, 0, apperrors.DatabaseError(fmt.Errorf("failed to count contacts: %w", err))
	}

	query := `
		SELECT contact_id, name, COALESCE(phone, ''), COALESCE(mobile, ''),
		       COALESCE(email, ''), COALESCE(company, '')
		FROM contacts ` + where + `
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	contacts, err := r.queryContacts(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

func (r *ContactRepository) queryContacts(ctx context.Context, query string, args ...interface{}) ([]*domain.Contact, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to list contacts: %w", err))
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, apperrors.DatabaseError(fmt.Errorf("failed to scan contact: %w", err))
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to iterate contacts: %w", err))
	}

	return contacts, nil
}
