package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/database"
)

// ContactStore exposes the program details folded into the agent's
// system instruction. Lookups that find nothing return empty without
// error; the prompt simply omits the section.
type ContactStore interface {
	ProgramDetails(ctx context.Context, contactID string) (string, error)
}

const contactSchema = `
CREATE TABLE IF NOT EXISTS contacts (
	contact_id      TEXT PRIMARY KEY,
	program_details TEXT NOT NULL DEFAULT ''
);
`

// SQLContacts reads contact rows maintained by the CRM import, which
// is outside this service.
type SQLContacts struct {
	db *database.DB
}

func NewSQLContacts(db *database.DB) *SQLContacts {
	return &SQLContacts{db: db}
}

func (s *SQLContacts) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, contactSchema); err != nil {
		return fmt.Errorf("ensure contact schema: %w", err)
	}
	return nil
}

func (s *SQLContacts) ProgramDetails(ctx context.Context, contactID string) (string, error) {
	var details string
	query := s.db.Rebind(`SELECT program_details FROM contacts WHERE contact_id = ?`)
	err := s.db.GetContext(ctx, &details, query, contactID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load contact details: %w", err)
	}
	return details, nil
}
