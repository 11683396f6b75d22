package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lpichet/contracts-service/internal/app/domain/contract"
	"github.com/lpichet/contracts-service/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.ContractStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const contractColumns = `
	id, title, description, contract_type, value, status,
	external_account_id, external_contact_id,
	account_name, contact_name, contact_email,
	is_validated, validation_message,
	created_at, updated_at, signed_at, signed_by
`

func (s *Store) CreateContract(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (
			id, title, description, contract_type, value, status,
			external_account_id, external_contact_id,
			account_name, contact_name, contact_email,
			is_validated, validation_message,
			created_at, updated_at, signed_at, signed_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, c.ID, c.Title, c.Description, c.ContractType, c.Value, string(c.Status),
		c.ExternalAccountID, c.ExternalContactID,
		c.AccountName, c.ContactName, c.ContactEmail,
		c.IsValidated, c.ValidationMessage,
		c.CreatedAt, c.UpdatedAt, c.SignedAt, c.SignedBy)
	if err != nil {
		return contract.Contract{}, err
	}
	return c, nil
}

func (s *Store) UpdateContract(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	existing, err := s.GetContract(ctx, c.ID)
	if err != nil {
		return contract.Contract{}, err
	}

	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE contracts
		SET title = $2, description = $3, contract_type = $4, value = $5, status = $6,
		    account_name = $7, contact_name = $8, contact_email = $9,
		    is_validated = $10, validation_message = $11,
		    updated_at = $12, signed_at = $13, signed_by = $14
		WHERE id = $1
	`, c.ID, c.Title, c.Description, c.ContractType, c.Value, string(c.Status),
		c.AccountName, c.ContactName, c.ContactEmail,
		c.IsValidated, c.ValidationMessage,
		c.UpdatedAt, c.SignedAt, c.SignedBy)
	if err != nil {
		return contract.Contract{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contract.Contract{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id string) (contract.Contract, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = $1
	`, id)

	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contract.Contract{}, storage.ErrNotFound
		}
		return contract.Contract{}, err
	}
	return c, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]contract.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM contracts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (contract.Contract, error) {
	var (
		c                 contract.Contract
		status            string
		isValidated       sql.NullBool
		validationMessage sql.NullString
		signedAt          sql.NullTime
		signedBy          sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.ContractType, &c.Value, &status,
		&c.ExternalAccountID, &c.ExternalContactID,
		&c.AccountName, &c.ContactName, &c.ContactEmail,
		&isValidated, &validationMessage,
		&c.CreatedAt, &c.UpdatedAt, &signedAt, &signedBy,
	)
	if err != nil {
		return contract.Contract{}, err
	}

	c.Status = contract.Status(status)
	if isValidated.Valid {
		c.IsValidated = &isValidated.Bool
	}
	if validationMessage.Valid {
		c.ValidationMessage = &validationMessage.String
	}
	if signedAt.Valid {
		t := signedAt.Time.UTC()
		c.SignedAt = &t
	}
	if signedBy.Valid {
		c.SignedBy = &signedBy.String
	}
	return c, nil
}
