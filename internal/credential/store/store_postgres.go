package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"attest/internal/credential/models"
	"attest/pkg/platform/sentinel"
)

// PostgresStore persists registry records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("registry record is required")
	}
	query := `
		INSERT INTO credentials (credential_id, name, short_code, metadata_uri, issued_by, issue_tx_id, issued_at, last_tx_id, last_action, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6, 'issued', $7)
		ON CONFLICT (credential_id) DO NOTHING
		RETURNING credential_id
	`
	var storedID uint64
	err := s.db.QueryRowContext(ctx, query,
		record.CredentialID,
		record.Name,
		record.ShortCode,
		nullString(record.MetadataURI),
		record.IssuedBy,
		record.IssueTxID,
		record.IssuedAt,
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save credential record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID uint64) (*models.Record, error) {
	query := `
		SELECT credential_id, name, short_code, metadata_uri, issued_by, issue_tx_id, issued_at, last_tx_id, last_action, updated_at
		FROM credentials
		WHERE credential_id = $1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, credentialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, filter *models.RecordFilter) ([]*models.Record, error) {
	var (
		conditions []string
		args       []any
	)
	if filter != nil && filter.ShortCode != "" {
		args = append(args, filter.ShortCode)
		conditions = append(conditions, fmt.Sprintf("short_code = $%d", len(args)))
	}
	if filter != nil && filter.IssuedBy != "" {
		args = append(args, filter.IssuedBy)
		conditions = append(conditions, fmt.Sprintf("issued_by = $%d", len(args)))
	}

	query := `
		SELECT credential_id, name, short_code, metadata_uri, issued_by, issue_tx_id, issued_at, last_tx_id, last_action, updated_at
		FROM credentials
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY issued_at DESC"
	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter != nil && filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credential records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) RecordAction(ctx context.Context, credentialID uint64, action, txID string) error {
	query := `
		UPDATE credentials
		SET last_action = $2, last_tx_id = $3, updated_at = $4
		WHERE credential_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, credentialID, action, txID, time.Now())
	if err != nil {
		return fmt.Errorf("record credential action: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record credential action rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type recordRow interface {
	Scan(dest ...any) error
}

func scanRecord(row recordRow) (*models.Record, error) {
	var record models.Record
	var metadataURI sql.NullString
	if err := row.Scan(
		&record.CredentialID,
		&record.Name,
		&record.ShortCode,
		&metadataURI,
		&record.IssuedBy,
		&record.IssueTxID,
		&record.IssuedAt,
		&record.LastTxID,
		&record.LastAction,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if metadataURI.Valid {
		record.MetadataURI = metadataURI.String
	}
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
