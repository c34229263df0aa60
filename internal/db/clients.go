package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/content-pipeline/internal/types"
)

const clientColumns = `id, name, email, company, website, service_offering, icp_profile,
	positioning_statement, content_preferences, constraints, voice_examples, proof_assets,
	additional_notes, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*types.ClientProfile, error) {
	var p types.ClientProfile
	var docs clientDocuments
	var company, website, notes *string
	var status string

	if err := row.Scan(&p.ID, &p.Name, &p.Email, &company, &website,
		&docs.ServiceOffering, &docs.ICPProfile, &p.PositioningStatement,
		&docs.ContentPreferences, &docs.Constraints, &docs.VoiceExamples, &docs.ProofAssets,
		&notes, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := docs.decodeInto(&p); err != nil {
		return nil, err
	}
	p.Company = deref(company)
	p.Website = deref(website)
	p.AdditionalNotes = deref(notes)
	p.Status = types.ClientStatus(status)
	return &p, nil
}

// CreateClient inserts a new client. The unique index on email decides duplicates.
func (s *PostgresStore) CreateClient(ctx context.Context, req *types.ClientIntakeRequest) (*types.ClientProfile, error) {
	p := types.NewClientProfile(req)
	docs, err := encodeClientDocuments(p)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO clients (name, email, company, website, service_offering, icp_profile,
			positioning_statement, content_preferences, constraints, voice_examples, proof_assets,
			additional_notes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Email, nullable(p.Company), nullable(p.Website),
		docs.ServiceOffering, docs.ICPProfile, p.PositioningStatement,
		docs.ContentPreferences, docs.Constraints, docs.VoiceExamples, docs.ProofAssets,
		nullable(p.AdditionalNotes), string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateEmailError{Email: p.Email}
		}
		return nil, wrapErr("create client", err)
	}
	return p, nil
}

// GetClient retrieves a client by ID
func (s *PostgresStore) GetClient(ctx context.Context, id uuid.UUID) (*types.ClientProfile, error) {
	p, err := scanClient(s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: id.String()}
		}
		return nil, wrapErr("get client", err)
	}
	return p, nil
}

// UpdateClient merges the update into the stored client inside one transaction.
func (s *PostgresStore) UpdateClient(ctx context.Context, id uuid.UUID, update *types.ClientProfileUpdate) (*types.ClientProfile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapErr("begin update client", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	p, err := scanClient(tx.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: id.String()}
		}
		return nil, wrapErr("load client for update", err)
	}

	update.ApplyTo(p)
	docs, err := encodeClientDocuments(p)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE clients SET name = $1, email = $2, company = $3, website = $4,
			service_offering = $5, icp_profile = $6, positioning_statement = $7,
			content_preferences = $8, constraints = $9, voice_examples = $10, proof_assets = $11,
			additional_notes = $12, status = $13, updated_at = NOW()
		 WHERE id = $14
		 RETURNING updated_at`,
		p.Name, p.Email, nullable(p.Company), nullable(p.Website),
		docs.ServiceOffering, docs.ICPProfile, p.PositioningStatement,
		docs.ContentPreferences, docs.Constraints, docs.VoiceExamples, docs.ProofAssets,
		nullable(p.AdditionalNotes), string(p.Status), id,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateEmailError{Email: p.Email}
		}
		return nil, wrapErr("update client", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("commit update client", err)
	}
	return p, nil
}

// DeleteClient removes a client; its pipeline runs go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteClient(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete client", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "client", ID: id.String()}
	}
	return nil
}

// ListClients returns one page of clients in creation order, optionally
// filtered by a case-insensitive search over name, email and company.
func (s *PostgresStore) ListClients(ctx context.Context, params ClientListParams) (*ClientPage, error) {
	params = params.normalize()

	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if params.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%[1]d ESCAPE '\' OR email ILIKE $%[1]d ESCAPE '\' OR company ILIKE $%[1]d ESCAPE '\')`, argPos)
		args = append(args, likePattern(params.Search))
		argPos++
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, wrapErr("count clients", err)
	}

	query := `SELECT ` + clientColumns + ` FROM clients` + where +
		fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, params.PageSize, params.offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list clients", err)
	}
	defer rows.Close()

	clients := []types.ClientProfile{}
	for rows.Next() {
		p, err := scanClient(rows)
		if err != nil {
			return nil, wrapErr("scan client", err)
		}
		clients = append(clients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list clients", err)
	}

	return &ClientPage{
		Clients:  clients,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
