package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo implementación de CredentialRepository (usable con pool o tx).
type CredentialRepo struct {
	q Querier
}

// NewCredentialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCredentialRepository(q Querier) *CredentialRepo {
	return &CredentialRepo{q: q}
}

const credentialColumns = `
	id, company_id, name, company_lic_cod, branch_cod, pos_cod, apk, url_base,
	active, created_at, updated_at`

// GetActive devuelve la única credencial activa de la compañía.
func (r *CredentialRepo) GetActive(ctx context.Context, companyID string) (*entity.WebPOSCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM webpos_credentials WHERE company_id = $1 AND active`
	cred, err := scanCredential(r.q.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get active credential: %w", err)
	}
	return cred, nil
}

// Create persiste la credencial. Una credencial nueva entra inactiva; se
// habilita con Activate para garantizar una sola activa por compañía.
func (r *CredentialRepo) Create(ctx context.Context, cred *entity.WebPOSCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	cred.Active = false

	query := `
		INSERT INTO webpos_credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		cred.ID, cred.CompanyID, cred.Name, cred.CompanyLicCod,
		cred.BranchCod, cred.POSCod, cred.APK, cred.URLBase,
		cred.Active, cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("credencial %s: %w", cred.Name, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert webpos_credential: %w", err)
	}
	return nil
}

// Activate habilita la credencial y apaga las demás de la misma compañía en
// una sola sentencia, para que nunca haya dos activas.
func (r *CredentialRepo) Activate(ctx context.Context, id string) error {
	query := `
		UPDATE webpos_credentials
		SET active = (id = $1), updated_at = now()
		WHERE company_id = (SELECT company_id FROM webpos_credentials WHERE id = $1)`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("activate webpos_credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve todas las credenciales de la compañía.
func (r *CredentialRepo) List(ctx context.Context, companyID string) ([]*entity.WebPOSCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM webpos_credentials WHERE company_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list webpos_credentials: %w", err)
	}
	defer rows.Close()

	var list []*entity.WebPOSCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webpos_credential: %w", err)
		}
		list = append(list, cred)
	}
	return list, rows.Err()
}

func scanCredential(row pgxScanner) (*entity.WebPOSCredential, error) {
	var cred entity.WebPOSCredential
	err := row.Scan(
		&cred.ID, &cred.CompanyID, &cred.Name, &cred.CompanyLicCod,
		&cred.BranchCod, &cred.POSCod, &cred.APK, &cred.URLBase,
		&cred.Active, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}
