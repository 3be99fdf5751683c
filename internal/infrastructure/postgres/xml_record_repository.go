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

var _ repository.XMLRecordRepository = (*XMLRecordRepo)(nil)

// XMLRecordRepo implementación de XMLRecordRepository (usable con pool o tx).
type XMLRecordRepo struct {
	q Querier
}

// NewXMLRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewXMLRecordRepository(q Querier) *XMLRecordRepo {
	return &XMLRecordRepo{q: q}
}

// GetByDocument obtiene el registro de auditoría del documento.
func (r *XMLRecordRepo) GetByDocument(ctx context.Context, documentID string) (*entity.XMLRecord, error) {
	query := `
		SELECT id, document_id, name, xml_base64, signature, security_code,
		       signed_at, status, cufe, auth_number, qr_code, response, err_msg,
		       created_at, updated_at
		FROM xml_records WHERE document_id = $1`
	var rec entity.XMLRecord
	var signature, securityCode, cufe, authNumber, qrCode, response, errMsg *string
	var signedAt *time.Time
	err := r.q.QueryRow(ctx, query, documentID).Scan(
		&rec.ID, &rec.DocumentID, &rec.Name, &rec.XMLBase64,
		&signature, &securityCode, &signedAt, &rec.Status,
		&cufe, &authNumber, &qrCode, &response, &errMsg,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get xml_record: %w", err)
	}
	rec.Signature = derefStr(signature)
	rec.SecurityCode = derefStr(securityCode)
	rec.CUFE = derefStr(cufe)
	rec.AuthNumber = derefStr(authNumber)
	rec.QRCode = derefStr(qrCode)
	rec.Response = derefStr(response)
	rec.ErrMsg = derefStr(errMsg)
	if signedAt != nil {
		rec.SignedAt = *signedAt
	}
	return &rec, nil
}

// Create persiste el registro. El XML firmado almacenado nunca se reemplaza:
// un segundo insert para el mismo documento es un duplicado.
func (r *XMLRecordRepo) Create(ctx context.Context, rec *entity.XMLRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO xml_records
			(id, document_id, name, xml_base64, signature, security_code,
			 signed_at, status, cufe, auth_number, qr_code, response, err_msg,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.DocumentID, rec.Name, rec.XMLBase64,
		nullIfEmpty(rec.Signature), nullIfEmpty(rec.SecurityCode),
		nullTime(rec.SignedAt), rec.Status,
		nullIfEmpty(rec.CUFE), nullIfEmpty(rec.AuthNumber),
		nullIfEmpty(rec.QRCode), nullIfEmpty(rec.Response), nullIfEmpty(rec.ErrMsg),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("xml_record para documento %s: %w", rec.DocumentID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert xml_record: %w", err)
	}
	return nil
}

// UpdateStatus cambia solo el estado del ciclo (pending/sent/procesed/error).
func (r *XMLRecordRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE xml_records SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update xml_record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateVerification guarda el resultado de una verificación. El XML firmado
// no se toca: solo los metadatos de la autorización.
func (r *XMLRecordRepo) UpdateVerification(ctx context.Context, rec *entity.XMLRecord) error {
	query := `
		UPDATE xml_records
		SET status      = $2,
		    cufe        = COALESCE($3, cufe),
		    auth_number = COALESCE($4, auth_number),
		    qr_code     = COALESCE($5, qr_code),
		    response    = COALESCE($6, response),
		    err_msg     = COALESCE($7, err_msg),
		    updated_at  = $8
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.Status,
		nullIfEmpty(rec.CUFE), nullIfEmpty(rec.AuthNumber),
		nullIfEmpty(rec.QRCode), nullIfEmpty(rec.Response), nullIfEmpty(rec.ErrMsg),
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update xml_record verification: %w", err)
	}
	return nil
}

// AppendAuthorityMessages agrega al historial los mensajes devueltos por la
// DGII (rechazo o aceptación condicional). El historial nunca se sobrescribe.
func (r *XMLRecordRepo) AppendAuthorityMessages(ctx context.Context, documentID string, msgs []domain.AuthorityMessage) error {
	query := `
		INSERT INTO authority_messages (id, document_id, code, message, created_at)
		VALUES ($1, $2, $3, $4, now())`
	for _, m := range msgs {
		if _, err := r.q.Exec(ctx, query, uuid.New().String(), documentID, m.Code, m.Message); err != nil {
			return fmt.Errorf("insert authority_message: %w", err)
		}
	}
	return nil
}
