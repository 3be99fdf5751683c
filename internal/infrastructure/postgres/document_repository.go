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

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, encf, fiscal_type_prefix, short_code, move_kind, debit_origin,
	issue_date, due_date, sequence_due, currency, amount_total, amount_total_signed,
	issuer_rnc, issuer_name, issuer_commercial_name, issuer_address,
	issuer_municipality, issuer_province, issuer_email, issuer_phone,
	buyer_rnc, buyer_name, buyer_address, buyer_email, buyer_is_foreign,
	origin_encf, origin_issue_date, modification_code,
	container_number, reference_number, shipment_date,
	status, track_id, security_code, signed_at, cufe, created_at, updated_at`

// Create persiste el comprobante con sus líneas, impuestos y formas de pago.
// Debe llamarse dentro de una transacción (TxRunner) para que el comprobante
// quede completo o no quede.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var buyerRNC, buyerName, buyerAddress, buyerEmail *string
	buyerForeign := false
	if doc.Buyer != nil {
		buyerRNC = nullIfEmpty(doc.Buyer.RNC)
		buyerName = nullIfEmpty(doc.Buyer.Name)
		buyerAddress = nullIfEmpty(doc.Buyer.Address)
		buyerEmail = nullIfEmpty(doc.Buyer.Email)
		buyerForeign = doc.Buyer.IsForeign
	}

	query := `
		INSERT INTO fiscal_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21,
		        $22, $23, $24, $25, $26, $27, $28, $29,
		        $30, $31, $32, $33, $34, $35, $36, $37, $38, $39)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.ENCF, nullIfEmpty(doc.FiscalTypePrefix),
		nullIfEmpty(doc.ShortCode), doc.MoveKind, doc.DebitOrigin,
		doc.IssueDate, doc.DueDate, doc.SequenceDue,
		doc.Currency, doc.AmountTotal, doc.AmountTotalSigned,
		doc.Issuer.RNC, doc.Issuer.Name, nullIfEmpty(doc.Issuer.CommercialName),
		nullIfEmpty(doc.Issuer.Address), nullIfEmpty(doc.Issuer.Municipality),
		nullIfEmpty(doc.Issuer.Province), nullIfEmpty(doc.Issuer.Email),
		nullIfEmpty(doc.Issuer.Phone),
		buyerRNC, buyerName, buyerAddress, buyerEmail, buyerForeign,
		nullIfEmpty(doc.OriginENCF), doc.OriginIssueDate, nullIfEmpty(doc.ModificationCode),
		nullIfEmpty(doc.ContainerNumber), nullIfEmpty(doc.ReferenceNumber), doc.ShipmentDate,
		doc.Status, nullIfEmpty(doc.TrackID), nullIfEmpty(doc.SecurityCode),
		nullTime(doc.SignedAt), nullIfEmpty(doc.CUFE),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("e-NCF %s: %w", doc.ENCF, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert fiscal_document: %w", err)
	}

	if err := r.insertLines(ctx, doc); err != nil {
		return err
	}
	if err := r.insertTaxLines(ctx, doc); err != nil {
		return err
	}
	return r.insertPaymentForms(ctx, doc)
}

func (r *DocumentRepo) insertLines(ctx context.Context, doc *entity.FiscalDocument) error {
	lineQuery := `
		INSERT INTO document_lines
			(id, document_id, position, description, is_service, quantity,
			 unit_price, amount, itbis_rate, itbis_amount, exempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	taxQuery := `
		INSERT INTO document_line_taxes (id, line_id, code, rate, amount, per_unit)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, line := range doc.Lines {
		lineID := uuid.New().String()
		_, err := r.q.Exec(ctx, lineQuery,
			lineID, doc.ID, i+1, line.Description, line.IsService,
			line.Quantity, line.UnitPrice, line.Amount,
			line.ITBISRate, line.ITBISAmount, line.Exempt,
		)
		if err != nil {
			return fmt.Errorf("insert document_line %d: %w", i+1, err)
		}
		for _, at := range line.AdditionalTaxes {
			_, err := r.q.Exec(ctx, taxQuery,
				uuid.New().String(), lineID, at.Code, at.Rate, at.Amount, at.PerUnit,
			)
			if err != nil {
				return fmt.Errorf("insert document_line_tax %s: %w", at.Code, err)
			}
		}
	}
	return nil
}

func (r *DocumentRepo) insertTaxLines(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		INSERT INTO document_tax_lines (id, document_id, kind, rate, amount)
		VALUES ($1, $2, $3, $4, $5)`
	for _, tl := range doc.TaxLines {
		_, err := r.q.Exec(ctx, query, uuid.New().String(), doc.ID, tl.Kind, tl.Rate, tl.Amount)
		if err != nil {
			return fmt.Errorf("insert document_tax_line %s: %w", tl.Kind, err)
		}
	}
	return nil
}

func (r *DocumentRepo) insertPaymentForms(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		INSERT INTO document_payment_forms (id, document_id, form, amount)
		VALUES ($1, $2, $3, $4)`
	for _, pf := range doc.PaymentForms {
		_, err := r.q.Exec(ctx, query, uuid.New().String(), doc.ID, pf.Form, pf.Amount)
		if err != nil {
			return fmt.Errorf("insert document_payment_form %s: %w", pf.Form, err)
		}
	}
	return nil
}

// GetByID obtiene el comprobante completo (líneas, impuestos y formas de pago).
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM fiscal_documents WHERE id = $1`, id)
}

// GetByENCF obtiene el comprobante completo por su e-NCF dentro de la compañía.
func (r *DocumentRepo) GetByENCF(ctx context.Context, companyID, encf string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx,
		`SELECT `+documentColumns+` FROM fiscal_documents WHERE company_id = $1 AND encf = $2`,
		companyID, encf)
}

func (r *DocumentRepo) getOne(ctx context.Context, query string, args ...any) (*entity.FiscalDocument, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get fiscal_document: %w", err)
	}
	if err := r.loadDetails(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByStatus devuelve las cabeceras en cualquiera de los estados dados.
// No carga líneas: los barridos reconsultan el documento completo por ID.
func (r *DocumentRepo) ListByStatus(ctx context.Context, companyID string, statuses ...string) ([]*entity.FiscalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM fiscal_documents
		WHERE company_id = $1 AND status = ANY($2) AND cancelled_at IS NULL
		ORDER BY issue_date, encf`
	rows, err := r.q.Query(ctx, query, companyID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_documents: %w", err)
	}
	defer rows.Close()

	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// CompaniesWithStatus devuelve las compañías que tienen al menos un documento
// en alguno de los estados dados. Lo usa el barrido programado.
func (r *DocumentRepo) CompaniesWithStatus(ctx context.Context, statuses ...string) ([]string, error) {
	query := `
		SELECT DISTINCT company_id
		FROM fiscal_documents
		WHERE status = ANY($1) AND cancelled_at IS NULL`
	rows, err := r.q.Query(ctx, query, statuses)
	if err != nil {
		return nil, fmt.Errorf("companies with status: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan company_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateSubmission persiste el resultado de un intento de envío.
func (r *DocumentRepo) UpdateSubmission(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		UPDATE fiscal_documents
		SET status        = $2,
		    track_id      = COALESCE($3, track_id),
		    security_code = COALESCE($4, security_code),
		    signed_at     = COALESCE($5, signed_at),
		    cufe          = COALESCE($6, cufe),
		    updated_at    = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.Status,
		nullIfEmpty(doc.TrackID), nullIfEmpty(doc.SecurityCode),
		nullTime(doc.SignedAt), nullIfEmpty(doc.CUFE),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// Cancel anula el comprobante. Solo el rechazo de la DGII llega aquí.
func (r *DocumentRepo) Cancel(ctx context.Context, id string) error {
	query := `UPDATE fiscal_documents SET cancelled_at = now(), updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancel fiscal_document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// VendorNCFExists true si el NCF de ese suplidor ya fue registrado en la
// compañía. El NCF de compra es único por par (suplidor, compañía).
func (r *DocumentRepo) VendorNCFExists(ctx context.Context, companyID, vendorRNC, ncf string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM fiscal_documents
			WHERE company_id = $1 AND issuer_rnc = $2 AND encf = $3
			  AND move_kind = $4 AND cancelled_at IS NULL
		)`
	var exists bool
	err := r.q.QueryRow(ctx, query, companyID, vendorRNC, ncf, entity.MovePurchase).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vendor ncf: %w", err)
	}
	return exists, nil
}

// ── Carga de detalle y scan ───────────────────────────────────────────────────

func (r *DocumentRepo) loadDetails(ctx context.Context, doc *entity.FiscalDocument) error {
	if err := r.loadLines(ctx, doc); err != nil {
		return err
	}
	if err := r.loadTaxLines(ctx, doc); err != nil {
		return err
	}
	return r.loadPaymentForms(ctx, doc)
}

func (r *DocumentRepo) loadLines(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		SELECT l.id, l.description, l.is_service, l.quantity, l.unit_price,
		       l.amount, l.itbis_rate, l.itbis_amount, l.exempt
		FROM document_lines l
		WHERE l.document_id = $1
		ORDER BY l.position`
	rows, err := r.q.Query(ctx, query, doc.ID)
	if err != nil {
		return fmt.Errorf("list document_lines: %w", err)
	}
	defer rows.Close()

	var lineIDs []string
	for rows.Next() {
		var id string
		var l entity.DocumentLine
		if err := rows.Scan(&id, &l.Description, &l.IsService, &l.Quantity,
			&l.UnitPrice, &l.Amount, &l.ITBISRate, &l.ITBISAmount, &l.Exempt); err != nil {
			return fmt.Errorf("scan document_line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
		lineIDs = append(lineIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, lineID := range lineIDs {
		taxes, err := r.loadLineTaxes(ctx, lineID)
		if err != nil {
			return err
		}
		doc.Lines[i].AdditionalTaxes = taxes
	}
	return nil
}

func (r *DocumentRepo) loadLineTaxes(ctx context.Context, lineID string) ([]entity.AdditionalTax, error) {
	query := `
		SELECT code, rate, amount, per_unit
		FROM document_line_taxes WHERE line_id = $1 ORDER BY code`
	rows, err := r.q.Query(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("list document_line_taxes: %w", err)
	}
	defer rows.Close()

	var taxes []entity.AdditionalTax
	for rows.Next() {
		var at entity.AdditionalTax
		if err := rows.Scan(&at.Code, &at.Rate, &at.Amount, &at.PerUnit); err != nil {
			return nil, fmt.Errorf("scan document_line_tax: %w", err)
		}
		taxes = append(taxes, at)
	}
	return taxes, rows.Err()
}

func (r *DocumentRepo) loadTaxLines(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		SELECT kind, rate, amount
		FROM document_tax_lines WHERE document_id = $1 ORDER BY kind, rate`
	rows, err := r.q.Query(ctx, query, doc.ID)
	if err != nil {
		return fmt.Errorf("list document_tax_lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tl entity.TaxLine
		if err := rows.Scan(&tl.Kind, &tl.Rate, &tl.Amount); err != nil {
			return fmt.Errorf("scan document_tax_line: %w", err)
		}
		doc.TaxLines = append(doc.TaxLines, tl)
	}
	return rows.Err()
}

func (r *DocumentRepo) loadPaymentForms(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		SELECT form, amount
		FROM document_payment_forms WHERE document_id = $1 ORDER BY form`
	rows, err := r.q.Query(ctx, query, doc.ID)
	if err != nil {
		return fmt.Errorf("list document_payment_forms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pf entity.PaymentForm
		if err := rows.Scan(&pf.Form, &pf.Amount); err != nil {
			return fmt.Errorf("scan document_payment_form: %w", err)
		}
		doc.PaymentForms = append(doc.PaymentForms, pf)
	}
	return rows.Err()
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar scanDocument.
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row pgxScanner) (*entity.FiscalDocument, error) {
	var doc entity.FiscalDocument
	var fiscalPrefix, shortCode *string
	var issuerCommercial, issuerAddress, issuerMunicipality, issuerProvince,
		issuerEmail, issuerPhone *string
	var buyerRNC, buyerName, buyerAddress, buyerEmail *string
	var buyerForeign bool
	var originENCF, modificationCode *string
	var containerNumber, referenceNumber *string
	var trackID, securityCode, cufe *string
	var signedAt *time.Time

	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.ENCF, &fiscalPrefix, &shortCode,
		&doc.MoveKind, &doc.DebitOrigin,
		&doc.IssueDate, &doc.DueDate, &doc.SequenceDue,
		&doc.Currency, &doc.AmountTotal, &doc.AmountTotalSigned,
		&doc.Issuer.RNC, &doc.Issuer.Name, &issuerCommercial, &issuerAddress,
		&issuerMunicipality, &issuerProvince, &issuerEmail, &issuerPhone,
		&buyerRNC, &buyerName, &buyerAddress, &buyerEmail, &buyerForeign,
		&originENCF, &doc.OriginIssueDate, &modificationCode,
		&containerNumber, &referenceNumber, &doc.ShipmentDate,
		&doc.Status, &trackID, &securityCode, &signedAt, &cufe,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.FiscalTypePrefix = derefStr(fiscalPrefix)
	doc.ShortCode = derefStr(shortCode)
	doc.Issuer.CommercialName = derefStr(issuerCommercial)
	doc.Issuer.Address = derefStr(issuerAddress)
	doc.Issuer.Municipality = derefStr(issuerMunicipality)
	doc.Issuer.Province = derefStr(issuerProvince)
	doc.Issuer.Email = derefStr(issuerEmail)
	doc.Issuer.Phone = derefStr(issuerPhone)
	doc.OriginENCF = derefStr(originENCF)
	doc.ModificationCode = derefStr(modificationCode)
	doc.ContainerNumber = derefStr(containerNumber)
	doc.ReferenceNumber = derefStr(referenceNumber)
	doc.TrackID = derefStr(trackID)
	doc.SecurityCode = derefStr(securityCode)
	doc.CUFE = derefStr(cufe)
	if signedAt != nil {
		doc.SignedAt = *signedAt
	}

	if buyerName != nil || buyerRNC != nil {
		doc.Buyer = &entity.Party{
			RNC:       derefStr(buyerRNC),
			Name:      derefStr(buyerName),
			Address:   derefStr(buyerAddress),
			Email:     derefStr(buyerEmail),
			IsForeign: buyerForeign,
		}
	}
	return &doc, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
