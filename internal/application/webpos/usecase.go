// Package webpos orquesta la vía de facturación por intermediario:
// el WebPOS genera el XML, lo firma con la licencia del emisor y lo
// remite a la DGII; aquí solo se conduce el ciclo y se audita.
package webpos

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
	infrawebpos "github.com/intrepidux/facturacion-ecf/internal/infrastructure/webpos"
	"github.com/intrepidux/facturacion-ecf/pkg/logger"
)

// Usecase ciclo generar → enviar → verificar contra el intermediario.
type Usecase struct {
	documents   repository.DocumentRepository
	records     repository.XMLRecordRepository
	credentials repository.CredentialRepository
	client      infrawebpos.Intermediary
	log         *logger.Logger
}

// NewUsecase construye el caso de uso con sus dependencias.
func NewUsecase(
	documents repository.DocumentRepository,
	records repository.XMLRecordRepository,
	credentials repository.CredentialRepository,
	client infrawebpos.Intermediary,
	log *logger.Logger,
) *Usecase {
	return &Usecase{
		documents:   documents,
		records:     records,
		credentials: credentials,
		client:      client,
		log:         log,
	}
}

// Send genera el XML del documento, lo remite por el intermediario y deja
// el registro de auditoría en estado "sent". La verificación del veredicto
// es una llamada aparte (Verify) porque el intermediario procesa en diferido.
func (u *Usecase) Send(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := u.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("buscar documento %s: %w", documentID, err)
	}
	if err := ecf.CanSubmit(doc); err != nil {
		return err
	}

	cred, err := u.activeCredential(ctx, doc.CompanyID)
	if err != nil {
		return err
	}
	creds := infrawebpos.CredentialsFrom(cred)

	dt, _ := ecf.ResolveType(doc)

	// ═══════════════════════════════════════════════════════════════════════
	// 1. Generar el XML en el intermediario
	// ═══════════════════════════════════════════════════════════════════════
	xmlContent, err := u.client.GenerateXML(ctx, invoicePayload(doc), dt.Short)
	if err != nil {
		u.markRecordError(ctx, doc, err)
		return fmt.Errorf("generar XML: %w", err)
	}

	rec := u.ensureRecord(ctx, doc, xmlContent)

	// ═══════════════════════════════════════════════════════════════════════
	// 2. Remitir a la DGII vía WebPOS
	// ═══════════════════════════════════════════════════════════════════════
	if err := u.client.SendXML(ctx, creds, xmlContent); err != nil {
		u.markRecordError(ctx, doc, err)
		return fmt.Errorf("enviar XML: %w", err)
	}

	if rec != nil {
		if err := u.records.UpdateStatus(ctx, rec.ID, entity.XMLStatusSent); err != nil {
			u.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo marcar el registro como enviado")
		}
	}

	doc.Status = entity.StatusDeliveredPending
	doc.UpdatedAt = time.Now()
	if err := u.documents.UpdateSubmission(ctx, doc); err != nil {
		return fmt.Errorf("persistir envío: %w", err)
	}

	u.log.Info().Str("encf", doc.ENCF).Str("tipo", dt.Short).Msg("e-CF remitido vía WebPOS")
	return nil
}

// Verify consulta el veredicto en el intermediario y lo aplica: CUFE,
// número de autorización y QR quedan en el registro de auditoría.
func (u *Usecase) Verify(ctx context.Context, documentID string) (*infrawebpos.VerifyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := u.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento %s: %w", documentID, err)
	}

	cred, err := u.activeCredential(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	res, err := u.client.VerifyStatus(ctx, infrawebpos.CredentialsFrom(cred), doc.ENCF, doc.CUFE)
	if err != nil {
		return nil, fmt.Errorf("verificar estado: %w", err)
	}

	u.applyVerification(ctx, doc, res)
	return res, nil
}

// ── Internos ──────────────────────────────────────────────────────────────────

func (u *Usecase) activeCredential(ctx context.Context, companyID string) (*entity.WebPOSCredential, error) {
	cred, err := u.credentials.GetActive(ctx, companyID)
	if err != nil {
		return nil, domain.ErrNoActiveCredential
	}
	return cred, nil
}

// ensureRecord guarda el XML generado en el registro de auditoría si aún no
// existe. Un registro previo se conserva intacto.
func (u *Usecase) ensureRecord(ctx context.Context, doc *entity.FiscalDocument, xmlContent string) *entity.XMLRecord {
	rec, err := u.records.GetByDocument(ctx, doc.ID)
	if err == nil && rec != nil {
		return rec
	}

	now := time.Now()
	rec = &entity.XMLRecord{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Name:       doc.Issuer.RNC + doc.ENCF + ".xml",
		XMLBase64:  base64.StdEncoding.EncodeToString([]byte(xmlContent)),
		Status:     entity.XMLStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.records.Create(ctx, rec); err != nil {
		u.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo crear el registro XML")
		return nil
	}
	return rec
}

func (u *Usecase) markRecordError(ctx context.Context, doc *entity.FiscalDocument, cause error) {
	rec, err := u.records.GetByDocument(ctx, doc.ID)
	if err != nil || rec == nil {
		return
	}
	rec.Status = entity.XMLStatusError
	rec.ErrMsg = cause.Error()
	rec.UpdatedAt = time.Now()
	if uerr := u.records.UpdateVerification(ctx, rec); uerr != nil {
		u.log.Warn().Err(uerr).Str("document_id", doc.ID).Msg("no se pudo registrar el error del intermediario")
	}
}

func (u *Usecase) applyVerification(ctx context.Context, doc *entity.FiscalDocument, res *infrawebpos.VerifyResult) {
	rec, err := u.records.GetByDocument(ctx, doc.ID)
	if err != nil || rec == nil {
		return
	}

	rec.CUFE = res.CUFE
	rec.AuthNumber = res.AuthNumber
	rec.QRCode = res.QRCode
	rec.Response = res.DGIResp
	rec.UpdatedAt = time.Now()
	if res.Authorized {
		rec.Status = entity.XMLStatusProcesed
	} else if res.DGIErrMsg != "" {
		rec.Status = entity.XMLStatusError
		rec.ErrMsg = res.DGIErrMsg
	}
	if err := u.records.UpdateVerification(ctx, rec); err != nil {
		u.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo guardar la verificación")
	}

	doc.CUFE = res.CUFE
	if status, ok := ecf.StatusForEstado(res.DGIStatus); ok {
		doc.Status = status
	}
	doc.UpdatedAt = time.Now()
	if err := u.documents.UpdateSubmission(ctx, doc); err != nil {
		u.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo actualizar el documento verificado")
	}
}

// invoicePayload proyecta el documento al formato crudo que espera
// generate_xml: un registro plano más sus líneas.
func invoicePayload(doc *entity.FiscalDocument) infrawebpos.InvoiceData {
	record := map[string]any{
		"encf":         doc.ENCF,
		"issue_date":   doc.IssueDate.Format("2006-01-02"),
		"currency":     doc.Currency,
		"amount_total": doc.AmountTotal.StringFixed(2),
		"issuer_rnc":   doc.Issuer.RNC,
		"issuer_name":  doc.Issuer.Name,
	}
	if doc.Buyer != nil {
		record["buyer_rnc"] = doc.Buyer.RNC
		record["buyer_name"] = doc.Buyer.Name
	}
	if doc.OriginENCF != "" {
		record["origin_encf"] = doc.OriginENCF
		record["modification_code"] = doc.ModificationCode
	}

	lines := make([]map[string]any, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, map[string]any{
			"name":       l.Description,
			"quantity":   l.Quantity.String(),
			"price_unit": l.UnitPrice.String(),
			"amount":     l.Amount.StringFixed(2),
			"itbis_rate": l.ITBISRate.String(),
			"itbis":      l.ITBISAmount.StringFixed(2),
			"exempt":     l.Exempt,
		})
	}
	return infrawebpos.InvoiceData{Record: record, Lines: lines}
}
