package ecf

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	domecf "github.com/intrepidux/facturacion-ecf/internal/domain/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	infradgii "github.com/intrepidux/facturacion-ecf/internal/infrastructure/dgii"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
	"github.com/intrepidux/facturacion-ecf/pkg/logger"
)

// Orchestrator orquesta el ciclo completo del e-CF:
//
//	Resolver tipo → Validar → Agregar impuestos → Ensamblar → Serializar →
//	Firmar (idempotente) → Entregar a Recepción → Consultar estado → Update DB
//
// Cada documento se procesa bajo su propio candado: dos envíos concurrentes
// del mismo e-CF son un error (ErrDocumentLocked), no una espera.
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  *logger.Logger

	locks sync.Map // documentID -> *sync.Mutex
	sleep func(time.Duration)
}

// NewOrchestrator construye el orquestador con todas sus dependencias.
func NewOrchestrator(deps Deps, cfg Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		deps:  deps,
		cfg:   cfg.withDefaults(),
		log:   log,
		sleep: time.Sleep,
	}
}

// SubmitAsync dispara el envío en una goroutine independiente, desacoplado
// del ciclo HTTP, con su propio contexto.
func (o *Orchestrator) SubmitAsync(documentID string) {
	go func() {
		if err := o.Submit(context.Background(), documentID); err != nil {
			o.log.Error().Err(err).Str("document_id", documentID).Msg("envío e-CF falló")
		}
	}()
}

// Submit procesa y entrega el documento. El contexto se acota a 30 s.
func (o *Orchestrator) Submit(ctx context.Context, documentID string) error {
	muAny, _ := o.locks.LoadOrStore(documentID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	if !mu.TryLock() {
		return domain.ErrDocumentLocked
	}
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := o.deps.Documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("buscar documento %s: %w", documentID, err)
	}
	if err := domecf.CanSubmit(doc); err != nil {
		return err
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 1. Resolver tipo, validar y agregar impuestos
	// ═══════════════════════════════════════════════════════════════════════
	dt, defaulted := domecf.ResolveType(doc)
	if defaulted {
		o.log.Warn().Str("encf", doc.ENCF).
			Msg("tipo de e-CF no determinable, se asume factura de crédito fiscal")
	}
	if dt.Code == "" {
		return domain.NewSubmissionError(domain.CategoryValidation,
			"el tipo %s no tiene serie electrónica", dt.Short)
	}

	if err := domecf.ValidateDocument(doc, dt.Code); err != nil {
		o.setStatus(ctx, doc, entity.StatusInvalid)
		return &domain.SubmissionError{Category: domain.CategoryValidation, Msg: err.Error(), Err: err}
	}

	agg, err := domecf.AggregateTaxes(doc, dt.Code)
	if err != nil {
		o.setStatus(ctx, doc, entity.StatusInvalid)
		return err
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 2. Resolver el documento de origen (notas 33/34)
	// ═══════════════════════════════════════════════════════════════════════
	var origin *entity.FiscalDocument
	if (dt.Code == dgii.TipoNotaDebito || dt.Code == dgii.TipoNotaCredito) && doc.OriginENCF != "" {
		origin, err = o.deps.Documents.GetByENCF(ctx, doc.CompanyID, doc.OriginENCF)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("buscar origen %s: %w", doc.OriginENCF, err)
		}
	}

	simplified := domecf.IsSimplified(dt.Code, doc.AmountTotalSigned)
	buildCtx := &infradgii.BuildContext{
		Doc:        doc,
		Type:       dt,
		Aggregate:  agg,
		Origin:     origin,
		Simplified: simplified,
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 3. Ensamblar, serializar y firmar (nunca se firma dos veces)
	// ═══════════════════════════════════════════════════════════════════════
	signedXML, securityCode, err := o.ensureSigned(ctx, buildCtx)
	if err != nil {
		if domain.CategoryOf(err) == domain.CategoryOriginNotFound {
			o.setStatus(ctx, doc, entity.StatusInvalid)
			return err
		}
		o.setStatus(ctx, doc, entity.StatusServiceUnreachable)
		return err
	}

	payload := signedXML
	if simplified {
		// El resumen se arma desde el e-CF firmado y viaja sin firma propia.
		summary, serr := o.deps.Assembler.BuildSummary(buildCtx, securityCode)
		if serr != nil {
			return serr
		}
		if payload, serr = o.deps.Serializer.Serialize(summary); serr != nil {
			return serr
		}
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 4. Entregar a Recepción (con una única renovación de token ante 401)
	// ═══════════════════════════════════════════════════════════════════════
	token, err := o.deps.Tokens.EnsureToken(ctx)
	if err != nil {
		o.setStatus(ctx, doc, entity.StatusServiceUnreachable)
		return &domain.SubmissionError{Category: domain.CategoryTokenExpired, Msg: "autenticación DGII falló", Err: err}
	}

	filename := o.issuerRNC(doc) + doc.ENCF + ".xml"
	var out *infradgii.SubmitOutcome
	for attempt := 0; ; attempt++ {
		out, err = o.deps.Authority.Submit(ctx, token, filename, payload, simplified)
		if err != nil {
			// Error de transporte: el documento nunca llegó.
			o.setStatus(ctx, doc, entity.StatusNotSent)
			return &domain.SubmissionError{Category: domain.CategoryTransient, Msg: "recepción DGII inaccesible", Err: err}
		}
		if out.StatusCode == http.StatusUnauthorized && attempt == 0 {
			// Un solo reintento con token fresco; sin recursión.
			o.deps.Tokens.Invalidate()
			if token, err = o.deps.Tokens.EnsureToken(ctx); err != nil {
				o.setStatus(ctx, doc, entity.StatusServiceUnreachable)
				return &domain.SubmissionError{Category: domain.CategoryTokenExpired, Msg: "renovación de token falló", Err: err}
			}
			continue
		}
		break
	}

	return o.handleOutcome(ctx, doc, token, out)
}

// handleOutcome traduce la respuesta de recepción al estado del documento.
func (o *Orchestrator) handleOutcome(ctx context.Context, doc *entity.FiscalDocument, token string, out *infradgii.SubmitOutcome) error {
	switch out.StatusCode {
	case http.StatusOK:
		// Un reenvío desde contingencia conserva el TrackID original si la
		// DGII no emite uno nuevo.
		if out.TrackID != "" {
			if !(doc.Status == entity.StatusContingency && doc.TrackID != "") {
				doc.TrackID = out.TrackID
			}
		}
		o.setStatus(ctx, doc, entity.StatusDeliveredPending)
		o.markRecord(ctx, doc.ID, entity.XMLStatusSent)

		// Dar un respiro a la DGII antes de la primera consulta.
		o.sleep(o.cfg.PollDelay)
		return o.poll(ctx, doc, token)

	case http.StatusServiceUnavailable:
		// Servicio caído: el documento queda en contingencia y lo recoge el barrido.
		o.setStatus(ctx, doc, entity.StatusContingency)
		return nil

	case http.StatusBadRequest:
		o.setStatus(ctx, doc, entity.StatusInvalid)
		o.markRecord(ctx, doc.ID, entity.XMLStatusError)
		o.appendMessages(ctx, doc.ID, out.Messages)
		return &domain.SubmissionError{
			Category: domain.CategorySchemaRejected,
			Msg:      "la DGII rechazó el XML en recepción",
			Messages: out.Messages,
		}

	case http.StatusUnauthorized:
		o.setStatus(ctx, doc, entity.StatusServiceUnreachable)
		return domain.NewSubmissionError(domain.CategoryTokenExpired, "token rechazado tras renovación")

	default:
		o.setStatus(ctx, doc, entity.StatusServiceUnreachable)
		return domain.NewSubmissionError(domain.CategoryTransient,
			"respuesta inesperada de recepción: HTTP %d", out.StatusCode)
	}
}

// poll consulta el estado por TrackID y lo aplica al documento.
func (o *Orchestrator) poll(ctx context.Context, doc *entity.FiscalDocument, token string) error {
	if doc.TrackID == "" {
		return nil
	}
	st, err := o.deps.Authority.QueryStatus(ctx, token, doc.TrackID)
	if err != nil {
		// La consulta puede fallar sin invalidar la entrega: queda en proceso
		// y el barrido de pendientes la retoma.
		o.log.Warn().Err(err).Str("track_id", doc.TrackID).Msg("consulta de estado falló")
		return nil
	}
	return o.applyEstado(ctx, doc, st)
}

// applyEstado aplica el veredicto de la DGII. Un rechazo anula el documento
// y desvincula sus pagos; el detalle queda en el historial de auditoría.
func (o *Orchestrator) applyEstado(ctx context.Context, doc *entity.FiscalDocument, st *infradgii.StatusOutcome) error {
	status, ok := domecf.StatusForEstado(st.Estado)
	if !ok {
		o.log.Warn().Str("estado", st.Estado).Msg("estado DGII no catalogado")
		return nil
	}
	o.setStatus(ctx, doc, status)

	switch status {
	case entity.StatusDeliveredAccepted:
		o.markRecord(ctx, doc.ID, entity.XMLStatusProcesed)

	case entity.StatusConditionallyAccepted:
		o.markRecord(ctx, doc.ID, entity.XMLStatusProcesed)
		o.appendMessages(ctx, doc.ID, st.Messages)

	case entity.StatusDeliveredRefused:
		o.markRecord(ctx, doc.ID, entity.XMLStatusError)
		o.appendMessages(ctx, doc.ID, st.Messages)
		if err := o.deps.Documents.Cancel(ctx, doc.ID); err != nil {
			o.log.Error().Err(err).Str("document_id", doc.ID).Msg("no se pudo anular el documento rechazado")
		}
		if err := o.deps.Payments.Unreconcile(ctx, doc.ID); err != nil {
			o.log.Error().Err(err).Str("document_id", doc.ID).Msg("no se pudieron desvincular los pagos")
		}
		return &domain.SubmissionError{
			Category: domain.CategoryAuthorityRejected,
			Msg:      "e-CF rechazado por la DGII",
			Messages: st.Messages,
		}
	}
	return nil
}

// CheckStatus consulta el estado actual de un documento ya entregado,
// recuperando el TrackID desde la DGII si se perdió localmente.
func (o *Orchestrator) CheckStatus(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := o.deps.Documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	token, err := o.deps.Tokens.EnsureToken(ctx)
	if err != nil {
		return &domain.SubmissionError{Category: domain.CategoryTokenExpired, Msg: "autenticación DGII falló", Err: err}
	}

	if doc.TrackID == "" {
		track, err := o.deps.Authority.RecoverTrackID(ctx, token, o.issuerRNC(doc), doc.ENCF)
		if err != nil {
			return err
		}
		doc.TrackID = track
	}
	return o.poll(ctx, doc, token)
}

// issuerRNC el RNC que nombra el archivo XML y las consultas de TrackID.
// Si el documento no trae emisor se usa el configurado.
func (o *Orchestrator) issuerRNC(doc *entity.FiscalDocument) string {
	if rnc := dgii.NormalizeRNC(doc.Issuer.RNC); rnc != "" {
		return rnc
	}
	return dgii.NormalizeRNC(o.cfg.IssuerRNC)
}

// ── Firma idempotente ─────────────────────────────────────────────────────────

// ensureSigned devuelve el XML firmado del documento. Si el registro de
// auditoría ya guarda uno, se reutiliza tal cual: un e-CF almacenado es
// inmutable y nunca se vuelve a firmar.
func (o *Orchestrator) ensureSigned(ctx context.Context, buildCtx *infradgii.BuildContext) ([]byte, string, error) {
	doc := buildCtx.Doc

	rec, err := o.deps.XMLRecords.GetByDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("buscar registro XML: %w", err)
	}
	if rec.HasSignedXML() {
		signed, derr := base64.StdEncoding.DecodeString(rec.XMLBase64)
		if derr != nil {
			return nil, "", fmt.Errorf("registro XML corrupto para %s: %w", doc.ID, derr)
		}
		doc.SecurityCode = rec.SecurityCode
		doc.SignedAt = rec.SignedAt
		return signed, rec.SecurityCode, nil
	}

	tree, err := o.deps.Assembler.Build(buildCtx)
	if err != nil {
		return nil, "", err
	}
	raw, err := o.deps.Serializer.Serialize(tree)
	if err != nil {
		return nil, "", err
	}
	signed, err := o.deps.Signer.Sign(ctx, raw)
	if err != nil {
		return nil, "", &domain.SubmissionError{Category: domain.CategoryTransient, Msg: "servicio de firma falló", Err: err}
	}

	now := time.Now()
	newRec := &entity.XMLRecord{
		ID:           uuid.New().String(),
		DocumentID:   doc.ID,
		Name:         o.issuerRNC(doc) + doc.ENCF + ".xml",
		XMLBase64:    base64.StdEncoding.EncodeToString(signed.SignedXML),
		Signature:    signed.Signature,
		SecurityCode: signed.SecurityCode,
		SignedAt:     signed.SignedAt,
		Status:       entity.XMLStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.deps.XMLRecords.Create(ctx, newRec); err != nil {
		return nil, "", fmt.Errorf("guardar registro XML: %w", err)
	}

	doc.SecurityCode = signed.SecurityCode
	doc.SignedAt = signed.SignedAt
	return signed.SignedXML, signed.SecurityCode, nil
}

// ── Helpers de persistencia ───────────────────────────────────────────────────

func (o *Orchestrator) setStatus(ctx context.Context, doc *entity.FiscalDocument, status string) {
	doc.Status = status
	doc.UpdatedAt = time.Now()
	if err := o.deps.Documents.UpdateSubmission(ctx, doc); err != nil {
		o.log.Error().Err(err).Str("document_id", doc.ID).Str("status", status).
			Msg("no se pudo persistir el estado del documento")
	}
}

func (o *Orchestrator) markRecord(ctx context.Context, documentID, status string) {
	rec, err := o.deps.XMLRecords.GetByDocument(ctx, documentID)
	if err != nil || rec == nil {
		return
	}
	if err := o.deps.XMLRecords.UpdateStatus(ctx, rec.ID, status); err != nil {
		o.log.Warn().Err(err).Str("document_id", documentID).Msg("no se pudo actualizar el registro XML")
	}
}

func (o *Orchestrator) appendMessages(ctx context.Context, documentID string, msgs []domain.AuthorityMessage) {
	if len(msgs) == 0 {
		return
	}
	if err := o.deps.XMLRecords.AppendAuthorityMessages(ctx, documentID, msgs); err != nil {
		o.log.Warn().Err(err).Str("document_id", documentID).Msg("no se pudieron guardar los mensajes DGII")
	}
}
