package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/intrepidux/facturacion-ecf/internal/application/dto"
	appecf "github.com/intrepidux/facturacion-ecf/internal/application/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	domecf "github.com/intrepidux/facturacion-ecf/internal/domain/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
	"github.com/intrepidux/facturacion-ecf/internal/infrastructure/pdf"
)

// TxRunner ejecuta fn dentro de una transacción del repositorio de documentos.
// Lo implementa postgres.TxRunner.
type TxRunner interface {
	Run(ctx context.Context, fn func(docs repository.DocumentRepository) error) error
}

// DocumentHandler maneja el ciclo de vida HTTP del e-CF (protegido).
type DocumentHandler struct {
	orch      *appecf.Orchestrator
	documents repository.DocumentRepository
	txRunner  TxRunner
	pdfGen    *pdf.StampPDFGenerator
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(
	orch *appecf.Orchestrator,
	documents repository.DocumentRepository,
	txRunner TxRunner,
	pdfGen *pdf.StampPDFGenerator,
) *DocumentHandler {
	return &DocumentHandler{orch: orch, documents: documents, txRunner: txRunner, pdfGen: pdfGen}
}

// Create registra un comprobante listo para enviar.
// POST /api/documents
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	doc := in.ToEntity(companyID)
	dt, _ := domecf.ResolveType(doc)
	if err := domecf.ValidateDocument(doc, dt.Code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}

	// El NCF de compra es único por par (suplidor, compañía).
	if doc.MoveKind == entity.MovePurchase {
		exists, err := h.documents.VendorNCFExists(c.Context(), companyID, doc.Issuer.RNC, doc.ENCF)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
		if exists {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code: "DUPLICATE_VENDOR_NCF", Message: "el NCF de ese suplidor ya fue registrado"})
		}
	}

	err := h.txRunner.Run(c.Context(), func(docs repository.DocumentRepository) error {
		return docs.Create(c.Context(), doc)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el e-NCF ya existe"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DocumentResponseFrom(doc))
}

// List devuelve los comprobantes de la compañía, filtrables por estado.
// GET /api/documents?status=delivered_pending,contingency&limit=20&offset=0
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	statuses := entity.AllStatuses()
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	docs, err := h.documents.ListByStatus(c.Context(), companyID, statuses...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	// Paginación en memoria: ListByStatus viene ordenado por fecha y eNCF.
	if page.Offset >= len(docs) {
		docs = nil
	} else {
		docs = docs[page.Offset:]
	}
	if len(docs) > page.Limit {
		docs = docs[:page.Limit]
	}

	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.DocumentResponseFrom(d))
	}
	return c.JSON(out)
}

// GetByID devuelve el estado actual del comprobante.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}
	return c.JSON(dto.DocumentResponseFrom(doc))
}

// Submit envía el comprobante a la DGII y devuelve el estado resultante.
// Sirve igual para el primer envío y para el reenvío desde contingencia.
// POST /api/documents/:id/submit
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}

	if err := h.orch.Submit(c.Context(), doc.ID); err != nil {
		return submissionError(c, err)
	}

	doc, err := h.documents.GetByID(c.Context(), doc.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.DocumentResponseFrom(doc))
}

// CheckStatus consulta el veredicto pendiente en la DGII.
// POST /api/documents/:id/status
func (h *DocumentHandler) CheckStatus(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}

	if err := h.orch.CheckStatus(c.Context(), doc.ID); err != nil {
		return submissionError(c, err)
	}

	doc, err := h.documents.GetByID(c.Context(), doc.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.DocumentResponseFrom(doc))
}

// PDF devuelve la representación impresa con el QR del timbre.
// GET /api/documents/:id/pdf
func (h *DocumentHandler) PDF(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}

	dt, _ := domecf.ResolveType(doc)
	agg, err := domecf.AggregateTaxes(doc, dt.Code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}

	pdfBytes, err := h.pdfGen.Generate(c.Context(), doc, agg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+doc.ENCF+`.pdf"`)
	return c.Send(pdfBytes)
}

// ── Internos ──────────────────────────────────────────────────────────────────

// ownedDocument carga el documento y verifica que pertenezca a la compañía
// del token. Si devuelve doc nil la respuesta de error ya quedó escrita;
// el handler debe retornar el segundo valor tal cual.
func ownedDocument(c *fiber.Ctx, documents repository.DocumentRepository) (*entity.FiscalDocument, error) {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	d, err := documents.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "comprobante no encontrado"})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if d.CompanyID != companyID {
		return nil, c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	return d, nil
}

// submissionError traduce los errores del ciclo de envío a HTTP.
func submissionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDocumentLocked):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCKED", Message: "el comprobante ya está en proceso de envío"})
	case errors.Is(err, domain.ErrResendDelivered):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_DELIVERED", Message: domain.ErrResendDelivered.Error()})
	case errors.Is(err, domain.ErrOriginNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "ORIGIN_NOT_FOUND", Message: domain.ErrOriginNotFound.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "comprobante no encontrado"})
	}

	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		switch subErr.Category {
		case domain.CategoryValidation:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: subErr.Msg})
		case domain.CategorySchemaRejected, domain.CategoryAuthorityRejected:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
				Code: "REJECTED", Message: subErr.Msg, Messages: subErr.Messages,
			})
		case domain.CategoryTokenExpired, domain.CategoryTransient:
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "DGII_UNAVAILABLE", Message: subErr.Msg})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
