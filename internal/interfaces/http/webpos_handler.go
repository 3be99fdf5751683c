package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/intrepidux/facturacion-ecf/internal/application/dto"
	appwebpos "github.com/intrepidux/facturacion-ecf/internal/application/webpos"
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
)

// WebPOSHandler expone la vía alternativa de envío por el intermediario
// WebPOS. El intermediario genera, firma y remite el XML; aquí solo se
// dispara el envío y se consulta el resultado.
type WebPOSHandler struct {
	uc        *appwebpos.Usecase
	documents repository.DocumentRepository
}

// NewWebPOSHandler construye el handler.
func NewWebPOSHandler(uc *appwebpos.Usecase, documents repository.DocumentRepository) *WebPOSHandler {
	return &WebPOSHandler{uc: uc, documents: documents}
}

// Send genera el XML en el intermediario y lo remite a la DGII.
// POST /api/documents/:id/webpos/send
func (h *WebPOSHandler) Send(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}
	if err := h.uc.Send(c.Context(), doc.ID); err != nil {
		return h.webposError(c, err)
	}
	return c.JSON(fiber.Map{"status": "sent"})
}

// Verify consulta al intermediario el resultado del e-CF y lo aplica
// al documento y su registro XML.
// POST /api/documents/:id/webpos/verify
func (h *WebPOSHandler) Verify(c *fiber.Ctx) error {
	doc, errResp := ownedDocument(c, h.documents)
	if doc == nil {
		return errResp
	}
	res, err := h.uc.Verify(c.Context(), doc.ID)
	if err != nil {
		return h.webposError(c, err)
	}
	return c.JSON(res)
}

func (h *WebPOSHandler) webposError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoActiveCredential):
		return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{
			Code: "NO_CREDENTIAL", Message: domain.ErrNoActiveCredential.Error(),
		})
	case errors.Is(err, domain.ErrResendDelivered):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "ALREADY_DELIVERED", Message: domain.ErrResendDelivered.Error(),
		})
	}
	return submissionError(c, err)
}
