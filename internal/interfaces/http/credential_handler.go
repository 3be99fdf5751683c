package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/intrepidux/facturacion-ecf/internal/application/dto"
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
)

// CredentialHandler administra las credenciales del intermediario WebPOS
// (protegido, solo admin).
type CredentialHandler struct {
	credentials repository.CredentialRepository
}

// NewCredentialHandler construye el handler.
func NewCredentialHandler(credentials repository.CredentialRepository) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

// Create registra una credencial nueva (entra inactiva).
// POST /api/credentials
func (h *CredentialHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateCredentialRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Name == "" || in.CompanyLicCod == "" || in.APK == "" || in.URLBase == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name, company_lic_cod, apk y url_base son requeridos"})
	}

	cred := &entity.WebPOSCredential{
		CompanyID:     companyID,
		Name:          in.Name,
		CompanyLicCod: in.CompanyLicCod,
		BranchCod:     in.BranchCod,
		POSCod:        in.POSCod,
		APK:           in.APK,
		URLBase:       in.URLBase,
	}
	if err := h.credentials.Create(c.Context(), cred); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "la credencial ya existe"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CredentialResponseFrom(cred))
}

// List devuelve las credenciales de la compañía (sin el APK).
// GET /api/credentials
func (h *CredentialHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	creds, err := h.credentials.List(c.Context(), companyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, dto.CredentialResponseFrom(cred))
	}
	return c.JSON(out)
}

// Activate habilita la credencial y apaga las demás de la compañía.
// POST /api/credentials/:id/activate
func (h *CredentialHandler) Activate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	if err := h.credentials.Activate(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "credencial no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
