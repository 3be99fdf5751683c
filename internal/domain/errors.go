package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrOriginNotFound     = errors.New("Could not found origin document.")
	ErrResendDelivered    = errors.New("Resend a Delivered e-CF is not allowed.")
	ErrDocumentLocked     = errors.New("el documento ya está siendo procesado")
	ErrNoActiveCredential = errors.New("no hay credencial WebPOS activa para la compañía")
	ErrDraftAfterSent     = errors.New("un e-CF enviado no puede volver a borrador")
	ErrCancelOnlyDGII     = errors.New("solo un rechazo de la DGII puede anular el e-CF")
)

// Categorías de fallo en el ciclo de envío de un e-CF.
type ErrorCategory string

const (
	CategoryValidation        ErrorCategory = "validation"         // El documento no pasa las reglas locales
	CategorySchemaRejected    ErrorCategory = "schema_rejected"    // La DGII rechazó el XML en recepción (HTTP 400)
	CategoryAuthorityRejected ErrorCategory = "authority_rejected" // Estado Rechazado en la consulta de resultado
	CategoryTransient         ErrorCategory = "transient"          // Servicio no disponible, reintentar luego
	CategoryTokenExpired      ErrorCategory = "token_expired"      // Sesión DGII vencida
	CategoryOriginNotFound    ErrorCategory = "origin_not_found"   // Nota 33/34 sin documento de origen
)

// AuthorityMessage un mensaje de validación devuelto por la DGII.
type AuthorityMessage struct {
	Code    string `json:"codigo"`
	Message string `json:"valor"`
}

// SubmissionError error tipado del ciclo de envío. Conserva la categoría y,
// cuando la DGII los devuelve, los mensajes de rechazo.
type SubmissionError struct {
	Category ErrorCategory
	Msg      string
	Messages []AuthorityMessage
	Err      error
}

func (e *SubmissionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Category, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return string(e.Category)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// NewSubmissionError construye un SubmissionError con mensaje formateado.
func NewSubmissionError(cat ErrorCategory, format string, args ...any) *SubmissionError {
	return &SubmissionError{Category: cat, Msg: fmt.Sprintf(format, args...)}
}

// CategoryOf devuelve la categoría si err envuelve un SubmissionError, o "" si no.
func CategoryOf(err error) ErrorCategory {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
