package repository

import (
	"context"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// XMLRecordRepository registros de auditoría del XML firmado.
// El registro pertenece al documento: se crea una vez y el XML firmado
// almacenado nunca se reemplaza.
type XMLRecordRepository interface {
	GetByDocument(ctx context.Context, documentID string) (*entity.XMLRecord, error)
	Create(ctx context.Context, rec *entity.XMLRecord) error
	UpdateStatus(ctx context.Context, id, status string) error
	// UpdateVerification guarda el resultado de una verificación (WebPOS o DGII).
	UpdateVerification(ctx context.Context, rec *entity.XMLRecord) error
	// AppendAuthorityMessages agrega al historial los mensajes de rechazo o
	// aceptación condicional devueltos por la DGII.
	AppendAuthorityMessages(ctx context.Context, documentID string, msgs []domain.AuthorityMessage) error
}

// CredentialRepository credenciales del API intermediario WebPOS.
type CredentialRepository interface {
	// GetActive devuelve la única credencial activa de la compañía.
	GetActive(ctx context.Context, companyID string) (*entity.WebPOSCredential, error)
	Create(ctx context.Context, cred *entity.WebPOSCredential) error
	// Activate marca la credencial como activa y desactiva las demás de la compañía.
	Activate(ctx context.Context, id string) error
	List(ctx context.Context, companyID string) ([]*entity.WebPOSCredential, error)
}
