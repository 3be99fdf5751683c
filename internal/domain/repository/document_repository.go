package repository

import (
	"context"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// DocumentRepository acceso a los comprobantes fiscales.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetByENCF(ctx context.Context, companyID, encf string) (*entity.FiscalDocument, error)
	// ListByStatus devuelve los documentos de la compañía en cualquiera de los estados dados.
	ListByStatus(ctx context.Context, companyID string, statuses ...string) ([]*entity.FiscalDocument, error)
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// UpdateSubmission persiste el resultado de un intento de envío:
	// estado, TrackID, código de seguridad y fecha de firma.
	UpdateSubmission(ctx context.Context, doc *entity.FiscalDocument) error
	// Cancel anula el documento (solo tras rechazo de la DGII).
	Cancel(ctx context.Context, id string) error
	// VendorNCFExists true si ya se registró ese NCF de suplidor para el mismo
	// par (suplidor, compañía). El NCF de compra debe ser único por suplidor.
	VendorNCFExists(ctx context.Context, companyID, vendorRNC, ncf string) (bool, error)
}

// PaymentRepository operaciones sobre los pagos conciliados del documento.
type PaymentRepository interface {
	// Unreconcile desvincula todos los pagos aplicados al documento.
	// Se invoca cuando la DGII rechaza el e-CF y la factura se anula.
	Unreconcile(ctx context.Context, documentID string) error
}
