package postgres

import (
	"context"
	"fmt"

	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo implementación de PaymentRepository (usable con pool o tx).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

// Unreconcile borra las filas de conciliación del documento. Los pagos
// quedan disponibles para aplicarse a la factura que sustituya al e-CF
// rechazado.
func (r *PaymentRepo) Unreconcile(ctx context.Context, documentID string) error {
	query := `DELETE FROM payment_reconciliations WHERE document_id = $1`
	if _, err := r.q.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("unreconcile payments: %w", err)
	}
	return nil
}
