package ecf

import (
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// estadoToStatus traduce el campo "estado" de la consulta de resultado
// de la DGII al estado interno del documento.
var estadoToStatus = map[string]string{
	"Aceptado":            entity.StatusDeliveredAccepted,
	"AceptadoCondicional": entity.StatusConditionallyAccepted,
	"EnProceso":           entity.StatusDeliveredPending,
	"Rechazado":           entity.StatusDeliveredRefused,
}

// StatusForEstado devuelve el estado interno para un estado DGII.
// ok=false cuando la DGII devuelve un valor no catalogado.
func StatusForEstado(estado string) (string, bool) {
	s, ok := estadoToStatus[estado]
	return s, ok
}

// CanSubmit verifica que el documento admita un (re)envío a la DGII.
// Un e-CF ya entregado (aceptado o aceptado condicional) nunca se reenvía.
func CanSubmit(doc *entity.FiscalDocument) error {
	if doc.WasDelivered() {
		return domain.ErrResendDelivered
	}
	return nil
}

// CanSetDraft un e-CF que ya salió hacia la DGII no puede volver a borrador.
func CanSetDraft(status string) error {
	switch status {
	case "", entity.StatusToSend, entity.StatusInvalid:
		return nil
	}
	return domain.ErrDraftAfterSent
}

// CanCancel la anulación solo procede con un rechazo de la DGII.
func CanCancel(status string) error {
	if status == entity.StatusDeliveredRefused {
		return nil
	}
	return domain.ErrCancelOnlyDGII
}
