package dgii

import (
	"github.com/intrepidux/facturacion-ecf/internal/domain/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// BuildContext todo lo que el ensamblador necesita para armar el e-CF.
// Origin solo aplica a notas de crédito/débito (33/34): es el comprobante
// modificado, resuelto por el orquestador antes de construir.
type BuildContext struct {
	Doc        *entity.FiscalDocument
	Type       ecf.DocumentType
	Aggregate  *ecf.TaxAggregate
	Origin     *entity.FiscalDocument // opcional; obligatorio para 33/34
	Simplified bool                   // factura de consumo < RD$250,000
}
