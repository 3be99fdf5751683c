package ecf

import (
	"errors"
	"fmt"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
	"github.com/shopspring/decimal"
)

// ErrInvalidDocument agrupa errores de validación del e-CF.
var ErrInvalidDocument = errors.New("e-CF inválido")

// Tipos que exigen RNC o cédula del comprador.
var typesRequiringBuyerRNC = map[string]bool{
	dgii.TipoFacturaCredito:  true,
	dgii.TipoCompras:         true,
	dgii.TipoRegimenEspecial: true,
	dgii.TipoGubernamental:   true,
}

var rncThreshold = decimal.NewFromInt(dgii.SimplifiedThreshold)

// ValidateDocument aplica las reglas locales previas a la construcción del XML.
// Devuelve todos los incumplimientos agregados con errors.Join.
func ValidateDocument(doc *entity.FiscalDocument, typeCode string) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrInvalidDocument)
	}
	var errs []error

	if len(doc.Lines) == 0 {
		errs = append(errs, fmt.Errorf("%w: el comprobante debe tener al menos una línea", ErrInvalidDocument))
	}

	if _, _, err := dgii.ParseENCF(doc.ENCF); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}

	if err := dgii.ValidateRNC(doc.Issuer.RNC); err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}

	buyerRNC := ""
	if doc.Buyer != nil {
		buyerRNC = dgii.NormalizeRNC(doc.Buyer.RNC)
	}

	// Tipos con valor fiscal exigen identificar al comprador.
	if typesRequiringBuyerRNC[typeCode] && buyerRNC == "" {
		errs = append(errs, fmt.Errorf("%w: el tipo %s requiere RNC o cédula del comprador", ErrInvalidDocument, typeCode))
	}

	// Ventas de RD$250,000 o más deben identificar al comprador aunque el tipo no lo exija.
	if doc.IsSale() && !dgii.TiposSinComprador[typeCode] &&
		doc.AmountTotalSigned.GreaterThanOrEqual(rncThreshold) && buyerRNC == "" {
		errs = append(errs, fmt.Errorf("%w: ventas desde RD$%s requieren RNC o cédula del comprador",
			ErrInvalidDocument, rncThreshold.StringFixed(0)))
	}

	// Notas de crédito y débito referencian al comprobante modificado.
	if typeCode == dgii.TipoNotaCredito || typeCode == dgii.TipoNotaDebito {
		if doc.ModificationCode != "" && !dgii.ValidModificationCodes[doc.ModificationCode] {
			errs = append(errs, fmt.Errorf("%w: código de modificación desconocido: %q", ErrInvalidDocument, doc.ModificationCode))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
