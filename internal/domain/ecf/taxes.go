package ecf

import (
	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
	"github.com/shopspring/decimal"
)

var (
	rate18 = decimal.NewFromInt(18)
	rate16 = decimal.NewFromInt(16)

	factor18 = decimal.NewFromFloat(0.18)
	factor16 = decimal.NewFromFloat(0.16)

	// Tolerancia de descuadre entre el total contable y los totales agregados.
	// Diferencias de hasta 10 centavos se absorben en la base gravada si la
	// hay, o en el monto exento; por encima el documento se considera inválido.
	maxDrift = decimal.NewFromFloat(0.10)
)

// AdditionalAggregate impuesto adicional agregado por código DGII.
type AdditionalAggregate struct {
	Code    string
	Rate    decimal.Decimal
	Amount  decimal.Decimal
	PerUnit bool
}

// TaxAggregate totales del e-CF por tasa de ITBIS, exentos, retenciones
// e impuestos adicionales. Es la fuente de la sección Totales del XML.
type TaxAggregate struct {
	TaxedAmount18 decimal.Decimal
	ITBIS18       decimal.Decimal
	TaxedAmount16 decimal.Decimal
	ITBIS16       decimal.Decimal
	TaxedAmount0  decimal.Decimal // solo exportaciones (tipo 46)
	ExemptAmount  decimal.Decimal

	ITBISWithheld decimal.Decimal
	ISRWithheld   decimal.Decimal

	Additional      []AdditionalAggregate
	AdditionalTotal decimal.Decimal
}

// TotalITBIS suma del ITBIS a todas las tasas, redondeado a 2 decimales.
func (a *TaxAggregate) TotalITBIS() decimal.Decimal {
	return a.ITBIS18.Add(a.ITBIS16).Round(2)
}

// TaxedTotal suma de las bases gravadas (18, 16 y 0).
func (a *TaxAggregate) TaxedTotal() decimal.Decimal {
	return a.TaxedAmount18.Add(a.TaxedAmount16).Add(a.TaxedAmount0).Round(2)
}

// GrandTotal MontoTotal del comprobante: bases + ITBIS + exento + adicionales.
func (a *TaxAggregate) GrandTotal() decimal.Decimal {
	return a.TaxedAmount18.Add(a.ITBIS18).
		Add(a.TaxedAmount16).Add(a.ITBIS16).
		Add(a.TaxedAmount0).
		Add(a.ExemptAmount).
		Add(a.AdditionalTotal).
		Round(2)
}

// AggregateTaxes clasifica las líneas del documento en los totales del e-CF
// y concilia las diferencias de redondeo contra los apuntes contables.
//
// Conciliación en tres pasos:
//  1. El ITBIS por tasa se ajusta a lo que dice el libro mayor (TaxLines).
//  2. La base gravada se rederiva como ITBIS/tasa para que base*tasa cierre.
//  3. Un descuadre residual contra el total contable de hasta RD$0.10 se
//     absorbe en la base al 18% (o al 16% si no hay 18%); sin base gravada,
//     en el monto exento. Más de eso es error.
func AggregateTaxes(doc *entity.FiscalDocument, typeCode string) (*TaxAggregate, error) {
	agg := &TaxAggregate{}

	// Los gastos menores (43) se registran sin impuestos de ningún tipo.
	if typeCode == dgii.TipoGastoMenor {
		for _, line := range doc.Lines {
			if !line.ITBISAmount.IsZero() || len(line.AdditionalTaxes) > 0 {
				return nil, domain.NewSubmissionError(domain.CategoryValidation,
					"un comprobante de gastos menores (43) no puede llevar impuestos en sus líneas")
			}
		}
	}

	additional := map[string]*AdditionalAggregate{}
	var additionalOrder []string

	for _, line := range doc.Lines {
		switch {
		case line.Exempt:
			agg.ExemptAmount = agg.ExemptAmount.Add(line.Amount)
		case line.ITBISRate.Equal(rate18):
			agg.TaxedAmount18 = agg.TaxedAmount18.Add(line.Amount)
			agg.ITBIS18 = agg.ITBIS18.Add(line.ITBISAmount)
		case line.ITBISRate.Equal(rate16):
			agg.TaxedAmount16 = agg.TaxedAmount16.Add(line.Amount)
			agg.ITBIS16 = agg.ITBIS16.Add(line.ITBISAmount)
		case line.ITBISRate.IsZero() && typeCode == dgii.TipoExportacion:
			// Tasa 0 solo existe para exportaciones; en el resto es exento.
			agg.TaxedAmount0 = agg.TaxedAmount0.Add(line.Amount)
		default:
			agg.ExemptAmount = agg.ExemptAmount.Add(line.Amount)
		}

		for _, at := range line.AdditionalTaxes {
			acc, ok := additional[at.Code]
			if !ok {
				acc = &AdditionalAggregate{Code: at.Code, Rate: at.Rate, PerUnit: at.PerUnit}
				additional[at.Code] = acc
				additionalOrder = append(additionalOrder, at.Code)
			}
			acc.Amount = acc.Amount.Add(at.Amount)
		}
	}

	for _, code := range additionalOrder {
		acc := additional[code]
		acc.Amount = acc.Amount.Round(2)
		agg.Additional = append(agg.Additional, *acc)
		agg.AdditionalTotal = agg.AdditionalTotal.Add(acc.Amount)
	}

	// Retenciones: vienen de los apuntes contables, no de las líneas.
	var ledger18, ledger16 decimal.Decimal
	var has18, has16 bool
	for _, tl := range doc.TaxLines {
		switch tl.Kind {
		case entity.TaxKindITBISWithholding:
			agg.ITBISWithheld = agg.ITBISWithheld.Add(tl.Amount.Abs())
		case entity.TaxKindISRWithholding:
			agg.ISRWithheld = agg.ISRWithheld.Add(tl.Amount.Abs())
		case entity.TaxKindITBIS:
			if tl.Rate.Equal(rate18) {
				ledger18 = ledger18.Add(tl.Amount)
				has18 = true
			} else if tl.Rate.Equal(rate16) {
				ledger16 = ledger16.Add(tl.Amount)
				has16 = true
			}
		}
	}

	// Paso 1 y 2: cuadrar el ITBIS con el libro mayor y rederivar la base.
	if has18 && !agg.ITBIS18.IsZero() {
		agg.ITBIS18 = agg.ITBIS18.Add(ledger18.Sub(agg.ITBIS18))
		agg.TaxedAmount18 = agg.ITBIS18.Div(factor18).Round(2)
	}
	if has16 && !agg.ITBIS16.IsZero() {
		agg.ITBIS16 = agg.ITBIS16.Add(ledger16.Sub(agg.ITBIS16))
		agg.TaxedAmount16 = agg.ITBIS16.Div(factor16).Round(2)
	}

	agg.TaxedAmount18 = agg.TaxedAmount18.Round(2)
	agg.ITBIS18 = agg.ITBIS18.Round(2)
	agg.TaxedAmount16 = agg.TaxedAmount16.Round(2)
	agg.ITBIS16 = agg.ITBIS16.Round(2)
	agg.TaxedAmount0 = agg.TaxedAmount0.Round(2)
	agg.ExemptAmount = agg.ExemptAmount.Round(2)
	agg.ITBISWithheld = agg.ITBISWithheld.Round(2)
	agg.ISRWithheld = agg.ISRWithheld.Round(2)
	agg.AdditionalTotal = agg.AdditionalTotal.Round(2)

	// Paso 3: descuadre residual contra el total contable en DOP.
	if doc.AmountTotalSigned.IsPositive() {
		drift := doc.AmountTotalSigned.Sub(agg.GrandTotal())
		if !drift.IsZero() {
			if drift.Abs().GreaterThan(maxDrift) {
				return nil, domain.NewSubmissionError(domain.CategoryValidation,
					"descuadre de %s entre el total contable (%s) y los totales del e-CF (%s)",
					drift.StringFixed(2), doc.AmountTotalSigned.StringFixed(2), agg.GrandTotal().StringFixed(2))
			}
			// El ajuste nunca crea una base gravada sin líneas que la respalden.
			switch {
			case agg.TaxedAmount18.IsPositive():
				agg.TaxedAmount18 = agg.TaxedAmount18.Add(drift)
			case agg.TaxedAmount16.IsPositive():
				agg.TaxedAmount16 = agg.TaxedAmount16.Add(drift)
			default:
				agg.ExemptAmount = agg.ExemptAmount.Add(drift)
			}
		}
	}

	// Los tipos sin ITBIS (43, 44, 46, 47) no pueden declarar impuesto.
	if dgii.TiposSinITBIS[typeCode] && agg.TotalITBIS().IsPositive() {
		return nil, domain.NewSubmissionError(domain.CategoryValidation,
			"el tipo de e-CF %s no admite ITBIS y el documento declara %s", typeCode, agg.TotalITBIS().StringFixed(2))
	}

	return agg, nil
}
