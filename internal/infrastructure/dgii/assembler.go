package dgii

import (
	"fmt"
	"strconv"
	"time"
	"unicode"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Formatos de fecha DGII.
const (
	fechaLayout     = "02-01-2006"
	fechaHoraLayout = "02-01-2006 15:04:05"

	versionECF = "1.0"
)

// Días tras los cuales una nota de crédito deja de aplicar contra el
// comprobante de origen (IndicadorNotaCredito = 1).
const creditNoteWindowDays = 30

// Assembler arma el árbol ordenado del e-CF a partir del documento y sus
// totales agregados. No serializa ni firma.
type Assembler struct {
	now func() time.Time
}

// NewAssembler crea el ensamblador.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Build construye el e-CF completo. Para notas 33/34 exige ctx.Origin;
// si falta, retorna el error de origen sin tocar la red.
func (a *Assembler) Build(ctx *BuildContext) (*ECF, error) {
	if ctx == nil || ctx.Doc == nil || ctx.Aggregate == nil {
		return nil, fmt.Errorf("dgii: faltan documento o totales en el contexto")
	}
	doc := ctx.Doc
	code := ctx.Type.Code

	var ref *InformacionReferencia
	if code == dgii.TipoNotaDebito || code == dgii.TipoNotaCredito {
		if ctx.Origin == nil || doc.OriginENCF == "" {
			return nil, &domain.SubmissionError{
				Category: domain.CategoryOriginNotFound,
				Msg:      domain.ErrOriginNotFound.Error(),
				Err:      domain.ErrOriginNotFound,
			}
		}
		ref = &InformacionReferencia{
			NCFModificado:      doc.OriginENCF,
			FechaNCFModificado: ctx.Origin.IssueDate.Format(fechaLayout),
			CodigoModificacion: doc.ModificationCode,
		}
	}

	items, err := a.buildItems(ctx)
	if err != nil {
		return nil, err
	}

	e := &ECF{
		Encabezado: Encabezado{
			Version:                  versionECF,
			IdDoc:                    a.buildIdDoc(ctx),
			Emisor:                   a.buildEmisor(doc),
			Comprador:                a.buildComprador(doc, code),
			InformacionesAdicionales: a.buildInformacionesAdicionales(doc),
			Totales:                  a.buildTotales(ctx),
			OtraMoneda:               a.buildOtraMoneda(doc, ctx),
		},
		DetallesItems:         DetallesItems{Item: items},
		InformacionReferencia: ref,
		FechaHoraFirma:        a.now().Format(fechaHoraLayout),
	}
	return e, nil
}

// BuildSummary construye el resumen RFCE de una factura de consumo menor.
// Se arma a partir del e-CF completo ya firmado: el código de seguridad
// proviene de esa firma y no cambia entre reenvíos.
func (a *Assembler) BuildSummary(ctx *BuildContext, securityCode string) (*RFCE, error) {
	if ctx == nil || ctx.Doc == nil || ctx.Aggregate == nil {
		return nil, fmt.Errorf("dgii: faltan documento o totales en el contexto")
	}
	if securityCode == "" {
		return nil, fmt.Errorf("dgii: el resumen requiere el código de seguridad del e-CF firmado")
	}
	doc := ctx.Doc

	var buyer *RFCEComprador
	if doc.Buyer != nil && dgii.NormalizeRNC(doc.Buyer.RNC) != "" {
		buyer = &RFCEComprador{RNCComprador: dgii.NormalizeRNC(doc.Buyer.RNC)}
	}

	totales := RFCETotales{
		MontoTotal:         ctx.Aggregate.GrandTotal().StringFixed(2),
		CodigoSeguridadeCF: securityCode,
	}
	if itbis := ctx.Aggregate.TotalITBIS(); itbis.IsPositive() {
		totales.TotalITBIS = itbis.StringFixed(2)
	}

	return &RFCE{
		Encabezado: RFCEEncabezado{
			Version: versionECF,
			IdDoc: RFCEIdDoc{
				TipoeCF:      ctx.Type.Code,
				ENCF:         doc.ENCF,
				TipoIngresos: "01",
				TipoPago:     tipoPago(doc),
			},
			Emisor: RFCEEmisor{
				RNCEmisor:    dgii.NormalizeRNC(doc.Issuer.RNC),
				FechaEmision: doc.IssueDate.Format(fechaLayout),
			},
			Comprador: buyer,
			Totales:   totales,
		},
	}, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (a *Assembler) buildIdDoc(ctx *BuildContext) IdDoc {
	doc := ctx.Doc
	id := IdDoc{
		TipoeCF:      ctx.Type.Code,
		ENCF:         doc.ENCF,
		TipoIngresos: "01",
		TipoPago:     tipoPago(doc),
	}

	// Las facturas de consumo y notas de crédito no llevan vencimiento de secuencia.
	if !dgii.TiposSinVencimientoSecuencia[ctx.Type.Code] && doc.SequenceDue != nil {
		id.FechaVencimientoSecuencia = doc.SequenceDue.Format(fechaLayout)
	}

	// Reenvío desde contingencia: la DGII exige marcar el envío como diferido.
	if doc.Status == entity.StatusContingency {
		id.IndicadorEnvioDiferido = "1"
	}

	if ctx.Type.Code == dgii.TipoNotaCredito && ctx.Origin != nil {
		if doc.IssueDate.Sub(ctx.Origin.IssueDate) > creditNoteWindowDays*24*time.Hour {
			id.IndicadorNotaCredito = "1"
		}
	}

	if id.TipoPago == "2" && doc.DueDate != nil {
		id.FechaLimitePago = doc.DueDate.Format(fechaLayout)
	}

	if len(doc.PaymentForms) > 0 {
		tabla := &TablaFormasPago{}
		for _, pf := range doc.PaymentForms {
			tabla.FormaDePago = append(tabla.FormaDePago, FormaDePago{
				FormaPago: pf.Form,
				MontoPago: pf.Amount.StringFixed(2),
			})
		}
		id.TablaFormasPago = tabla
	}
	return id
}

func tipoPago(doc *entity.FiscalDocument) string {
	if doc.DueDate != nil && doc.DueDate.After(doc.IssueDate) {
		return "2" // crédito
	}
	return "1" // contado
}

func (a *Assembler) buildEmisor(doc *entity.FiscalDocument) Emisor {
	return Emisor{
		RNCEmisor:       dgii.NormalizeRNC(doc.Issuer.RNC),
		RazonSocial:     normalizeName(doc.Issuer.Name),
		NombreComercial: normalizeName(doc.Issuer.CommercialName),
		DireccionEmisor: normalizeName(doc.Issuer.Address),
		Municipio:       doc.Issuer.Municipality,
		Provincia:       doc.Issuer.Province,
		CorreoEmisor:    doc.Issuer.Email,
		TelefonoEmisor:  doc.Issuer.Phone,
		FechaEmision:    doc.IssueDate.Format(fechaLayout),
	}
}

func (a *Assembler) buildComprador(doc *entity.FiscalDocument, code string) *Comprador {
	// Gastos menores y pagos al exterior se emiten sin comprador.
	if dgii.TiposSinComprador[code] || doc.Buyer == nil {
		return nil
	}
	c := &Comprador{RazonSocial: normalizeName(doc.Buyer.Name)}
	if doc.Buyer.IsForeign {
		c.IdentificadorExtranjero = doc.Buyer.RNC
	} else {
		c.RNCComprador = dgii.NormalizeRNC(doc.Buyer.RNC)
	}
	c.CorreoComprador = doc.Buyer.Email
	c.DireccionComprador = normalizeName(doc.Buyer.Address)
	return c
}

// buildInformacionesAdicionales datos de embarque de las exportaciones.
// La sección entera se omite cuando el documento no trae ninguno.
func (a *Assembler) buildInformacionesAdicionales(doc *entity.FiscalDocument) *InformacionesAdicionales {
	if doc.ContainerNumber == "" && doc.ReferenceNumber == "" && doc.ShipmentDate == nil {
		return nil
	}
	info := &InformacionesAdicionales{
		NumeroContenedor: doc.ContainerNumber,
		NumeroReferencia: doc.ReferenceNumber,
	}
	if doc.ShipmentDate != nil {
		info.FechaEmbarque = doc.ShipmentDate.Format(fechaLayout)
	}
	return info
}

func (a *Assembler) buildTotales(ctx *BuildContext) Totales {
	agg := ctx.Aggregate
	t := Totales{MontoTotal: agg.GrandTotal().StringFixed(2)}

	if taxed := agg.TaxedTotal(); taxed.IsPositive() {
		t.MontoGravadoTotal = taxed.StringFixed(2)
	}
	if agg.TaxedAmount18.IsPositive() {
		t.MontoGravadoI1 = agg.TaxedAmount18.StringFixed(2)
		t.TotalITBIS1 = agg.ITBIS18.StringFixed(2)
	}
	if agg.TaxedAmount16.IsPositive() {
		t.MontoGravadoI2 = agg.TaxedAmount16.StringFixed(2)
		t.TotalITBIS2 = agg.ITBIS16.StringFixed(2)
	}
	if agg.TaxedAmount0.IsPositive() {
		t.MontoGravadoI3 = agg.TaxedAmount0.StringFixed(2)
		t.TotalITBIS3 = "0.00"
	}
	if agg.ExemptAmount.IsPositive() {
		t.MontoExento = agg.ExemptAmount.StringFixed(2)
	}
	if itbis := agg.TotalITBIS(); itbis.IsPositive() || agg.TaxedTotal().IsPositive() {
		t.TotalITBIS = itbis.StringFixed(2)
	}

	// Las etiquetas de tasa se omiten en el resumen de consumo menor.
	if !ctx.Simplified {
		if agg.TaxedAmount18.IsPositive() {
			t.ITBIS1 = "18"
		}
		if agg.TaxedAmount16.IsPositive() {
			t.ITBIS2 = "16"
		}
		if agg.TaxedAmount0.IsPositive() {
			t.ITBIS3 = "0"
		}
	}

	if agg.AdditionalTotal.IsPositive() {
		t.MontoImpuestoAdicional = agg.AdditionalTotal.StringFixed(2)
		ia := &ImpuestosAdicionales{}
		for _, add := range agg.Additional {
			entry := ImpuestoAdicional{TipoImpuesto: add.Code}
			if add.PerUnit {
				entry.MontoImpuestoSelectivoConsumoEspecifico = add.Amount.StringFixed(2)
			} else {
				entry.TasaImpuestoAdicional = add.Rate.StringFixed(2)
				entry.MontoImpuestoSelectivoConsumoAdvalorem = add.Amount.StringFixed(2)
			}
			ia.ImpuestoAdicional = append(ia.ImpuestoAdicional, entry)
		}
		t.ImpuestosAdicionales = ia
	}

	if agg.ITBISWithheld.IsPositive() {
		t.TotalITBISRetenido = agg.ITBISWithheld.StringFixed(2)
	}
	if agg.ISRWithheld.IsPositive() {
		t.TotalISRRetencion = agg.ISRWithheld.StringFixed(2)
	}
	return t
}

func (a *Assembler) buildOtraMoneda(doc *entity.FiscalDocument, ctx *BuildContext) *OtraMoneda {
	if doc.Currency == "" || doc.Currency == "DOP" {
		return nil
	}
	if doc.AmountTotal.IsZero() || doc.AmountTotalSigned.IsZero() {
		return nil
	}
	// Tasa = DOP por unidad de divisa, redondeada a 4 decimales.
	rate := decimal.NewFromInt(1).Div(doc.AmountTotal.Div(doc.AmountTotalSigned)).Round(4).Abs()
	if rate.IsZero() {
		return nil
	}
	conv := func(dop decimal.Decimal) string {
		return dop.Div(rate).Round(2).StringFixed(2)
	}
	agg := ctx.Aggregate

	om := &OtraMoneda{
		TipoMoneda:           doc.Currency,
		TipoCambio:           rate.StringFixed(4),
		MontoTotalOtraMoneda: conv(agg.GrandTotal()),
	}
	if taxed := agg.TaxedTotal(); taxed.IsPositive() {
		om.MontoGravadoTotalOtraMoneda = conv(taxed)
	}
	if agg.TaxedAmount18.IsPositive() {
		om.MontoGravado1OtraMoneda = conv(agg.TaxedAmount18)
		om.TotalITBIS1OtraMoneda = conv(agg.ITBIS18)
	}
	if agg.TaxedAmount16.IsPositive() {
		om.MontoGravado2OtraMoneda = conv(agg.TaxedAmount16)
		om.TotalITBIS2OtraMoneda = conv(agg.ITBIS16)
	}
	if agg.TaxedAmount0.IsPositive() {
		om.MontoGravado3OtraMoneda = conv(agg.TaxedAmount0)
		om.TotalITBIS3OtraMoneda = "0.00"
	}
	if agg.ExemptAmount.IsPositive() {
		om.MontoExentoOtraMoneda = conv(agg.ExemptAmount)
	}
	if itbis := agg.TotalITBIS(); itbis.IsPositive() {
		om.TotalITBISOtraMoneda = conv(itbis)
	}
	return om
}

// ── Detalle de líneas ─────────────────────────────────────────────────────────

// buildItems arma las líneas y las cuadra contra las bases agregadas: la suma
// de MontoItem por indicador debe coincidir centavo a centavo con la base del
// encabezado, así que cualquier residuo se pliega en la línea mayor de esa
// tasa y se recalcula su precio unitario.
func (a *Assembler) buildItems(ctx *BuildContext) ([]Item, error) {
	doc := ctx.Doc
	amounts := make([]decimal.Decimal, len(doc.Lines))
	indicators := make([]int, len(doc.Lines))

	for i, line := range doc.Lines {
		amounts[i] = line.Amount.Round(2)
		indicators[i] = lineIndicator(line, ctx.Type.Code)
	}

	reconcile := func(indicator int, target decimal.Decimal) {
		var sum decimal.Decimal
		largest := -1
		for i := range doc.Lines {
			if indicators[i] != indicator {
				continue
			}
			sum = sum.Add(amounts[i])
			if largest == -1 || amounts[i].GreaterThan(amounts[largest]) {
				largest = i
			}
		}
		if largest == -1 {
			return
		}
		if diff := target.Sub(sum); !diff.IsZero() {
			amounts[largest] = amounts[largest].Add(diff)
		}
	}
	reconcile(dgii.IndicadorITBIS18, ctx.Aggregate.TaxedAmount18)
	reconcile(dgii.IndicadorITBIS16, ctx.Aggregate.TaxedAmount16)

	items := make([]Item, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		qty := line.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		price := line.UnitPrice
		if !amounts[i].Equal(line.Amount.Round(2)) {
			// La línea absorbió el residuo: el precio unitario debe reflejarlo.
			price = amounts[i].Div(qty).Round(4)
		}

		bienServicio := "1"
		if line.IsService {
			bienServicio = "2"
		}

		items = append(items, Item{
			NumeroLinea:            strconv.Itoa(i + 1),
			IndicadorFacturacion:   strconv.Itoa(indicators[i]),
			NombreItem:             normalizeName(line.Description),
			IndicadorBienoServicio: bienServicio,
			CantidadItem:           formatQuantity(qty),
			PrecioUnitarioItem:     formatUnitPrice(price),
			MontoItem:              amounts[i].StringFixed(2),
		})
	}
	return items, nil
}

func lineIndicator(line entity.DocumentLine, typeCode string) int {
	switch {
	case line.Exempt:
		return dgii.IndicadorExento
	case line.ITBISRate.Equal(decimal.NewFromInt(18)):
		return dgii.IndicadorITBIS18
	case line.ITBISRate.Equal(decimal.NewFromInt(16)):
		return dgii.IndicadorITBIS16
	case line.ITBISRate.IsZero() && typeCode == dgii.TipoExportacion:
		return dgii.IndicadorITBIS0
	default:
		return dgii.IndicadorExento
	}
}

// ── Formato numérico ──────────────────────────────────────────────────────────

// formatUnitPrice representa el precio con la mínima precisión (2, 3 o 4
// decimales) que lo reproduce sin pérdida.
func formatUnitPrice(d decimal.Decimal) string {
	for _, places := range []int32{2, 3} {
		if d.Round(places).Equal(d.Round(4)) {
			return d.StringFixed(places)
		}
	}
	return d.StringFixed(4)
}

func formatQuantity(d decimal.Decimal) string {
	if d.Round(2).Equal(d) {
		return d.StringFixed(2)
	}
	return d.StringFixed(4)
}

// ── Normalización de texto ────────────────────────────────────────────────────

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName elimina diacríticos de razones sociales y descripciones;
// los servicios de la DGII rechazan algunos caracteres acentuados.
func normalizeName(s string) string {
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}
