// Package pdf implementa la representación impresa del e-CF (Norma General
// 01-2020 DGII), con el QR del timbre electrónico para su consulta en línea.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RNC  │  e-NCF + Fecha Emisión       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Dirección / Tel / Email                            │
//	│  COMPRADOR: Razón social + RNC                              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | ITBIS | Monto         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Gravado / Exento / ITBIS / TOTAL                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TIMBRE: QR + Código de Seguridad + Fecha de Firma          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/intrepidux/facturacion-ecf/internal/domain/ecf"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 12, Green: 83, Blue: 45}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// StampPDFGenerator genera la representación impresa del e-CF con Maroto v2.
type StampPDFGenerator struct {
	env string // TesteCF, CerteCF o eCF; determina la URL del timbre
}

// NewStampPDFGenerator construye el generador para el ambiente dado.
func NewStampPDFGenerator(env string) *StampPDFGenerator {
	return &StampPDFGenerator{env: env}
}

// Generate produce el PDF del comprobante y devuelve sus bytes.
// El agregado de impuestos debe venir ya conciliado contra el total.
func (g *StampPDFGenerator) Generate(
	_ context.Context,
	doc *entity.FiscalDocument,
	agg *ecf.TaxAggregate,
) ([]byte, error) {
	dt, _ := ecf.ResolveType(doc)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante Fiscal Electrónico", true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, dt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(doc.Issuer))
	if doc.Buyer != nil {
		m.AddRows(compradorRow(doc.Buyer))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableLineRows(doc.Lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(agg))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range g.stampRows(doc, dt, agg) {
		m.AddRows(r)
	}

	pdfDoc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return pdfDoc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + RNC (izq) y e-NCF + fecha de emisión (der).
func headerRow(doc *entity.FiscalDocument, dt ecf.DocumentType) core.Row {
	fecha := doc.IssueDate.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(doc.Issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RNC: "+dgii.NormalizeRNC(doc.Issuer.RNC), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(strings.ToUpper(dt.Name), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(doc.ENCF, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha de emisión: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: datos de contacto del emisor.
func emisorRow(issuer entity.Party) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Dirección: %s   |   Tel: %s   |   Email: %s",
				nonEmpty(issuer.Address, "—"),
				nonEmpty(issuer.Phone, "—"),
				nonEmpty(issuer.Email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// compradorRow: datos del comprador.
func compradorRow(buyer *entity.Party) core.Row {
	id := "RNC: " + dgii.NormalizeRNC(buyer.RNC)
	if buyer.IsForeign {
		id = "ID: " + buyer.RNC
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("COMPRADOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(buyer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("%s   |   Email: %s",
				id, nonEmpty(buyer.Email, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("ITBIS", 1, align.Center),
		h("Monto", 3, align.Right),
	)
}

// tableLineRows: una fila por línea del comprobante.
func tableLineRows(lines []entity.DocumentLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		itbis := l.ITBISRate.StringFixed(0) + "%"
		if l.Exempt {
			itbis = "E"
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"RD$"+formatMoney(l.UnitPrice.StringFixed(2)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				itbis,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				"RD$"+formatMoney(l.Amount.StringFixed(2)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(agg *ecf.TaxAggregate) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Monto gravado:"),
			label("Monto exento:"),
			label("Total ITBIS:"),
			grandLabel("TOTAL:"),
		),
		col.New(3).Add(
			value("RD$"+formatMoney(agg.TaxedTotal().StringFixed(2))),
			value("RD$"+formatMoney(agg.ExemptAmount.StringFixed(2))),
			value("RD$"+formatMoney(agg.TotalITBIS().StringFixed(2))),
			grandValue("RD$"+formatMoney(agg.GrandTotal().StringFixed(2))),
		),
		col.New(3),
	)
}

// stampRows: QR del timbre + código de seguridad + leyenda.
func (g *StampPDFGenerator) stampRows(doc *entity.FiscalDocument, dt ecf.DocumentType, agg *ecf.TaxAggregate) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("TIMBRE ELECTRÓNICO DGII", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	stampURL := g.stampURL(doc, dt, agg)
	if stampURL != "" {
		rows = append(rows, row.New(50).Add(
			col.New(4).Add(code.NewQr(stampURL, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Escanee el código QR para consultar\neste comprobante en el portal de la DGII.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("Código de Seguridad: "+doc.SecurityCode, props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 22, Left: 3,
				}),
				text.New("Fecha de firma digital: "+doc.SignedAt.Format("02-01-2006 15:04:05"), props.Text{
					Size: 8, Top: 30, Left: 3, Color: colorGray,
				}),
			),
		))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Comprobante fiscal electrónico emitido conforme a la Norma General 01-2020 "+
				"de la Dirección General de Impuestos Internos. "+
				"Conserve este documento como soporte fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// stampURL arma la URL de consulta del timbre. Sin código de seguridad no
// hay timbre que mostrar.
func (g *StampPDFGenerator) stampURL(doc *entity.FiscalDocument, dt ecf.DocumentType, agg *ecf.TaxAggregate) string {
	if doc.SecurityCode == "" {
		return ""
	}
	params := dgii.StampParams{
		Environment:     g.env,
		RNCEmisor:       dgii.NormalizeRNC(doc.Issuer.RNC),
		ENCF:            doc.ENCF,
		FechaEmision:    doc.IssueDate.Format("02-01-2006"),
		MontoTotal:      agg.GrandTotal().StringFixed(2),
		FechaFirma:      doc.SignedAt.Format("02-01-2006 15:04:05"),
		CodigoSeguridad: doc.SecurityCode,
		Simplified:      ecf.IsSimplified(dt.Code, doc.AmountTotalSigned),
	}
	if doc.Buyer != nil && !doc.Buyer.IsForeign && !params.Simplified {
		params.RNCComprador = dgii.NormalizeRNC(doc.Buyer.RNC)
	}
	return dgii.StampURL(params)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta comas de miles en un número con dos decimales.
// Ej: "25000.00" → "25,000.00"
func formatMoney(s string) string {
	entero := s
	resto := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		entero, resto = s[:i], s[i:]
	}
	n := len(entero)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, entero[i])
	}
	return string(buf) + resto
}
