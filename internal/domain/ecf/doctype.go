// Package ecf contiene la lógica de dominio pura del comprobante fiscal
// electrónico dominicano: resolución de tipo, agregación de impuestos,
// validaciones y reglas de estado. Sin dependencias de infraestructura.
package ecf

import (
	"regexp"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/pkg/dgii"
	"github.com/shopspring/decimal"
)

// DocumentType describe un tipo de comprobante con sus tres identidades:
// el código numérico del e-CF, el código corto del API intermediario y
// los prefijos de serie que lo referencian.
type DocumentType struct {
	Code     string // código e-CF de dos dígitos; vacío para tipos sin serie electrónica
	Short    string // código corto del API: FF, FC, D, C, P, RUI, E, FE, FG, FX, PY
	Name     string
	Prefixes []string // prefijos de NCF que resuelven a este tipo
}

var documentTypes = []DocumentType{
	{Code: dgii.TipoFacturaCredito, Short: "FF", Name: "Factura de Crédito Fiscal", Prefixes: []string{"E31", "B01"}},
	{Code: dgii.TipoFacturaConsumo, Short: "FC", Name: "Factura de Consumo", Prefixes: []string{"E32", "B02"}},
	{Code: dgii.TipoNotaDebito, Short: "D", Name: "Nota de Débito", Prefixes: []string{"E33", "B03"}},
	{Code: dgii.TipoNotaCredito, Short: "C", Name: "Nota de Crédito", Prefixes: []string{"E34", "B04"}},
	{Code: dgii.TipoCompras, Short: "P", Name: "Comprobante de Compras", Prefixes: []string{"E41", "B11"}},
	{Code: "", Short: "RUI", Name: "Registro Único de Ingresos", Prefixes: []string{"B12"}},
	{Code: dgii.TipoGastoMenor, Short: "E", Name: "Comprobante para Gastos Menores", Prefixes: []string{"E43", "B13"}},
	{Code: dgii.TipoRegimenEspecial, Short: "FE", Name: "Comprobante para Regímenes Especiales", Prefixes: []string{"E44", "B14"}},
	{Code: dgii.TipoGubernamental, Short: "FG", Name: "Comprobante Gubernamental", Prefixes: []string{"E45", "B15"}},
	{Code: dgii.TipoExportacion, Short: "FX", Name: "Comprobante para Exportaciones", Prefixes: []string{"E46", "B16"}},
	{Code: dgii.TipoPagoExterior, Short: "PY", Name: "Comprobante para Pagos al Exterior", Prefixes: []string{"E47", "B17"}},
}

var prefixPattern = regexp.MustCompile(`^(E|B)\d{2}`)

var (
	byPrefix = map[string]DocumentType{}
	byShort  = map[string]DocumentType{}
	byCode   = map[string]DocumentType{}
)

func init() {
	for _, dt := range documentTypes {
		for _, p := range dt.Prefixes {
			byPrefix[p] = dt
		}
		byShort[dt.Short] = dt
		if dt.Code != "" {
			byCode[dt.Code] = dt
		}
	}
}

// ByShort busca el tipo por código corto del API ("FF", "FC", ...).
func ByShort(code string) (DocumentType, bool) {
	dt, ok := byShort[code]
	return dt, ok
}

// ByCode busca el tipo por código e-CF de dos dígitos ("31", "32", ...).
func ByCode(code string) (DocumentType, bool) {
	dt, ok := byCode[code]
	return dt, ok
}

// ResolveType determina el tipo de comprobante de un documento.
// Orden de resolución:
//  1. prefijo de serie (E31, B02, ...) del campo FiscalTypePrefix o del e-NCF
//  2. código corto explícito del API
//  3. código numérico de dos dígitos colocado en ShortCode
//  4. naturaleza contable: venta con origen de débito -> 33, venta -> 31,
//     devolución de venta -> 34, compra -> 41
//
// Si nada aplica se devuelve Factura de Crédito Fiscal y defaulted=true
// para que el llamador lo registre como advertencia.
func ResolveType(doc *entity.FiscalDocument) (dt DocumentType, defaulted bool) {
	for _, candidate := range []string{doc.FiscalTypePrefix, doc.ENCF} {
		if m := prefixPattern.FindString(candidate); m != "" {
			if found, ok := byPrefix[m]; ok {
				return found, false
			}
		}
	}
	if found, ok := byShort[doc.ShortCode]; ok {
		return found, false
	}
	if found, ok := byCode[doc.ShortCode]; ok {
		return found, false
	}
	switch {
	case doc.MoveKind == entity.MoveSale && doc.DebitOrigin:
		return byCode[dgii.TipoNotaDebito], false
	case doc.MoveKind == entity.MoveSale:
		return byCode[dgii.TipoFacturaCredito], false
	case doc.MoveKind == entity.MoveSaleRefund:
		return byCode[dgii.TipoNotaCredito], false
	case doc.MoveKind == entity.MovePurchase:
		return byCode[dgii.TipoCompras], false
	}
	return byCode[dgii.TipoFacturaCredito], true
}

var simplifiedThreshold = decimal.NewFromInt(dgii.SimplifiedThreshold)

// IsSimplified true para facturas de consumo (32) por debajo de RD$250,000:
// se remiten como resumen (RFCE) al servicio de facturas de consumo.
func IsSimplified(typeCode string, totalDOP decimal.Decimal) bool {
	return typeCode == dgii.TipoFacturaConsumo && totalDOP.LessThan(simplifiedThreshold)
}
