// Package dgii contiene catálogos y utilidades alineados al Formato de
// Comprobante Fiscal Electrónico (e-CF) v1.0 de la DGII (República Dominicana),
// Norma General 01-2020.
package dgii

// =============================================================================
// Tipos de e-CF (campo TipoeCF del IdDoc)
// =============================================================================

const (
	TipoFacturaCredito  = "31" // Factura de Crédito Fiscal Electrónica
	TipoFacturaConsumo  = "32" // Factura de Consumo Electrónica
	TipoNotaDebito      = "33" // Nota de Débito Electrónica
	TipoNotaCredito     = "34" // Nota de Crédito Electrónica
	TipoCompras         = "41" // Comprobante de Compras Electrónico
	TipoGastoMenor      = "43" // Comprobante para Gastos Menores Electrónico
	TipoRegimenEspecial = "44" // Comprobante para Regímenes Especiales Electrónico
	TipoGubernamental   = "45" // Comprobante Gubernamental Electrónico
	TipoExportacion     = "46" // Comprobante para Exportaciones Electrónico
	TipoPagoExterior    = "47" // Comprobante para Pagos al Exterior Electrónico
)

// TiposSinComprador tipos que se emiten sin la sección Comprador.
var TiposSinComprador = map[string]bool{
	TipoGastoMenor:   true,
	TipoPagoExterior: true,
}

// TiposSinITBIS tipos en los que el total de ITBIS debe ser cero.
var TiposSinITBIS = map[string]bool{
	TipoGastoMenor:      true,
	TipoRegimenEspecial: true,
	TipoExportacion:     true,
	TipoPagoExterior:    true,
}

// TiposSinVencimientoSecuencia tipos que no llevan FechaVencimientoSecuencia.
var TiposSinVencimientoSecuencia = map[string]bool{
	TipoFacturaConsumo: true,
	TipoNotaCredito:    true,
}

// =============================================================================
// Códigos de Modificación (InformacionReferencia, notas de crédito/débito)
// =============================================================================

const (
	ModificacionAnulacionTotal = "1" // Anulación total del e-CF modificado
	ModificacionCorrigeMonto   = "2" // Corrige montos del e-CF modificado
	ModificacionDescuento      = "3" // Descuento o bonificación posterior
	ModificacionReemplazoNCF   = "4" // Reemplaza un comprobante emitido en contingencia
	ModificacionOtros          = "5" // Otros
)

// ValidModificationCodes códigos de modificación aceptados por la DGII.
var ValidModificationCodes = map[string]bool{
	ModificacionAnulacionTotal: true,
	ModificacionCorrigeMonto:   true,
	ModificacionDescuento:      true,
	ModificacionReemplazoNCF:   true,
	ModificacionOtros:          true,
}

// =============================================================================
// Formas de Pago (campo FormaPago de la TablaFormasPago)
// =============================================================================

const (
	PagoEfectivo       = "1" // Efectivo
	PagoChequeTransfer = "2" // Cheque / transferencia / depósito
	PagoTarjeta        = "3" // Tarjeta de crédito o débito
	PagoCredito        = "4" // Venta a crédito
	PagoBonos          = "5" // Bonos o certificados de regalo
	PagoPermuta        = "6" // Permuta
	PagoNotaCredito    = "7" // Nota de crédito
	PagoOtras          = "8" // Otras formas de venta
)

// =============================================================================
// Indicador de Facturación por línea (DetallesItems/Item)
// =============================================================================

const (
	IndicadorITBIS18 = 1 // Gravado al 18%
	IndicadorITBIS16 = 2 // Gravado al 16%
	IndicadorITBIS0  = 3 // Gravado al 0% (solo exportaciones)
	IndicadorExento  = 4 // Exento
)

// =============================================================================
// Ambientes de los servicios DGII
// =============================================================================

const (
	EnvTest          = "TesteCF" // Pruebas
	EnvCertification = "CerteCF" // Certificación
	EnvProduction    = "eCF"     // Producción
)

// ValidEnvironments ambientes reconocidos en las URLs de la DGII.
var ValidEnvironments = map[string]bool{
	EnvTest:          true,
	EnvCertification: true,
	EnvProduction:    true,
}

// SimplifiedThreshold monto (RD$) bajo el cual una factura de consumo (32)
// se remite como resumen simplificado (RFCE) al servicio fc.dgii.gov.do.
const SimplifiedThreshold = 250000
