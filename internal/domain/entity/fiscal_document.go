package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de envío del e-CF a la DGII.
const (
	StatusToSend                = "to_send"                // Listo para enviar
	StatusInvalid               = "invalid"                // No pasó las validaciones locales
	StatusContingency           = "contingency"            // DGII no disponible (503); reenviar luego
	StatusDeliveredAccepted     = "delivered_accepted"     // Aceptado
	StatusConditionallyAccepted = "conditionally_accepted" // Aceptado Condicional
	StatusDeliveredPending      = "delivered_pending"      // En Proceso; consultar de nuevo
	StatusDeliveredRefused      = "delivered_refused"      // Rechazado
	StatusNotSent               = "not_sent"               // Fallo de conexión antes de entregar
	StatusServiceUnreachable    = "service_unreachable"    // Respuesta inesperada del servicio
)

// AllStatuses todos los estados de envío, en orden de ciclo de vida.
func AllStatuses() []string {
	return []string{
		StatusToSend, StatusInvalid, StatusContingency,
		StatusDeliveredAccepted, StatusConditionallyAccepted,
		StatusDeliveredPending, StatusDeliveredRefused,
		StatusNotSent, StatusServiceUnreachable,
	}
}

// Naturaleza contable del documento, usada como último recurso para
// resolver el tipo de e-CF cuando no hay código explícito.
const (
	MoveSale       = "out_invoice"
	MoveSaleRefund = "out_refund"
	MovePurchase   = "in_invoice"
)

// PaymentForm una entrada de la TablaFormasPago del encabezado.
type PaymentForm struct {
	Form   string // código DGII (pkg/dgii: PagoEfectivo, PagoTarjeta, ...)
	Amount decimal.Decimal
}

// AdditionalTax impuesto adicional de línea (ISC, propinas, etc.).
// PerUnit distingue monto específico por unidad de tasa ad-valorem.
type AdditionalTax struct {
	Code    string // tipo_impuesto DGII, ej. "003" propina legal
	Rate    decimal.Decimal
	Amount  decimal.Decimal
	PerUnit bool
}

// DocumentLine una línea de detalle del e-CF.
type DocumentLine struct {
	Description     string
	IsService       bool
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Amount          decimal.Decimal // MontoItem (sin ITBIS)
	ITBISRate       decimal.Decimal // 18, 16 o 0
	ITBISAmount     decimal.Decimal
	Exempt          bool
	AdditionalTaxes []AdditionalTax
}

// TaxLine un apunte de impuesto a nivel de documento (libro mayor).
// La suma por tasa puede divergir por centavos de la suma por línea;
// la conciliación la resuelve el agregador de impuestos.
type TaxLine struct {
	Kind   string          // "itbis", "itbis_withholding", "isr_withholding" o código adicional
	Rate   decimal.Decimal // para ITBIS: 18, 16, 0
	Amount decimal.Decimal
}

// TaxKind valores de TaxLine.Kind.
const (
	TaxKindITBIS            = "itbis"
	TaxKindITBISWithholding = "itbis_withholding"
	TaxKindISRWithholding   = "isr_withholding"
)

// FiscalDocument el comprobante fiscal electrónico completo.
type FiscalDocument struct {
	ID        string
	CompanyID string

	ENCF             string // e-NCF asignado, ej. "E310000000005"
	FiscalTypePrefix string // prefijo del tipo de comprobante, ej. "E31" o "B01"
	ShortCode        string // código corto del API, ej. "FF"
	MoveKind         string // MoveSale, MoveSaleRefund, MovePurchase
	DebitOrigin      bool   // true si es nota de débito derivada de otra factura

	IssueDate   time.Time
	DueDate     *time.Time
	SequenceDue *time.Time // FechaVencimientoSecuencia de la autorización

	Currency          string // "DOP" o divisa extranjera
	AmountTotal       decimal.Decimal
	AmountTotalSigned decimal.Decimal // total en moneda de la compañía (DOP)

	Issuer Party
	Buyer  *Party

	Lines        []DocumentLine
	TaxLines     []TaxLine
	PaymentForms []PaymentForm

	// Referencia al documento modificado (notas 33/34).
	OriginENCF       string
	OriginIssueDate  *time.Time
	ModificationCode string

	// Comercio exterior (exportaciones, tipo 46).
	ContainerNumber string
	ReferenceNumber string
	ShipmentDate    *time.Time

	Status       string
	TrackID      string
	SecurityCode string
	SignedAt     time.Time
	CUFE         string // identificador devuelto por el intermediario WebPOS

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSale true para facturas y notas de venta.
func (d *FiscalDocument) IsSale() bool {
	return d.MoveKind == MoveSale || d.MoveKind == MoveSaleRefund
}

// WasDelivered true si la DGII ya lo aceptó (total o condicionalmente).
// Un documento entregado nunca se reenvía.
func (d *FiscalDocument) WasDelivered() bool {
	return d.Status == StatusDeliveredAccepted || d.Status == StatusConditionallyAccepted
}

// Party emisor o comprador del comprobante.
type Party struct {
	RNC            string
	Name           string
	CommercialName string
	Address        string
	Municipality   string
	Province       string
	Email          string
	Phone          string
	IsForeign      bool // comprador del exterior: se identifica sin RNC
}
