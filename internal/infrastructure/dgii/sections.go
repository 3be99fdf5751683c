package dgii

import "encoding/xml"

// Secciones del e-CF según el Formato de Comprobante Fiscal Electrónico v1.0.
// El orden de los campos de cada struct ES el orden de los elementos en el
// XML: la DGII valida la secuencia contra el XSD, no reordenar.

// ECF documento completo que se firma y remite a Recepción.
type ECF struct {
	XMLName               xml.Name               `xml:"ECF"`
	Encabezado            Encabezado             `xml:"Encabezado"`
	DetallesItems         DetallesItems          `xml:"DetallesItems"`
	InformacionReferencia *InformacionReferencia `xml:"InformacionReferencia,omitempty"`
	FechaHoraFirma        string                 `xml:"FechaHoraFirma"`
}

// RFCE resumen de factura de consumo (< RD$250,000) que se remite al
// servicio de facturas de consumo en lugar del e-CF completo.
type RFCE struct {
	XMLName    xml.Name       `xml:"RFCE"`
	Encabezado RFCEEncabezado `xml:"Encabezado"`
}

type Encabezado struct {
	Version                  string                    `xml:"Version"`
	IdDoc                    IdDoc                     `xml:"IdDoc"`
	Emisor                   Emisor                    `xml:"Emisor"`
	Comprador                *Comprador                `xml:"Comprador,omitempty"`
	InformacionesAdicionales *InformacionesAdicionales `xml:"InformacionesAdicionales,omitempty"`
	Totales                  Totales                   `xml:"Totales"`
	OtraMoneda               *OtraMoneda               `xml:"OtraMoneda,omitempty"`
}

type IdDoc struct {
	TipoeCF                   string           `xml:"TipoeCF"`
	ENCF                      string           `xml:"eNCF"`
	FechaVencimientoSecuencia string           `xml:"FechaVencimientoSecuencia,omitempty"`
	IndicadorEnvioDiferido    string           `xml:"IndicadorEnvioDiferido,omitempty"`
	IndicadorNotaCredito      string           `xml:"IndicadorNotaCredito,omitempty"`
	TipoIngresos              string           `xml:"TipoIngresos"`
	TipoPago                  string           `xml:"TipoPago"`
	FechaLimitePago           string           `xml:"FechaLimitePago,omitempty"`
	TablaFormasPago           *TablaFormasPago `xml:"TablaFormasPago,omitempty"`
}

type TablaFormasPago struct {
	FormaDePago []FormaDePago `xml:"FormaDePago"`
}

type FormaDePago struct {
	FormaPago string `xml:"FormaPago"`
	MontoPago string `xml:"MontoPago"`
}

type Emisor struct {
	RNCEmisor       string `xml:"RNCEmisor"`
	RazonSocial     string `xml:"RazonSocialEmisor"`
	NombreComercial string `xml:"NombreComercial,omitempty"`
	DireccionEmisor string `xml:"DireccionEmisor"`
	Municipio       string `xml:"Municipio,omitempty"`
	Provincia       string `xml:"Provincia,omitempty"`
	CorreoEmisor    string `xml:"CorreoEmisor,omitempty"`
	TelefonoEmisor  string `xml:"TelefonoEmisor,omitempty"`
	FechaEmision    string `xml:"FechaEmision"`
}

type Comprador struct {
	RNCComprador            string `xml:"RNCComprador,omitempty"`
	IdentificadorExtranjero string `xml:"IdentificadorExtranjero,omitempty"`
	RazonSocial             string `xml:"RazonSocialComprador"`
	CorreoComprador         string `xml:"CorreoComprador,omitempty"`
	DireccionComprador      string `xml:"DireccionComprador,omitempty"`
}

// InformacionesAdicionales campos libres del encabezado. La sección entera
// se omite cuando no hay ninguno.
type InformacionesAdicionales struct {
	NumeroContenedor string `xml:"NumeroContenedor,omitempty"`
	NumeroReferencia string `xml:"NumeroReferencia,omitempty"`
	FechaEmbarque    string `xml:"FechaEmbarque,omitempty"`
}

// Totales montos del encabezado. Los campos son string ya formateados a dos
// decimales para controlar presencia y representación exacta.
type Totales struct {
	MontoGravadoTotal      string                `xml:"MontoGravadoTotal,omitempty"`
	MontoGravadoI1         string                `xml:"MontoGravadoI1,omitempty"`
	MontoGravadoI2         string                `xml:"MontoGravadoI2,omitempty"`
	MontoGravadoI3         string                `xml:"MontoGravadoI3,omitempty"`
	MontoExento            string                `xml:"MontoExento,omitempty"`
	ITBIS1                 string                `xml:"ITBIS1,omitempty"`
	ITBIS2                 string                `xml:"ITBIS2,omitempty"`
	ITBIS3                 string                `xml:"ITBIS3,omitempty"`
	TotalITBIS             string                `xml:"TotalITBIS,omitempty"`
	TotalITBIS1            string                `xml:"TotalITBIS1,omitempty"`
	TotalITBIS2            string                `xml:"TotalITBIS2,omitempty"`
	TotalITBIS3            string                `xml:"TotalITBIS3,omitempty"`
	MontoImpuestoAdicional string                `xml:"MontoImpuestoAdicional,omitempty"`
	ImpuestosAdicionales   *ImpuestosAdicionales `xml:"ImpuestosAdicionales,omitempty"`
	MontoTotal             string                `xml:"MontoTotal"`
	TotalITBISRetenido     string                `xml:"TotalITBISRetenido,omitempty"`
	TotalISRRetencion      string                `xml:"TotalISRRetencion,omitempty"`
}

type ImpuestosAdicionales struct {
	ImpuestoAdicional []ImpuestoAdicional `xml:"ImpuestoAdicional"`
}

type ImpuestoAdicional struct {
	TipoImpuesto                            string `xml:"TipoImpuesto"`
	TasaImpuestoAdicional                   string `xml:"TasaImpuestoAdicional,omitempty"`
	MontoImpuestoSelectivoConsumoEspecifico string `xml:"MontoImpuestoSelectivoConsumoEspecifico,omitempty"`
	MontoImpuestoSelectivoConsumoAdvalorem  string `xml:"MontoImpuestoSelectivoConsumoAdvalorem,omitempty"`
	OtrosImpuestosAdicionales               string `xml:"OtrosImpuestosAdicionales,omitempty"`
}

type OtraMoneda struct {
	TipoMoneda                  string `xml:"TipoMoneda"`
	TipoCambio                  string `xml:"TipoCambio"`
	MontoGravadoTotalOtraMoneda string `xml:"MontoGravadoTotalOtraMoneda,omitempty"`
	MontoGravado1OtraMoneda     string `xml:"MontoGravado1OtraMoneda,omitempty"`
	MontoGravado2OtraMoneda     string `xml:"MontoGravado2OtraMoneda,omitempty"`
	MontoGravado3OtraMoneda     string `xml:"MontoGravado3OtraMoneda,omitempty"`
	MontoExentoOtraMoneda       string `xml:"MontoExentoOtraMoneda,omitempty"`
	TotalITBISOtraMoneda        string `xml:"TotalITBISOtraMoneda,omitempty"`
	TotalITBIS1OtraMoneda       string `xml:"TotalITBIS1OtraMoneda,omitempty"`
	TotalITBIS2OtraMoneda       string `xml:"TotalITBIS2OtraMoneda,omitempty"`
	TotalITBIS3OtraMoneda       string `xml:"TotalITBIS3OtraMoneda,omitempty"`
	MontoTotalOtraMoneda        string `xml:"MontoTotalOtraMoneda"`
}

type DetallesItems struct {
	Item []Item `xml:"Item"`
}

type Item struct {
	NumeroLinea            string `xml:"NumeroLinea"`
	IndicadorFacturacion   string `xml:"IndicadorFacturacion"`
	NombreItem             string `xml:"NombreItem"`
	IndicadorBienoServicio string `xml:"IndicadorBienoServicio"`
	CantidadItem           string `xml:"CantidadItem"`
	PrecioUnitarioItem     string `xml:"PrecioUnitarioItem"`
	MontoItem              string `xml:"MontoItem"`
}

type InformacionReferencia struct {
	NCFModificado      string `xml:"NCFModificado"`
	FechaNCFModificado string `xml:"FechaNCFModificado"`
	CodigoModificacion string `xml:"CodigoModificacion"`
}

// RFCEEncabezado encabezado del resumen. Solo lleva lo mínimo que el
// servicio de facturas de consumo necesita para emitir el track.
type RFCEEncabezado struct {
	Version   string         `xml:"Version"`
	IdDoc     RFCEIdDoc      `xml:"IdDoc"`
	Emisor    RFCEEmisor     `xml:"Emisor"`
	Comprador *RFCEComprador `xml:"Comprador,omitempty"`
	Totales   RFCETotales    `xml:"Totales"`
}

type RFCEIdDoc struct {
	TipoeCF      string `xml:"TipoeCF"`
	ENCF         string `xml:"eNCF"`
	TipoIngresos string `xml:"TipoIngresos"`
	TipoPago     string `xml:"TipoPago"`
}

type RFCEEmisor struct {
	RNCEmisor    string `xml:"RNCEmisor"`
	FechaEmision string `xml:"FechaEmision"`
}

type RFCEComprador struct {
	RNCComprador string `xml:"RNCComprador"`
}

type RFCETotales struct {
	MontoTotal         string `xml:"MontoTotal"`
	TotalITBIS         string `xml:"TotalITBIS,omitempty"`
	CodigoSeguridadeCF string `xml:"CodigoSeguridadeCF"`
}
