package entity

import "time"

// Estados del registro de auditoría de XML (ciclo WebPOS y DGII directo).
const (
	XMLStatusPending  = "pending"  // Generado, aún sin enviar
	XMLStatusSent     = "sent"     // Enviado, sin veredicto
	XMLStatusProcesed = "procesed" // Autorizado por la autoridad (grafía del API intermediario)
	XMLStatusError    = "error"    // Con errores de validación o rechazo
)

// XMLRecord registro de auditoría del XML firmado de un e-CF.
// El documento es dueño del registro; una vez guardado el XML firmado
// nunca se regenera ni se vuelve a firmar.
type XMLRecord struct {
	ID           string
	DocumentID   string
	Name         string // "{rnc}{encf}.xml"
	XMLBase64    string // XML firmado, codificado en base64
	Signature    string // valor de la firma devuelto por el servicio de firma
	SecurityCode string // primeros 6 caracteres de la firma
	SignedAt     time.Time
	Status       string

	// Campos devueltos por la verificación del intermediario WebPOS.
	CUFE       string
	AuthNumber string
	QRCode     string
	Response   string // payload crudo de la última respuesta (JSON)
	ErrMsg     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSignedXML true si ya existe un XML firmado almacenado.
func (r *XMLRecord) HasSignedXML() bool {
	return r != nil && r.XMLBase64 != ""
}
