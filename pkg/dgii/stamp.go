package dgii

import (
	"fmt"
	"net/url"
)

// StampParams datos del timbre electrónico que se codifica en el QR de la
// representación impresa. Las fechas van ya formateadas al estilo DGII
// (FechaEmision "dd-mm-aaaa", FechaFirma "dd-mm-aaaa hh:mm:ss").
type StampParams struct {
	Environment     string
	RNCEmisor       string
	RNCComprador    string // vacío para tipo 43 y para el resumen simplificado
	ENCF            string
	FechaEmision    string
	MontoTotal      string
	FechaFirma      string
	CodigoSeguridad string
	Simplified      bool // resumen de factura de consumo < RD$250,000
}

// StampURL construye la URL de consulta de timbre que vota el QR.
// El resumen simplificado consulta el servicio fc.dgii.gov.do; el resto, ecf.dgii.gov.do.
func StampURL(p StampParams) string {
	host := "ecf.dgii.gov.do"
	resource := "ConsultaTimbre"
	if p.Simplified {
		host = "fc.dgii.gov.do"
		resource = "ConsultaTimbreFC"
	}

	q := url.Values{}
	q.Set("RncEmisor", p.RNCEmisor)
	if p.RNCComprador != "" {
		q.Set("RncComprador", p.RNCComprador)
	}
	q.Set("ENCF", p.ENCF)
	if !p.Simplified {
		q.Set("FechaEmision", p.FechaEmision)
	}
	q.Set("MontoTotal", p.MontoTotal)
	if !p.Simplified {
		q.Set("FechaFirma", p.FechaFirma)
	}
	q.Set("CodigoSeguridad", p.CodigoSeguridad)

	return fmt.Sprintf("https://%s/%s/%s?%s", host, p.Environment, resource, q.Encode())
}
