package dgii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ── Puerto de firma ───────────────────────────────────────────────────────────

// SignResult el XML firmado y los metadatos de la firma.
type SignResult struct {
	SignedXML    []byte
	Signature    string
	SecurityCode string // primeros 6 caracteres del valor de la firma
	SignedAtRaw  string // fecha tal cual la devuelve el firmador
	SignedAt     time.Time
}

// Signer puerto de salida hacia el servicio externo de firma XML.
// El certificado nunca sale de este servicio: aquí solo viajan referencias.
type Signer interface {
	Sign(ctx context.Context, xmlBytes []byte) (*SignResult, error)
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// HTTPSigner implementa Signer contra el microservicio de firma.
type HTTPSigner struct {
	url        string
	cert       string // contenido o ruta del .p12, según espere el firmador
	pass       string
	httpClient *http.Client
}

// NewHTTPSigner construye el cliente con timeout de 30 s.
func NewHTTPSigner(url, cert, pass string) *HTTPSigner {
	return &HTTPSigner{
		url:        url,
		cert:       cert,
		pass:       pass,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type signRequest struct {
	XML  string `json:"xml"`
	Cert string `json:"cert"`
	Pass string `json:"pass"`
}

type signResponse struct {
	XML       string `json:"xml"`
	Signature string `json:"signature"`
	Date      string `json:"date"`
}

// Sign remite el XML al firmador y devuelve el resultado con el código de
// seguridad ya extraído.
func (c *HTTPSigner) Sign(ctx context.Context, xmlBytes []byte) (*SignResult, error) {
	payload, err := json.Marshal(signRequest{
		XML:  string(xmlBytes),
		Cert: c.cert,
		Pass: c.pass,
	})
	if err != nil {
		return nil, fmt.Errorf("firmador: serializar petición: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("firmador: crear petición: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firmador: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("firmador: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firmador: HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var sr signResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("firmador: respuesta inválida: %w", err)
	}
	if sr.XML == "" || sr.Signature == "" {
		return nil, fmt.Errorf("firmador: respuesta sin xml o sin firma")
	}

	result := &SignResult{
		SignedXML:   []byte(sr.XML),
		Signature:   sr.Signature,
		SignedAtRaw: sr.Date,
	}
	if len(sr.Signature) >= 6 {
		result.SecurityCode = sr.Signature[:6]
	} else {
		result.SecurityCode = sr.Signature
	}
	if t, err := time.Parse(fechaHoraLayout, sr.Date); err == nil {
		result.SignedAt = t
	} else {
		result.SignedAt = time.Now()
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
