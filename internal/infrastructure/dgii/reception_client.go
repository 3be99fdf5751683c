package dgii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
)

// ── Hosts de los servicios DGII ───────────────────────────────────────────────

const (
	hostECF = "https://ecf.dgii.gov.do"
	hostFC  = "https://fc.dgii.gov.do"
)

// ── Puerto (interfaz) ─────────────────────────────────────────────────────────

// SubmitOutcome respuesta cruda de recepción. Un HTTP distinto de 200 no es
// un error de transporte: el orquestador decide el estado según el código.
type SubmitOutcome struct {
	StatusCode int
	TrackID    string
	Messages   []domain.AuthorityMessage
	Body       string
}

// StatusOutcome resultado de la consulta de estado por TrackID.
type StatusOutcome struct {
	Estado   string
	Messages []domain.AuthorityMessage
}

// Authority puerto de salida hacia los servicios de recepción y consulta de
// la DGII. La implementación concreta usa HTTP; para tests se inyecta un fake.
type Authority interface {
	// Submit entrega el XML firmado. filename es "{rnc}{encf}.xml".
	// simplified enruta al servicio de facturas de consumo (fc.dgii.gov.do).
	Submit(ctx context.Context, token, filename string, xmlBytes []byte, simplified bool) (*SubmitOutcome, error)
	QueryStatus(ctx context.Context, token, trackID string) (*StatusOutcome, error)
	// RecoverTrackID busca el TrackID aceptado de un e-NCF ya remitido.
	RecoverTrackID(ctx context.Context, token, rnc, encf string) (string, error)
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// ReceptionClient implementa Authority contra los servicios REST de la DGII.
type ReceptionClient struct {
	env        string // TesteCF, CerteCF o eCF
	ecfHost    string
	fcHost     string
	httpClient *http.Client
}

var _ Authority = (*ReceptionClient)(nil)

// NewReceptionClient construye el cliente. Timeout de 30 s por operación.
func NewReceptionClient(env string) *ReceptionClient {
	return &ReceptionClient{
		env:        env,
		ecfHost:    hostECF,
		fcHost:     hostFC,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *ReceptionClient) submitURL(simplified bool) string {
	if simplified {
		return fmt.Sprintf("%s/%s/RecepcionFC/api/recepcion/ecf", c.fcHost, c.env)
	}
	return fmt.Sprintf("%s/%s/Recepcion/api/FacturasElectronicas", c.ecfHost, c.env)
}

// Submit entrega el XML como multipart (campo "xml").
func (c *ReceptionClient) Submit(ctx context.Context, token, filename string, xmlBytes []byte, simplified bool) (*SubmitOutcome, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("xml", filename)
	if err != nil {
		return nil, fmt.Errorf("dgii: preparar multipart: %w", err)
	}
	if _, err := part.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("dgii: escribir multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("dgii: cerrar multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL(simplified), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Error de transporte: el documento no llegó a la DGII.
		return nil, fmt.Errorf("dgii: recepción: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dgii: leer respuesta de recepción: %w", err)
	}

	out := &SubmitOutcome{StatusCode: resp.StatusCode, Body: string(body)}
	switch resp.StatusCode {
	case http.StatusOK:
		var ok struct {
			TrackID string `json:"trackId"`
		}
		if err := json.Unmarshal(body, &ok); err == nil {
			out.TrackID = ok.TrackID
		}
	case http.StatusBadRequest:
		out.Messages = parseMensajes(body)
	}
	return out, nil
}

// QueryStatus consulta el resultado de validación por TrackID.
func (c *ReceptionClient) QueryStatus(ctx context.Context, token, trackID string) (*StatusOutcome, error) {
	u := fmt.Sprintf("%s/%s/ConsultaResultado/api/Consultas/Estado?%s",
		c.ecfHost, c.env, url.Values{"TrackId": {trackID}}.Encode())

	body, err := c.getJSON(ctx, token, u)
	if err != nil {
		return nil, err
	}

	var st struct {
		Estado   string          `json:"estado"`
		Mensajes json.RawMessage `json:"mensajes"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("dgii: respuesta de consulta inválida: %w", err)
	}
	return &StatusOutcome{Estado: st.Estado, Messages: parseMensajes(body)}, nil
}

// RecoverTrackID consulta los TrackIDs de un e-NCF y devuelve el aceptado.
// Se usa cuando un envío quedó sin respuesta y el track se perdió localmente.
func (c *ReceptionClient) RecoverTrackID(ctx context.Context, token, rnc, encf string) (string, error) {
	u := fmt.Sprintf("%s/%s/ConsultaTrackIds/api/TrackIds/Consulta?%s",
		c.ecfHost, c.env, url.Values{"RncEmisor": {rnc}, "Encf": {encf}}.Encode())

	body, err := c.getJSON(ctx, token, u)
	if err != nil {
		return "", err
	}

	var tracks []struct {
		TrackID string `json:"trackId"`
		Estado  string `json:"estado"`
	}
	if err := json.Unmarshal(body, &tracks); err != nil {
		return "", fmt.Errorf("dgii: respuesta de TrackIds inválida: %w", err)
	}
	for _, t := range tracks {
		if t.Estado == "Aceptado" {
			return t.TrackID, nil
		}
	}
	return "", fmt.Errorf("dgii: %w: sin TrackID aceptado para %s", domain.ErrNotFound, encf)
}

func (c *ReceptionClient) getJSON(ctx context.Context, token, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dgii: consulta: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dgii: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dgii: consulta HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// parseMensajes extrae la lista "mensajes" de cualquier payload DGII.
func parseMensajes(body []byte) []domain.AuthorityMessage {
	var envelope struct {
		Mensajes []struct {
			Codigo json.Number `json:"codigo"`
			Valor  string      `json:"valor"`
		} `json:"mensajes"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	msgs := make([]domain.AuthorityMessage, 0, len(envelope.Mensajes))
	for _, m := range envelope.Mensajes {
		if m.Valor == "" {
			continue
		}
		msgs = append(msgs, domain.AuthorityMessage{Code: m.Codigo.String(), Message: m.Valor})
	}
	return msgs
}
