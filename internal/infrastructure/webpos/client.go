// Package webpos implementa el cliente JSON-RPC 2.0 del intermediario
// WebPOS, la vía alterna de facturación electrónica: el intermediario
// genera, firma y remite el e-CF a la DGII por cuenta del emisor.
package webpos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
)

// Credentials credenciales del API tal como viajan en cada llamada.
type Credentials struct {
	URLBase       string `json:"url_base"`
	Name          string `json:"name"`
	CompanyLicCod string `json:"companyLicCod"`
	APK           string `json:"apk"`
}

// CredentialsFrom arma las credenciales de llamada desde la entidad almacenada.
func CredentialsFrom(c *entity.WebPOSCredential) Credentials {
	return Credentials{
		URLBase:       c.URLBase,
		Name:          c.Name,
		CompanyLicCod: c.CompanyLicCod,
		APK:           c.APK,
	}
}

// InvoiceData los datos crudos de la factura para generate_xml.
type InvoiceData struct {
	Record map[string]any   `json:"record"`
	Lines  []map[string]any `json:"lines"`
}

// VerifyResult el resultado completo de verify_status. El intermediario
// devuelve el paquete entero de la autorización: QR, PDF, subtotales e
// impuestos ya calculados, y la respuesta cruda de la DGII.
type VerifyResult struct {
	CUFE       string `json:"cufe"`
	DocType    string `json:"docType"`
	Authorized bool   `json:"authorized"`
	AuthNumber string `json:"authNumber"`
	QRCode     string `json:"qrCode"`
	QRL1       string `json:"qrL1"`
	QRL2       string `json:"qrL2"`
	XML        string `json:"xml"`
	PDF        string `json:"pdf"`

	Subtotal0 string `json:"sbt0"`
	Subtotal1 string `json:"sbt1"`
	Subtotal2 string `json:"sbt2"`
	Subtotal3 string `json:"sbt3"`
	Tax1      string `json:"tax1"`
	Tax2      string `json:"tax2"`
	Tax3      string `json:"tax3"`

	DGIResp   string `json:"dgiResp"`
	DGIErrMsg string `json:"dgiErrMsg"`
	Sts       string `json:"sts"`
	DGISts    string `json:"dgiSts"`
	DGIStatus string `json:"dgiStatus"`
}

// Intermediary puerto del intermediario de facturación.
type Intermediary interface {
	GenerateXML(ctx context.Context, data InvoiceData, typeDocument string) (string, error)
	SendXML(ctx context.Context, creds Credentials, xmlContent string) error
	VerifyStatus(ctx context.Context, creds Credentials, documentNumber, cufe string) (*VerifyResult, error)
}

// Client implementa Intermediary contra el endpoint JSON-RPC del WebPOS.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient construye el cliente con timeout de 30 s.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ── Envelope JSON-RPC 2.0 ─────────────────────────────────────────────────────

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, path string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("webpos: serializar petición: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webpos: armar petición: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webpos: llamar %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("webpos: leer respuesta de %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webpos: %s respondió HTTP %d", path, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("webpos: respuesta de %s no es JSON-RPC: %w", path, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("webpos: %s devolvió error %d: %s", path, envelope.Error.Code, envelope.Error.Message)
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("webpos: decodificar resultado de %s: %w", path, err)
		}
	}
	return nil
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// GenerateXML pide al intermediario el XML del comprobante.
// typeDocument es el código corto del API (FF, FC, C, D, ...).
func (c *Client) GenerateXML(ctx context.Context, data InvoiceData, typeDocument string) (string, error) {
	params := map[string]any{
		"invoice_data":  data,
		"type_document": typeDocument,
	}
	var result struct {
		XML string `json:"xml"`
	}
	if err := c.call(ctx, "/webpos_api/generate_xml", params, &result); err != nil {
		return "", err
	}
	if result.XML == "" {
		return "", fmt.Errorf("webpos: generate_xml no devolvió XML")
	}
	return result.XML, nil
}

// SendXML remite el XML al intermediario para su firma y envío a la DGII.
func (c *Client) SendXML(ctx context.Context, creds Credentials, xmlContent string) error {
	params := map[string]any{
		"xml_content":     xmlContent,
		"api_credentials": creds,
	}
	return c.call(ctx, "/webpos_api/send_xml", params, nil)
}

// VerifyStatus consulta el estado de autorización del documento.
func (c *Client) VerifyStatus(ctx context.Context, creds Credentials, documentNumber, cufe string) (*VerifyResult, error) {
	params := map[string]any{
		"api_credentials": creds,
		"document_number": documentNumber,
		"cufe":            cufe,
	}
	var result VerifyResult
	if err := c.call(ctx, "/webpos_api/verify_status", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
