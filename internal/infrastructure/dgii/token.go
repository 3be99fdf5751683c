package dgii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	pkgjwt "github.com/intrepidux/facturacion-ecf/pkg/jwt"
)

// Margen antes del vencimiento a partir del cual el token se considera
// expirado y se renueva.
const tokenSafetyMargin = time.Minute

// TokenProvider puerto del manejador de sesión DGII.
type TokenProvider interface {
	// EnsureToken devuelve un token vigente, renovándolo si hace falta.
	EnsureToken(ctx context.Context) (string, error)
	// Invalidate descarta el token en caché (se llama tras un 401).
	Invalidate()
}

// TokenManager obtiene y cachea el token de sesión de la DGII.
// Flujo: GET Semilla -> firmar la semilla con el certificado -> POST
// ValidarSemilla. El mutex serializa la renovación: si varios envíos
// concurrentes encuentran el token vencido, solo el primero autentica y el
// resto reutiliza el resultado.
type TokenManager struct {
	env        string
	host       string
	signer     Signer
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ TokenProvider = (*TokenManager)(nil)

// NewTokenManager construye el manejador de sesión.
func NewTokenManager(env string, signer Signer) *TokenManager {
	return &TokenManager{
		env:        env,
		host:       hostECF,
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureToken devuelve el token cacheado si sigue vigente; si no, autentica.
func (m *TokenManager) EnsureToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt.Add(-tokenSafetyMargin)) {
		return m.token, nil
	}

	token, expiresAt, err := m.authenticate(ctx)
	if err != nil {
		return "", err
	}
	m.token = token
	m.expiresAt = expiresAt
	return token, nil
}

// Invalidate descarta el token en caché.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

func (m *TokenManager) authenticate(ctx context.Context) (string, time.Time, error) {
	seed, err := m.fetchSeed(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := m.signer.Sign(ctx, seed)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("dgii: firmar semilla: %w", err)
	}

	return m.validateSeed(ctx, signed.SignedXML)
}

func (m *TokenManager) fetchSeed(ctx context.Context) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/Autenticacion/api/Autenticacion/Semilla", m.host, m.env)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dgii: obtener semilla: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dgii: leer semilla: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dgii: semilla HTTP %d", resp.StatusCode)
	}
	return body, nil
}

func (m *TokenManager) validateSeed(ctx context.Context, signedSeed []byte) (string, time.Time, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("xml", "semilla.xml")
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := part.Write(signedSeed); err != nil {
		return "", time.Time{}, err
	}
	if err := mw.Close(); err != nil {
		return "", time.Time{}, err
	}

	u := fmt.Sprintf("%s/%s/Autenticacion/api/Autenticacion/ValidarSemilla", m.host, m.env)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("dgii: validar semilla: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("dgii: leer token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("dgii: validar semilla HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var auth struct {
		Token  string `json:"token"`
		Expira string `json:"expira"`
	}
	if err := json.Unmarshal(body, &auth); err != nil || auth.Token == "" {
		return "", time.Time{}, fmt.Errorf("dgii: respuesta de autenticación inválida")
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, auth.Expira)
	if err != nil {
		// El campo expira a veces llega en otro formato: usar el exp del propio token.
		if fromClaim, cerr := pkgjwt.ExpirationUnverified(auth.Token); cerr == nil {
			expiresAt = fromClaim
		} else {
			expiresAt = time.Now().Add(30 * time.Minute)
		}
	}
	return auth.Token, expiresAt, nil
}
