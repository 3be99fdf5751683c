package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidux/facturacion-ecf/internal/application/dto"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/intrepidux/facturacion-ecf/internal/domain/repository"
	apphttp "github.com/intrepidux/facturacion-ecf/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

// fakeDocRepo repositorio en memoria para los tests del handler.
type fakeDocRepo struct {
	created      []*entity.FiscalDocument
	vendorNCFHit bool // respuesta de VendorNCFExists
	vendorAsked  bool // registra si el handler consultó
}

func (f *fakeDocRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return nil, nil
}

func (f *fakeDocRepo) GetByENCF(ctx context.Context, companyID, encf string) (*entity.FiscalDocument, error) {
	return nil, nil
}

func (f *fakeDocRepo) ListByStatus(ctx context.Context, companyID string, statuses ...string) ([]*entity.FiscalDocument, error) {
	return nil, nil
}

func (f *fakeDocRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeDocRepo) UpdateSubmission(ctx context.Context, doc *entity.FiscalDocument) error {
	return nil
}

func (f *fakeDocRepo) Cancel(ctx context.Context, id string) error { return nil }

func (f *fakeDocRepo) VendorNCFExists(ctx context.Context, companyID, vendorRNC, ncf string) (bool, error) {
	f.vendorAsked = true
	return f.vendorNCFHit, nil
}

// fakeTxRunner ejecuta fn directamente sobre el repositorio, sin transacción.
type fakeTxRunner struct {
	docs repository.DocumentRepository
}

func (f *fakeTxRunner) Run(ctx context.Context, fn func(docs repository.DocumentRepository) error) error {
	return fn(f.docs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func buildDocumentApp(repo *fakeDocRepo) *fiber.App {
	handler := apphttp.NewDocumentHandler(nil, repo, &fakeTxRunner{docs: repo}, nil)
	app := fiber.New()
	app.Post("/api/documents", apphttp.AuthMiddleware(testJWTSecret), handler.Create)
	return app
}

// purchaseRequest un comprobante de compras (41) mínimo y válido.
func purchaseRequest(encf string) dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		ENCF:        encf,
		MoveKind:    entity.MovePurchase,
		IssueDate:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		AmountTotal: decimal.RequireFromString("100.00"),
		Issuer:      dto.PartyRequest{RNC: "131880681", Name: "Suplidor SRL"},
		Buyer:       &dto.PartyRequest{RNC: "101000001", Name: "Empresa Compradora SRL"},
		Lines: []dto.LineRequest{{
			Description: "Servicio de transporte",
			IsService:   true,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			Amount:      decimal.RequireFromString("100.00"),
			Exempt:      true,
		}},
	}
}

func postDocument(t *testing.T, app *fiber.App, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, "operador"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Create
// ──────────────────────────────────────────────────────────────────────────────

// El NCF de un suplidor ya registrado para la compañía rechaza el alta con 409.
func TestDocumentCreate_NCFSuplidorDuplicado(t *testing.T) {
	repo := &fakeDocRepo{vendorNCFHit: true}
	app := buildDocumentApp(repo)

	resp := postDocument(t, app, purchaseRequest("E410000000001"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "DUPLICATE_VENDOR_NCF")
	assert.Empty(t, repo.created, "el documento duplicado no debe persistirse")
}

// Una compra con NCF de suplidor nuevo se registra con normalidad.
func TestDocumentCreate_CompraNueva(t *testing.T) {
	repo := &fakeDocRepo{}
	app := buildDocumentApp(repo)

	resp := postDocument(t, app, purchaseRequest("E410000000002"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, repo.vendorAsked, "las compras deben verificar el NCF del suplidor")
	require.Len(t, repo.created, 1)
	assert.Equal(t, "E410000000002", repo.created[0].ENCF)
	assert.Equal(t, testCompanyID, repo.created[0].CompanyID)
}

// Las ventas no consultan la unicidad de NCF de suplidor.
func TestDocumentCreate_VentaNoVerificaNCFSuplidor(t *testing.T) {
	repo := &fakeDocRepo{vendorNCFHit: true}
	app := buildDocumentApp(repo)

	in := purchaseRequest("E310000000001")
	in.MoveKind = entity.MoveSale
	resp := postDocument(t, app, in)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, repo.vendorAsked, "la unicidad por suplidor aplica solo a compras")
}
