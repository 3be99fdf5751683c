package webpos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	infrawebpos "github.com/intrepidux/facturacion-ecf/internal/infrastructure/webpos"
	"github.com/intrepidux/facturacion-ecf/pkg/logger"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeDocs struct {
	doc     *entity.FiscalDocument
	updated int
}

func (f *fakeDocs) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeDocs) GetByENCF(context.Context, string, string) (*entity.FiscalDocument, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeDocs) ListByStatus(context.Context, string, ...string) ([]*entity.FiscalDocument, error) {
	return nil, nil
}

func (f *fakeDocs) Create(context.Context, *entity.FiscalDocument) error { return nil }

func (f *fakeDocs) UpdateSubmission(context.Context, *entity.FiscalDocument) error {
	f.updated++
	return nil
}

func (f *fakeDocs) Cancel(context.Context, string) error { return nil }

func (f *fakeDocs) VendorNCFExists(context.Context, string, string, string) (bool, error) {
	return false, nil
}

type fakeRecords struct {
	rec *entity.XMLRecord
}

func (f *fakeRecords) GetByDocument(context.Context, string) (*entity.XMLRecord, error) {
	if f.rec == nil {
		return nil, domain.ErrNotFound
	}
	return f.rec, nil
}

func (f *fakeRecords) Create(_ context.Context, rec *entity.XMLRecord) error {
	f.rec = rec
	return nil
}

func (f *fakeRecords) UpdateStatus(_ context.Context, _, status string) error {
	if f.rec != nil {
		f.rec.Status = status
	}
	return nil
}

func (f *fakeRecords) UpdateVerification(_ context.Context, rec *entity.XMLRecord) error {
	f.rec = rec
	return nil
}

func (f *fakeRecords) AppendAuthorityMessages(context.Context, string, []domain.AuthorityMessage) error {
	return nil
}

type fakeCreds struct {
	cred *entity.WebPOSCredential
}

func (f *fakeCreds) GetActive(context.Context, string) (*entity.WebPOSCredential, error) {
	if f.cred == nil {
		return nil, domain.ErrNotFound
	}
	return f.cred, nil
}

func (f *fakeCreds) Create(context.Context, *entity.WebPOSCredential) error { return nil }
func (f *fakeCreds) Activate(context.Context, string) error                 { return nil }
func (f *fakeCreds) List(context.Context, string) ([]*entity.WebPOSCredential, error) {
	return nil, nil
}

type fakeIntermediary struct {
	generated    string
	generateErr  error
	sendErr      error
	sentXML      string
	sentCreds    infrawebpos.Credentials
	verifyResult *infrawebpos.VerifyResult
	typeDocument string
}

func (f *fakeIntermediary) GenerateXML(_ context.Context, _ infrawebpos.InvoiceData, typeDocument string) (string, error) {
	f.typeDocument = typeDocument
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generated, nil
}

func (f *fakeIntermediary) SendXML(_ context.Context, creds infrawebpos.Credentials, xmlContent string) error {
	f.sentCreds = creds
	f.sentXML = xmlContent
	return f.sendErr
}

func (f *fakeIntermediary) VerifyStatus(context.Context, infrawebpos.Credentials, string, string) (*infrawebpos.VerifyResult, error) {
	if f.verifyResult == nil {
		return nil, errors.New("sin resultado")
	}
	return f.verifyResult, nil
}

// ─────────────────────────────────────────────────────────────────────────────

func testDoc() *entity.FiscalDocument {
	return &entity.FiscalDocument{
		ID:               "doc-1",
		CompanyID:        "co-1",
		ENCF:             "E310000000005",
		FiscalTypePrefix: "E31",
		MoveKind:         entity.MoveSale,
		IssueDate:        time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Currency:         "DOP",
		AmountTotal:      decimal.RequireFromString("11800.00"),
		Issuer:           entity.Party{RNC: "131246749", Name: "INTREPIDUX SRL"},
		Buyer:            &entity.Party{RNC: "101023122", Name: "CLIENTE SA"},
		Lines: []entity.DocumentLine{{
			Description: "Servicio",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("10000.00"),
			Amount:      decimal.RequireFromString("10000.00"),
			ITBISRate:   decimal.NewFromInt(18),
			ITBISAmount: decimal.RequireFromString("1800.00"),
		}},
		Status: entity.StatusToSend,
	}
}

func testCredential() *entity.WebPOSCredential {
	return &entity.WebPOSCredential{
		ID:            "cred-1",
		CompanyID:     "co-1",
		Name:          "intrepidux",
		CompanyLicCod: "LIC-001",
		BranchCod:     "001",
		POSCod:        "01",
		APK:           "apk-secreta",
		URLBase:       "https://webpos.example.com",
		Active:        true,
	}
}

func newUsecase(docs *fakeDocs, recs *fakeRecords, creds *fakeCreds, im *fakeIntermediary) *Usecase {
	return NewUsecase(docs, recs, creds, im, logger.Nop())
}

func TestSend_GeneraRemiteYAudita(t *testing.T) {
	docs := &fakeDocs{doc: testDoc()}
	recs := &fakeRecords{}
	creds := &fakeCreds{cred: testCredential()}
	im := &fakeIntermediary{generated: "<ECF>webpos</ECF>"}

	err := newUsecase(docs, recs, creds, im).Send(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "FF", im.typeDocument, "el tipo viaja como código corto del API")
	assert.Equal(t, "<ECF>webpos</ECF>", im.sentXML)
	assert.Equal(t, "LIC-001", im.sentCreds.CompanyLicCod)

	require.NotNil(t, recs.rec)
	assert.Equal(t, entity.XMLStatusSent, recs.rec.Status)
	assert.Equal(t, "131246749E310000000005.xml", recs.rec.Name)
	assert.Equal(t, entity.StatusDeliveredPending, docs.doc.Status)
}

func TestSend_SinCredencialActiva(t *testing.T) {
	docs := &fakeDocs{doc: testDoc()}
	im := &fakeIntermediary{generated: "<ECF/>"}

	err := newUsecase(docs, &fakeRecords{}, &fakeCreds{}, im).Send(context.Background(), "doc-1")
	require.ErrorIs(t, err, domain.ErrNoActiveCredential)
	assert.Empty(t, im.sentXML)
}

func TestSend_EntregadoNoSeReenvia(t *testing.T) {
	doc := testDoc()
	doc.Status = entity.StatusDeliveredAccepted
	docs := &fakeDocs{doc: doc}

	err := newUsecase(docs, &fakeRecords{}, &fakeCreds{cred: testCredential()}, &fakeIntermediary{}).
		Send(context.Background(), "doc-1")
	require.ErrorIs(t, err, domain.ErrResendDelivered)
}

func TestSend_FalloDeEnvioMarcaError(t *testing.T) {
	docs := &fakeDocs{doc: testDoc()}
	recs := &fakeRecords{}
	im := &fakeIntermediary{generated: "<ECF/>", sendErr: errors.New("licencia vencida")}

	err := newUsecase(docs, recs, &fakeCreds{cred: testCredential()}, im).
		Send(context.Background(), "doc-1")
	require.Error(t, err)

	require.NotNil(t, recs.rec)
	assert.Equal(t, entity.XMLStatusError, recs.rec.Status)
	assert.Contains(t, recs.rec.ErrMsg, "licencia vencida")
}

func TestVerify_AutorizadoActualizaDocumentoYRegistro(t *testing.T) {
	doc := testDoc()
	doc.Status = entity.StatusDeliveredPending
	doc.CUFE = "cufe-123"
	docs := &fakeDocs{doc: doc}
	recs := &fakeRecords{rec: &entity.XMLRecord{ID: "rec-1", DocumentID: "doc-1", Status: entity.XMLStatusSent}}
	im := &fakeIntermediary{verifyResult: &infrawebpos.VerifyResult{
		CUFE:       "cufe-123",
		Authorized: true,
		AuthNumber: "AUTH-9",
		QRCode:     "data:image/png;base64,abc",
		DGIStatus:  "Aceptado",
	}}

	res, err := newUsecase(docs, recs, &fakeCreds{cred: testCredential()}, im).
		Verify(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.True(t, res.Authorized)
	assert.Equal(t, entity.XMLStatusProcesed, recs.rec.Status)
	assert.Equal(t, "AUTH-9", recs.rec.AuthNumber)
	assert.Equal(t, entity.StatusDeliveredAccepted, doc.Status)
	assert.Equal(t, "cufe-123", doc.CUFE)
}

func TestVerify_RechazadoGuardaElError(t *testing.T) {
	doc := testDoc()
	doc.Status = entity.StatusDeliveredPending
	docs := &fakeDocs{doc: doc}
	recs := &fakeRecords{rec: &entity.XMLRecord{ID: "rec-1", DocumentID: "doc-1", Status: entity.XMLStatusSent}}
	im := &fakeIntermediary{verifyResult: &infrawebpos.VerifyResult{
		Authorized: false,
		DGIErrMsg:  "RNC del comprador no existe",
		DGIStatus:  "Rechazado",
	}}

	_, err := newUsecase(docs, recs, &fakeCreds{cred: testCredential()}, im).
		Verify(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, entity.XMLStatusError, recs.rec.Status)
	assert.Equal(t, "RNC del comprador no existe", recs.rec.ErrMsg)
	assert.Equal(t, entity.StatusDeliveredRefused, doc.Status)
}
