package ecf

import (
	"testing"

	"github.com/intrepidux/facturacion-ecf/internal/domain"
	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docValido() *entity.FiscalDocument {
	return &entity.FiscalDocument{
		ENCF:     "E310000000005",
		MoveKind: entity.MoveSale,
		Issuer:   entity.Party{RNC: "131246749", Name: "INTREPIDUX SRL"},
		Buyer:    &entity.Party{RNC: "101023122", Name: "CLIENTE SRL"},
		Lines: []entity.DocumentLine{
			{Amount: decimal.NewFromInt(100), ITBISRate: decimal.NewFromInt(18), ITBISAmount: decimal.NewFromInt(18)},
		},
		AmountTotalSigned: decimal.NewFromInt(118),
	}
}

func TestValidateDocument_OK(t *testing.T) {
	require.NoError(t, ValidateDocument(docValido(), "31"))
}

func TestValidateDocument_SinLineas(t *testing.T) {
	doc := docValido()
	doc.Lines = nil
	err := ValidateDocument(doc, "31")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidateDocument_CreditoFiscalSinRNCComprador(t *testing.T) {
	doc := docValido()
	doc.Buyer = nil
	err := ValidateDocument(doc, "31")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

// TestValidateDocument_VentaGrandeSinRNC ventas de RD$250,000 o más exigen
// identificar al comprador aunque el tipo no lo requiera.
func TestValidateDocument_VentaGrandeSinRNC(t *testing.T) {
	doc := docValido()
	doc.Buyer = nil
	doc.AmountTotalSigned = decimal.NewFromInt(250000)
	err := ValidateDocument(doc, "32")
	require.Error(t, err)

	doc.AmountTotalSigned = decimal.NewFromFloat(249999.99)
	require.NoError(t, ValidateDocument(doc, "32"))
}

func TestValidateDocument_CodigoModificacionDesconocido(t *testing.T) {
	doc := docValido()
	doc.ENCF = "E340000000001"
	doc.OriginENCF = "E310000000005"
	doc.ModificationCode = "9"
	err := ValidateDocument(doc, "34")
	require.Error(t, err)
}

func TestValidateDocument_ENCFInvalido(t *testing.T) {
	doc := docValido()
	doc.ENCF = "X99"
	err := ValidateDocument(doc, "31")
	require.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Reglas de estado
// ─────────────────────────────────────────────────────────────────────────────

func TestStatusForEstado(t *testing.T) {
	cases := map[string]string{
		"Aceptado":            entity.StatusDeliveredAccepted,
		"AceptadoCondicional": entity.StatusConditionallyAccepted,
		"EnProceso":           entity.StatusDeliveredPending,
		"Rechazado":           entity.StatusDeliveredRefused,
	}
	for estado, expected := range cases {
		got, ok := StatusForEstado(estado)
		require.True(t, ok, estado)
		assert.Equal(t, expected, got)
	}

	_, ok := StatusForEstado("Desconocido")
	assert.False(t, ok)
}

// TestCanSubmit_EntregadoNoSeReenvia un e-CF aceptado (total o condicional)
// rechaza cualquier reenvío.
func TestCanSubmit_EntregadoNoSeReenvia(t *testing.T) {
	for _, status := range []string{entity.StatusDeliveredAccepted, entity.StatusConditionallyAccepted} {
		err := CanSubmit(&entity.FiscalDocument{Status: status})
		assert.ErrorIs(t, err, domain.ErrResendDelivered, status)
	}

	assert.NoError(t, CanSubmit(&entity.FiscalDocument{Status: entity.StatusContingency}))
	assert.NoError(t, CanSubmit(&entity.FiscalDocument{Status: entity.StatusToSend}))
}

func TestCanSetDraft(t *testing.T) {
	assert.NoError(t, CanSetDraft(entity.StatusToSend))
	assert.NoError(t, CanSetDraft(entity.StatusInvalid))
	assert.ErrorIs(t, CanSetDraft(entity.StatusDeliveredAccepted), domain.ErrDraftAfterSent)
	assert.ErrorIs(t, CanSetDraft(entity.StatusContingency), domain.ErrDraftAfterSent)
}

func TestCanCancel(t *testing.T) {
	assert.NoError(t, CanCancel(entity.StatusDeliveredRefused))
	assert.ErrorIs(t, CanCancel(entity.StatusDeliveredAccepted), domain.ErrCancelOnlyDGII)
}
