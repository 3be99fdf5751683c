package ecf

import (
	"testing"

	"github.com/intrepidux/facturacion-ecf/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Resolución de tipo de comprobante
// ─────────────────────────────────────────────────────────────────────────────

// TestResolveType_TresIdentidadesCoherentes el prefijo E31, el corto FF y el
// código 31 deben resolver al mismo tipo en ambas direcciones.
func TestResolveType_TresIdentidadesCoherentes(t *testing.T) {
	porPrefijo, defaulted := ResolveType(&entity.FiscalDocument{FiscalTypePrefix: "E31"})
	require.False(t, defaulted)

	porCorto, ok := ByShort("FF")
	require.True(t, ok)

	porCodigo, ok := ByCode("31")
	require.True(t, ok)

	assert.Equal(t, "31", porPrefijo.Code)
	assert.Equal(t, "FF", porPrefijo.Short)
	assert.Equal(t, porPrefijo, porCorto)
	assert.Equal(t, porPrefijo, porCodigo)
}

func TestResolveType_PrefijoDesdeENCF(t *testing.T) {
	dt, defaulted := ResolveType(&entity.FiscalDocument{ENCF: "E340000000012"})
	require.False(t, defaulted)
	assert.Equal(t, "34", dt.Code)
	assert.Equal(t, "C", dt.Short)
}

func TestResolveType_SerieB(t *testing.T) {
	dt, defaulted := ResolveType(&entity.FiscalDocument{FiscalTypePrefix: "B02"})
	require.False(t, defaulted)
	assert.Equal(t, "32", dt.Code)
	assert.Equal(t, "FC", dt.Short)

	// B12 no tiene serie electrónica pero sí código corto en el API.
	rui, defaulted := ResolveType(&entity.FiscalDocument{FiscalTypePrefix: "B12"})
	require.False(t, defaulted)
	assert.Equal(t, "RUI", rui.Short)
	assert.Empty(t, rui.Code)
}

func TestResolveType_CodigoNumericoEnShortCode(t *testing.T) {
	dt, defaulted := ResolveType(&entity.FiscalDocument{ShortCode: "43"})
	require.False(t, defaulted)
	assert.Equal(t, "E", dt.Short)
}

func TestResolveType_FallbackContable(t *testing.T) {
	cases := []struct {
		name     string
		doc      entity.FiscalDocument
		expected string
	}{
		{"venta con origen de débito", entity.FiscalDocument{MoveKind: entity.MoveSale, DebitOrigin: true}, "33"},
		{"venta", entity.FiscalDocument{MoveKind: entity.MoveSale}, "31"},
		{"devolución de venta", entity.FiscalDocument{MoveKind: entity.MoveSaleRefund}, "34"},
		{"compra", entity.FiscalDocument{MoveKind: entity.MovePurchase}, "41"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dt, defaulted := ResolveType(&tc.doc)
			require.False(t, defaulted)
			assert.Equal(t, tc.expected, dt.Code)
		})
	}
}

// TestResolveType_SinPistasUsaCreditoFiscal sin prefijo, código ni naturaleza
// contable se asume factura de crédito fiscal y se marca defaulted para que
// el llamador lo registre.
func TestResolveType_SinPistasUsaCreditoFiscal(t *testing.T) {
	dt, defaulted := ResolveType(&entity.FiscalDocument{})
	assert.True(t, defaulted)
	assert.Equal(t, "31", dt.Code)
}

func TestIsSimplified(t *testing.T) {
	assert.True(t, IsSimplified("32", decimal.NewFromFloat(249999.99)))
	assert.False(t, IsSimplified("32", decimal.NewFromInt(250000)))
	assert.False(t, IsSimplified("31", decimal.NewFromInt(100)))
}
