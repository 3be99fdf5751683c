package dgii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRNC(t *testing.T) {
	assert.Equal(t, "131246749", NormalizeRNC("1-31-24674-9"))
	assert.Equal(t, "131246749", NormalizeRNC("131246749"))
	assert.Equal(t, "", NormalizeRNC("N/A"))
}

func TestParseENCF_SerieElectronica(t *testing.T) {
	tipo, sec, err := ParseENCF("E310000000005")
	require.NoError(t, err)
	assert.Equal(t, "31", tipo)
	assert.Equal(t, "0000000005", sec)
}

func TestParseENCF_SerieB(t *testing.T) {
	tipo, sec, err := ParseENCF("B0100000001")
	require.NoError(t, err)
	assert.Equal(t, "01", tipo)
	assert.Equal(t, "00000001", sec)
}

func TestParseENCF_Invalido(t *testing.T) {
	_, _, err := ParseENCF("X123")
	assert.Error(t, err)

	_, _, err = ParseENCF("E31ABCDEFGHIJ")
	assert.Error(t, err)
}

func TestStampURL_CompletoYSimplificado(t *testing.T) {
	full := StampURL(StampParams{
		Environment:     EnvTest,
		RNCEmisor:       "131246749",
		RNCComprador:    "101023122",
		ENCF:            "E310000000005",
		FechaEmision:    "15-08-2026",
		MontoTotal:      "11800.00",
		FechaFirma:      "15-08-2026 10:30:00",
		CodigoSeguridad: "aB3dE9",
	})
	assert.Contains(t, full, "https://ecf.dgii.gov.do/TesteCF/ConsultaTimbre?")
	assert.Contains(t, full, "RncComprador=101023122")
	assert.Contains(t, full, "CodigoSeguridad=aB3dE9")

	small := StampURL(StampParams{
		Environment:     EnvTest,
		RNCEmisor:       "131246749",
		ENCF:            "E320000000009",
		MontoTotal:      "1500.00",
		CodigoSeguridad: "xY1zW2",
		Simplified:      true,
	})
	assert.Contains(t, small, "https://fc.dgii.gov.do/TesteCF/ConsultaTimbreFC?")
	assert.NotContains(t, small, "FechaFirma")
	assert.NotContains(t, small, "RncComprador")
}
