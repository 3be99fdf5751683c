package dgii

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSerialize_OrdenDeSecciones la DGII valida la secuencia de elementos
// contra el XSD: Encabezado, DetallesItems y FechaHoraFirma en ese orden,
// y dentro del encabezado Version, IdDoc, Emisor, Comprador, Totales.
func TestSerialize_OrdenDeSecciones(t *testing.T) {
	e, err := NewAssembler().Build(buildTestContext(t, buildTestDoc()))
	require.NoError(t, err)

	out, err := NewSerializer().Serialize(e)
	require.NoError(t, err)
	xml := string(out)

	orden := []string{
		"<ECF>", "<Encabezado>", "<Version>", "<IdDoc>", "<TipoeCF>", "<eNCF>",
		"<Emisor>", "<RNCEmisor>", "<Comprador>", "<Totales>", "<MontoGravadoTotal>",
		"<MontoTotal>", "</Encabezado>", "<DetallesItems>", "<Item>", "<NumeroLinea>",
		"<FechaHoraFirma>", "</ECF>",
	}
	prev := -1
	for _, tag := range orden {
		idx := strings.Index(xml, tag)
		require.GreaterOrEqual(t, idx, 0, "falta %s", tag)
		assert.Greater(t, idx, prev, "%s fuera de orden", tag)
		prev = idx
	}

	// Sin referencia: la sección no debe aparecer.
	assert.NotContains(t, xml, "<InformacionReferencia>")
	assert.NotContains(t, xml, "<InformacionesAdicionales>")
}

func TestSerialize_BienFormadoEIndentado(t *testing.T) {
	e, err := NewAssembler().Build(buildTestContext(t, buildTestDoc()))
	require.NoError(t, err)

	out, err := NewSerializer().Serialize(e)
	require.NoError(t, err)

	// Reparseable con etree (lo mismo que hará el firmador).
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	require.NotNil(t, doc.Root())
	assert.Equal(t, "ECF", doc.Root().Tag)

	assert.Contains(t, string(out), "\n  <Encabezado>")
}

func TestSerialize_RaizRFCE(t *testing.T) {
	doc := buildTestDoc()
	doc.ENCF = "E320000000009"
	ctx := buildTestContext(t, doc)
	ctx.Simplified = true

	r, err := NewAssembler().BuildSummary(ctx, "aB3dE9")
	require.NoError(t, err)

	out, err := NewSerializer().Serialize(r)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<RFCE>")
	assert.Contains(t, s, "<CodigoSeguridadeCF>aB3dE9</CodigoSeguridadeCF>")
	assert.NotContains(t, s, "<DetallesItems>")
	assert.NotContains(t, s, "<FechaHoraFirma>")
}
