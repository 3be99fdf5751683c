package dgii

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Cliente de firma
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPSigner_Sign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "<ECF/>", req["xml"])
		assert.Equal(t, "cert.p12", req["cert"])
		assert.Equal(t, "secreto", req["pass"])

		json.NewEncoder(w).Encode(map[string]string{
			"xml":       "<ECF firmado/>",
			"signature": "aB3dE9XYZ1234",
			"date":      "15-08-2026 10:30:00",
		})
	}))
	defer srv.Close()

	signer := NewHTTPSigner(srv.URL, "cert.p12", "secreto")
	res, err := signer.Sign(context.Background(), []byte("<ECF/>"))
	require.NoError(t, err)

	assert.Equal(t, "<ECF firmado/>", string(res.SignedXML))
	assert.Equal(t, "aB3dE9", res.SecurityCode, "código de seguridad = primeros 6 caracteres de la firma")
	assert.Equal(t, 2026, res.SignedAt.Year())
}

func TestHTTPSigner_RespuestaIncompleta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"xml": ""})
	}))
	defer srv.Close()

	_, err := NewHTTPSigner(srv.URL, "c", "p").Sign(context.Background(), []byte("<ECF/>"))
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cliente de recepción
// ─────────────────────────────────────────────────────────────────────────────

func TestReceptionClient_SubmitOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/TesteCF/Recepcion/api/FacturasElectronicas", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("xml")
		require.NoError(t, err)
		assert.Equal(t, "131246749E310000000005.xml", hdr.Filename)

		json.NewEncoder(w).Encode(map[string]string{"trackId": "track-123"})
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.ecfHost = srv.URL

	out, err := c.Submit(context.Background(), "tok-1", "131246749E310000000005.xml", []byte("<ECF/>"), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "track-123", out.TrackID)
}

func TestReceptionClient_SubmitSimplificadoUsaServicioFC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/TesteCF/RecepcionFC/api/recepcion/ecf", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"trackId": "track-fc"})
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.fcHost = srv.URL

	out, err := c.Submit(context.Background(), "tok", "x.xml", []byte("<RFCE/>"), true)
	require.NoError(t, err)
	assert.Equal(t, "track-fc", out.TrackID)
}

func TestReceptionClient_SubmitRechazoEsquema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"mensajes":[{"codigo":1,"valor":"Error de Schema XSD"}]}`))
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.ecfHost = srv.URL

	out, err := c.Submit(context.Background(), "tok", "x.xml", []byte("<ECF/>"), false)
	require.NoError(t, err, "un 400 no es error de transporte")
	assert.Equal(t, http.StatusBadRequest, out.StatusCode)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "Error de Schema XSD", out.Messages[0].Message)
}

func TestReceptionClient_QueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/ConsultaResultado/api/Consultas/Estado"))
		assert.Equal(t, "track-123", r.URL.Query().Get("TrackId"))
		w.Write([]byte(`{"trackId":"track-123","estado":"Rechazado","mensajes":[{"codigo":88,"valor":"RNC inválido"}]}`))
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.ecfHost = srv.URL

	st, err := c.QueryStatus(context.Background(), "tok", "track-123")
	require.NoError(t, err)
	assert.Equal(t, "Rechazado", st.Estado)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "88", st.Messages[0].Code)
}

func TestReceptionClient_RecoverTrackID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "131246749", r.URL.Query().Get("RncEmisor"))
		assert.Equal(t, "E310000000005", r.URL.Query().Get("Encf"))
		w.Write([]byte(`[{"trackId":"t-viejo","estado":"Rechazado"},{"trackId":"t-bueno","estado":"Aceptado"}]`))
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.ecfHost = srv.URL

	track, err := c.RecoverTrackID(context.Background(), "tok", "131246749", "E310000000005")
	require.NoError(t, err)
	assert.Equal(t, "t-bueno", track)
}

func TestReceptionClient_RecoverTrackIDSinAceptado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"trackId":"t-1","estado":"EnProceso"}]`))
	}))
	defer srv.Close()

	c := NewReceptionClient("TesteCF")
	c.ecfHost = srv.URL

	_, err := c.RecoverTrackID(context.Background(), "tok", "131246749", "E310000000005")
	assert.Error(t, err)
}
