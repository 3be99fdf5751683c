package webpos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{
		URLBase:       "https://webpos.example.com",
		Name:          "intrepidux",
		CompanyLicCod: "LIC-001",
		APK:           "apk-secreta",
	}
}

func TestClient_GenerateXML(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/webpos_api/generate_xml", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		captured = req

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"xml":"<ECF>generado</ECF>"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	xml, err := c.GenerateXML(context.Background(), InvoiceData{
		Record: map[string]any{"encf": "E310000000005"},
		Lines:  []map[string]any{{"name": "Servicio"}},
	}, "FF")
	require.NoError(t, err)
	assert.Equal(t, "<ECF>generado</ECF>", xml)

	// Envelope JSON-RPC 2.0 con los parámetros esperados.
	assert.Equal(t, "2.0", captured["jsonrpc"])
	assert.Equal(t, "call", captured["method"])
	params := captured["params"].(map[string]any)
	assert.Equal(t, "FF", params["type_document"])
	invoice := params["invoice_data"].(map[string]any)
	record := invoice["record"].(map[string]any)
	assert.Equal(t, "E310000000005", record["encf"])
}

func TestClient_SendXMLIncluyeCredenciales(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/webpos_api/send_xml", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params := req["params"].(map[string]any)
		creds := params["api_credentials"].(map[string]any)
		assert.Equal(t, "LIC-001", creds["companyLicCod"])
		assert.Equal(t, "apk-secreta", creds["apk"])
		assert.Equal(t, "<ECF>firmado</ECF>", params["xml_content"])

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":2,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.SendXML(context.Background(), testCreds(), "<ECF>firmado</ECF>")
	require.NoError(t, err)
}

func TestClient_VerifyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/webpos_api/verify_status", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params := req["params"].(map[string]any)
		assert.Equal(t, "E310000000005", params["document_number"])
		assert.Equal(t, "cufe-123", params["cufe"])

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":3,"result":{
			"cufe":"cufe-123","docType":"FF","authorized":true,
			"authNumber":"AUTH-9","qrCode":"data:image/png;base64,abc",
			"sbt1":"10000.00","tax1":"1800.00",
			"dgiStatus":"Aceptado","sts":"procesed"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.VerifyStatus(context.Background(), testCreds(), "E310000000005", "cufe-123")
	require.NoError(t, err)

	assert.True(t, res.Authorized)
	assert.Equal(t, "AUTH-9", res.AuthNumber)
	assert.Equal(t, "10000.00", res.Subtotal1)
	assert.Equal(t, "1800.00", res.Tax1)
	assert.Equal(t, "Aceptado", res.DGIStatus)
}

func TestClient_ErrorJSONRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":4,"error":{"code":-32000,"message":"licencia vencida"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.SendXML(context.Background(), testCreds(), "<ECF/>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "licencia vencida")
}
