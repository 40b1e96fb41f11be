package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd(t *testing.T) {
	var got model.ReportRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reportes/generar", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id_convocatoria":"L-1","descripcion":"Obra vial"}],
			"pagination":{"total":1,"totalPages":1,"limit":50,"page":1}}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, "--data-url", ts.URL, "search",
		"--departamento", "LIMA", "--type", "general", "--limit", "50")
	require.NoError(t, err)

	var res struct {
		Query   string `json:"query"`
		Records []struct {
			ID string `json:"id_convocatoria"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Contains(t, res.Query, "departamento=LIMA")
	assert.Contains(t, res.Query, "type=general")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "L-1", res.Records[0].ID)
	assert.Equal(t, 50, got.Limit)
}

func TestSearchCmd_InvalidPageSize(t *testing.T) {
	_, err := runCLI(t, "--data-url", "http://127.0.0.1:1", "search", "--limit", "33")
	require.Error(t, err)
}

func TestDeleteCmd(t *testing.T) {
	var authCode string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/licitaciones/L-7", r.URL.Path)
		var body struct {
			AuthCode string `json:"authCode"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		authCode = body.AuthCode
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, "--data-url", ts.URL, "delete", "L-7", "--auth-code", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "deleted"`)
	assert.Equal(t, "1234", authCode)
}

func TestDeleteCmd_RequiresAuthCode(t *testing.T) {
	_, err := runCLI(t, "--data-url", "http://127.0.0.1:1", "delete", "L-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth-code")
}

func TestMissingDataURL(t *testing.T) {
	t.Setenv("WB_DATA_SERVICE_URL", "")
	_, err := runCLI(t, "show", "L-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--data-url")
}
