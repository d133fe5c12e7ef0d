package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/model/persona"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed())).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestListPersonas(t *testing.T) {
	resp := get(setupRouter(), "/personas")
	require.Equal(t, http.StatusOK, resp.Code)

	var got []persona.Persona
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Len(t, got, len(persona.Seed()))
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
}

func TestResolveRosterIndex(t *testing.T) {
	r := setupRouter()

	resp := get(r, "/roster/3")
	require.Equal(t, http.StatusOK, resp.Code)
	var p persona.Persona
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	assert.Equal(t, "grandma", p.ID)

	assert.Equal(t, http.StatusBadRequest, get(r, "/roster/9").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/roster/x").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/roster/0").Code)
}

func TestRoster(t *testing.T) {
	resp := get(setupRouter(), "/roster")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"roster":["a","me","aunt","grandma","grandfa"]}`, resp.Body.String())
}
