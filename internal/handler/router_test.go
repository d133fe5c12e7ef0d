package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	personaModel "github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/ai"
	chatService "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/dialogue"
	fortuneService "github.com/ourhouse/backend/internal/service/fortune"
)

func newTestRouter() http.Handler {
	personas := personaModel.NewMemoryStore(personaModel.Seed())
	return NewRouter(Deps{
		Personas: personas,
		Dialogue: dialogue.New(chatService.NewMemoryStore(), personas, ai.NewScripted()),
		Fortune:  fortuneService.NewService(nil),
	})
}

func TestRouterPreflight(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/continueConversation", nil))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterMountsAPI(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/personas", "", http.StatusOK},
		{http.MethodGet, "/api/roster/2", "", http.StatusOK},
		{http.MethodPost, "/api/startConversation", `{"gpt1Id":"aunt","gpt2Id":"grandma"}`, http.StatusCreated},
		{http.MethodPost, "/api/startSingleConversation", `{"gptId":"grandfa"}`, http.StatusCreated},
		{http.MethodPost, "/api/dailyluck", `{"name":"민지"}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/ws/conversation/9/1", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.want, resp.Code)
			assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
