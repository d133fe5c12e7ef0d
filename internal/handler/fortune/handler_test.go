package fortune

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	fortuneService "github.com/ourhouse/backend/internal/service/fortune"
)

type stubTeller struct {
	reply string
	err   error
}

func (s stubTeller) Fortune(context.Context, string) (string, error) { return s.reply, s.err }

func serve(teller fortuneService.Teller, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(fortuneService.NewService(teller), nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/dailyluck", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDailyLuck(t *testing.T) {
	resp := serve(stubTeller{reply: "**대길**"}, `{"name":"민지"}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"fortune":"**대길**"}`, resp.Body.String())
}

func TestDailyLuckErrors(t *testing.T) {
	tests := []struct {
		name   string
		teller fortuneService.Teller
		body   string
		want   int
	}{
		{"blank name", stubTeller{reply: "x"}, `{"name":"  "}`, http.StatusBadRequest},
		{"bad body", stubTeller{reply: "x"}, `{`, http.StatusBadRequest},
		{"no teller", nil, `{"name":"민지"}`, http.StatusServiceUnavailable},
		{"teller failure", stubTeller{err: errors.New("down")}, `{"name":"민지"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(tt.teller, tt.body).Code)
		})
	}
}

func TestDailyLuckBlankNameMessage(t *testing.T) {
	resp := serve(stubTeller{}, `{"name":""}`)
	assert.JSONEq(t, `{"error":"이름을 입력해주세요."}`, resp.Body.String())
}
