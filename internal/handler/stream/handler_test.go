package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/ai"
	chatservice "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/dialogue"
)

func setup(t *testing.T) (*chi.Mux, *dialogue.Service) {
	t.Helper()
	svc := dialogue.New(chatservice.NewMemoryStore(), persona.NewMemoryStore(persona.Seed()), ai.NewScripted())
	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	return r, svc
}

func events(body string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			out = append(out, name)
		}
	}
	return out
}

func payloads(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(data), &m))
			out = append(out, m)
		}
	}
	return out
}

func TestAutoplayEventsCarryTurnFromZero(t *testing.T) {
	r, svc := setup(t)
	conv, err := svc.StartDual(context.Background(), "grandma", "aunt")
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+conv.ID+"?turns=2", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	got := payloads(t, resp.Body.String())
	require.Len(t, got, 4)
	var turns []float64
	for _, p := range got {
		turn, ok := p["turn"]
		require.True(t, ok, "event without turn: %v", p)
		turns = append(turns, turn.(float64))
	}
	assert.Equal(t, []float64{0, 0, 1, 2}, turns)
	assert.Equal(t, "grandma", got[1]["speaker"])
}

func TestAutoplayAlternatesSpeakers(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()
	conv, err := svc.StartDual(ctx, "aunt", "grandfa")
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+conv.ID+"?turns=3", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	assert.Equal(t, []string{"start", "message", "message", "message", "end"}, events(resp.Body.String()))

	transcript, err := svc.Transcript(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, []string{"aunt", "grandfa", "aunt"},
		[]string{transcript[0].Speaker, transcript[1].Speaker, transcript[2].Speaker})
}

func TestAutoplayRejects(t *testing.T) {
	r, svc := setup(t)
	single, err := svc.StartSingle(context.Background(), "grandma")
	require.NoError(t, err)
	dual, err := svc.StartDual(context.Background(), "grandma", "grandfa")
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing conversation", "/stream/nope", http.StatusNotFound},
		{"operator conversation", "/stream/" + single.ID, http.StatusBadRequest},
		{"too many turns", "/stream/" + dual.ID + "?turns=99", http.StatusBadRequest},
		{"bad turns", "/stream/" + dual.ID + "?turns=x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}
