package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ourhouse/backend/internal/conversation"
)

func TestStartCallsMatchingEndpoints(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["path"] = r.URL.Path
		got = append(got, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"conversationId":"abc"}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	id, err := c.StartSingle(ctx, "grandma")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	id, err = c.StartDual(ctx, "aunt", "grandfa")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	assert.Equal(t, []map[string]string{
		{"path": "/api/startSingleConversation", "gptId": "grandma"},
		{"path": "/api/startConversation", "gpt1Id": "aunt", "gpt2Id": "grandfa"},
	}, got)
}

func TestContinueSendsNullMessageForAgents(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"messages":[{"speaker":"aunt","role":"assistant","content":"밥 먹었니?"}]}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL).Continue(context.Background(), "abc", nil, "aunt")
	require.NoError(t, err)

	assert.Equal(t, "abc", raw["conversationId"])
	assert.Equal(t, "aunt", raw["speakerId"])
	v, present := raw["userMessage"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, []conversation.Utterance{
		{Role: conversation.RoleAgent, Speaker: "aunt", Content: "밥 먹었니?"},
	}, out)
}

func TestNormalizeShapes(t *testing.T) {
	body := `{"messages":[
		{"speaker":"me","content":"안녕하세요!"},
		{"speaker":"grandma","content":"환영해요"},
		{"role":"user","content":"네"},
		{"role":"assistant","speakerId":"grandfa","text":"왔느냐"}
	]}`

	got := Normalize(gjson.Get(body, "messages"))
	assert.Equal(t, []conversation.Utterance{
		{Role: conversation.RoleOperator, Speaker: "me", Content: "안녕하세요!"},
		{Role: conversation.RoleAgent, Speaker: "grandma", Content: "환영해요"},
		{Role: conversation.RoleOperator, Content: "네"},
		{Role: conversation.RoleAgent, Speaker: "grandfa", Content: "왔느냐"},
	}, got)
}

func TestNon2xxFailsWholeCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"generation failed","messages":[{"content":"partial"}]}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL).Continue(context.Background(), "abc", nil, "aunt")
	assert.ErrorIs(t, err, ErrStatus)
	assert.ErrorContains(t, err, "generation failed")
	assert.Nil(t, out)

	_, err = New(srv.URL).StartSingle(context.Background(), "aunt")
	assert.ErrorIs(t, err, ErrStatus)
}

func TestMalformedBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.StartDual(context.Background(), "aunt", "grandma")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = c.Continue(context.Background(), "abc", nil, "aunt")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPersonas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/personas", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"me","name":"나"},{"id":"aunt","name":"고모"}]`))
	}))
	defer srv.Close()

	items, err := New(srv.URL).Personas(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "고모", items[1].Name)
}
