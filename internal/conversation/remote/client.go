// Package remote talks to the dialogue HTTP API and implements
// conversation.DialogueService on top of it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/persona"
)

// maxBody 限制单次响应体大小。
const maxBody = 1 << 20

var (
	// ErrStatus wraps every non-2xx response.
	ErrStatus = errors.New("dialogue api returned error status")
	// ErrMalformed reports a 2xx response without the expected fields.
	ErrMalformed = errors.New("dialogue api returned malformed body")
)

// Client 是对话服务的 HTTP 客户端。
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ conversation.DialogueService = (*Client)(nil)

// StartSingle 开启与单个角色的对话。
func (c *Client) StartSingle(ctx context.Context, agentID string) (string, error) {
	body, err := c.post(ctx, "/api/startSingleConversation", map[string]string{"gptId": agentID})
	if err != nil {
		return "", err
	}
	return conversationID(body)
}

// StartDual 开启两个角色之间的对话。
func (c *Client) StartDual(ctx context.Context, agentID1, agentID2 string) (string, error) {
	body, err := c.post(ctx, "/api/startConversation", map[string]string{
		"gpt1Id": agentID1,
		"gpt2Id": agentID2,
	})
	if err != nil {
		return "", err
	}
	return conversationID(body)
}

// Continue 推进一轮对话，返回本轮新增的发言。
func (c *Client) Continue(ctx context.Context, sessionID string, message *string, speakerID string) ([]conversation.Utterance, error) {
	payload := struct {
		ConversationID string  `json:"conversationId"`
		UserMessage    *string `json:"userMessage"`
		SpeakerID      string  `json:"speakerId"`
	}{sessionID, message, speakerID}

	body, err := c.post(ctx, "/api/continueConversation", payload)
	if err != nil {
		return nil, err
	}

	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return nil, fmt.Errorf("%w: missing messages", ErrMalformed)
	}
	return Normalize(messages), nil
}

// Normalize maps the message shapes the API has used over time onto Utterance.
// A message is operator-authored when its role says so (user/operator) or,
// lacking a role, when its speaker is the operator persona.
func Normalize(messages gjson.Result) []conversation.Utterance {
	var out []conversation.Utterance
	messages.ForEach(func(_, item gjson.Result) bool {
		content := item.Get("content")
		if !content.Exists() {
			content = item.Get("text")
		}
		speaker := item.Get("speaker").String()
		if speaker == "" {
			speaker = item.Get("speakerId").String()
		}

		role := conversation.RoleAgent
		switch strings.ToLower(item.Get("role").String()) {
		case "user", "operator", "human":
			role = conversation.RoleOperator
		case "assistant", "agent", "ai":
		default:
			if persona.IsOperator(speaker) {
				role = conversation.RoleOperator
			}
		}

		out = append(out, conversation.Utterance{
			Role:    role,
			Speaker: speaker,
			Content: content.String(),
		})
		return true
	})
	return out
}

// Personas fetches the persona catalog served by the API.
func (c *Client) Personas(ctx context.Context) ([]persona.Persona, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/personas", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req, "/api/personas")
	if err != nil {
		return nil, err
	}

	var items []persona.Persona
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return items, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s %d: %s", ErrStatus, path, resp.StatusCode, msg)
	}
	return body, nil
}

func conversationID(body []byte) (string, error) {
	id := gjson.GetBytes(body, "conversationId").String()
	if id == "" {
		return "", fmt.Errorf("%w: missing conversationId", ErrMalformed)
	}
	return id, nil
}
