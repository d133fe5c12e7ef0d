package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/config"
	"github.com/ourhouse/backend/internal/model/chat"
	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/pkg/logging"
)

// ErrEmptyReply is returned when the model produced only whitespace.
var ErrEmptyReply = errors.New("model returned an empty reply")

const defaultHistoryLimit = 10

// Request describes one line to generate: who speaks, to whom, and what was said so far.
type Request struct {
	ConversationID string
	Speaker        persona.Persona
	Listener       persona.Persona
	History        []chat.Message
	// Query is the line the speaker answers; blank when the speaker opens or continues on its own.
	Query string
}

// Service generates persona lines with an eino chain over a chat model.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	prompts      *PersonaPromptManager
	historyLimit int
	logger       logrus.FieldLogger
}

// NewService builds the Ark chat model from cfg and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig, historyLimit int, logger logrus.FieldLogger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, historyLimit, logger)
}

// NewServiceWithModel compiles the chain over an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, historyLimit int, logger logrus.FieldLogger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Service{
		chain:        runnable,
		prompts:      NewPersonaPromptManager(),
		historyLimit: historyLimit,
		logger:       logger,
	}, nil
}

// Reply generates the speaker's next line.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"system":  s.prompts.BuildSystemPrompt(req.Speaker, req.Listener),
		"history": s.buildHistoryMessages(req.Speaker.ID, req.History),
		"query":   s.buildQuery(req),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	s.logger.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"speaker":         req.Speaker.ID,
		"listener":        req.Listener.ID,
		"length":          len(content),
	}).Debug("generated persona line")
	return content, nil
}

// Fortune 根据名字生成今日运势。
func (s *Service) Fortune(ctx context.Context, name string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  fortunePrompt,
		"history": []*schema.Message(nil),
		"query":   fmt.Sprintf("이름: %s", name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run fortune chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

func (s *Service) buildQuery(req Request) string {
	if q := strings.TrimSpace(req.Query); q != "" {
		return q
	}
	if len(req.History) == 0 {
		return fmt.Sprintf("(%s에게 먼저 말을 걸어 주세요.)", req.Listener.Name)
	}
	return fmt.Sprintf("(%s와의 대화를 자연스럽게 이어서 한마디 해 주세요.)", req.Listener.Name)
}

// buildHistoryMessages maps the transcript onto the speaker's point of view:
// its own lines become assistant turns, everything else user turns.
func (s *Service) buildHistoryMessages(speakerID string, messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Speaker == speakerID {
			history = append(history, schema.AssistantMessage(msg.Content, nil))
			continue
		}
		history = append(history, schema.UserMessage(msg.Content))
	}
	return history
}

const fortunePrompt = `당신은 동네에서 용하다고 소문난 점쟁이 할머니입니다.
사용자가 알려준 이름으로 오늘의 운세를 봐 주세요.

규칙:
- 전체 운, 금전운, 건강운, 애정운을 한두 문장씩 이야기합니다.
- 각 항목의 제목은 **굵게** 표시합니다.
- 따뜻하고 희망적인 말투를 유지하고, 마지막에 행운의 색과 숫자를 알려 줍니다.`
