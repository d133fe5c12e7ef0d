// Package dialogue is the server side of the conversation scene: it opens
// conversations between household personas and produces each exchange.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/model/chat"
	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/ai"
	chatservice "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/pkg/logging"
)

var (
	ErrSameParticipant       = errors.New("participants must differ")
	ErrOperatorNotAgent      = errors.New("operator cannot be the single-conversation agent")
	ErrSpeakerNotParticipant = errors.New("speaker is not part of the conversation")
	ErrMessageRequired       = errors.New("operator message is required")
	ErrUnexpectedMessage     = errors.New("agents speak without a message")
	ErrGeneration            = errors.New("failed to generate reply")
)

// Generator produces one persona line. ai.Service and ai.Scripted implement it.
type Generator interface {
	Reply(ctx context.Context, req ai.Request) (string, error)
}

// Service 负责会话的创建与推进。
type Service struct {
	store    chatservice.Store
	personas persona.Store
	gen      Generator
	timeout  time.Duration
	logger   logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wires the dialogue service.
func New(store chatservice.Store, personas persona.Store, gen Generator, opts ...Option) *Service {
	s := &Service{
		store:    store,
		personas: personas,
		gen:      gen,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSingle opens a conversation between the operator and agentID.
func (s *Service) StartSingle(ctx context.Context, agentID string) (chat.Conversation, error) {
	if persona.IsOperator(agentID) {
		return chat.Conversation{}, ErrOperatorNotAgent
	}
	if _, err := s.lookup(agentID); err != nil {
		return chat.Conversation{}, err
	}

	conv, err := s.store.CreateConversation(ctx, chat.ModeSingle, persona.Operator, agentID)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"conversation_id": conv.ID, "agent": agentID}).Info("single conversation started")
	return conv, nil
}

// StartDual opens a conversation between two personas, in speaking order.
func (s *Service) StartDual(ctx context.Context, first, second string) (chat.Conversation, error) {
	for _, id := range []string{first, second} {
		if _, err := s.lookup(id); err != nil {
			return chat.Conversation{}, err
		}
	}
	if first == second {
		return chat.Conversation{}, ErrSameParticipant
	}

	conv, err := s.store.CreateConversation(ctx, chat.ModeDual, first, second)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"conversation_id": conv.ID, "first": first, "second": second}).Info("dual conversation started")
	return conv, nil
}

// Continue performs one exchange and returns only the messages it produced.
//
// When the operator speaks, message is required: it is stored together with
// the partner's reply and both are returned. An agent speaks on its own
// (message must be nil) and the single generated line is returned.
func (s *Service) Continue(ctx context.Context, conversationID string, message *string, speakerID string) ([]chat.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(speakerID) {
		return nil, ErrSpeakerNotParticipant
	}

	transcript, err := s.store.LoadTranscript(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"conversation_id": conversationID, "speaker": speakerID})

	if persona.IsOperator(speakerID) {
		if message == nil || strings.TrimSpace(*message) == "" {
			return nil, ErrMessageRequired
		}
		text := strings.TrimSpace(*message)
		partnerID := conv.Partner(speakerID)

		echo := chat.Message{Speaker: speakerID, Role: chat.RoleUser, Content: text}
		reply, err := s.generate(ctx, conv, partnerID, append(transcript, echo), text)
		if err != nil {
			log.WithError(err).Warn("reply generation failed")
			return nil, err
		}

		stored, err := s.store.AppendMessages(ctx, conversationID, echo, reply)
		if err != nil {
			return nil, fmt.Errorf("append messages: %w", err)
		}
		log.WithField("partner", partnerID).Debug("operator exchange stored")
		return stored, nil
	}

	if message != nil {
		return nil, ErrUnexpectedMessage
	}

	query := ""
	if n := len(transcript); n > 0 && transcript[n-1].Speaker != speakerID {
		query = transcript[n-1].Content
	}
	line, err := s.generate(ctx, conv, speakerID, transcript, query)
	if err != nil {
		log.WithError(err).Warn("line generation failed")
		return nil, err
	}

	stored, err := s.store.AppendMessages(ctx, conversationID, line)
	if err != nil {
		return nil, fmt.Errorf("append messages: %w", err)
	}
	return stored, nil
}

// Conversation returns the stored conversation.
func (s *Service) Conversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	return s.store.GetConversation(ctx, conversationID)
}

// Transcript returns every stored message of a conversation.
func (s *Service) Transcript(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return s.store.LoadTranscript(ctx, conversationID)
}

func (s *Service) generate(ctx context.Context, conv chat.Conversation, speakerID string, history []chat.Message, query string) (chat.Message, error) {
	speaker, err := s.lookup(speakerID)
	if err != nil {
		return chat.Message{}, err
	}
	listener, err := s.lookup(conv.Partner(speakerID))
	if err != nil {
		return chat.Message{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.gen.Reply(ctx, ai.Request{
		ConversationID: conv.ID,
		Speaker:        speaker,
		Listener:       listener,
		History:        history,
		Query:          query,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	return chat.Message{Speaker: speakerID, Role: chat.RoleAssistant, Content: content}, nil
}

func (s *Service) lookup(id string) (persona.Persona, error) {
	if strings.TrimSpace(id) == "" {
		return persona.Persona{}, chatservice.ErrParticipantRequired
	}
	p, ok := s.personas.FindByID(id)
	if !ok {
		return persona.Persona{}, fmt.Errorf("%w: %s", persona.ErrUnknownPersona, id)
	}
	return p, nil
}
