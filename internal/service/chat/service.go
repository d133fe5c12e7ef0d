package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/ourhouse/backend/internal/model/chat"
)

var (
	ErrParticipantRequired = errors.New("participant id is required")
	ErrConversationMissing = errors.New("conversation not found")
)

// Store persists conversations and their transcripts.
type Store interface {
	CreateConversation(ctx context.Context, mode chat.Mode, first, second string) (chat.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error)
	AppendMessages(ctx context.Context, conversationID string, messages ...chat.Message) ([]chat.Message, error)
	LoadTranscript(ctx context.Context, conversationID string) ([]chat.Message, error)
}

// NewConversation validates participants and stamps a fresh opaque id.
func NewConversation(mode chat.Mode, first, second string) (chat.Conversation, error) {
	if first == "" || second == "" {
		return chat.Conversation{}, ErrParticipantRequired
	}
	return chat.Conversation{
		ID:           uuid.NewString(),
		Mode:         mode,
		Participants: [2]string{first, second},
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// StampMessage assigns an arrival-ordered id and creation time.
func StampMessage(conversationID string, message chat.Message) chat.Message {
	message.ID = ulid.Make().String()
	message.ConversationID = conversationID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	return message
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
}

// NewMemoryStore bootstraps the in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// CreateConversation provisions a conversation between two personas.
func (s *MemoryStore) CreateConversation(_ context.Context, mode chat.Mode, first, second string) (chat.Conversation, error) {
	conversation, err := NewConversation(mode, first, second)
	if err != nil {
		return chat.Conversation{}, err
	}

	s.mu.Lock()
	s.conversations[conversation.ID] = conversation
	s.messages[conversation.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return conversation, nil
}

// GetConversation retrieves a conversation by identifier.
func (s *MemoryStore) GetConversation(_ context.Context, conversationID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationMissing
	}
	return conversation, nil
}

// AppendMessages appends messages atomically and returns them as stored.
func (s *MemoryStore) AppendMessages(_ context.Context, conversationID string, messages ...chat.Message) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrConversationMissing
	}

	stored := make([]chat.Message, 0, len(messages))
	for _, message := range messages {
		stored = append(stored, StampMessage(conversationID, message))
	}
	s.messages[conversationID] = append(s.messages[conversationID], stored...)
	return stored, nil
}

// LoadTranscript returns stored messages for the provided conversation.
func (s *MemoryStore) LoadTranscript(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[conversationID]
	if !ok {
		return nil, ErrConversationMissing
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
