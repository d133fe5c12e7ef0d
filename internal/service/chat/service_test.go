package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/model/chat"
	chatservice "github.com/ourhouse/backend/internal/service/chat"
)

func TestMemoryStoreGetConversation(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	conversation, err := store.CreateConversation(ctx, chat.ModeDual, "aunt", "grandfa")
	require.NoError(t, err)

	got, err := store.GetConversation(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, got.ID)
	assert.Equal(t, [2]string{"aunt", "grandfa"}, got.Participants)
	assert.Equal(t, chat.ModeDual, got.Mode)
}

func TestMemoryStoreGetConversationNotFound(t *testing.T) {
	store := chatservice.NewMemoryStore()

	_, err := store.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, chatservice.ErrConversationMissing)
}

func TestMemoryStoreRequiresParticipants(t *testing.T) {
	store := chatservice.NewMemoryStore()

	_, err := store.CreateConversation(context.Background(), chat.ModeSingle, "me", "")
	assert.ErrorIs(t, err, chatservice.ErrParticipantRequired)
}

func TestMemoryStoreAppendKeepsOrder(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	conversation, err := store.CreateConversation(ctx, chat.ModeSingle, "me", "grandma")
	require.NoError(t, err)

	stored, err := store.AppendMessages(ctx, conversation.ID,
		chat.Message{Speaker: "me", Role: chat.RoleUser, Content: "안녕하세요!"},
		chat.Message{Speaker: "grandma", Role: chat.RoleAssistant, Content: "환영해요"},
	)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.Less(t, stored[0].ID, stored[1].ID)

	transcript, err := store.LoadTranscript(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "안녕하세요!", transcript[0].Content)
	assert.Equal(t, "환영해요", transcript[1].Content)
	assert.Equal(t, conversation.ID, transcript[1].ConversationID)
}

func TestMemoryStoreAppendUnknownConversation(t *testing.T) {
	store := chatservice.NewMemoryStore()

	_, err := store.AppendMessages(context.Background(), "missing", chat.Message{Content: "x"})
	assert.ErrorIs(t, err, chatservice.ErrConversationMissing)
}
