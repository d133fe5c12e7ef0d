package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/model/chat"
	chatservice "github.com/ourhouse/backend/internal/service/chat"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestConversationRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	created, err := store.CreateConversation(ctx, chat.ModeSingle, "me", "grandma")
	require.NoError(t, err)

	got, err := store.GetConversation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, chat.ModeSingle, got.Mode)
	assert.Equal(t, [2]string{"me", "grandma"}, got.Participants)
	assert.Equal(t, created.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestGetConversationMissing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, chatservice.ErrConversationMissing)
}

func TestTranscriptKeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	conversation, err := store.CreateConversation(ctx, chat.ModeDual, "aunt", "grandfa")
	require.NoError(t, err)

	_, err = store.AppendMessages(ctx, conversation.ID,
		chat.Message{Speaker: "aunt", Role: chat.RoleAssistant, Content: "아버지, 식사하셨어요?"},
	)
	require.NoError(t, err)
	_, err = store.AppendMessages(ctx, conversation.ID,
		chat.Message{Speaker: "grandfa", Role: chat.RoleAssistant, Content: "그래, 먹었다."},
		chat.Message{Speaker: "aunt", Role: chat.RoleAssistant, Content: "다행이에요."},
	)
	require.NoError(t, err)

	transcript, err := store.LoadTranscript(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, "아버지, 식사하셨어요?", transcript[0].Content)
	assert.Equal(t, "grandfa", transcript[1].Speaker)
	assert.Equal(t, "다행이에요.", transcript[2].Content)
	assert.Equal(t, chat.RoleAssistant, transcript[2].Role)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conversations.db")
	store, err := Open(path)
	require.NoError(t, err)

	conversation, err := store.CreateConversation(context.Background(), chat.ModeDual, "aunt", "grandma")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetConversation(context.Background(), conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, got.ID)
}

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", upSection(content))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}
