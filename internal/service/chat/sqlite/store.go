// Package sqlite provides a SQLite-backed conversation store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ourhouse/backend/internal/model/chat"
	chatservice "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/chat/sqlite/migrations"
)

const migrationTable = "schema_migrations"

// Store persists conversations in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ chatservice.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite conversation store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateConversation inserts one conversation record.
func (s *Store) CreateConversation(ctx context.Context, mode chat.Mode, first, second string) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}
	conversation, err := chatservice.NewConversation(mode, first, second)
	if err != nil {
		return chat.Conversation{}, err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO conversations (id, mode, first_participant, second_participant, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conversation.ID,
		string(conversation.Mode),
		conversation.Participants[0],
		conversation.Participants[1],
		toMillis(conversation.CreatedAt),
	)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil
}

// GetConversation returns one conversation by id.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}

	var (
		conversation chat.Conversation
		mode         string
		createdAt    int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, mode, first_participant, second_participant, created_at
		 FROM conversations WHERE id = ?`,
		conversationID,
	)
	err := row.Scan(&conversation.ID, &mode, &conversation.Participants[0], &conversation.Participants[1], &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat.Conversation{}, chatservice.ErrConversationMissing
		}
		return chat.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	conversation.Mode = chat.Mode(mode)
	conversation.CreatedAt = fromMillis(createdAt)
	return conversation, nil
}

// AppendMessages stores messages in one transaction.
func (s *Store) AppendMessages(ctx context.Context, conversationID string, messages ...chat.Message) ([]chat.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}

	stored := make([]chat.Message, 0, len(messages))
	for _, message := range messages {
		message = chatservice.StampMessage(conversationID, message)
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO messages (id, conversation_id, speaker, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			message.ID,
			message.ConversationID,
			message.Speaker,
			string(message.Role),
			message.Content,
			toMillis(message.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("append message: %w", err)
		}
		stored = append(stored, message)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return stored, nil
}

// LoadTranscript returns the conversation messages in arrival order.
func (s *Store) LoadTranscript(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, speaker, role, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			message   chat.Message
			role      string
			createdAt int64
		)
		if err := rows.Scan(&message.ID, &message.Speaker, &role, &message.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		message.ConversationID = conversationID
		message.Role = chat.Role(role)
		message.CreatedAt = fromMillis(createdAt)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return messages, nil
}

// applyMigrations executes each embedded migration at most once.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`, migrationTable)
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range sqlFiles {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file,
			time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func upSection(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		body = body[:downIdx]
	}
	return body
}
