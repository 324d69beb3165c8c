package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

// PostgresStore persists conversations in PostgreSQL via pgx. Conversations
// are the highest-write-rate table, so this store uses the native pgx
// interface rather than database/sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a pgx-backed conversation store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, conversation *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, child_id, started_at, last_activity_at, message_count, retain_until, delete_on_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		uuid.UUID(conversation.ID),
		uuid.UUID(conversation.ChildID),
		conversation.StartedAt,
		conversation.LastActivityAt,
		conversation.MessageCount,
		conversation.RetainUntil,
		conversation.DeleteOnExpiry,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

const selectConversation = `
	SELECT id, child_id, started_at, last_activity_at, message_count, retain_until, delete_on_expiry
	FROM conversations
`

func (s *PostgresStore) FindByID(ctx context.Context, conversationID id.ConversationID) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, selectConversation+` WHERE id = $1`, uuid.UUID(conversationID))

	conversation, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return conversation, nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.Conversation, error) {
	rows, err := s.pool.Query(ctx, selectConversation+` WHERE child_id = $1 ORDER BY started_at`, uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, conversation)
	}
	return out, rows.Err()
}

// AppendMessage inserts the turn and bumps the conversation counters in one
// transaction.
func (s *PostgresStore) AppendMessage(ctx context.Context, message *models.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET message_count = message_count + 1, last_activity_at = $1 WHERE id = $2`,
		message.CreatedAt, uuid.UUID(message.ConversationID))
	if err != nil {
		return fmt.Errorf("bump conversation counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID,
		uuid.UUID(message.ConversationID),
		string(message.Role),
		message.Content,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID id.ConversationID) ([]*models.Message, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`,
		uuid.UUID(conversationID)).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check conversation: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM conversation_messages WHERE conversation_id = $1 ORDER BY created_at`,
		uuid.UUID(conversationID))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var (
			conversationUUID uuid.UUID
			role             string
			message          models.Message
		)
		if err := rows.Scan(&message.ID, &conversationUUID, &role, &message.Content, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		message.ConversationID = id.ConversationID(conversationUUID)
		message.Role = models.Role(role)
		out = append(out, &message)
	}
	return out, rows.Err()
}

// DeleteByChild erases a child's conversations and messages. Messages go
// first so a failure can never leave orphaned transcript content behind.
func (s *PostgresStore) DeleteByChild(ctx context.Context, childID id.ChildID) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin erase: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`DELETE FROM conversation_messages
		 WHERE conversation_id IN (SELECT id FROM conversations WHERE child_id = $1)`,
		uuid.UUID(childID))
	if err != nil {
		return 0, fmt.Errorf("erase messages: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM conversations WHERE child_id = $1`, uuid.UUID(childID))
	if err != nil {
		return 0, fmt.Errorf("erase conversations: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit erase: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired erases one batch of expired conversations.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx,
		`SELECT id FROM conversations
		 WHERE delete_on_expiry AND retain_until < $1
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		now, limit)
	if err != nil {
		return 0, fmt.Errorf("select expired: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var conversationID uuid.UUID
		if err := rows.Scan(&conversationID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired: %w", err)
		}
		ids = append(ids, conversationID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate expired: %w", err)
	}
	if len(ids) == 0 {
		return 0, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM conversation_messages WHERE conversation_id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("purge conversations: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var (
		conversationID uuid.UUID
		childID        uuid.UUID
		conversation   models.Conversation
	)
	err := row.Scan(
		&conversationID,
		&childID,
		&conversation.StartedAt,
		&conversation.LastActivityAt,
		&conversation.MessageCount,
		&conversation.RetainUntil,
		&conversation.DeleteOnExpiry,
	)
	if err != nil {
		return nil, err
	}
	conversation.ID = id.ConversationID(conversationID)
	conversation.ChildID = id.ChildID(childID)
	return &conversation, nil
}
