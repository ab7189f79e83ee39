package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"pingchat/internal/pkg/logx"
)

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres wraps an initialized pool (see NewPool) in a Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:   pool,
		logger: logx.Logger().With().Str("component", "store").Logger(),
	}
}

func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash, avatar string) (User, error) {
	if username == PublicReceiver {
		return User{}, ErrUsernameReserved
	}

	var u User
	sql := `insert into users (username, password_hash, avatar)
			values ($1, $2, $3)
			returning id, username, password_hash, avatar, created_at`

	err := p.pool.QueryRow(ctx, sql, username, passwordHash, avatar).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Avatar, &u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	p.logger.Debug().Str("username", username).Msg("User created")

	return u, nil
}

func (p *Postgres) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	sql := `select id, username, password_hash, avatar, created_at
			  from users
			 where username = $1`

	err := p.pool.QueryRow(ctx, sql, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Avatar, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("user by username: %w", err)
	}

	return u, nil
}

func (p *Postgres) UpdateAvatar(ctx context.Context, username, avatar string) (User, error) {
	var u User
	sql := `update users
			   set avatar = $2
			 where username = $1
			returning id, username, password_hash, avatar, created_at`

	err := p.pool.QueryRow(ctx, sql, username, avatar).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Avatar, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("update avatar: %w", err)
	}

	p.logger.Debug().Str("username", username).Msg("Avatar updated")

	return u, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	sql := `select id, username, password_hash, avatar, created_at
			  from users
			 order by id asc`

	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Avatar, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("list users scan: %w", err)
		}
		users = append(users, u)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("list users rows: %w", rows.Err())
	}

	return users, nil
}

func (p *Postgres) AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error) {
	var m Message
	sql := `insert into messages (sender, receiver, text, image, avatar, is_read)
			values ($1, $2, $3, $4, $5, false)
			returning id, sender, receiver, text, image, avatar, is_read, created_at`

	err := p.pool.QueryRow(ctx, sql,
		params.Sender, params.Receiver, params.Text, params.Image, params.Avatar).
		Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.Image, &m.Avatar, &m.IsRead, &m.Timestamp)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}

	p.logger.Debug().
		Int64("message_id", m.ID).
		Str("sender", m.Sender).
		Str("receiver", m.Receiver).
		Msg("Message persisted")

	return m, nil
}

// messageColumns is the select list shared by every message query; the scan
// order in scanMessages must match it.
const messageColumns = "id, sender, receiver, text, image, avatar, is_read, created_at"

func scanMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.Image, &m.Avatar, &m.IsRead, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("message rows: %w", rows.Err())
	}

	return messages, nil
}

func (p *Postgres) Conversation(ctx context.Context, userA, userB string, limit int) ([]Message, error) {
	sql := fmt.Sprintf(`select %s from (
				select %s
				  from messages
				 where (sender = $1 and receiver = $2)
					or (sender = $2 and receiver = $1)
				 order by created_at desc, id desc
				 limit $3
			) recent
			order by created_at asc, id asc`, messageColumns, messageColumns)

	rows, err := p.pool.Query(ctx, sql, userA, userB, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}

	return scanMessages(rows)
}

func (p *Postgres) PublicHistory(ctx context.Context, limit int) ([]Message, error) {
	sql := fmt.Sprintf(`select %s from (
				select %s
				  from messages
				 where receiver = $1
				 order by created_at desc, id desc
				 limit $2
			) recent
			order by created_at asc, id asc`, messageColumns, messageColumns)

	rows, err := p.pool.Query(ctx, sql, PublicReceiver, limit)
	if err != nil {
		return nil, fmt.Errorf("public history: %w", err)
	}

	return scanMessages(rows)
}

func (p *Postgres) UserHistory(ctx context.Context, username string, limit int) ([]Message, error) {
	sql := fmt.Sprintf(`select %s from (
				select %s
				  from messages
				 where sender = $1 or receiver = $1
				 order by created_at desc, id desc
				 limit $2
			) recent
			order by created_at asc, id asc`, messageColumns, messageColumns)

	rows, err := p.pool.Query(ctx, sql, username, limit)
	if err != nil {
		return nil, fmt.Errorf("user history: %w", err)
	}

	return scanMessages(rows)
}

func (p *Postgres) LastMessageBetween(ctx context.Context, userA, userB string) (*Message, error) {
	var m Message
	sql := fmt.Sprintf(`select %s
			  from messages
			 where (sender = $1 and receiver = $2)
				or (sender = $2 and receiver = $1)
			 order by created_at desc, id desc
			 limit 1`, messageColumns)

	err := p.pool.QueryRow(ctx, sql, userA, userB).
		Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.Image, &m.Avatar, &m.IsRead, &m.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last message between: %w", err)
	}

	return &m, nil
}

func (p *Postgres) MarkRead(ctx context.Context, sender, receiver string) error {
	sql := `update messages
			   set is_read = true
			 where sender = $1 and receiver = $2 and is_read = false`

	tag, err := p.pool.Exec(ctx, sql, sender, receiver)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	p.logger.Debug().
		Str("sender", sender).
		Str("receiver", receiver).
		Int64("flipped", tag.RowsAffected()).
		Msg("Marked conversation read")

	return nil
}

func (p *Postgres) UnreadSenders(ctx context.Context, receiver string) ([]string, error) {
	sql := `select distinct sender
			  from messages
			 where receiver = $1 and is_read = false`

	rows, err := p.pool.Query(ctx, sql, receiver)
	if err != nil {
		return nil, fmt.Errorf("unread senders: %w", err)
	}
	defer rows.Close()

	var senders []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("unread senders scan: %w", err)
		}
		senders = append(senders, s)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("unread senders rows: %w", rows.Err())
	}

	return senders, nil
}
