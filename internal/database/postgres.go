package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/models"
	"roomchat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string, maxConns int) (*PostgresDB, error) {
	pc, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		pc.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.pool.Ping(ctx)
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// User Repository Implementation
const userColumns = `id, email, full_name, avatar_url, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var avatar *string
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &avatar, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.AvatarURL = deref(avatar)
	return user, nil
}

func (db *PostgresDB) getUser(ctx context.Context, where string, arg any) (*models.User, bool, error) {
	user, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (db *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, full_name, avatar_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.pool.Exec(ctx, query,
		user.ID, user.Email, user.FullName, nullable(user.AvatarURL), user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPgError(err))
	}
	return nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return db.getUser(ctx, `lower(email) = lower($1)`, email)
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, bool, error) {
	return db.getUser(ctx, `id = $1`, id)
}

// Room Repository Implementation
func (db *PostgresDB) CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.Membership, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rooms (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		room.ID, room.Name, room.CreatedBy, room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", mapPgError(err))
	}

	member, err := insertMembership(ctx, tx, room.ID, room.CreatedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return member, nil
}

func (db *PostgresDB) GetRoomByID(ctx context.Context, id string) (*models.Room, bool, error) {
	query := `SELECT id, name, created_by, created_at FROM rooms WHERE id = $1`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, id).Scan(&room.ID, &room.Name, &room.CreatedBy, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return room, true, nil
}

func (db *PostgresDB) ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.created_by, r.created_at
		FROM room_members m
		JOIN rooms r ON r.id = m.room_id
		WHERE m.user_id = $1
		ORDER BY r.created_at, r.id`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*models.Room, 0)
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedBy, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Membership Repository Implementation
func insertMembership(ctx context.Context, q querier, roomID, userID string) (*models.Membership, error) {
	query := `
		INSERT INTO room_members (room_id, user_id, joined_at) VALUES ($1, $2, NOW())
		RETURNING room_id, user_id, joined_at`

	m := &models.Membership{}
	if err := q.QueryRow(ctx, query, roomID, userID).Scan(&m.RoomID, &m.UserID, &m.JoinedAt); err != nil {
		return nil, fmt.Errorf("failed to add membership: %w", mapPgError(err))
	}
	return m, nil
}

func (db *PostgresDB) AddMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	return insertMembership(ctx, db.pool, roomID, userID)
}

func (db *PostgresDB) GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, bool, error) {
	query := `SELECT room_id, user_id, joined_at FROM room_members WHERE room_id = $1 AND user_id = $2`

	m := &models.Membership{}
	err := db.pool.QueryRow(ctx, query, roomID, userID).Scan(&m.RoomID, &m.UserID, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Message Repository Implementation
func (db *PostgresDB) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (id, room_id, user_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := db.pool.Exec(ctx, query, msg.ID, msg.RoomID, msg.UserID, msg.Content, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to save message: %w", mapPgError(err))
	}
	return nil
}

func (db *PostgresDB) ListMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, m.content, m.created_at,
		       u.id, u.full_name, u.avatar_url
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at ASC, m.id ASC`

	rows, err := db.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		var avatar *string
		msg := &models.Message{User: &models.Profile{}}
		if err := rows.Scan(
			&msg.ID, &msg.RoomID, &msg.UserID, &msg.Content, &msg.CreatedAt,
			&msg.User.ID, &msg.User.FullName, &avatar,
		); err != nil {
			return nil, err
		}
		msg.User.AvatarURL = deref(avatar)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Typing Repository Implementation
func (db *PostgresDB) UpsertTyping(ctx context.Context, flag *models.TypingFlag) (bool, error) {
	// xmax is 0 only for a freshly inserted row version.
	query := `
		INSERT INTO typing_users (room_id, user_id, is_typing, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`

	var inserted bool
	err := db.pool.QueryRow(ctx, query, flag.RoomID, flag.UserID, flag.IsTyping, flag.UpdatedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert typing flag: %w", err)
	}
	return inserted, nil
}

func (db *PostgresDB) ListTypingUsers(ctx context.Context, roomID string, since time.Time) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.full_name, u.avatar_url, u.created_at, u.updated_at
		FROM typing_users t
		JOIN users u ON u.id = t.user_id
		WHERE t.room_id = $1 AND t.is_typing AND t.updated_at > $2
		ORDER BY t.updated_at, u.id`

	rows, err := db.pool.Query(ctx, query, roomID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var avatar *string
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.AvatarURL = deref(avatar)
		users = append(users, u)
	}
	return users, rows.Err()
}
