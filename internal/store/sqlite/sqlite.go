package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/paperdesk/paperchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed papers and attempts.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a sqlite uniqueness constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ==== OwnershipStore implementation ====

// GetPaper retrieves a paper by ID.
func (s *SQLiteStore) GetPaper(ctx context.Context, paperID int64) (*store.Paper, error) {
	query := `
		SELECT id, title, teacher_id, created_at
		FROM papers
		WHERE id = ?
	`
	var paper store.Paper
	err := s.db.QueryRowContext(ctx, query, paperID).Scan(
		&paper.ID,
		&paper.Title,
		&paper.TeacherID,
		&paper.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("paper %d: %w", paperID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query paper: %w", err)
	}

	return &paper, nil
}

// HasAttempt reports whether the student has a recorded attempt on the paper.
func (s *SQLiteStore) HasAttempt(ctx context.Context, paperID, studentID int64) (bool, error) {
	query := `
		SELECT 1 FROM attempts
		WHERE paper_id = ? AND student_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, paperID, studentID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query attempt: %w", err)
	}

	return true, nil
}

// ListPaperIDs returns the papers reachable by the user in the given role.
func (s *SQLiteStore) ListPaperIDs(ctx context.Context, userID int64, role store.Role) ([]int64, error) {
	var query string
	switch role {
	case store.RoleTeacher:
		query = `SELECT id FROM papers WHERE teacher_id = ? ORDER BY id ASC`
	case store.RoleStudent:
		query = `SELECT paper_id FROM attempts WHERE student_id = ? ORDER BY paper_id ASC`
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan paper id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetUserName returns the display name recorded for a user.
func (s *SQLiteStore) GetUserName(ctx context.Context, userID int64) (string, error) {
	query := `SELECT name FROM users WHERE id = ?`
	var name string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
		}
		return "", fmt.Errorf("query user name: %w", err)
	}

	return name, nil
}

// ==== RoomStore implementation ====

// CreateRoom inserts a room for the paper. The UNIQUE constraint on paper_id
// is the idempotency mechanism for concurrent first access.
func (s *SQLiteStore) CreateRoom(ctx context.Context, paperID int64) (*store.Room, error) {
	query := `
		INSERT INTO rooms (paper_id)
		VALUES (?)
	`
	result, err := s.db.ExecContext(ctx, query, paperID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("room for paper %d: %w", paperID, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByPaper retrieves the room for a paper.
func (s *SQLiteStore) GetRoomByPaper(ctx context.Context, paperID int64) (*store.Room, error) {
	query := `
		SELECT id, paper_id, created_at, updated_at
		FROM rooms
		WHERE paper_id = ?
	`
	return s.scanRoom(s.db.QueryRowContext(ctx, query, paperID))
}

// GetRoomByID retrieves a room by its ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, roomID int64) (*store.Room, error) {
	query := `
		SELECT id, paper_id, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`
	return s.scanRoom(s.db.QueryRowContext(ctx, query, roomID))
}

func (s *SQLiteStore) scanRoom(row *sql.Row) (*store.Room, error) {
	var room store.Room
	err := row.Scan(&room.ID, &room.PaperID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// TouchRoom bumps the room's updated_at for recency ordering.
func (s *SQLiteStore) TouchRoom(ctx context.Context, roomID int64, at time.Time) error {
	query := `
		UPDATE rooms SET updated_at = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), roomID); err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// studentVisible is the student's slice of a room: their own messages, plus
// teacher messages addressed to them or to nobody (announcements). Two
// students in the same room never see each other's messages.
const studentVisible = `(sender_id = ? OR (sender_id = ? AND (receiver_id = ? OR receiver_id IS NULL)))`

// SaveMessage persists a message and fills in its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (room_id, sender_id, receiver_id, body, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.RoomID, msg.SenderID, msg.ReceiverID, msg.Body, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListRoomMessages returns every message in the room, oldest first.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) (*store.MessagePage, error) {
	countQuery := `SELECT COUNT(*) FROM messages WHERE room_id = ?`
	listQuery := `
		SELECT id, room_id, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`
	return s.listPage(ctx, countQuery, []any{roomID}, listQuery, []any{roomID, limit, offset}, offset)
}

// ListStudentMessages returns the student's visible slice of the room.
func (s *SQLiteStore) ListStudentMessages(ctx context.Context, roomID, studentID, teacherID int64, limit, offset int) (*store.MessagePage, error) {
	countQuery := `SELECT COUNT(*) FROM messages WHERE room_id = ? AND ` + studentVisible
	listQuery := `
		SELECT id, room_id, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE room_id = ? AND ` + studentVisible + `
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`
	countArgs := []any{roomID, studentID, teacherID, studentID}
	listArgs := []any{roomID, studentID, teacherID, studentID, limit, offset}
	return s.listPage(ctx, countQuery, countArgs, listQuery, listArgs, offset)
}

func (s *SQLiteStore) listPage(ctx context.Context, countQuery string, countArgs []any, listQuery string, listArgs []any, offset int) (*store.MessagePage, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &store.MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  offset+len(messages) < total,
	}, nil
}

// LastRoomMessage returns the newest message in the room.
func (s *SQLiteStore) LastRoomMessage(ctx context.Context, roomID int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("last message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return msg, nil
}

// LastStudentMessage returns the newest message visible to the student.
func (s *SQLiteStore) LastStudentMessage(ctx context.Context, roomID, studentID, teacherID int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE room_id = ? AND ` + studentVisible + `
		ORDER BY id DESC
		LIMIT 1
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, roomID, studentID, teacherID, studentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("last message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return msg, nil
}

// MarkMessageRead flips is_read to true. Idempotent: already-read rows match
// the WHERE clause only once, re-marking is a no-op.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id int64) error {
	query := `
		UPDATE messages SET is_read = 1
		WHERE id = ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// MarkRoomReadForTeacher marks every message not sent by the teacher read.
func (s *SQLiteStore) MarkRoomReadForTeacher(ctx context.Context, roomID, teacherID int64) error {
	query := `
		UPDATE messages SET is_read = 1
		WHERE room_id = ? AND sender_id != ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, teacherID); err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	return nil
}

// MarkRoomReadForStudent marks every message addressed to the student read.
func (s *SQLiteStore) MarkRoomReadForStudent(ctx context.Context, roomID, studentID int64) error {
	query := `
		UPDATE messages SET is_read = 1
		WHERE room_id = ? AND receiver_id = ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, studentID); err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	return nil
}

// CountUnreadForTeacher counts unread messages sent by anyone else.
func (s *SQLiteStore) CountUnreadForTeacher(ctx context.Context, roomID, teacherID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE room_id = ? AND sender_id != ? AND is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, roomID, teacherID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// CountUnreadForStudent counts unread messages addressed to the student.
func (s *SQLiteStore) CountUnreadForStudent(ctx context.Context, roomID, studentID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE room_id = ? AND receiver_id = ? AND is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, roomID, studentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanMessage(row scannable) (*store.Message, error) {
	var msg store.Message
	var receiverID sql.NullInt64
	err := row.Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.SenderID,
		&receiverID,
		&msg.Body,
		&msg.IsRead,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if receiverID.Valid {
		msg.ReceiverID = &receiverID.Int64
	}
	return &msg, nil
}
