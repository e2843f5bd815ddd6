package store

import (
	"context"
	"errors"
	"time"
)

// Role identifies which side of a paper conversation a user is on.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether the role is one the system knows about.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Paper is the ownership context for a room. It is maintained by the
// surrounding platform; this core only ever reads it.
type Paper struct {
	ID        int64
	Title     string
	TeacherID int64
	CreatedAt time.Time
}

// Room scopes one conversation to one paper. Exactly one room exists per
// paper, enforced by a uniqueness constraint on PaperID.
type Room struct {
	ID        int64
	PaperID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a persisted utterance inside a room. ReceiverID is nil when the
// sender addressed nobody in particular: for a student that means "to the
// teacher", for a teacher it is a room-wide announcement.
type Message struct {
	ID         int64
	RoomID     int64
	SenderID   int64
	ReceiverID *int64
	Body       string
	IsRead     bool
	CreatedAt  time.Time
}

// MessagePage is one slice of a room's visible messages in creation order.
type MessagePage struct {
	Messages []*Message
	Total    int
	HasMore  bool
}

// ErrConflict is returned when an insert loses a uniqueness race. Callers
// recover by re-fetching the existing row.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a paper, room, or message does not exist.
var ErrNotFound = errors.New("not found")

// OwnershipStore reads the external paper/attempt registry. The messaging
// core never writes through this interface.
type OwnershipStore interface {
	// GetPaper retrieves a paper by ID.
	GetPaper(ctx context.Context, paperID int64) (*Paper, error)

	// HasAttempt reports whether the student has a recorded attempt on the paper.
	HasAttempt(ctx context.Context, paperID, studentID int64) (bool, error)

	// ListPaperIDs returns the papers a user can reach: papers they own for
	// teachers, papers they attempted for students.
	ListPaperIDs(ctx context.Context, userID int64, role Role) ([]int64, error)

	// GetUserName returns the display name recorded for a user.
	GetUserName(ctx context.Context, userID int64) (string, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom inserts a room for the paper. Returns ErrConflict if a room
	// for this paper already exists.
	CreateRoom(ctx context.Context, paperID int64) (*Room, error)

	// GetRoomByPaper retrieves the room for a paper, ErrNotFound if none.
	GetRoomByPaper(ctx context.Context, paperID int64) (*Room, error)

	// GetRoomByID retrieves a room by its ID.
	GetRoomByID(ctx context.Context, roomID int64) (*Room, error)

	// TouchRoom bumps the room's updated_at for recency ordering.
	TouchRoom(ctx context.Context, roomID int64, at time.Time) error
}

// MessageStore handles message persistence and the read-state bit.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListRoomMessages returns every message in the room, oldest first,
	// clipped to limit/offset. This is the teacher's view.
	ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) (*MessagePage, error)

	// ListStudentMessages returns the student's slice of the room: their own
	// messages plus teacher messages addressed to them or to nobody.
	ListStudentMessages(ctx context.Context, roomID, studentID, teacherID int64, limit, offset int) (*MessagePage, error)

	// LastRoomMessage returns the newest message in the room, ErrNotFound if
	// the room is empty.
	LastRoomMessage(ctx context.Context, roomID int64) (*Message, error)

	// LastStudentMessage is LastRoomMessage restricted to the student's view.
	LastStudentMessage(ctx context.Context, roomID, studentID, teacherID int64) (*Message, error)

	// MarkMessageRead flips is_read to true. Already-read messages are left
	// untouched; the bit never reverts.
	MarkMessageRead(ctx context.Context, id int64) error

	// MarkRoomReadForTeacher marks every message not sent by the teacher read.
	MarkRoomReadForTeacher(ctx context.Context, roomID, teacherID int64) error

	// MarkRoomReadForStudent marks every message addressed to the student read.
	MarkRoomReadForStudent(ctx context.Context, roomID, studentID int64) error

	// CountUnreadForTeacher counts unread messages sent by anyone else.
	CountUnreadForTeacher(ctx context.Context, roomID, teacherID int64) (int, error)

	// CountUnreadForStudent counts unread messages addressed to the student.
	CountUnreadForStudent(ctx context.Context, roomID, studentID int64) (int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	OwnershipStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
