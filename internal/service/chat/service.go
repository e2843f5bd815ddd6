package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paperdesk/paperchat-server/internal/store"
)

var (
	// ErrAccessDenied is returned when the (user, role, paper) triple has no
	// right to the room.
	ErrAccessDenied = errors.New("access denied")
	// ErrEmptyBody is returned when a message has no text.
	ErrEmptyBody = errors.New("message body is empty")
	// ErrNotParticipant is returned when a mark-read requester is neither the
	// sender nor a receiver of record.
	ErrNotParticipant = errors.New("not a participant of this message")
)

// RoomInfo is a room together with its paper context.
type RoomInfo struct {
	Room  *store.Room
	Paper *store.Paper
}

// RoomSummary is one entry of a user's room list.
type RoomSummary struct {
	Room        *store.Room
	Paper       *store.Paper
	LastMessage *store.Message
	Unread      int
}

// Service is the shared library behind both the synchronous API and the
// connection gateway. All access, visibility, and read-state rules live here
// so the two surfaces cannot drift apart.
type Service struct {
	store     store.Store
	pageSize  int
	pageLimit int
}

// NewService creates the chat service. pageSize is the default message page,
// pageLimit the hard ceiling a caller-supplied limit is clamped to.
func NewService(st store.Store, pageSize, pageLimit int) *Service {
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageLimit <= 0 {
		pageLimit = 100
	}
	return &Service{store: st, pageSize: pageSize, pageLimit: pageLimit}
}

// ResolveAccess decides whether the user may read/write the paper's room.
// Teachers are allowed iff they own the paper, students iff they have a
// recorded attempt. The paper is returned so callers can reuse its owner.
// Missing papers surface as store.ErrNotFound, denials as ErrAccessDenied.
func (s *Service) ResolveAccess(ctx context.Context, paperID, userID int64, role store.Role) (*store.Paper, error) {
	paper, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}

	switch role {
	case store.RoleTeacher:
		if paper.TeacherID == userID {
			return paper, nil
		}
	case store.RoleStudent:
		attempted, err := s.store.HasAttempt(ctx, paperID, userID)
		if err != nil {
			return nil, err
		}
		if attempted {
			return paper, nil
		}
	}

	return nil, fmt.Errorf("paper %d user %d role %s: %w", paperID, userID, role, ErrAccessDenied)
}

// GetOrCreateRoom resolves the caller's access and returns the paper's room,
// creating it on first use. Concurrent first callers converge on one row:
// create, and on a uniqueness conflict re-fetch the winner.
func (s *Service) GetOrCreateRoom(ctx context.Context, paperID, userID int64, role store.Role) (*RoomInfo, error) {
	paper, err := s.ResolveAccess(ctx, paperID, userID, role)
	if err != nil {
		return nil, err
	}

	room, err := s.store.GetRoomByPaper(ctx, paperID)
	if errors.Is(err, store.ErrNotFound) {
		room, err = s.store.CreateRoom(ctx, paperID)
		if errors.Is(err, store.ErrConflict) {
			room, err = s.store.GetRoomByPaper(ctx, paperID)
		}
	}
	if err != nil {
		return nil, err
	}

	return &RoomInfo{Room: room, Paper: paper}, nil
}

// GetRoom is the fetch-only variant: no conversation yet is store.ErrNotFound,
// never an implicit create.
func (s *Service) GetRoom(ctx context.Context, paperID, userID int64, role store.Role) (*RoomInfo, error) {
	paper, err := s.ResolveAccess(ctx, paperID, userID, role)
	if err != nil {
		return nil, err
	}

	room, err := s.store.GetRoomByPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}

	return &RoomInfo{Room: room, Paper: paper}, nil
}

// SendMessage validates and persists a message, creating the room on first
// send. receiverID is honored only for teacher sends; a receiver-less teacher
// message is a room-wide announcement, a student message always goes to the
// teacher.
func (s *Service) SendMessage(ctx context.Context, paperID, senderID int64, role store.Role, body string, receiverID *int64) (*store.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	info, err := s.GetOrCreateRoom(ctx, paperID, senderID, role)
	if err != nil {
		return nil, err
	}

	if role != store.RoleTeacher {
		receiverID = nil
	}

	msg := &store.Message{
		RoomID:     info.Room.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.store.TouchRoom(ctx, info.Room.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	return msg, nil
}

// ListMessages returns the viewer's slice of the room in creation order.
// Teachers see the whole room; students see their own messages plus teacher
// messages addressed to them or to the room at large.
func (s *Service) ListMessages(ctx context.Context, paperID, userID int64, role store.Role, limit, offset int) (*store.MessagePage, error) {
	info, err := s.GetRoom(ctx, paperID, userID, role)
	if err != nil {
		return nil, err
	}

	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	if role == store.RoleTeacher {
		return s.store.ListRoomMessages(ctx, info.Room.ID, limit, offset)
	}
	return s.store.ListStudentMessages(ctx, info.Room.ID, userID, info.Paper.TeacherID, limit, offset)
}

// ListRooms returns the user's rooms, newest activity first, with the last
// visible message and the unread count per room.
func (s *Service) ListRooms(ctx context.Context, userID int64, role store.Role) ([]*RoomSummary, error) {
	paperIDs, err := s.store.ListPaperIDs(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	summaries := make([]*RoomSummary, 0, len(paperIDs))
	for _, paperID := range paperIDs {
		room, err := s.store.GetRoomByPaper(ctx, paperID)
		if errors.Is(err, store.ErrNotFound) {
			continue // no conversation yet
		}
		if err != nil {
			return nil, err
		}

		paper, err := s.store.GetPaper(ctx, paperID)
		if err != nil {
			return nil, err
		}

		summary := &RoomSummary{Room: room, Paper: paper}

		var last *store.Message
		if role == store.RoleTeacher {
			last, err = s.store.LastRoomMessage(ctx, room.ID)
		} else {
			last, err = s.store.LastStudentMessage(ctx, room.ID, userID, paper.TeacherID)
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		summary.LastMessage = last

		if role == store.RoleTeacher {
			summary.Unread, err = s.store.CountUnreadForTeacher(ctx, room.ID, userID)
		} else {
			summary.Unread, err = s.store.CountUnreadForStudent(ctx, room.ID, userID)
		}
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Room.UpdatedAt.After(summaries[j].Room.UpdatedAt)
	})

	return summaries, nil
}

// UnreadCount derives the role-specific unread count. A paper with no
// conversation has no unread messages, so a missing room is 0, not an error.
func (s *Service) UnreadCount(ctx context.Context, paperID, userID int64, role store.Role) (int, error) {
	_, err := s.ResolveAccess(ctx, paperID, userID, role)
	if err != nil {
		return 0, err
	}

	room, err := s.store.GetRoomByPaper(ctx, paperID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if role == store.RoleTeacher {
		return s.store.CountUnreadForTeacher(ctx, room.ID, userID)
	}
	return s.store.CountUnreadForStudent(ctx, room.ID, userID)
}

// MarkMessageRead flips the message's read bit, once the requester is proven
// to be its sender or a receiver of record. The bit never reverts; marking an
// already-read message again is a no-op.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, userID int64, role store.Role) (*store.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.mayMarkRead(ctx, msg, userID, role)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("message %d user %d: %w", messageID, userID, ErrNotParticipant)
	}

	if err := s.store.MarkMessageRead(ctx, messageID); err != nil {
		return nil, err
	}

	return s.store.GetMessage(ctx, messageID)
}

// mayMarkRead resolves the receiver of record for receiver-less messages: a
// student message with no receiver belongs to the paper's teacher, a teacher
// announcement to every student with access.
func (s *Service) mayMarkRead(ctx context.Context, msg *store.Message, userID int64, role store.Role) (bool, error) {
	if msg.SenderID == userID {
		return true, nil
	}
	if msg.ReceiverID != nil {
		return *msg.ReceiverID == userID, nil
	}

	room, err := s.store.GetRoomByID(ctx, msg.RoomID)
	if err != nil {
		return false, err
	}
	paper, err := s.store.GetPaper(ctx, room.PaperID)
	if err != nil {
		return false, err
	}

	if msg.SenderID == paper.TeacherID {
		// Teacher announcement: any student with access may acknowledge it.
		if role != store.RoleStudent {
			return false, nil
		}
		return s.store.HasAttempt(ctx, paper.ID, userID)
	}

	// Student message addressed to nobody: the teacher is the receiver.
	return role == store.RoleTeacher && paper.TeacherID == userID, nil
}

// MarkRoomRead marks the viewer's side of the room read: for teachers every
// message they did not send, for students every message addressed to them.
func (s *Service) MarkRoomRead(ctx context.Context, paperID, userID int64, role store.Role) error {
	info, err := s.GetRoom(ctx, paperID, userID, role)
	if err != nil {
		return err
	}

	if role == store.RoleTeacher {
		return s.store.MarkRoomReadForTeacher(ctx, info.Room.ID, userID)
	}
	return s.store.MarkRoomReadForStudent(ctx, info.Room.ID, userID)
}

// SenderName looks up the display name for a user id, for notification
// payloads.
func (s *Service) SenderName(ctx context.Context, userID int64) (string, error) {
	return s.store.GetUserName(ctx, userID)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.pageSize
	}
	if limit > s.pageLimit {
		return s.pageLimit
	}
	return limit
}
