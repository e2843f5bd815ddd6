package http

import (
	"fmt"
	stdhttp "net/http"
	"testing"

	"github.com/paperdesk/paperchat-server/internal/store"
)

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, stdhttp.MethodGet, "/api/rooms", "", nil)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/rooms", "not-a-token", nil)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, stdhttp.MethodGet, "/healthz", "", nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSendAndListFlow(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, 2, "student-a", store.RoleStudent)
	teacherToken := env.token(t, 1, "teacher", store.RoleTeacher)

	// First send creates the room implicitly.
	rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", studentToken,
		SendMessageRequest{Message: "I have a doubt on question 3"})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var sent MessageResponse
	decodeJSON(t, rec, &sent)
	if sent.ID == 0 || sent.SenderID != 2 || sent.Message != "I have a doubt on question 3" {
		t.Fatalf("unexpected send response: %+v", sent)
	}
	if sent.ReceiverID != nil {
		t.Errorf("student message must not carry a receiver, got %v", *sent.ReceiverID)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/messages", teacherToken, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page MessageListResponse
	decodeJSON(t, rec, &page)
	if page.TotalCount != 1 || len(page.Messages) != 1 || page.HasMore {
		t.Fatalf("unexpected message page: %+v", page)
	}
	if page.Messages[0].ID != sent.ID {
		t.Errorf("expected message %d, got %d", sent.ID, page.Messages[0].ID)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/unread", teacherToken, nil)
	var unread UnreadCountResponse
	decodeJSON(t, rec, &unread)
	if unread.Count != 1 {
		t.Fatalf("expected 1 unread for teacher, got %d", unread.Count)
	}

	rec = env.request(t, stdhttp.MethodPost, fmt.Sprintf("/api/messages/%d/read", sent.ID), teacherToken, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 marking read, got %d: %s", rec.Code, rec.Body.String())
	}
	var marked MessageResponse
	decodeJSON(t, rec, &marked)
	if !marked.IsRead {
		t.Error("expected message to be read after mark")
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/unread", teacherToken, nil)
	decodeJSON(t, rec, &unread)
	if unread.Count != 0 {
		t.Fatalf("expected 0 unread after mark, got %d", unread.Count)
	}
}

func TestGetRoomIdempotent(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 2, "student-a", store.RoleStudent)

	rec := env.request(t, stdhttp.MethodGet, "/api/papers/1/room", token, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var first RoomResponse
	decodeJSON(t, rec, &first)
	if first.PaperID != 1 || first.PaperTitle != "Algebra Midterm" {
		t.Fatalf("unexpected room: %+v", first)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/room", token, nil)
	var second RoomResponse
	decodeJSON(t, rec, &second)
	if second.ID != first.ID {
		t.Errorf("expected same room %d, got %d", first.ID, second.ID)
	}
}

func TestOutsiderForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 4, "outsider", store.RoleStudent)

	rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", token,
		SendMessageRequest{Message: "let me in"})
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for outsider send, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/messages", token, nil)
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for outsider list, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown paper surfaces as not found, not as a denial.
	rec = env.request(t, stdhttp.MethodGet, "/api/papers/999/messages", token, nil)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 for missing paper, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStudentVisibilityOnList(t *testing.T) {
	env := newTestEnv(t)
	teacherToken := env.token(t, 1, "teacher", store.RoleTeacher)
	tokenA := env.token(t, 2, "student-a", store.RoleStudent)
	tokenB := env.token(t, 3, "student-b", store.RoleStudent)

	rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", tokenA,
		SendMessageRequest{Message: "question from a"})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("student send failed: %d %s", rec.Code, rec.Body.String())
	}

	receiverA := int64(2)
	rec = env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", teacherToken,
		SendMessageRequest{Message: "reply to a", ReceiverID: &receiverA})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("teacher send failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", teacherToken,
		SendMessageRequest{Message: "announcement"})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("teacher broadcast failed: %d %s", rec.Code, rec.Body.String())
	}

	// Student B sees only the announcement; A's question and the directed
	// reply stay private.
	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/messages", tokenB, nil)
	var pageB MessageListResponse
	decodeJSON(t, rec, &pageB)
	if pageB.TotalCount != 1 || pageB.Messages[0].Message != "announcement" {
		t.Fatalf("unexpected page for student B: %+v", pageB)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/messages", tokenA, nil)
	var pageA MessageListResponse
	decodeJSON(t, rec, &pageA)
	if pageA.TotalCount != 3 {
		t.Fatalf("expected 3 messages for student A, got %d", pageA.TotalCount)
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/messages", teacherToken, nil)
	var pageT MessageListResponse
	decodeJSON(t, rec, &pageT)
	if pageT.TotalCount != 3 {
		t.Fatalf("expected 3 messages for teacher, got %d", pageT.TotalCount)
	}
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)
	teacherToken := env.token(t, 1, "teacher", store.RoleTeacher)
	tokenA := env.token(t, 2, "student-a", store.RoleStudent)

	rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", tokenA,
		SendMessageRequest{Message: "hello"})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("send failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/rooms", teacherToken, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rooms []RoomSummaryResponse
	decodeJSON(t, rec, &rooms)
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if rooms[0].PaperTitle != "Algebra Midterm" || rooms[0].UnreadCount != 1 {
		t.Errorf("unexpected room summary: %+v", rooms[0])
	}
	if rooms[0].LastMessage == nil || rooms[0].LastMessage.Message != "hello" {
		t.Errorf("unexpected last message: %+v", rooms[0].LastMessage)
	}
	if rooms[0].LastMessage != nil && rooms[0].LastMessage.SenderName != "student-a" {
		t.Errorf("expected sender name student-a, got %q", rooms[0].LastMessage.SenderName)
	}
}

func TestMarkRoomRead(t *testing.T) {
	env := newTestEnv(t)
	teacherToken := env.token(t, 1, "teacher", store.RoleTeacher)
	tokenA := env.token(t, 2, "student-a", store.RoleStudent)

	for i := 0; i < 3; i++ {
		rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", tokenA,
			SendMessageRequest{Message: "ping"})
		if rec.Code != stdhttp.StatusCreated {
			t.Fatalf("send failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := env.request(t, stdhttp.MethodPost, "/api/papers/1/read", teacherToken, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, stdhttp.MethodGet, "/api/papers/1/unread", teacherToken, nil)
	var unread UnreadCountResponse
	decodeJSON(t, rec, &unread)
	if unread.Count != 0 {
		t.Fatalf("expected 0 unread after room mark, got %d", unread.Count)
	}
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 2, "student-a", store.RoleStudent)

	rec := env.request(t, stdhttp.MethodGet, "/api/papers/abc/messages", token, nil)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for bad paper id, got %d", rec.Code)
	}

	rec = env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", token,
		SendMessageRequest{Message: ""})
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}

	rec = env.request(t, stdhttp.MethodPost, "/api/papers/1/messages", token,
		SendMessageRequest{Message: "   "})
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d: %s", rec.Code, rec.Body.String())
	}
}
