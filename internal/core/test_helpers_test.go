package core

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperdesk/paperchat-server/internal/service/chat"
	"github.com/paperdesk/paperchat-server/internal/store/sqlite"
)

// newTestHub builds a hub over an in-memory store seeded with one teacher
// (1), two students (2, 3), and paper 1 attempted by both students.
func newTestHub(t *testing.T) *Hub {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		stmts := []string{
			`INSERT INTO users (id, name) VALUES (1, 'teacher'), (2, 'student-a'), (3, 'student-b'), (4, 'outsider')`,
			`INSERT INTO papers (id, title, teacher_id) VALUES (1, 'Algebra Midterm', 1)`,
			`INSERT INTO attempts (paper_id, student_id) VALUES (1, 2), (1, 3)`,
		}
		for _, stmt := range stmts {
			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.New(nil)
	return NewHub(chat.NewService(st, 50, 100), &logger)
}

// mustEvent reads events until one of the wanted kind arrives, failing after
// a timeout. Other kinds are skipped so fan-out ordering stays irrelevant.
func mustEvent(t *testing.T, events <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
			return nil
		}
	}
}

// waitForMembers polls until the paper's room has the wanted member count.
func waitForMembers(t *testing.T, hub *Hub, paperID int64, want int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := 0
		if r, ok := hub.rooms[paperID]; ok {
			n = len(r.clients)
		}
		hub.mu.Unlock()
		if n == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d members in room %d", want, paperID)
}

// mustNoEvent asserts that no event of the given kind arrives in a short window.
func mustNoEvent(t *testing.T, events <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-deadline:
			return
		}
	}
}
