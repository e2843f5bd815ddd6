package http

import (
	"bytes"
	"database/sql"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperdesk/paperchat-server/internal/auth"
	"github.com/paperdesk/paperchat-server/internal/config"
	"github.com/paperdesk/paperchat-server/internal/core"
	"github.com/paperdesk/paperchat-server/internal/service/chat"
	"github.com/paperdesk/paperchat-server/internal/store"
	"github.com/paperdesk/paperchat-server/internal/store/sqlite"
)

type testEnv struct {
	handler  stdhttp.Handler
	verifier *auth.Verifier
}

// newTestEnv wires the full HTTP surface over an in-memory store seeded with
// one teacher (1), two students (2, 3), an outsider (4), and paper 1
// attempted by both students.
func newTestEnv(t *testing.T) *testEnv {
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

	cfg := config.Default()
	verifier := auth.NewVerifier(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	logger := zerolog.New(nil)
	svc := chat.NewService(st, cfg.PageSize, cfg.PageLimit)
	hub := core.NewHub(svc, &logger)
	server := NewServer(hub, svc, verifier, &cfg, &logger)

	return &testEnv{handler: server.Handler, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, userID int64, name string, role store.Role) string {
	t.Helper()
	token, err := e.verifier.MintToken(userID, name, role)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

// request performs an authenticated request against the test handler. An
// empty token leaves the Authorization header unset.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
