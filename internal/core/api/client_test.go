package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	token   string
	expired int
}

func (s *fakeSession) Token() string { return s.token }

func (s *fakeSession) Expire() {
	s.expired++
	s.token = ""
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "username": "alice", "email": "a@example.com"})
	}))
	defer server.Close()

	sess := &fakeSession{token: "secret"}
	c := New(server.URL, WithSession(sess))

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, models.ID("7"), user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestDo_OmitsAuthorizationWithoutToken(t *testing.T) {
	var hadAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL, WithSession(&fakeSession{}))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/ping", nil, nil))
	assert.False(t, hadAuth)
}

func TestDo_UnauthorizedExpiresSessionAndNavigates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "stale"}
	var navigatedTo []string
	c := New(server.URL, WithSession(sess), WithNavigator(func(path string) {
		// session must already be cleared when navigation happens
		assert.Equal(t, 1, sess.expired)
		navigatedTo = append(navigatedTo, path)
	}))

	_, err := c.DocumentStats(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSessionExpired))
	assert.Equal(t, 1, sess.expired)
	assert.Equal(t, []string{routes.Login}, navigatedTo)
}

func TestDo_AnonymousUnauthorizedIsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "current"}
	navigated := false
	c := New(server.URL, WithSession(sess), WithNavigator(func(string) { navigated = true }))

	_, err := c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "Incorrect username or password", UserMessage(err))
	assert.Zero(t, sess.expired)
	assert.False(t, navigated)
}

func TestDo_UnauthorizedForOtherTokenKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "current"}
	navigated := false
	c := New(server.URL, WithSession(sess), WithNavigator(func(string) { navigated = true }))

	// token from a login that has not been stored yet
	_, err := c.MeWithToken(context.Background(), "fresh")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))
	assert.Equal(t, "Could not validate credentials", UserMessage(err))

	// a request that went out with a token the session has since replaced
	err = c.Do(context.Background(), http.MethodGet, "/documents/stats", nil, nil, WithToken("replaced"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))

	// the session's own token, checked through WithoutExpiry
	err = c.Do(context.Background(), http.MethodGet, "/auth/me", nil, nil, WithoutExpiry())
	require.Error(t, err)
	assert.False(t, IsKind(err, KindSessionExpired))

	assert.Zero(t, sess.expired)
	assert.False(t, navigated)
	assert.Equal(t, "current", sess.token)
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(url)
	_, err := c.ChatStats(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Contains(t, UserMessage(err), "Cannot reach the server")
}

func TestDo_ContextCancelIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(server.URL)
	err := c.Do(ctx, http.MethodGet, "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 400, `{"detail":"Username already registered"}`, "Username already registered"},
		{"detail list", 422, `{"detail":[{"msg":"field required","loc":["body","email"]}]}`, "field required"},
		{"message field", 500, `{"message":"boom"}`, "boom"},
		{"error field", 503, `{"error":"model offline"}`, "model offline"},
		{"no body", 502, ``, "Bad Gateway"},
		{"html body", 500, `<html>oops</html>`, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serverMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestLogin_SendsForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "pw123", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","user":{"id":1,"username":"alice","email":"alice@example.com"}}`))
	}))
	defer server.Close()

	c := New(server.URL, WithSession(&fakeSession{token: "old"}))
	resp, err := c.Login(context.Background(), "alice", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestSendChat_ModeAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/", r.URL.Path)
		assert.Equal(t, "rag", r.URL.Query().Get("mode"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])
		_, hasConv := body["conversation_id"]
		assert.False(t, hasConv, "new conversation must omit conversation_id")
		_, _ = w.Write([]byte(`{"conversation_id":12,"message":"hi","sources":[{"filename":"a.pdf","similarity_score":0.8}],"context_used":true}`))
	}))
	defer server.Close()

	c := New(server.URL)
	reply, err := c.SendChat(context.Background(), models.ModeRAG, models.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.ID("12"), reply.ConversationID)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "a.pdf", reply.Sources[0].Filename)
	require.NotNil(t, reply.ContextUsed)
	assert.True(t, *reply.ContextUsed)
}

func TestUploadDocument_ReportsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "some notes", string(data))
		_, _ = w.Write([]byte(`{"document":{"id":3,"filename":"notes.txt","file_size":10}}`))
	}))
	defer server.Close()

	var reports []float64
	c := New(server.URL)
	resp, err := c.UploadDocument(context.Background(), "notes.txt", strings.NewReader("some notes"), func(p float64) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("3"), resp.Document.ID)
	require.NotEmpty(t, reports)
	assert.Equal(t, float64(100), reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1])
	}
}
