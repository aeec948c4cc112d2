package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatpoints/chatpoints-backend/pkg/config"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ChatConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		HTTPTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestClientListRecent(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/experiences/exp_1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"posts":[{"id":"m2","user":{"id":"u1"}},{"id":"m1","user_id":"u2"}]}`))
	}))

	messages, err := client.ListRecent(context.Background(), "exp_1")
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if len(messages) != 2 || messages[0].ID != "m2" || messages[1].AuthorID != "u2" {
		t.Fatalf("unexpected page: %+v", messages)
	}
}

func TestClientGetByIDNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetByID(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientServerErrorsAreDependencyFailures(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := client.ListRecent(context.Background(), "exp_1")
		if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			t.Fatalf("status %d: expected dependency error, got %v", status, err)
		}
	}
}

func TestClientUnreachableHostIsDependencyFailure(t *testing.T) {
	client, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := client.ListRecent(context.Background(), "exp_1")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientNotify(t *testing.T) {
	var gotBody string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{}`))
	}))

	if err := client.Notify(context.Background(), "exp_1", "congrats"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	want := `{"experience_id":"exp_1","message":"congrats"}`
	if gotBody != want {
		t.Fatalf("expected body %s, got %s", want, gotBody)
	}
}

func TestClientClientErrorIsNotDependencyFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"bad emoji"}`))
	}))

	err := client.React(context.Background(), "m1", "??")
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("4xx should not be a dependency failure: %v", err)
	}
}
