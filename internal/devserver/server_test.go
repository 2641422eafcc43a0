package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/synq/internal/remote"
	"github.com/five82/synq/internal/store"
	"github.com/five82/synq/internal/synq"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_CreateListDelete(t *testing.T) {
	s := New()
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/todos", remote.Todo{Title: "milk"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	var created remote.Todo
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" || created.Title != "milk" {
		t.Fatalf("created = %#v", created)
	}

	rec = do(t, h, http.MethodGet, "/api/todos", nil, nil)
	var list remote.TodoList
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("list = %#v", list)
	}

	rec = do(t, h, http.MethodDelete, "/api/todos/"+created.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, "/api/todos/"+created.ID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestServer_RejectsBlankTitle(t *testing.T) {
	rec := do(t, New().Handler(), http.MethodPost, "/api/todos", remote.Todo{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_IdempotencyKey(t *testing.T) {
	s := New()
	h := s.Handler()
	hdr := map[string]string{"Idempotency-Key": "abc"}

	first := do(t, h, http.MethodPost, "/api/todos", remote.Todo{Title: "once"}, hdr)
	second := do(t, h, http.MethodPost, "/api/todos", remote.Todo{Title: "once"}, hdr)
	if first.Code != http.StatusCreated || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d; want 201, 200", first.Code, second.Code)
	}
	if n := len(s.Todos()); n != 1 {
		t.Fatalf("stored %d todos, want 1", n)
	}
}

func TestServer_PatchMergesFields(t *testing.T) {
	s := New(WithSeed([]remote.Todo{{ID: "1", Title: "a", Priority: 2, Description: "d"}}))
	h := s.Handler()

	rec := do(t, h, http.MethodPatch, "/api/todos/1", map[string]any{"completed": true, "description": nil}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := s.Todos()[0]
	want := remote.Todo{ID: "1", Title: "a", Priority: 2, Completed: true}
	if got != want {
		t.Fatalf("todo = %#v, want %#v", got, want)
	}
}

func TestServer_ReplaceAndBatch(t *testing.T) {
	s := New(WithSeed([]remote.Todo{{ID: "1", Title: "a", Completed: true}}))
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/api/todos/1", remote.Todo{Title: "b"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}
	if got := s.Todos()[0]; got != (remote.Todo{ID: "1", Title: "b"}) {
		t.Fatalf("todo = %#v, want replaced", got)
	}

	rec = do(t, h, http.MethodPost, "/api/todos/batch", remote.TodoList{Items: []remote.Todo{{Title: "x"}, {Title: "y"}}}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("batch status = %d", rec.Code)
	}
	if n := len(s.Todos()); n != 3 {
		t.Fatalf("stored %d todos, want 3", n)
	}
}

func TestServer_FailNext(t *testing.T) {
	s := New()
	s.FailNext(1)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/todos", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("first status = %d, want 503", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/todos", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("second status = %d, want 200", rec.Code)
	}
}

func TestServer_FailRate(t *testing.T) {
	s := New(WithFailRate(0.5))
	s.SetFailRate(1)
	h := s.Handler()

	for i := 0; i < 3; i++ {
		if rec := do(t, h, http.MethodGet, "/api/todos", nil, nil); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	}
	s.SetFailRate(0)
	if rec := do(t, h, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

// End to end: a synced store against the dev server through the HTTP client.
func TestSyncedStoreAgainstServer(t *testing.T) {
	s := New(WithSeed([]remote.Todo{{ID: "seed", Title: "seeded"}}))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(srv.URL, remote.WithRetries(0))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	todos := synq.New(store.Collection([]remote.Todo{}), remote.Operations(client))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	todos.Fetch(ctx)
	if _, ok := todos.Find("seed"); !ok || !todos.IsSuccess() {
		t.Fatalf("fetch: items=%#v status=%v", todos.Snapshot().Items(), todos.Status())
	}

	todos.Add(ctx, remote.Todo{Title: "new"})
	added, ok := todos.FindByKey("title", "new")
	if !ok || added.IsProvisional() {
		t.Fatalf("add: record=%#v ok=%v, want server id", added, ok)
	}

	todos.Update(ctx, store.Transform(func(cur *remote.Todo) remote.Todo {
		next := *cur
		next.Completed = true
		return next
	}), added.ID)
	if got := s.Todos()[1]; !got.Completed {
		t.Fatalf("server todo = %#v, want completed", got)
	}

	s.FailNext(1)
	todos.Remove(ctx, store.ID[remote.Todo]("seed"))
	if _, ok := todos.Find("seed"); !ok || !todos.IsError() {
		t.Fatalf("failed remove: items=%#v status=%v, want seed restored", todos.Snapshot().Items(), todos.Status())
	}

	todos.Remove(ctx, store.Where(func(td remote.Todo) bool { return td.Completed }))
	if n := len(s.Todos()); n != 1 || !todos.IsSuccess() {
		t.Fatalf("server holds %d todos status=%v, want 1 and success", n, todos.Status())
	}

	s.FailNext(1)
	todos.Add(ctx, remote.Todo{Title: "doomed"})
	if _, ok := todos.FindByKey("title", "doomed"); ok {
		t.Fatal("failed add left a provisional record")
	}
}
