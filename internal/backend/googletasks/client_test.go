package googletasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"google.golang.org/api/option"

	"optask/internal/backend/googletasks"
	"optask/internal/service"
)

type fakeTask struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// fakeAPI serves the subset of the Google Tasks API the client uses.
type fakeAPI struct {
	mu     sync.Mutex
	tasks  []fakeTask
	nextID int
	fail   int // status code returned by every request when non-zero
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]any{"kind": "tasks#tasks", "items": f.tasks})
	})
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var in fakeTask
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		in.ID = fmt.Sprintf("remote-%d", f.nextID)
		in.Status = "needsAction"
		f.tasks = append([]fakeTask{in}, f.tasks...)
		writeJSON(w, in)
	})
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if i := f.find(r.PathValue("task")); i >= 0 {
			writeJSON(w, f.tasks[i])
			return
		}
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})
	mux.HandleFunc("PATCH /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		var in fakeTask
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		i := f.find(r.PathValue("task"))
		if i < 0 {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		f.tasks[i].Status = in.Status
		writeJSON(w, f.tasks[i])
	})
	mux.HandleFunc("DELETE /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		i := f.find(r.PathValue("task"))
		if i < 0 {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		code := f.fail
		f.mu.Unlock()
		if code != 0 {
			http.Error(w, fmt.Sprintf(`{"error":{"code":%d,"message":"injected"}}`, code), code)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) find(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, api *fakeAPI) *googletasks.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := googletasks.NewWithHTTPClient(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestClient_ListMapsIDs(t *testing.T) {
	api := &fakeAPI{tasks: []fakeTask{
		{ID: "a", Title: "Buy milk", Status: "needsAction"},
		{ID: "b", Title: "Read hooks docs", Status: "completed"},
	}}
	c := newClient(t, api)

	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []service.Item{
		{ID: 1, Title: "Buy milk"},
		{ID: 2, Title: "Read hooks docs", Done: true},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %+v, got %+v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d: expected %+v, got %+v", i, want[i], items[i])
		}
	}

	again, _ := c.List(context.Background())
	if again[0].ID != 1 || again[1].ID != 2 {
		t.Errorf("local IDs not stable across lists: %+v", again)
	}
}

func TestClient_CreateToggleDelete(t *testing.T) {
	api := &fakeAPI{tasks: []fakeTask{{ID: "a", Title: "Buy milk", Status: "needsAction"}}}
	c := newClient(t, api)
	ctx := context.Background()

	if _, err := c.List(ctx); err != nil {
		t.Fatal(err)
	}
	created, err := c.Create(ctx, "Write report")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 2 || created.Title != "Write report" || created.Done {
		t.Errorf("unexpected created item %+v", created)
	}

	toggled, err := c.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Done {
		t.Errorf("expected done, got %+v", toggled)
	}
	back, err := c.Toggle(ctx, created.ID)
	if err != nil || back.Done {
		t.Errorf("expected reopened item, got %+v (%v)", back, err)
	}

	if err := c.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(api.tasks) != 1 || api.tasks[0].Title != "Write report" {
		t.Errorf("unexpected remote state %+v", api.tasks)
	}
}

func TestClient_UnknownLocalID(t *testing.T) {
	c := newClient(t, &fakeAPI{})

	if _, err := c.Toggle(context.Background(), 5); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.Delete(context.Background(), 5); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, googletasks.ErrAuth},
		{http.StatusForbidden, googletasks.ErrAuth},
		{http.StatusNotFound, service.ErrNotFound},
		{http.StatusBadRequest, service.ErrNetworkFailure},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c := newClient(t, &fakeAPI{fail: tt.code})
			_, err := c.List(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_Canceled(t *testing.T) {
	c := newClient(t, &fakeAPI{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Create(ctx, "x"); !service.IsCanceled(err) {
		t.Errorf("expected canceled, got %v", err)
	}
}
