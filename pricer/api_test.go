package pricer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/dbopen"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/store"
)

// testServer builds a service over an in-memory store. The browser is never
// started; handlers only touch the database.
func testServer(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := store.ApplySchema(db); err != nil {
		t.Fatal(err)
	}

	svc := NewService(DefaultConfig(), db, nil)
	r := chi.NewRouter()
	svc.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return svc, srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestCreateTaskEndpoint(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json",
		strings.NewReader(`{"partnumber": "OC90", "search_brand": "Knecht"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("got %d, want 201", resp.StatusCode)
	}

	var task store.Task
	decode(t, resp, &task)
	if task.ID == "" || task.Status != store.StatusPending {
		t.Fatalf("got %+v, want a pending task with an id", task)
	}
	if task.PartNumber != "OC90" || task.SearchBrand != "Knecht" {
		t.Fatalf("got %q/%q", task.PartNumber, task.SearchBrand)
	}
}

func TestCreateTaskRejectsEmptyPartNumber(t *testing.T) {
	_, srv := testServer(t)

	for _, body := range []string{`{}`, `{"partnumber": "  "}`, `not json`} {
		resp, err := http.Post(srv.URL+"/api/tasks", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestGetTaskEndpoint(t *testing.T) {
	svc, srv := testServer(t)

	task := &store.Task{PartNumber: "OC90"}
	if err := svc.store.CreateTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/tasks/" + task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	var got store.Task
	decode(t, resp, &got)
	if got.ID != task.ID {
		t.Fatalf("got %q, want %q", got.ID, task.ID)
	}

	resp, err = http.Get(srv.URL + "/api/tasks/no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}
}

func TestCancelTaskEndpoint(t *testing.T) {
	svc, srv := testServer(t)
	ctx := context.Background()

	task := &store.Task{PartNumber: "OC90"}
	if err := svc.store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/api/tasks/"+task.ID+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}

	// A second cancel hits a task already in a terminal status.
	resp, err = http.Post(srv.URL+"/api/tasks/"+task.ID+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("got %d, want 409", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/tasks/no-such-id/cancel", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}
}

func TestListTasksEndpoint(t *testing.T) {
	svc, srv := testServer(t)
	ctx := context.Background()

	for i, pn := range []string{"A", "B"} {
		if err := svc.store.CreateTask(ctx, &store.Task{PartNumber: pn, CreatedAt: int64(1000 + i)}); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/tasks")
	if err != nil {
		t.Fatal(err)
	}
	var tasks []*store.Task
	decode(t, resp, &tasks)
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	// Newest first.
	if tasks[0].PartNumber != "B" {
		t.Fatalf("got %q first, want B", tasks[0].PartNumber)
	}
}

func TestArticleBrandsEndpoint(t *testing.T) {
	svc, srv := testServer(t)
	ctx := context.Background()

	task := &store.Task{PartNumber: "F00M147105"}
	if err := svc.store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.store.ClaimOldestPending(ctx); err != nil {
		t.Fatal(err)
	}
	res := &store.TaskResult{MinPrice: 100, AvgPrice: 100, Brand: "BOSCH",
		SourceMin: map[string]float64{"zzap": 100}}
	if err := svc.store.CompleteTask(ctx, task.ID, res); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/article-brands?partnumber=F00M147105")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		PartNumber string   `json:"partnumber"`
		Brands     []string `json:"brands"`
	}
	decode(t, resp, &body)
	if len(body.Brands) != 1 || body.Brands[0] != "BOSCH" {
		t.Fatalf("got %v, want [BOSCH]", body.Brands)
	}

	// Missing partnumber.
	resp, err = http.Get(srv.URL + "/api/article-brands")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", resp.StatusCode)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("got %v, want status ok", body)
	}
}
