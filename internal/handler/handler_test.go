package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"motorpool/internal/domain"
	"motorpool/internal/repository"
	"motorpool/internal/repository/sqlite"
	"motorpool/internal/service"
)

// newTestServer wires the full stack against an in-memory database,
// with the same routes and middleware as cmd/server.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := service.NewCarService(repo, service.NewEventBus())
	h := NewCarHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cars", h.ListCars)
	mux.HandleFunc("POST /api/cars", h.CreateCar)
	mux.HandleFunc("GET /api/cars/{id}", h.GetCar)
	mux.HandleFunc("PUT /api/cars/{id}", h.UpdateCar)
	mux.HandleFunc("PATCH /api/cars/{id}", h.PatchCar)
	mux.HandleFunc("DELETE /api/cars/{id}", h.DeleteCar)
	mux.HandleFunc("POST /api/import/yaml", h.ImportYAML)
	mux.HandleFunc("GET /api/export/json", h.ExportJSON)
	mux.HandleFunc("GET /api/export/yaml", h.ExportYAML)
	mux.HandleFunc("GET /healthz", h.Health)

	ts := httptest.NewServer(Chain(mux, Recover, CORS, RequestID, Logger))
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with a JSON body and decodes the response into out
func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) *http.Response {
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

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp
}

func createCar(t *testing.T, ts *httptest.Server, carMake, model, year string) domain.Car {
	t.Helper()

	var created domain.Car
	resp := doJSON(t, ts, http.MethodPost, "/api/cars",
		map[string]string{"make": carMake, "model": model, "year": year}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return created
}

func TestCreateCarEndpoint(t *testing.T) {
	ts := newTestServer(t)

	t.Run("valid car returns 201 with id", func(t *testing.T) {
		car := createCar(t, ts, "Toyota", "Corolla", "2019")
		if car.ID == 0 {
			t.Fatal("expected assigned id in response")
		}
		if car.Make != "Toyota" {
			t.Fatalf("unexpected body: %+v", car)
		}
	})

	t.Run("missing field returns 400", func(t *testing.T) {
		var errResp ErrorResponse
		resp := doJSON(t, ts, http.MethodPost, "/api/cars",
			map[string]string{"make": "Toyota"}, &errResp)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		if !strings.Contains(errResp.Details, "required") {
			t.Fatalf("unexpected error details: %q", errResp.Details)
		}
	})

	t.Run("malformed json returns 400", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/cars", "application/json",
			strings.NewReader("{not json"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestGetCarEndpoint(t *testing.T) {
	ts := newTestServer(t)
	car := createCar(t, ts, "Honda", "Civic", "2020")

	t.Run("existing car returns 200", func(t *testing.T) {
		var got domain.Car
		resp := doJSON(t, ts, http.MethodGet, "/api/cars/"+itoa(car.ID), nil, &got)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if got.Model != "Civic" {
			t.Fatalf("unexpected body: %+v", got)
		}
	})

	t.Run("missing car returns 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/cars/9999", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/cars/abc", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("zero id returns 400", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/cars/0", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestListCarsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createCar(t, ts, "Toyota", "Corolla", "2019")
	createCar(t, ts, "Toyota", "Camry", "2021")
	createCar(t, ts, "Honda", "Civic", "2020")

	t.Run("list all", func(t *testing.T) {
		var cars []domain.Car
		resp := doJSON(t, ts, http.MethodGet, "/api/cars", nil, &cars)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if len(cars) != 3 {
			t.Fatalf("expected 3 cars, got %d", len(cars))
		}
	})

	t.Run("filter by make", func(t *testing.T) {
		var cars []domain.Car
		doJSON(t, ts, http.MethodGet, "/api/cars?make=Toyota", nil, &cars)
		if len(cars) != 2 {
			t.Fatalf("expected 2 cars, got %d", len(cars))
		}
	})

	t.Run("filter by make and model", func(t *testing.T) {
		var cars []domain.Car
		doJSON(t, ts, http.MethodGet, "/api/cars?make=Toyota&model=Camry", nil, &cars)
		if len(cars) != 1 || cars[0].Year != "2021" {
			t.Fatalf("unexpected result: %+v", cars)
		}
	})
}

func TestUpdateCarEndpoint(t *testing.T) {
	ts := newTestServer(t)
	car := createCar(t, ts, "Toyota", "Corolla", "2019")

	t.Run("put returns updated row", func(t *testing.T) {
		var updated domain.Car
		resp := doJSON(t, ts, http.MethodPut, "/api/cars/"+itoa(car.ID),
			map[string]string{"make": "Toyota", "model": "Camry", "year": "2022"}, &updated)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if updated.Model != "Camry" || updated.ID != car.ID {
			t.Fatalf("unexpected body: %+v", updated)
		}
	})

	t.Run("put on missing car returns 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPut, "/api/cars/9999",
			map[string]string{"make": "A", "model": "B", "year": "C"}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestPatchCarEndpoint(t *testing.T) {
	ts := newTestServer(t)
	car := createCar(t, ts, "Toyota", "Corolla", "2019")

	t.Run("patch single field", func(t *testing.T) {
		var updated domain.Car
		resp := doJSON(t, ts, http.MethodPatch, "/api/cars/"+itoa(car.ID),
			map[string]string{"year": "2020"}, &updated)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if updated.Year != "2020" || updated.Make != "Toyota" {
			t.Fatalf("unexpected body: %+v", updated)
		}
	})

	t.Run("patch with non-string value returns 400", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPatch, "/api/cars/"+itoa(car.ID),
			map[string]any{"year": 2020}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("patch on missing car returns 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPatch, "/api/cars/9999",
			map[string]string{"year": "2020"}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestDeleteCarEndpoint(t *testing.T) {
	ts := newTestServer(t)
	car := createCar(t, ts, "Toyota", "Corolla", "2019")

	t.Run("delete returns 204", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodDelete, "/api/cars/"+itoa(car.ID), nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		resp = doJSON(t, ts, http.MethodGet, "/api/cars/"+itoa(car.ID), nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
		}
	})

	t.Run("delete missing car returns 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodDelete, "/api/cars/9999", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

// flakyRepo delegates to a real repository but fails GetCar once its
// budget of successful reads is spent, simulating a storage fault
// between a write and the response re-fetch.
type flakyRepo struct {
	repository.Repository
	mu       sync.Mutex
	getsLeft int
}

func (f *flakyRepo) GetCar(ctx context.Context, id int64) (*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getsLeft <= 0 {
		return nil, errors.New("storage fault")
	}
	f.getsLeft--
	return f.Repository.GetCar(ctx, id)
}

// newFaultyServer wires a server over a flakyRepo that allows getsLeft
// successful GetCar calls after setup before failing.
func newFaultyServer(t *testing.T, getsLeft int) (*httptest.Server, int64) {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	car := domain.NewCar("Toyota", "Corolla", "2019")
	if err := repo.CreateCar(context.Background(), car); err != nil {
		t.Fatalf("failed to seed car: %v", err)
	}

	flaky := &flakyRepo{Repository: repo, getsLeft: getsLeft}
	svc := service.NewCarService(flaky, service.NewEventBus())
	h := NewCarHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/cars/{id}", h.UpdateCar)
	mux.HandleFunc("PATCH /api/cars/{id}", h.PatchCar)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, car.ID
}

func TestUpdateRefetchFailure(t *testing.T) {
	t.Run("put reports storage fault as 500", func(t *testing.T) {
		ts, id := newFaultyServer(t, 0)

		var errResp ErrorResponse
		resp := doJSON(t, ts, http.MethodPut, "/api/cars/"+itoa(id),
			map[string]string{"make": "Toyota", "model": "Camry", "year": "2022"}, &errResp)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		if !strings.Contains(errResp.Details, "storage fault") {
			t.Fatalf("unexpected error details: %q", errResp.Details)
		}
	})

	t.Run("patch reports storage fault as 500", func(t *testing.T) {
		// One read is spent loading the row for the patch itself;
		// the response re-fetch then hits the fault
		ts, id := newFaultyServer(t, 1)

		var errResp ErrorResponse
		resp := doJSON(t, ts, http.MethodPatch, "/api/cars/"+itoa(id),
			map[string]string{"year": "2020"}, &errResp)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		if !strings.Contains(errResp.Details, "storage fault") {
			t.Fatalf("unexpected error details: %q", errResp.Details)
		}
	})
}

func TestImportExportEndpoints(t *testing.T) {
	ts := newTestServer(t)

	yamlBody := `cars:
  - make: Toyota
    model: Corolla
    year: "2019"
  - make: Honda
    model: Civic
    year: "2020"
`

	t.Run("yaml import", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/import/yaml?strategy=merge",
			"application/x-yaml", strings.NewReader(yamlBody))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var result service.ImportResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
		if result.CarsCreated != 2 {
			t.Fatalf("unexpected result: %+v", result)
		}
	})

	t.Run("invalid strategy returns 400", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/import/yaml?strategy=bogus",
			"application/x-yaml", strings.NewReader(yamlBody))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("json export", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/export/json", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "fleet.json") {
			t.Fatalf("unexpected disposition %q", cd)
		}
	})

	t.Run("yaml export", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/export/yaml", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/x-yaml" {
			t.Fatalf("unexpected content type %q", ct)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createCar(t, ts, "Toyota", "Corolla", "2019")

	var body map[string]any
	resp := doJSON(t, ts, http.MethodGet, "/healthz", nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body["cars"] != float64(1) {
		t.Fatalf("expected car count 1, got %v", body["cars"])
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("request id is generated", func(t *testing.T) {
		ts := newTestServer(t)

		resp := doJSON(t, ts, http.MethodGet, "/healthz", nil, nil)
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatal("expected X-Request-ID header")
		}
	})

	t.Run("client request id is preserved", func(t *testing.T) {
		ts := newTestServer(t)

		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Request-ID"); got != "client-supplied" {
			t.Fatalf("expected client id to be echoed, got %q", got)
		}
	})

	t.Run("cors preflight returns 204", func(t *testing.T) {
		ts := newTestServer(t)

		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/cars", nil)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Fatal("expected CORS headers on preflight")
		}
	})

	t.Run("write deadline reaches through the logger", func(t *testing.T) {
		var deadlineErr error
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadlineErr = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		})
		srv := httptest.NewServer(Chain(inner, Recover, CORS, RequestID, Logger))
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if deadlineErr != nil {
			t.Fatalf("expected deadline control through middleware, got %v", deadlineErr)
		}
	})

	t.Run("recover converts panic to 500", func(t *testing.T) {
		panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})
		srv := httptest.NewServer(Chain(panicky, Recover))
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
	})
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
