package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestClient_GetTemplate(t *testing.T) {
	id := uuid.NewString()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/templates/"+id {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": TemplateResponse{
				ID:      id,
				Name:    "logon-success",
				Channel: "Security",
				EventID: 4624,
				Version: 2,
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	tpl, err := c.GetTemplate(id, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Name != "logon-success" || tpl.EventID != 4624 || tpl.Version != 2 {
		t.Errorf("unexpected template: %+v", tpl)
	}
}

func TestClient_GetTemplate_VersionQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("version"); got != "3" {
			t.Errorf("expected version=3, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": TemplateResponse{Version: 3}})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if _, err := c.GetTemplate(uuid.NewString(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_ListScenarios(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []ScenarioResponse{
				{ID: uuid.NewString(), Name: "brute-force", Version: "1.0"},
				{ID: uuid.NewString(), Name: "lateral-move", Version: "1.2"},
			},
			"total": 2,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	scenarios, err := c.ListScenarios()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(scenarios))
	}
	if scenarios[0].Name != "brute-force" || scenarios[1].Version != "1.2" {
		t.Errorf("unexpected scenarios: %+v", scenarios)
	}
}

func TestClient_ExecuteScenario_SendsOptions(t *testing.T) {
	scenarioID := uuid.NewString()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/scenarios/"+scenarioID+"/executions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ExecuteScenarioRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if !req.ContinueOnError || req.DelayMultiplier != 0.5 {
			t.Errorf("options not carried over: %+v", req)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"data": ExecutionResponse{ID: uuid.NewString(), ScenarioID: scenarioID, Status: "PENDING"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	exec, err := c.ExecuteScenario(scenarioID, ExecuteScenarioRequest{
		ContinueOnError: true,
		DelayMultiplier: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Status != "PENDING" {
		t.Errorf("expected PENDING, got %s", exec.Status)
	}
}

func TestClient_SetScenarioActive_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var body map[string]bool
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if !body["active"] {
			t.Error("expected active=true")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.SetScenarioActive(uuid.NewString(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "NOT_FOUND",
				"message": "template not found",
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.GetTemplate(uuid.NewString(), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") || !strings.Contains(err.Error(), "template not found") {
		t.Errorf("expected code and message in error, got: %v", err)
	}
}

func TestClient_APIError_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.GetExecution(uuid.NewString())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected HTTP status in error, got: %v", err)
	}
}

func TestClient_DeleteScenario_Force(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if got := r.URL.Query().Get("force"); got != "true" {
			t.Errorf("expected force=true, got %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.DeleteScenario(uuid.NewString(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_GenerateBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/generate/batch" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req GenerateBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Count != 100 {
			t.Errorf("expected count 100, got %d", req.Count)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": BatchResponse{Requested: 100, Succeeded: 100, Chunks: 1},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	res, err := c.GenerateBatch(GenerateBatchRequest{
		TemplateID: uuid.NewString(),
		Bindings:   map[string]string{"UserName": "alice"},
		Count:      100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded != 100 || res.Chunks != 1 {
		t.Errorf("unexpected batch result: %+v", res)
	}
}
