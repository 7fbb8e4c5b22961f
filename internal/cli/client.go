package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ParameterSpec — параметр шаблона из API.
type ParameterSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
}

// TemplateResponse — шаблон события из API.
type TemplateResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Channel        string          `json:"channel"`
	EventID        int             `json:"event_id"`
	Level          string          `json:"level"`
	Source         string          `json:"source"`
	Parameters     []ParameterSpec `json:"parameters,omitempty"`
	MitreTechnique string          `json:"mitre_technique,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      string          `json:"created_at"`
}

// ScenarioEvent — событие сценария из API.
type ScenarioEvent struct {
	ID         string            `json:"id"`
	TemplateID string            `json:"template_id"`
	Sequence   int               `json:"sequence,omitempty"`
	Delay      int64             `json:"delay,omitempty"`
	DependsOn  []string          `json:"depends_on,omitempty"`
	Bindings   map[string]string `json:"bindings,omitempty"`
}

// ScenarioResponse — сценарий из API.
type ScenarioResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	MitreTechnique string          `json:"mitre_technique,omitempty"`
	IsActive       bool            `json:"is_active"`
	Version        string          `json:"version"`
	Events         []ScenarioEvent `json:"events"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// ExecutionResponse — запуск из API.
type ExecutionResponse struct {
	ID              string `json:"id"`
	ScenarioID      string `json:"scenario_id"`
	Revision        int    `json:"revision"`
	Status          string `json:"status"`
	EventsGenerated int    `json:"events_generated"`
	EventsFailed    int    `json:"events_failed"`
	StartedAt       string `json:"started_at,omitempty"`
	FinishedAt      string `json:"finished_at,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ScheduleResponse — расписание из API.
type ScheduleResponse struct {
	ID              string `json:"id"`
	ScenarioID      string `json:"scenario_id"`
	Name            string `json:"name,omitempty"`
	CronExpr        string `json:"cron_expr,omitempty"`
	IntervalSec     int    `json:"interval_sec,omitempty"`
	Timezone        string `json:"timezone"`
	Enabled         bool   `json:"enabled"`
	NextDueAt       string `json:"next_due_at,omitempty"`
	LastRunAt       string `json:"last_run_at,omitempty"`
	LastExecutionID string `json:"last_execution_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// GenerationResponse — итог генерации одного события из API.
type GenerationResponse struct {
	Success    bool   `json:"success"`
	InstanceID string `json:"instance_id,omitempty"`
	Message    string `json:"message,omitempty"`
	Elapsed    int64  `json:"elapsed"`
}

// BatchResponse — итог пакетной генерации из API.
type BatchResponse struct {
	Requested  int      `json:"requested"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Chunks     int      `json:"chunks"`
	Elapsed    int64    `json:"elapsed"`
	Throughput float64  `json:"throughput"`
	Messages   []string `json:"messages,omitempty"`
}

// --- Request types ---

// CreateTemplateRequest — создание/обновление шаблона.
type CreateTemplateRequest struct {
	Name           string          `json:"name"`
	Channel        string          `json:"channel"`
	EventID        int             `json:"event_id"`
	Level          int             `json:"level"`
	Source         string          `json:"source"`
	Parameters     []ParameterSpec `json:"parameters,omitempty"`
	MitreTechnique string          `json:"mitre_technique,omitempty"`
}

// ExecuteScenarioRequest — запуск сценария.
type ExecuteScenarioRequest struct {
	ContinueOnError bool    `json:"continue_on_error,omitempty"`
	DelayMultiplier float64 `json:"delay_multiplier,omitempty"`
	TimeoutSec      int     `json:"timeout_sec,omitempty"`
}

// CreateScheduleRequest — создание расписания.
type CreateScheduleRequest struct {
	Name        string                 `json:"name,omitempty"`
	CronExpr    string                 `json:"cron_expr,omitempty"`
	IntervalSec int                    `json:"interval_sec,omitempty"`
	Timezone    string                 `json:"timezone,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Options     ExecuteScenarioRequest `json:"options,omitempty"`
}

// GenerateRequest — генерация события из шаблона.
type GenerateRequest struct {
	TemplateID string            `json:"template_id"`
	Bindings   map[string]string `json:"bindings,omitempty"`
}

// GenerateBatchRequest — пакетная генерация.
type GenerateBatchRequest struct {
	TemplateID string            `json:"template_id"`
	Bindings   map[string]string `json:"bindings,omitempty"`
	Count      int               `json:"count"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Fabrica API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Templates ---

// ListTemplates возвращает последние версии всех шаблонов.
func (c *Client) ListTemplates() ([]TemplateResponse, error) {
	var templates []TemplateResponse
	err := c.list("/api/v1/templates", nil, &templates)
	return templates, err
}

// CreateTemplate создаёт новый шаблон.
func (c *Client) CreateTemplate(req CreateTemplateRequest) (*TemplateResponse, error) {
	var tpl TemplateResponse
	err := c.post("/api/v1/templates", req, &tpl)
	return &tpl, err
}

// GetTemplate возвращает шаблон по ID. version <= 0 — последняя версия.
func (c *Client) GetTemplate(id string, version int) (*TemplateResponse, error) {
	path := "/api/v1/templates/" + id
	if version > 0 {
		path += fmt.Sprintf("?version=%d", version)
	}
	var tpl TemplateResponse
	err := c.get(path, &tpl)
	return &tpl, err
}

// UpdateTemplate сохраняет правку шаблона следующей версией.
func (c *Client) UpdateTemplate(id string, req CreateTemplateRequest) (*TemplateResponse, error) {
	var tpl TemplateResponse
	err := c.put("/api/v1/templates/"+id, req, &tpl)
	return &tpl, err
}

// DeleteTemplate удаляет шаблон со всеми версиями.
func (c *Client) DeleteTemplate(id string) error {
	return c.delete("/api/v1/templates/" + id)
}

// --- Scenarios ---

// ListScenarios возвращает все сценарии.
func (c *Client) ListScenarios() ([]ScenarioResponse, error) {
	var scenarios []ScenarioResponse
	err := c.list("/api/v1/scenarios", nil, &scenarios)
	return scenarios, err
}

// CreateScenario создаёт сценарий из JSON-описания.
func (c *Client) CreateScenario(spec json.RawMessage) (*ScenarioResponse, error) {
	var sc ScenarioResponse
	err := c.post("/api/v1/scenarios", spec, &sc)
	return &sc, err
}

// GetScenario возвращает сценарий по ID. revision <= 0 — последняя ревизия.
func (c *Client) GetScenario(id string, revision int) (*ScenarioResponse, error) {
	path := "/api/v1/scenarios/" + id
	if revision > 0 {
		path += fmt.Sprintf("?revision=%d", revision)
	}
	var sc ScenarioResponse
	err := c.get(path, &sc)
	return &sc, err
}

// UpdateScenario сохраняет правку сценария следующей ревизией.
func (c *Client) UpdateScenario(id string, spec json.RawMessage) (*ScenarioResponse, error) {
	var sc ScenarioResponse
	err := c.put("/api/v1/scenarios/"+id, spec, &sc)
	return &sc, err
}

// DeleteScenario удаляет сценарий. force отменяет текущее выполнение.
func (c *Client) DeleteScenario(id string, force bool) error {
	path := "/api/v1/scenarios/" + id
	if force {
		path += "?force=true"
	}
	return c.delete(path)
}

// SetScenarioActive включает/выключает сценарий.
func (c *Client) SetScenarioActive(id string, active bool) error {
	body := map[string]bool{"active": active}
	return c.put("/api/v1/scenarios/"+id+"/active", body, nil)
}

// --- Executions ---

// ExecuteScenario создаёт запуск сценария.
func (c *Client) ExecuteScenario(scenarioID string, req ExecuteScenarioRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/scenarios/"+scenarioID+"/executions", req, &exec)
	return &exec, err
}

// ListExecutions возвращает запуски сценария.
func (c *Client) ListExecutions(scenarioID string, limit int) ([]ExecutionResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/scenarios/"+scenarioID+"/executions", params, &execs)
	return execs, err
}

// GetExecution возвращает запуск по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// CancelExecution отменяет выполнение сценария.
func (c *Client) CancelExecution(scenarioID string) error {
	return c.doData(http.MethodPost, "/api/v1/scenarios/"+scenarioID+"/cancel", nil, nil)
}

// --- Schedules ---

// ListSchedules возвращает все расписания.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// CreateSchedule создаёт расписание для сценария.
func (c *Client) CreateSchedule(scenarioID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var sched ScheduleResponse
	err := c.post("/api/v1/scenarios/"+scenarioID+"/schedules", req, &sched)
	return &sched, err
}

// GetSchedule возвращает расписание по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var sched ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &sched)
	return &sched, err
}

// DeleteSchedule удаляет расписание.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает расписание.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var sched ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &sched)
	return &sched, err
}

// DisableSchedule выключает расписание.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var sched ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &sched)
	return &sched, err
}

// --- Generation ---

// Generate генерирует одно событие из шаблона.
func (c *Client) Generate(req GenerateRequest) (*GenerationResponse, error) {
	var result GenerationResponse
	err := c.post("/api/v1/generate", req, &result)
	return &result, err
}

// GenerateBatch генерирует пакет событий из шаблона.
func (c *Client) GenerateBatch(req GenerateBatchRequest) (*BatchResponse, error) {
	var result BatchResponse
	err := c.post("/api/v1/generate/batch", req, &result)
	return &result, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
