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

// TemplateResponse — шаблон из API.
type TemplateResponse struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Description string           `json:"description,omitempty"`
	Parameters  []map[string]any `json:"parameters,omitempty"`
	Steps       []map[string]any `json:"steps"`
}

// PipelineResponse — pipeline из API.
type PipelineResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// PipelineVersionResponse — версия pipeline из API.
type PipelineVersionResponse struct {
	PipelineID string         `json:"pipeline_id"`
	Version    int            `json:"version"`
	Def        map[string]any `json:"def"`
	CreatedAt  string         `json:"created_at"`
}

// PlanResponse — запись плана из API.
type PlanResponse struct {
	ID             string         `json:"id"`
	PipelineID     string         `json:"pipeline_id"`
	Version        int            `json:"version"`
	Status         string         `json:"status"`
	Plan           map[string]any `json:"plan,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	FinishedAt     string         `json:"finished_at,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// TriggerResponse — trigger из API.
type TriggerResponse struct {
	ID          string `json:"id"`
	PipelineID  string `json:"pipeline_id"`
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone"`
	Enabled     bool   `json:"enabled"`
	NextDueAt   string `json:"next_due_at,omitempty"`
	LastFiredAt string `json:"last_fired_at,omitempty"`
	LastPlanID  string `json:"last_plan_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// --- Request types ---

// UpdatePipelineRequest — обновление pipeline.
type UpdatePipelineRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// RequestPlanRequest — запрос плана.
type RequestPlanRequest struct {
	Version        *int   `json:"version,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateTriggerRequest — создание trigger.
type CreateTriggerRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UpdateTriggerRequest — обновление trigger.
type UpdateTriggerRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListPlansOpts — параметры фильтрации plans.
type ListPlansOpts struct {
	PipelineID string
	Status     string
	Limit      int
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

// Client — HTTP-клиент для Conductor API.
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

// ListTemplates возвращает все шаблоны.
func (c *Client) ListTemplates() ([]TemplateResponse, error) {
	var templates []TemplateResponse
	err := c.list("/api/v1/templates", nil, &templates)
	return templates, err
}

// RegisterTemplate регистрирует шаблон из сырого JSON.
func (c *Client) RegisterTemplate(def json.RawMessage) (*TemplateResponse, error) {
	var template TemplateResponse
	err := c.post("/api/v1/templates", def, &template)
	return &template, err
}

// GetTemplate возвращает шаблон по имени и версии.
func (c *Client) GetTemplate(name, version string) (*TemplateResponse, error) {
	var template TemplateResponse
	err := c.get("/api/v1/templates/"+name+"/versions/"+version, &template)
	return &template, err
}

// ListTemplateVersions возвращает все версии шаблона.
func (c *Client) ListTemplateVersions(name string) ([]TemplateResponse, error) {
	var templates []TemplateResponse
	err := c.list("/api/v1/templates/"+name+"/versions", nil, &templates)
	return templates, err
}

// DeleteTemplate удаляет шаблон.
func (c *Client) DeleteTemplate(name, version string) error {
	return c.delete("/api/v1/templates/" + name + "/versions/" + version)
}

// --- Pipelines ---

// ListPipelines возвращает все pipelines.
func (c *Client) ListPipelines() ([]PipelineResponse, error) {
	var pipelines []PipelineResponse
	err := c.list("/api/v1/pipelines", nil, &pipelines)
	return pipelines, err
}

// CreatePipeline создаёт новый pipeline.
func (c *Client) CreatePipeline(name string) (*PipelineResponse, error) {
	body := map[string]string{"name": name}
	var pipeline PipelineResponse
	err := c.post("/api/v1/pipelines", body, &pipeline)
	return &pipeline, err
}

// GetPipeline возвращает pipeline по ID.
func (c *Client) GetPipeline(id string) (*PipelineResponse, error) {
	var pipeline PipelineResponse
	err := c.get("/api/v1/pipelines/"+id, &pipeline)
	return &pipeline, err
}

// UpdatePipeline обновляет pipeline.
func (c *Client) UpdatePipeline(id string, req UpdatePipelineRequest) (*PipelineResponse, error) {
	var pipeline PipelineResponse
	err := c.put("/api/v1/pipelines/"+id, req, &pipeline)
	return &pipeline, err
}

// DeletePipeline удаляет pipeline.
func (c *Client) DeletePipeline(id string) error {
	return c.delete("/api/v1/pipelines/" + id)
}

// ListVersions возвращает версии pipeline.
func (c *Client) ListVersions(pipelineID string) ([]PipelineVersionResponse, error) {
	var versions []PipelineVersionResponse
	err := c.list("/api/v1/pipelines/"+pipelineID+"/versions", nil, &versions)
	return versions, err
}

// CreateVersion создаёт новую версию pipeline.
func (c *Client) CreateVersion(pipelineID string, def json.RawMessage) (*PipelineVersionResponse, error) {
	body := map[string]json.RawMessage{"def": def}
	var version PipelineVersionResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/versions", body, &version)
	return &version, err
}

// --- Plans ---

// ListPlans возвращает список записей планов с фильтрацией.
func (c *Client) ListPlans(opts ListPlansOpts) ([]PlanResponse, error) {
	params := url.Values{}
	if opts.PipelineID != "" {
		params.Set("pipeline_id", opts.PipelineID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var plans []PlanResponse
	err := c.list("/api/v1/plans", params, &plans)
	return plans, err
}

// RequestPlan создаёт запрос плана для pipeline.
func (c *Client) RequestPlan(pipelineID string, req RequestPlanRequest) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/plans", req, &plan)
	return &plan, err
}

// GetPlan возвращает запись плана по ID.
func (c *Client) GetPlan(id string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.get("/api/v1/plans/"+id, &plan)
	return &plan, err
}

// PreviewPlan строит план в режиме dry-run из сырого JSON запроса.
func (c *Client) PreviewPlan(req json.RawMessage) (map[string]any, error) {
	var plan map[string]any
	err := c.post("/api/v1/plans/preview", req, &plan)
	return plan, err
}

// --- Triggers ---

// ListTriggers возвращает triggers. Если pipelineID не пустой — фильтрует.
func (c *Client) ListTriggers(pipelineID string) ([]TriggerResponse, error) {
	params := url.Values{}
	if pipelineID != "" {
		params.Set("pipeline_id", pipelineID)
	}

	var triggers []TriggerResponse
	err := c.list("/api/v1/triggers", params, &triggers)
	return triggers, err
}

// CreateTrigger создаёт trigger для pipeline.
func (c *Client) CreateTrigger(pipelineID string, req CreateTriggerRequest) (*TriggerResponse, error) {
	var trigger TriggerResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/triggers", req, &trigger)
	return &trigger, err
}

// GetTrigger возвращает trigger по ID.
func (c *Client) GetTrigger(id string) (*TriggerResponse, error) {
	var trigger TriggerResponse
	err := c.get("/api/v1/triggers/"+id, &trigger)
	return &trigger, err
}

// UpdateTrigger обновляет trigger.
func (c *Client) UpdateTrigger(id string, req UpdateTriggerRequest) (*TriggerResponse, error) {
	var trigger TriggerResponse
	err := c.put("/api/v1/triggers/"+id, req, &trigger)
	return &trigger, err
}

// DeleteTrigger удаляет trigger.
func (c *Client) DeleteTrigger(id string) error {
	return c.delete("/api/v1/triggers/" + id)
}

// EnableTrigger включает trigger.
func (c *Client) EnableTrigger(id string) (*TriggerResponse, error) {
	var trigger TriggerResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/triggers/"+id+"/enabled", body, &trigger)
	return &trigger, err
}

// DisableTrigger выключает trigger.
func (c *Client) DisableTrigger(id string) (*TriggerResponse, error) {
	var trigger TriggerResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/triggers/"+id+"/enabled", body, &trigger)
	return &trigger, err
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
