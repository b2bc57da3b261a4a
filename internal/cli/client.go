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

// ControllerResponse — контроллер из API.
type ControllerResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Queue        string `json:"queue"`
	Exchange     string `json:"exchange,omitempty"`
	ExchangeType string `json:"exchange_type"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
}

// LogResponse — журнальная запись из API.
type LogResponse struct {
	ID          string         `json:"id"`
	QueueName   string         `json:"queue_name"`
	Payload     map[string]any `json:"payload,omitempty"`
	Operation   string         `json:"operation"`
	ModelName   string         `json:"model_name,omitempty"`
	RecordID    *int64         `json:"record_id,omitempty"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
	ProcessedAt string         `json:"processed_at,omitempty"`
}

// PurgeResponse — результат retention-свипа.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// dataEnvelope — обёртка успешного ответа API.
type dataEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// listEnvelope — обёртка ответа со списком.
type listEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total,omitempty"`
}

// errorEnvelope — обёртка ответа с ошибкой.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client — HTTP клиент admin API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт Client для baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListControllers возвращает все контроллеры.
func (c *Client) ListControllers() ([]ControllerResponse, error) {
	var result []ControllerResponse
	if err := c.getList("/api/v1/controllers", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateControllerOpts — параметры создания контроллера.
type CreateControllerOpts struct {
	Name         string `json:"name,omitempty"`
	Queue        string `json:"queue"`
	Exchange     string `json:"exchange,omitempty"`
	ExchangeType string `json:"exchange_type,omitempty"`
}

// CreateController создаёт контроллер.
func (c *Client) CreateController(opts CreateControllerOpts) (*ControllerResponse, error) {
	var result ControllerResponse
	if _, err := c.do(http.MethodPost, "/api/v1/controllers", opts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetController возвращает контроллер по ID.
func (c *Client) GetController(id string) (*ControllerResponse, error) {
	var result ControllerResponse
	if _, err := c.do(http.MethodGet, "/api/v1/controllers/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartController запускает consumer контроллера.
// Вторым значением возвращается пояснение сервера ("already running").
func (c *Client) StartController(id string) (*ControllerResponse, string, error) {
	var result ControllerResponse
	msg, err := c.do(http.MethodPost, "/api/v1/controllers/"+id+"/start", nil, &result)
	if err != nil {
		return nil, "", err
	}
	return &result, msg, nil
}

// StopController останавливает consumer контроллера.
func (c *Client) StopController(id string) (*ControllerResponse, error) {
	var result ControllerResponse
	if _, err := c.do(http.MethodPost, "/api/v1/controllers/"+id+"/stop", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteController удаляет контроллер (должен быть остановлен).
func (c *Client) DeleteController(id string) (*ControllerResponse, error) {
	var result ControllerResponse
	if _, err := c.do(http.MethodDelete, "/api/v1/controllers/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListLogsOpts — фильтры списка журнала.
type ListLogsOpts struct {
	Status string
	Limit  int
}

// ListLogs возвращает журнальные записи.
func (c *Client) ListLogs(opts ListLogsOpts) ([]LogResponse, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var result []LogResponse
	if err := c.getList("/api/v1/logs", query, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetLog возвращает журнальную запись по ID.
func (c *Client) GetLog(id string) (*LogResponse, error) {
	var result LogResponse
	if _, err := c.do(http.MethodGet, "/api/v1/logs/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RetryLog повторяет обработку записи.
func (c *Client) RetryLog(id string) (*LogResponse, error) {
	var result LogResponse
	if _, err := c.do(http.MethodPost, "/api/v1/logs/"+id+"/retry", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Purge запускает retention-свип. retentionHours <= 0 — окно по умолчанию.
func (c *Client) Purge(retentionHours int) (int64, error) {
	body := map[string]int{"retention_hours": retentionHours}
	var result PurgeResponse
	if _, err := c.do(http.MethodPost, "/api/v1/logs/purge", body, &result); err != nil {
		return 0, err
	}
	return result.Purged, nil
}

// do выполняет запрос и декодирует data-обёртку.
// Возвращает message из ответа (если есть).
func (c *Client) do(method, path string, body, out any) (string, error) {
	raw, msg, err := c.request(method, path, nil, body)
	if err != nil {
		return "", err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}
	return msg, nil
}

// getList выполняет GET и декодирует list-обёртку.
func (c *Client) getList(path string, query url.Values, out any) error {
	raw, _, err := c.request(http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) request(method, path string, query url.Values, body any) (json.RawMessage, string, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, u, reqBody)
	if err != nil {
		return nil, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr errorEnvelope
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, "", fmt.Errorf("%s", apiErr.Error.Message)
		}
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Список приходит в list-обёртке, остальное — в data-обёртке.
	var list listEnvelope
	var data dataEnvelope
	if err := json.Unmarshal(respBody, &data); err == nil && data.Data != nil {
		return data.Data, data.Message, nil
	}
	if err := json.Unmarshal(respBody, &list); err == nil && list.Data != nil {
		return list.Data, "", nil
	}
	return respBody, "", nil
}
