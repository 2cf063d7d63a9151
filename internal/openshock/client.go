package openshock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/anoixa/shock-panel/config"
	"golang.org/x/sync/errgroup"
)

const (
	// 每个 hub 的 shocker 列表并发拉取上限
	maxConcurrentHubFetches = 4

	// 错误详情截断长度
	maxErrorDetailLength = 200

	tokenHeader = "Open-Shock-Token"
)

// ControlType 控制命令类型。此层不做封闭校验，调用方可信。
type ControlType string

const (
	ControlShock   ControlType = "Shock"
	ControlVibrate ControlType = "Vibrate"
	ControlSound   ControlType = "Sound"
)

// ShockerRecord 平台返回的 shocker 记录，附带所属 hub 的元数据。
// 标识缺失或 hub 名称未解析的记录属于噪声，由调用方过滤。
type ShockerRecord struct {
	ID       string
	Name     string
	IsPaused bool

	DeviceID     string
	DeviceName   string
	DeviceOnline bool
}

// ControlCommand 单条控制命令
type ControlCommand struct {
	ShockerID string
	Type      ControlType
	Intensity int
	Duration  int
}

// Validate 在任何网络调用之前校验参数
func (c *ControlCommand) Validate() error {
	if c.ShockerID == "" {
		return &InvalidParameterError{Param: "shocker_id", Reason: "must not be empty"}
	}
	if c.Intensity < 0 || c.Intensity > 100 {
		return &InvalidParameterError{Param: "intensity", Reason: "must be between 0 and 100"}
	}
	if c.Duration < 300 || c.Duration > 30000 {
		return &InvalidParameterError{Param: "duration", Reason: "must be between 300 and 30000 milliseconds"}
	}
	return nil
}

// Client OpenShock 平台 HTTP 客户端
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient 创建新的平台客户端
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.OpenShockTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   cfg.OpenShockBaseURL,
		userAgent: cfg.OpenShockUserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type hubPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type shockerPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsPaused bool   `json:"isPaused"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// ListShockers 列出用户的所有 shocker：先拉取 hub 列表，再逐个 hub
// 拉取其 shocker 并展平为一个列表，每条记录附带 hub 名称和在线状态。
func (c *Client) ListShockers(ctx context.Context, apiKey string) ([]ShockerRecord, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	resp, err := c.doGet(ctx, apiKey, "/1/devices")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var hubs listResponse[hubPayload]
	if err := json.NewDecoder(resp.Body).Decode(&hubs); err != nil {
		return nil, fmt.Errorf("failed to decode devices response: %w", err)
	}

	var mu sync.Mutex
	var records []ShockerRecord

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentHubFetches)

	for _, hub := range hubs.Data {
		if hub.ID == "" {
			continue
		}
		group.Go(func() error {
			shockers, err := c.listHubShockers(groupCtx, apiKey, hub)
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, shockers...)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// listHubShockers 拉取单个 hub 的 shocker 列表。非 200 的 hub 跳过，
// 不影响其它 hub（与平台行为一致：离线 hub 仍会出现在设备列表中）。
func (c *Client) listHubShockers(ctx context.Context, apiKey string, hub hubPayload) ([]ShockerRecord, error) {
	resp, err := c.doGet(ctx, apiKey, "/1/devices/"+hub.ID+"/shockers")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var shockers listResponse[shockerPayload]
	if err := json.NewDecoder(resp.Body).Decode(&shockers); err != nil {
		return nil, fmt.Errorf("failed to decode shockers response: %w", err)
	}

	records := make([]ShockerRecord, 0, len(shockers.Data))
	for _, s := range shockers.Data {
		records = append(records, ShockerRecord{
			ID:           s.ID,
			Name:         s.Name,
			IsPaused:     s.IsPaused,
			DeviceID:     hub.ID,
			DeviceName:   hub.Name,
			DeviceOnline: hub.Online,
		})
	}
	return records, nil
}

type controlEntry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Intensity int    `json:"intensity"`
	Duration  int    `json:"duration"`
	Exclusive bool   `json:"exclusive"`
}

// SendControl 发送控制命令。参数在任何网络调用之前校验；
// 命令以单元素批量发送并标记 exclusive，抢占设备上正在执行的命令。
func (c *Client) SendControl(ctx context.Context, apiKey string, cmd ControlCommand) error {
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	payload := []controlEntry{
		{
			ID:        cmd.ShockerID,
			Type:      string(cmd.Type),
			Intensity: cmd.Intensity,
			Duration:  cmd.Duration,
			Exclusive: true,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode control payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/1/shockers/control", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build control request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(tokenHeader, apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyNetworkError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	default:
		return &UpstreamError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
}

func (c *Client) doGet(ctx context.Context, apiKey string, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(tokenHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	return resp, nil
}

// classifyNetworkError 将网络层错误归类为超时或不可达
func classifyNetworkError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// readDetail 读取响应体作为诊断信息，截断到 200 字符
func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorDetailLength+1))
	if err != nil || len(data) == 0 {
		return ""
	}
	if len(data) > maxErrorDetailLength {
		data = data[:maxErrorDetailLength]
	}
	return string(data)
}
