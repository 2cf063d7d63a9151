package openshock

import (
	"errors"
	"fmt"
)

// 远端平台调用的错误分类。可预期的失败一律映射为以下类型，
// 不向上层抛出未分类的错误。
var (
	// ErrNoAPIKey API key 未配置
	ErrNoAPIKey = errors.New("OpenShock API key not configured")

	// ErrUnauthenticated API key 被平台拒绝 (401)
	ErrUnauthenticated = errors.New("invalid API key")

	// ErrForbidden API key 无权访问 (401/403 控制接口)
	ErrForbidden = errors.New("invalid API key or access forbidden")

	// ErrNotFound 平台上不存在该设备 (404)
	ErrNotFound = errors.New("shocker not found or access denied")

	// ErrTimeout 请求超时，用户可重试
	ErrTimeout = errors.New("request timed out")

	// ErrUnreachable 网络不可达，用户可重试
	ErrUnreachable = errors.New("connection error")
)

// InvalidParameterError 调用方参数越界，在任何网络调用之前返回
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// UpstreamError 平台返回了预期之外的非 2xx 状态码
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API error %d", e.StatusCode)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
}

// IsRetryable 是否为可由用户重试的网络类失败
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable)
}
