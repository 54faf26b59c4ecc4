package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured 上游服务凭证未配置，直接失败，不重试
var ErrNotConfigured = errors.New("上游服务凭证未配置")

// ErrorKind 上游错误分类
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"      // 凭证无效
	KindQuota     ErrorKind = "quota"     // 配额耗尽
	KindTransient ErrorKind = "transient" // 网络层失败
	KindOther     ErrorKind = "other"
)

// UpstreamError 上游服务返回的错误，携带原始状态码和响应内容
type UpstreamError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s 请求失败: %d %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s 请求失败: %s", e.Provider, e.Message)
}

// Classify 根据状态码和响应内容归类上游错误
// 配额检测依赖响应文本的启发式匹配，上游没有结构化错误码，
// 所有匹配规则集中在 isQuotaExceeded 一处
func Classify(provider string, statusCode int, body string) *UpstreamError {
	kind := KindOther
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = KindAuth
	case isQuotaExceeded(statusCode, body):
		kind = KindQuota
	}
	return &UpstreamError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(body),
	}
}

// Transient 网络层失败，未拿到上游响应
func Transient(provider string, err error) *UpstreamError {
	return &UpstreamError{
		Provider: provider,
		Kind:     KindTransient,
		Message:  err.Error(),
	}
}

// isQuotaExceeded 配额耗尽的启发式判断
func isQuotaExceeded(statusCode int, body string) bool {
	if statusCode == 429 {
		return true
	}
	if statusCode != 400 {
		return false
	}
	lower := strings.ToLower(body)
	for _, marker := range []string{"quota", "exceed", "limit reached", "too many"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind ErrorKind) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind == kind
	}
	return false
}

// IsQuota 判断是否为配额错误
func IsQuota(err error) bool {
	return IsKind(err, KindQuota)
}

// IsAuth 判断是否为认证错误
func IsAuth(err error) bool {
	return IsKind(err, KindAuth)
}
