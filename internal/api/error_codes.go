// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest   = "BAD_REQUEST"
	ErrorNotFound     = "NOT_FOUND"
	ErrorUnauthorized = "UNAUTHORIZED"
	ErrorRateLimited  = "RATE_LIMIT_EXCEEDED"

	// 草稿相关错误
	ErrorInvalidIndex  = "DRAFT_INVALID_INDEX"
	ErrorPublishFailed = "PUBLISH_FAILED"

	// WebSocket
	ErrorUnknownOperation = "WS_UNKNOWN_OPERATION"
)
