package model

import (
	"fmt"
	"net/http"
)

// APIError はAPI境界で返すエラーの閉じたバリアント型。
// HTTPステータスへの対応付けをエラー自身が持ち、
// ハンドラーごとに場当たり的なJSONを組み立てることを避ける。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアントに返すメッセージ
	Status  int    // HTTPステータスコード
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingCode         = "MISSING_CODE"
	ErrCodeExchangeFailed      = "EXCHANGE_FAILED"
	ErrCodeIdentityFetchFailed = "IDENTITY_FETCH_FAILED"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUpdateFailed        = "UPDATE_FAILED"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewMissingCodeError は認可コード未指定エラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingCode,
		Message: "Authorization code not provided!",
		Status:  http.StatusUnauthorized,
	}
}

// NewExchangeFailedError はプロバイダーとのトークン交換失敗エラーを生成する。
// OAuth設定ミスの調査用途として、プロバイダー側のメッセージを意図的に露出する。
func NewExchangeFailedError(providerMessage string) *APIError {
	return &APIError{
		Code:    ErrCodeExchangeFailed,
		Message: providerMessage,
		Status:  http.StatusBadGateway,
	}
}

// NewIdentityFetchFailedError はプロバイダーからのプロフィール取得失敗エラーを生成する。
func NewIdentityFetchFailedError(providerMessage string) *APIError {
	return &APIError{
		Code:    ErrCodeIdentityFetchFailed,
		Message: providerMessage,
		Status:  http.StatusBadGateway,
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewValidationError はフィールド検証エラーを生成する。
// メッセージには対象フィールド名を含める。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("Validation error on field: %s", field),
		Status:  http.StatusBadRequest,
	}
}

// NewUpdateFailedError は更新対象0件エラーを生成する。
// トランスポートエラー（500）とは区別する。
func NewUpdateFailedError() *APIError {
	return &APIError{
		Code:    ErrCodeUpdateFailed,
		Message: "update failed",
		Status:  http.StatusBadRequest,
	}
}

// NewBadRequestError はクライアント起因の汎用エラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログにのみ記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "internal error",
		Status:  http.StatusInternalServerError,
	}
}
