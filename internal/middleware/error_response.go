package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/takumi/postgate/internal/model"
)

// FailResponseBody はAPIエラーレスポンスの統一フォーマット。
// 成功パス（リダイレクト）以外のすべての失敗はこの形で返す。
type FailResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteErrorResponse はAPIErrorをステータスコードに対応付けてJSONで書き込む。
// 下層のエラー型をそのままレスポンスに漏らさないための唯一の出口。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	WriteFail(w, apiErr.Status, apiErr.Message)
}

// WriteFail は統一フォーマット {"status":"fail","message":...} を書き込む。
func WriteFail(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(FailResponseBody{
		Status:  "fail",
		Message: message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteFail(w, http.StatusInternalServerError, "internal error")
}
