package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// successBody は成功レスポンスの共通形式。
type successBody struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// writeSuccess は成功レスポンスを書き込む。idは省略可。
func writeSuccess(w http.ResponseWriter, statusCode int, id string) {
	writeJSON(w, statusCode, successBody{Status: "success", ID: id})
}
