package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。Detailは本番環境以外の内部エラーでのみ設定される。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// StatusFor はエラー分類をHTTPステータスコードに変換する。
// 分類からステータスへの変換はこの関数にのみ置く。
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindAuthenticationRequired:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	case model.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeErrorBody(w, statusCode, ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="postboard"`)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// ErrorWriter はサービス層から返されたエラーをHTTPレスポンスに変換する。
type ErrorWriter struct {
	// ExposeDetail がtrueの場合、想定外のエラーの内容をdetailに含める。本番環境ではfalseにする。
	ExposeDetail bool
}

// NewErrorWriter はErrorWriterを生成する。
func NewErrorWriter(exposeDetail bool) *ErrorWriter {
	return &ErrorWriter{ExposeDetail: exposeDetail}
}

// Write はエラーを分類に応じたステータスコードとボディで書き込む。
// APIError以外のエラーは内部エラーとしてログに記録し、一般的なメッセージを返す。
func (ew *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Kind != model.KindInternal {
		WriteErrorResponse(w, StatusFor(apiErr.Kind), apiErr)
		return
	}

	slog.Error("internal error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	internal := model.NewInternalError()
	body := ErrorResponseBody{
		Code:     internal.Code,
		Message:  internal.Message,
		Category: internal.Category,
		Action:   internal.Action,
	}
	if ew != nil && ew.ExposeDetail {
		body.Detail = err.Error()
	}
	writeErrorBody(w, http.StatusInternalServerError, body)
}
