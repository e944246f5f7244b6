package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case common.CodeInvalidArgument, common.CodeInvalidCode:
		return http.StatusBadRequest
	case common.CodeInvalidCredentials, common.CodeInvalidToken:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeAlreadyExists, common.CodeAlreadyGenerated:
		return http.StatusConflict
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {message, code}. Uncoded and infrastructure
// errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, l logging.Logger, err error) {
	code := common.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Message: common.MsgInternal, Code: common.CodeInfraError}
	if status != http.StatusInternalServerError {
		body = errorBody{Message: err.Error(), Code: code}
	} else {
		logging.LogError(r.Context(), l, "request failed", err, "method", r.Method, "path", r.URL.Path)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.InvalidArgument("Malformed JSON body")
	}
	return nil
}
