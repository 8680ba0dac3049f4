package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/timeline/internal/common"
)

const maxJSONBody = 1 << 20

var statusByKind = map[common.Kind]int{
	common.KindValidation:   http.StatusBadRequest,
	common.KindUnauthorized: http.StatusUnauthorized,
	common.KindForbidden:    http.StatusForbidden,
	common.KindNotFound:     http.StatusNotFound,
	common.KindConflict:     http.StatusConflict,
	common.KindInternal:     http.StatusInternalServerError,
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps err to a status code and a JSON body. The cause of an
// internal error is only exposed outside production.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	resp := errorResponse{Error: common.MessageOf(err)}

	if kind == common.KindInternal {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if !s.production {
			resp.Detail = err.Error()
		}
	}

	writeJSON(w, statusByKind[kind], resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.Validation("request body is empty")
		}
		return common.Validation("invalid request body")
	}
	return nil
}
