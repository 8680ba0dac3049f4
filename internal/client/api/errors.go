package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/timeline/internal/common"
)

// ErrUnavailable reports that the server could not be reached.
var ErrUnavailable = errors.New("server unavailable")

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

var kindByStatus = map[int]common.Kind{
	http.StatusBadRequest:            common.KindValidation,
	http.StatusRequestEntityTooLarge: common.KindValidation,
	http.StatusUnauthorized:          common.KindUnauthorized,
	http.StatusForbidden:             common.KindForbidden,
	http.StatusNotFound:              common.KindNotFound,
	http.StatusConflict:              common.KindConflict,
}

// decodeError turns a non-2xx response into a classified error carrying the
// server message.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
		if len(raw) > 0 && len(raw) < 200 {
			body.Error = string(raw)
		}
	}

	kind, ok := kindByStatus[resp.StatusCode]
	if !ok {
		kind = common.KindInternal
	}

	var cause error
	switch kind {
	case common.KindUnauthorized:
		cause = common.ErrorUnauthorized
		if body.Error == common.ErrTokenExpired.Error() {
			cause = common.ErrTokenExpired
		}
	case common.KindForbidden:
		cause = common.ErrorForbidden
	case common.KindNotFound:
		cause = common.ErrorNotFound
	case common.KindConflict:
		cause = common.ErrorAlreadyExists
	case common.KindInternal:
		if body.Detail != "" {
			cause = errors.New(body.Detail)
		}
	}

	return &common.Error{Kind: kind, Message: body.Error, Err: cause}
}
