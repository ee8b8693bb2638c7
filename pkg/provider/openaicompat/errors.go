package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/sandboxagent/pkg/api"
)

// statusErrors maps backend status codes to an APIError constructor and
// the message used when the body carries none.
var statusErrors = map[int]struct {
	build    func(msg string) *api.APIError
	fallback string
}{
	http.StatusBadRequest:      {func(m string) *api.APIError { return api.NewInvalidRequestError("", m) }, "model rejected the request"},
	http.StatusUnauthorized:    {api.NewAuthenticationError, "model backend rejected the API key"},
	http.StatusForbidden:       {api.NewAuthenticationError, "model backend denied access"},
	http.StatusNotFound:        {api.NewNotFoundError, "model or endpoint not found"},
	http.StatusTooManyRequests: {api.NewTooManyRequestsError, "model backend rate limit exceeded"},
}

// MapHTTPError converts a non-2xx backend response into an APIError,
// preferring the message from an OpenAI style error body.
func MapHTTPError(resp *http.Response) *api.APIError {
	msg := ExtractErrorMessage(resp.Body)

	var err *api.APIError
	if e, ok := statusErrors[resp.StatusCode]; ok {
		if msg == "" {
			msg = e.fallback
		}
		err = e.build(msg)
	} else {
		if msg == "" {
			msg = fmt.Sprintf("model backend returned HTTP %d", resp.StatusCode)
		}
		err = api.NewServerError(msg)
	}
	err.StatusCode = resp.StatusCode
	return err
}

// MapNetworkError wraps a transport failure (refused connection, timeout,
// DNS) as a server error.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("model backend unreachable: %v", err))
}

// ExtractErrorMessage returns error.message from a ChatErrorResponse body,
// or "" when the body is empty or not in that format.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp ChatErrorResponse
	if json.Unmarshal(data, &errResp) != nil {
		return ""
	}
	return errResp.Error.Message
}
