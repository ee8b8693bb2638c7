// Package hosted implements sandbox.Executor against a hosted code
// interpreter reached over HTTPS with a bearer API key.
package hosted

// executeRequest is the body of POST /api/v1/interpreter/execute.
type executeRequest struct {
	Code       string `json:"code"`
	Language   string `json:"language"`
	Networking bool   `json:"networking"`
}

// executeResponse wraps the execution record in a data envelope.
type executeResponse struct {
	Data executionData `json:"data"`
}

type executionData struct {
	Status          string   `json:"status"`
	ExitCode        *int     `json:"exit_code,omitempty"`
	Outputs         []output `json:"outputs"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Error           string   `json:"error,omitempty"`
}

// output is one chunk of captured output. Type is "stdout" or "stderr";
// other types (e.g. "display_data") are ignored.
type output struct {
	Type string `json:"type"`
	Data string `json:"data"`
}
