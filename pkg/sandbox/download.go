package sandbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	base64StartMarker = "BASE64_START"
	base64EndMarker   = "BASE64_END"
	fileNotFoundLine  = "ERROR: File not found"
)

// ErrFileNotFound is returned by Download when the path does not exist in
// the sandbox.
var ErrFileNotFound = errors.New("file not found in sandbox")

// ErrDownloadFailed is returned by Download when the sandbox answered but
// the file could not be read or decoded.
var ErrDownloadFailed = errors.New("sandbox download failed")

// downloadScript prints the file base64-encoded between markers so that it
// survives a text-only stdout channel. The path arrives base64-encoded too
// and is used as a bytes path, so any byte sequence is preserved.
const downloadScript = `import base64
import os

path = base64.b64decode("%s")
if not os.path.exists(path):
    print("` + fileNotFoundLine + `")
else:
    with open(path, "rb") as f:
        print("` + base64StartMarker + `")
        print(base64.b64encode(f.read()).decode("ascii"))
        print("` + base64EndMarker + `")
`

// Download copies a file out of the sandbox by running a Python snippet
// that prints its contents base64-encoded. Networking stays disabled.
//
// Each call is an independent execution. With a hosted service this only
// finds files the service keeps between executions.
func Download(ctx context.Context, exec Executor, remotePath string) ([]byte, error) {
	if remotePath == "" {
		return nil, fmt.Errorf("download: empty path")
	}

	res, err := NewAdapter(exec).Run(ctx, &ExecutionRequest{
		Code:     fmt.Sprintf(downloadScript, base64.StdEncoding.EncodeToString([]byte(remotePath))),
		Language: Python,
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", remotePath, err)
	}
	if !res.Succeeded() {
		return nil, fmt.Errorf("%w: %s: %s", ErrDownloadFailed, remotePath, FormatResult(res))
	}
	return decodeMarkedOutput(res.Stdout, remotePath)
}

// decodeMarkedOutput extracts and decodes the base64 payload between the
// start and end markers.
func decodeMarkedOutput(stdout, remotePath string) ([]byte, error) {
	if strings.Contains(stdout, fileNotFoundLine) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, remotePath)
	}

	start := strings.Index(stdout, base64StartMarker)
	end := strings.Index(stdout, base64EndMarker)
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("%w: %s: markers missing from sandbox output", ErrDownloadFailed, remotePath)
	}

	encoded := stdout[start+len(base64StartMarker) : end]
	encoded = strings.Join(strings.Fields(encoded), "")

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decoding payload: %v", ErrDownloadFailed, remotePath, err)
	}
	return data, nil
}
