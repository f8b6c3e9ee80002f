package dirhash

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// jsonResult is the --format json document for a successful run
type jsonResult struct {
	*Result
	Entries    int     `json:"entries"`
	DurationMs float64 `json:"duration_ms"`
	Cached     bool    `json:"cached,omitempty"`
}

// jsonError is the --format json document for a failed run
type jsonError struct {
	Root  string `json:"root"`
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error"`
}

// WriteResult prints a result in the given output format. The human format is
// the bare digest on one line.
func WriteResult(w io.Writer, result *Result, format string, cached bool) error {
	switch strings.ToLower(format) {
	case OutputFormatJSON:
		doc := jsonResult{
			Result:     result,
			Entries:    result.Entries(),
			DurationMs: float64(result.Duration.Microseconds()) / 1000,
			Cached:     cached,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputFormatHuman, "":
		_, err := fmt.Fprintln(w, result.Digest)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteError prints a failure in the given output format. Human output is
// left to the caller's logger.
func WriteError(w io.Writer, root string, err error, format string) error {
	if strings.ToLower(format) != OutputFormatJSON {
		return nil
	}

	doc := jsonError{
		Root:  root,
		Kind:  "Error",
		Error: err.Error(),
	}
	if kind := ErrorKindOf(err); kind != 0 {
		doc.Kind = kind.String()
	}
	var de *DigestError
	if errors.As(err, &de) && de.Kind == KindUnreadableEntry {
		doc.Path = de.Path
	}

	data, encErr := json.MarshalIndent(doc, "", "  ")
	if encErr != nil {
		return fmt.Errorf("failed to encode error: %w", encErr)
	}
	_, encErr = fmt.Fprintln(w, string(data))
	return encErr
}

// DecodeResult parses a document written by WriteResult in JSON format
func DecodeResult(data []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}
