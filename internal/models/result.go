// internal/models/result.go
package models

// QueryResult is the structured answer a handler produces for one question:
// plain scalars, flat row maps, and optional truncated flags. It carries no
// query text and nothing executable.
type QueryResult map[string]interface{}

// ErrorResult wraps a short user-facing message as a renderable result.
func ErrorResult(msg string) QueryResult {
	return QueryResult{"error": msg}
}

// IsError reports whether the result carries a non-empty error message.
func (r QueryResult) IsError() bool {
	v, ok := r["error"]
	if !ok {
		return false
	}
	s, _ := v.(string)
	return s != ""
}
