package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed request
type Kind int

const (
	KindUnauthorized Kind = iota + 1 // 401: credential missing, expired or rejected
	KindValidation                   // other 4xx: input rejected, field messages attached
	KindUnreachable                  // no response at all
	KindNotFound                     // 404: dataset or report no longer exists
	KindServer                       // 5xx
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindUnreachable:
		return "unreachable"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// ErrCanceled is returned when the caller aborted the request
var ErrCanceled = errors.New("request canceled")

// Error is a classified request failure
type Error struct {
	Kind    Kind
	Status  int                 // 0 when there was no response
	Message string              // server-supplied "error" or "detail", if any
	Fields  map[string][]string // field-level messages, verbatim
	Err     error               // transport error for KindUnreachable
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Status != 0 && e.Text() != "":
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Text())
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Text joins the server-reported messages into one line. Messages that are
// not tied to a field are shown bare; the rest are prefixed with the field.
func (e *Error) Text() string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msgs := strings.Join(e.Fields[k], " ")
		if msgs == "" {
			continue
		}
		if k == "non_field_errors" {
			parts = append(parts, msgs)
			continue
		}
		parts = append(parts, k+": "+msgs)
	}
	return strings.Join(parts, "; ")
}

// KindOf reports the classification of err, if it carries one
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsUnauthorized is shorthand for KindOf(err) == KindUnauthorized
func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindUnauthorized
}

// classify turns a non-2xx response into an *Error
func classify(status int, body []byte) *Error {
	e := &Error{Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 400 && status < 500:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}

	e.Message, e.Fields = parseErrorBody(body)
	if e.Kind == KindValidation && e.Message == "" && len(e.Fields) == 0 {
		e.Message = http.StatusText(status)
	}
	return e
}

// parseErrorBody understands the shapes Django REST framework produces:
// {"error": "..."}, {"detail": "..."}, {"field": ["..."]} and ["..."].
func parseErrorBody(body []byte) (string, map[string][]string) {
	if len(body) == 0 {
		return "", nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []string
		if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
			return "", map[string][]string{"non_field_errors": list}
		}
		return "", nil
	}

	var message string
	fields := make(map[string][]string)
	for k, raw := range obj {
		msgs := decodeMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if k == "error" || k == "detail" {
			message = strings.Join(msgs, " ")
			continue
		}
		fields[k] = msgs
	}
	if len(fields) == 0 {
		fields = nil
	}
	return message, fields
}

func decodeMessages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	var nested map[string]any
	if err := json.Unmarshal(raw, &nested); err == nil {
		out := make([]string, 0, len(nested))
		for k, v := range nested {
			out = append(out, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(out)
		return out
	}
	return nil
}

// SessionExpiredMessage is shown for any Unauthorized classification
const SessionExpiredMessage = "Your session has expired. Please log out and log in again."

// Describe turns err into the text shown to the user. fallback covers
// failures with nothing more specific to say.
func Describe(err error, fallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}
	switch apiErr.Kind {
	case KindUnauthorized:
		return SessionExpiredMessage
	case KindValidation:
		if text := apiErr.Text(); text != "" {
			return text
		}
	case KindServer:
		if apiErr.Message != "" && apiErr.Err == nil {
			return apiErr.Message
		}
	}
	return fallback
}
