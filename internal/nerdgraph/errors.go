package nerdgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GraphQLError is one entry of the top-level "errors" list a NerdGraph
// response may carry.
type GraphQLError struct {
	Message    string          `json:"message"`
	Path       []interface{}   `json:"path,omitempty"`
	Extensions json.RawMessage `json:"extensions,omitempty"`
}

// APIError is the failure kind for everything NerdGraph can refuse:
// non-success HTTP statuses, responses with a top-level error list, and
// mutations that report an error inside an otherwise successful
// response. Callers only ever need to know that the API said no; the
// fields preserve what it said.
type APIError struct {
	// StatusCode is set when the HTTP status was outside the 2xx range.
	StatusCode int
	// Errors holds the decoded top-level error list, when there was one.
	Errors []GraphQLError
	// Body carries the raw response body for HTTP failures, or a
	// description for errors reported inside the response data.
	Body string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d response returned: %s", e.StatusCode, e.Body)
	}
	if len(e.Errors) > 0 {
		messages := make([]string, 0, len(e.Errors))
		for _, err := range e.Errors {
			messages = append(messages, err.Message)
		}
		return strings.Join(messages, ", ")
	}
	return e.Body
}

// NewAPIError builds an APIError for failures the API reports inside a
// successful response, such as a create mutation returning an embedded
// error or a null resource.
func NewAPIError(format string, args ...interface{}) *APIError {
	return &APIError{Body: fmt.Sprintf(format, args...)}
}

func newHTTPError(statusCode int, body []byte) *APIError {
	return &APIError{StatusCode: statusCode, Body: string(body)}
}

func newGraphQLError(errs []GraphQLError) *APIError {
	return &APIError{Errors: errs}
}
