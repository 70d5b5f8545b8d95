package executor

import (
	"bytes"
	"encoding/json"
	"errors"
)

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// ExtensionsError is implemented by resolver errors that carry structured
// details for the "extensions" entry of a located error.
type ExtensionsError interface {
	error
	Extensions() map[string]any
}

// fieldError converts a resolver error into a located error at path.
func fieldError(err error, path Path) GraphQLError {
	ge := GraphQLError{Message: err.Error(), Path: path}
	var ext ExtensionsError
	if errors.As(err, &ext) {
		ge.Extensions = ext.Extensions()
	}
	return ge
}

// Object is a response object. Entries keep the order in which the fields
// were requested and are marshalled to JSON in that order.
type Object []ObjectEntry

type ObjectEntry struct {
	Key   string
	Value any
}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// set replaces the value under an existing key. It reports false when the
// key is absent.
func (o Object) set(key string, value any) bool {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return true
		}
	}
	return false
}

func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
