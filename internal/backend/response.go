package backend

import (
	"encoding/json"
)

// errorBody is the backend's standard error payload shape.
type errorBody struct {
	Code    int    `json:"code"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

type successRule[T any] struct {
	code   int
	decode func([]byte) (T, error)
}

type failureRule struct {
	code  int
	label string
	err   error
}

// ResponseParser maps a (status, body) pair to either a decoded success
// value or a typed error. Register success codes with a decode function and
// failure codes with an optional label; a label-specific rule wins over a
// bare status rule for the same code. An unmatched status yields an
// UnexpectedResponseError carrying the raw body.
//
// The parser has no retry logic; retries are a coordinator policy.
type ResponseParser[T any] struct {
	successes []successRule[T]
	failures  []failureRule
}

func NewResponseParser[T any]() *ResponseParser[T] {
	return &ResponseParser[T]{}
}

func (p *ResponseParser[T]) Success(code int, decode func([]byte) (T, error)) *ResponseParser[T] {
	p.successes = append(p.successes, successRule[T]{code: code, decode: decode})
	return p
}

func (p *ResponseParser[T]) Failure(code int, err error) *ResponseParser[T] {
	p.failures = append(p.failures, failureRule{code: code, err: err})
	return p
}

func (p *ResponseParser[T]) FailureLabel(code int, label string, err error) *ResponseParser[T] {
	p.failures = append(p.failures, failureRule{code: code, label: label, err: err})
	return p
}

func (p *ResponseParser[T]) Parse(code int, body []byte) (T, error) {
	var zero T

	for _, rule := range p.successes {
		if rule.code == code {
			return rule.decode(body)
		}
	}

	var payload errorBody
	_ = json.Unmarshal(body, &payload)

	for _, rule := range p.failures {
		if rule.code == code && rule.label != "" && rule.label == payload.Label {
			return zero, &FailureResponse{Code: code, Label: rule.label, Err: rule.err}
		}
	}
	for _, rule := range p.failures {
		if rule.code == code && rule.label == "" {
			return zero, &FailureResponse{Code: code, Label: payload.Label, Err: rule.err}
		}
	}

	return zero, &UnexpectedResponseError{Code: code, Body: body}
}

// decodeJSON is the common success decoder: unmarshal the body into W, then
// convert it to the operation's result type.
func decodeJSON[W, T any](convert func(W) (T, error)) func([]byte) (T, error) {
	return func(body []byte) (T, error) {
		var zero T
		var wire W
		if err := json.Unmarshal(body, &wire); err != nil {
			return zero, err
		}
		return convert(wire)
	}
}
