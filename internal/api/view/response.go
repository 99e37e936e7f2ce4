package view

import "net/http"

// Response is an explicit handler result. Handlers may return any other
// value instead; it is sent with status 200.
type Response struct {
	Status int
	Data   any
	// Code and Hint are rendered by the rich envelope only. A zero Code
	// selects the configured success code.
	Code   int
	Hint   string
	Header http.Header

	// body is a fully rendered error envelope; Data, Code and Hint are
	// ignored when it is set.
	body     any
	rendered bool
}

// OK returns a 200 response.
func OK(data any) *Response {
	return &Response{Status: http.StatusOK, Data: data}
}

// Created returns a 201 response.
func Created(data any) *Response {
	return &Response{Status: http.StatusCreated, Data: data}
}

// NotFound returns a 404 response carrying data in the success envelope.
func NotFound(data any) *Response {
	return &Response{Status: http.StatusNotFound, Data: data}
}

// WithHeader adds a response header and returns r.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Add(key, value)
	return r
}

// WithHint sets the rich-envelope hint and returns r.
func (r *Response) WithHint(hint string) *Response {
	r.Hint = hint
	return r
}

// WithCode sets the rich-envelope code and returns r.
func (r *Response) WithCode(code int) *Response {
	r.Code = code
	return r
}

// coerce turns a handler result into a Response.
func coerce(out any) *Response {
	switch v := out.(type) {
	case *Response:
		if v == nil {
			return OK(nil)
		}
		if v.Status == 0 {
			v.Status = http.StatusOK
		}
		return v
	case Response:
		return coerce(&v)
	default:
		return OK(out)
	}
}
