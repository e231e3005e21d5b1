package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) Unwrap() error {
	return p.Log
}

// MarshalJSON flattens Extensions into the root object as the RFC requires.
func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})
	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, err := json.Marshal(Alias(*p))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stdJSON, &data); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// New creates a generic Problem
func New(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank",
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithInstance sets the RFC "instance" URI, usually the request path.
func WithInstance(uri string) ProblemOption {
	return func(p *Problem) {
		p.Instance = uri
	}
}

// ValidationError creates a rich validation error
func ValidationError(validationErrors map[string]string) *Problem {
	return New(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", validationErrors),
	)
}

func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return New(http.StatusBadRequest, "Bad Request", detail, opts...)
}

func UnauthorizedError(detail string) *Problem {
	return New(http.StatusUnauthorized, "Unauthorized", detail)
}

func NotFoundError(detail string, opts ...ProblemOption) *Problem {
	return New(http.StatusNotFound, "Not Found", detail, opts...)
}

// QuotaExceededError is returned when a gated feature is out of daily uses.
func QuotaExceededError(used, limit int) *Problem {
	return New(
		http.StatusTooManyRequests,
		"Daily Quota Exceeded",
		"The daily limit for AI features has been reached, it resets at midnight",
		WithExtension("daily_used", used),
		WithExtension("daily_limit", limit),
	)
}

func RateLimitError(detail string) *Problem {
	return New(http.StatusTooManyRequests, "Too Many Requests", detail)
}

// ProvidersUnavailableError hides which providers were tried; the cause is only logged.
func ProvidersUnavailableError(err error) *Problem {
	return New(
		http.StatusServiceUnavailable,
		"Service Unavailable",
		"AI providers are temporarily unavailable, please try again later",
		WithLog(err),
	)
}

func InternalError(detail string, err error) *Problem {
	return New(http.StatusInternalServerError, "Internal Server Error", detail, WithLog(err))
}
