// Package http serves the JSON API.
//
// This file holds request body parsing shared by the handlers. Bodies may
// be JSON objects or form-encoded, so simple scripts and curl both work.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// maxBodyBytes bounds request bodies unless a route sets its own limit.
	maxBodyBytes = 64 << 10
	// maxProfileBodyBytes leaves room for an avatar sent as a data URI.
	maxProfileBodyBytes = 4 << 20
)

// errBadRequest marks malformed bodies; it maps to 400.
var errBadRequest = errors.New("malformed request body")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// top-level fields as trimmed strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most limit bytes of the request body.
func NewRequestBodyParser(r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, limit+1))
	if p.err == nil && int64(len(p.body)) > limit {
		p.err = fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, limit)
	}
	return p
}

// Parse decodes the body. JSON is tried first when the body looks like an object.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		// keep numbers textual so amounts are not rounded through float64
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errBadRequest, err)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a sanitized field value, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetRaw returns a field value without sanitizing; passwords go through here.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims and drops control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseBody is the common entry point for handlers.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	return parseBodyLimit(r, maxBodyBytes)
}

func parseBodyLimit(r *http.Request, limit int64) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r, limit)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBadRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}
