package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.50, "flag": true}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req, maxBodyBytes)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if amount := parser.Get("amount"); amount != "42.50" {
		t.Errorf("Get('amount') = %q, want '42.50'", amount)
	}
	if flag := parser.Get("flag"); flag != "true" {
		t.Errorf("Get('flag') = %q, want 'true'", flag)
	}
	if missing := parser.Get("missing"); missing != "" {
		t.Errorf("Get('missing') = %q, want empty string", missing)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req, maxBodyBytes)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req, maxBodyBytes)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"id":`))
	if _, err := parseBody(req); !errors.Is(err, errBadRequest) {
		t.Fatalf("parseBody() error = %v, want errBadRequest", err)
	}

	big := strings.Repeat("a", maxBodyBytes+10)
	req = httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("note="+big))
	if _, err := parseBody(req); !errors.Is(err, errBadRequest) {
		t.Fatalf("parseBody() oversized error = %v, want errBadRequest", err)
	}
}

func TestParseBodyLimit(t *testing.T) {
	body := `{"avatarUrl":"data:image/png;base64,` + strings.Repeat("A", 100<<10) + `"}`

	req := httptest.NewRequest(http.MethodPut, "/test", strings.NewReader(body))
	if _, err := parseBody(req); !errors.Is(err, errBadRequest) {
		t.Fatalf("parseBody() error = %v, want errBadRequest", err)
	}

	req = httptest.NewRequest(http.MethodPut, "/test", strings.NewReader(body))
	p, err := parseBodyLimit(req, maxProfileBodyBytes)
	if err != nil {
		t.Fatalf("parseBodyLimit() error = %v", err)
	}
	if got := len(p.Get("avatarUrl")); got != len("data:image/png;base64,")+100<<10 {
		t.Errorf("len(avatarUrl) = %d", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetRawKeepsWhitespace(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"password":" pw "}`))
	p, err := parseBody(req)
	if err != nil {
		t.Fatalf("parseBody() error = %v", err)
	}
	if got := p.GetRaw("password"); got != " pw " {
		t.Errorf("GetRaw('password') = %q, want ' pw '", got)
	}
}
