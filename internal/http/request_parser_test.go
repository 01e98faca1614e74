package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		want     map[string]string
		wantErr  bool
	}{
		{
			name:     "json with numbers",
			body:     `{"title":" Rent ","amount":12.5,"flag":true}`,
			wantJSON: true,
			want:     map[string]string{"title": "Rent", "amount": "12.5", "flag": "true", "missing": ""},
		},
		{
			name: "form",
			body: "title=Coffee+beans&amount=3%2C20",
			want: map[string]string{"title": "Coffee beans", "amount": "3,20"},
		},
		{
			name: "control characters stripped",
			body: "title=a%00b%07c",
			want: map[string]string{"title": "abc"},
		},
		{
			name: "empty body",
			body: "",
			want: map[string]string{"title": ""},
		},
		{
			name:    "broken json",
			body:    `{"title"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for k, v := range tt.want {
				if got := p.Get(k); got != v {
					t.Errorf("Get(%q) = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	f, err := parseRange(url.Values{"from": {"2024-03-01"}, "to": {"2024-03-31"}}, rome)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, rome); !f.From.Equal(want) {
		t.Errorf("From = %v, want %v", f.From, want)
	}
	if want := time.Date(2024, 3, 31, 23, 59, 59, 999e6, rome); !f.To.Equal(want) {
		t.Errorf("To = %v, want %v", f.To, want)
	}

	f, err = parseRange(url.Values{}, time.UTC)
	if err != nil || !f.From.IsZero() || !f.To.IsZero() {
		t.Errorf("empty query gave %+v, %v", f, err)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted peer ignores xff", "203.0.113.5:4000", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy xff", "10.0.0.2:4000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:4000", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy garbage", "127.0.0.1:4000", "not-an-ip", "", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("a"); got != want {
			t.Fatalf("request %d: allow = %v, want %v", i, got, want)
		}
	}
	if !rl.allow("b") {
		t.Fatal("other client should not be limited")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a") {
		t.Fatal("new window should reset the count")
	}

	now = now.Add(2 * time.Minute)
	if n := rl.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
}
