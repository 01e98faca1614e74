package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finboard/internal/aggregate"
	"finboard/internal/core"
)

// maxBodyBytes caps transaction request bodies.
const maxBodyBytes = 64 << 10

var errInvalidID = errors.New("invalid transaction id")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields as trimmed strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal([]byte(body), &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns the field value with control characters removed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
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
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseTransaction builds a transaction from the request body. Only syntax is
// checked here; field rules are enforced by the ledger.
func parseTransaction(r *http.Request, loc *time.Location) (core.Transaction, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "body", Err: err}
	}

	t := core.Transaction{
		Title:    p.Get("title"),
		Category: p.Get("category"),
		Notes:    p.Get("notes"),
	}

	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = typ

	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	t.Amount = amount

	if s := p.Get("date"); s != "" {
		d, err := core.ParseDay(s, loc)
		if err != nil {
			return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
		}
		t.Date = d
	} else {
		t.Date = today(loc)
	}
	return t, nil
}

func today(loc *time.Location) time.Time {
	y, m, d := time.Now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// parseRange reads the optional from/to query parameters. to covers the
// whole named day.
func parseRange(q url.Values, loc *time.Location) (aggregate.Filter, error) {
	var f aggregate.Filter
	if s := strings.TrimSpace(q.Get("from")); s != "" {
		d, err := core.ParseDay(s, loc)
		if err != nil {
			return f, &core.ValidationError{Field: "from", Err: err}
		}
		f.From = d
	}
	if s := strings.TrimSpace(q.Get("to")); s != "" {
		d, err := core.ParseDay(s, loc)
		if err != nil {
			return f, &core.ValidationError{Field: "to", Err: err}
		}
		f.To = core.EndOfDay(d)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, &core.ValidationError{Field: "to", Err: errors.New("before from")}
	}
	return f, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: errInvalidID}
	}
	return id, nil
}
