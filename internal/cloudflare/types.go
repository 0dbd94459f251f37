package cloudflare

import (
	"fmt"
	"strings"
)

// Zone is a DNS zone managed in the account.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DNSRecord is a single record within a zone.
type DNSRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// RecordParams is the request body for creating or replacing a record.
type RecordParams struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// ResultInfo is the pagination block of list responses.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

type responseMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is the envelope of endpoints returning a single object.
type response[T any] struct {
	Success bool              `json:"success"`
	Errors  []responseMessage `json:"errors"`
	Result  *T                `json:"result"`
}

// pagedResponse is the envelope of list endpoints.
type pagedResponse[T any] struct {
	Success    bool              `json:"success"`
	Errors     []responseMessage `json:"errors"`
	Result     *[]T              `json:"result"`
	ResultInfo *ResultInfo       `json:"result_info"`
}

// APIError describes a failed call to the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int      // 0 when no response was received
	Messages   []string // error messages reported by the API, if any
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cloudflare: %s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Messages, "; "))
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func messages(msgs []responseMessage) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}
	return out
}
