package diag

import (
	"net/url"
	"strings"
)

// Attempt is one forensic record of a provider attempt. Adapters emit exactly
// one per physical HTTP call; a credential-absence short circuit emits one
// with no HTTP status so operators can tell "never tried" from "tried and
// failed".
type Attempt struct {
	Provider   string `json:"provider"`
	Step       string `json:"step"`
	Success    bool   `json:"success"`
	Rows       int    `json:"rows"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Note       string `json:"note,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Recorder accumulates attempts in invocation order for one resolve pass.
// Not safe for concurrent use; each resolve owns its recorder.
type Recorder struct {
	attempts []Attempt
}

// Record stores an attempt. The URL is sanitized here, unconditionally, so a
// credential can never reach storage regardless of caller discipline.
func (r *Recorder) Record(a Attempt) {
	a.URL = SanitizeURL(a.URL)
	r.attempts = append(r.attempts, a)
}

// Attempts returns the recorded attempts in order.
func (r *Recorder) Attempts() []Attempt {
	return r.attempts
}

// credentialParams are query parameter names whose values must never be
// stored. Matched case-insensitively.
var credentialParams = map[string]bool{
	"apikey":       true,
	"api_key":      true,
	"token":        true,
	"access_token": true,
	"key":          true,
}

// SanitizeURL redacts credential-bearing query parameter values. If the URL
// does not parse, the whole query is dropped rather than risking a leak.
func SanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	q := u.Query()
	changed := false
	for name := range q {
		if credentialParams[strings.ToLower(name)] {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
