package output

import (
	"chainHTTP/internal/hash"
	"chainHTTP/internal/parser"
)

// Redirect records one redirect hop: its status and the Location as received
type Redirect struct {
	StatusCode     int    `json:"statusCode"`
	RedirectURI    string `json:"redirectUri"`
	CrossDomain    bool   `json:"crossDomain,omitempty"`
	HTTPSDowngrade bool   `json:"httpsDowngrade,omitempty"`
}

// Inspection is the raw per-hop probe data, included on request
type Inspection struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Truncated  bool              `json:"truncated,omitempty"`
	LatencyMs  int64             `json:"latencyMs"`
	Protocol   string            `json:"protocol,omitempty"`
	IP         string            `json:"ip,omitempty"`
}

// Fingerprint describes the content served at a hop
type Fingerprint struct {
	Hash         hash.Hash `json:"hash"`
	Title        string    `json:"title,omitempty"`
	MetaRefresh  string    `json:"metaRefresh,omitempty"`
	Words        int       `json:"words"`
	Lines        int       `json:"lines"`
	WebServer    string    `json:"webserver,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	CDN          string    `json:"cdn,omitempty"`
	Technologies []string  `json:"tech,omitempty"`
}

// FullRedirect records every probed hop, including the terminal one
type FullRedirect struct {
	StatusCode         int                  `json:"statusCode"`
	URL                string               `json:"url"`
	ParsedURL          parser.DecomposedURL `json:"parsedUrl"`
	LatencyMs          int64                `json:"latencyMs"`
	Inspection         *Inspection          `json:"inspection,omitempty"`
	Fingerprint        *Fingerprint         `json:"fingerprint,omitempty"`
	StoredResponsePath string               `json:"storedResponsePath,omitempty"`
}

// ChainResult is the resolved redirect chain of one requested URL.
// RedirectURLChain and FullRedirectChains hold NumberOfRedirects+1 entries,
// Redirects holds NumberOfRedirects.
type ChainResult struct {
	RequestID          string         `json:"requestId"`
	StatusCode         int            `json:"statusCode"`
	Message            string         `json:"message"`
	RequestedURL       string         `json:"requestedUrl"`
	NumberOfRedirects  int            `json:"numberOfRedirects"`
	Redirects          []Redirect     `json:"redirects"`
	FullRedirectChains []FullRedirect `json:"fullRedirectChains"`
	RedirectURLChain   []string       `json:"redirectUrlChain"`
}

// FinalURL returns the last URL of the chain
func (r *ChainResult) FinalURL() string {
	if len(r.RedirectURLChain) == 0 {
		return ""
	}
	return r.RedirectURLChain[len(r.RedirectURLChain)-1]
}

// Failure is emitted instead of a ChainResult when a resolution fails
type Failure struct {
	Input string `json:"input"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
