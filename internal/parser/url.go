package parser

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// MaxURLLength bounds the accepted input length
const MaxURLLength = 2048

// ErrInvalidURL is matched by every error returned from Normalize
var ErrInvalidURL = errors.New("invalid URL format")

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// InvalidURLError describes why an input could not be normalized
type InvalidURLError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrInvalidURL, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidURL, e.Reason)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// Is reports ErrInvalidURL as a match so callers can use errors.Is.
func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// DecomposedURL holds the structural parts of a URL
type DecomposedURL struct {
	Slashes  bool              `json:"slashes"`
	Protocol string            `json:"protocol"`
	Hash     string            `json:"hash"`
	Query    map[string]string `json:"query"`
	PathName string            `json:"pathName"`
	Auth     string            `json:"auth"`
	Host     string            `json:"host"`
	Port     string            `json:"port"`
	HostName string            `json:"hostName"`
	UserName string            `json:"userName"`
	Domain   string            `json:"domain,omitempty"`
}

// Normalize ensures raw carries an http(s) scheme and is a well-formed absolute URL.
// Inputs without a scheme get "http://" prepended. The returned string is
// otherwise unchanged, so Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) (string, error) {
	input := strings.TrimSpace(raw)

	if input == "" {
		return "", &InvalidURLError{Input: raw, Reason: "empty URL"}
	}
	if len(input) > MaxURLLength {
		return "", &InvalidURLError{Input: raw, Reason: fmt.Sprintf("URL too long (max %d chars)", MaxURLLength)}
	}
	if strings.Contains(input, "\x00") {
		return "", &InvalidURLError{Input: raw, Reason: "URL contains null bytes"}
	}

	if !schemePrefix.MatchString(input) {
		input = "http://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", &InvalidURLError{Input: raw, Reason: "unparsable URL", Err: err}
	}
	if !u.IsAbs() || u.Host == "" || u.Hostname() == "" {
		return "", &InvalidURLError{Input: raw, Reason: "missing host"}
	}
	if port := u.Port(); port != "" && !validPort(port) {
		return "", &InvalidURLError{Input: raw, Reason: fmt.Sprintf("invalid port %q", port)}
	}

	return input, nil
}

func validPort(port string) bool {
	if len(port) > 5 {
		return false
	}
	n := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n <= 65535
}

// Decompose splits rawURL into its structural parts. It never fails:
// components that cannot be parsed are left empty.
func Decompose(rawURL string) DecomposedURL {
	d := DecomposedURL{
		Slashes: strings.Contains(rawURL, "://"),
		Query:   map[string]string{},
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return d
	}

	d.Protocol = strings.ToLower(u.Scheme)
	d.Hash = u.Fragment
	d.PathName = u.EscapedPath()
	d.Host = u.Host
	d.Port = u.Port()
	d.HostName = u.Hostname()
	d.Domain = RegistrableDomain(d.HostName)

	if u.User != nil {
		d.UserName = u.User.Username()
		d.Auth = d.UserName
		if password, ok := u.User.Password(); ok {
			d.Auth += ":" + password
		}
	}

	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			for key, vals := range values {
				if len(vals) > 0 {
					d.Query[key] = vals[len(vals)-1]
				}
			}
		}
	}

	return d
}

// RegistrableDomain returns the eTLD+1 of host, or "" for IP literals,
// single-label hosts and anything the public suffix list rejects.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// LoopKey returns the canonical form of a URL used for loop detection.
// Scheme and host are lowercased, default ports are removed and an empty
// path becomes "/".
func LoopKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = stripDefaultPort(u)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}

// ResolveLocation resolves a Location header value against the URL of the
// hop that returned it. Relative references follow RFC 3986.
func ResolveLocation(base, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty redirect location")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location: %w", err)
	}

	next := baseURL.ResolveReference(ref)
	return normalizeRedirectURL(baseURL, next).String(), nil
}

// normalizeRedirectURL fixes port issues when scheme changes during redirect
// e.g., http://host:80 -> https://host:80 should become https://host:443
func normalizeRedirectURL(currentURL, nextURL *url.URL) *url.URL {
	if strings.EqualFold(currentURL.Scheme, nextURL.Scheme) {
		return nextURL
	}

	currentPort := currentURL.Port()
	nextPort := nextURL.Port()
	if nextPort == "" {
		return nextURL
	}

	currentDefaultPort := defaultPort(currentURL.Scheme)

	// A default port carried over from the previous scheme is dropped
	if (currentPort == "" || currentPort == currentDefaultPort) && nextPort == currentDefaultPort {
		normalized := *nextURL
		normalized.Host = hostWithoutPort(nextURL)
		return &normalized
	}

	return nextURL
}

// stripDefaultPort returns u.Host without the port when it matches the
// scheme's default (80 for HTTP, 443 for HTTPS).
func stripDefaultPort(u *url.URL) string {
	port := u.Port()
	if port != "" && port == defaultPort(u.Scheme) {
		return hostWithoutPort(u)
	}
	return u.Host
}

func hostWithoutPort(u *url.URL) string {
	host := u.Hostname()
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func defaultPort(scheme string) string {
	if strings.EqualFold(scheme, "https") {
		return "443"
	}
	return "80"
}
