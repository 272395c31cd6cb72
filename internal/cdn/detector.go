package cdn

import "strings"

// cdnRule matches a lowercase header name, optionally requiring a substring in its value
type cdnRule struct {
	Name        string
	HeaderKey   string
	HeaderValue string // empty means the header only has to be present
}

var cdnRules = []cdnRule{
	{Name: "Cloudflare", HeaderKey: "cf-ray"},
	{Name: "Cloudflare", HeaderKey: "server", HeaderValue: "cloudflare"},
	{Name: "CloudFront", HeaderKey: "x-amz-cf-id"},
	{Name: "CloudFront", HeaderKey: "x-amz-cf-pop"},
	{Name: "CloudFront", HeaderKey: "via", HeaderValue: "cloudfront"},
	{Name: "Fastly", HeaderKey: "x-fastly-request-id"},
	{Name: "Fastly", HeaderKey: "fastly-debug-digest"},
	{Name: "Akamai", HeaderKey: "x-akamai-transformed"},
	{Name: "Sucuri", HeaderKey: "x-sucuri-id"},
	{Name: "Incapsula", HeaderKey: "x-iinfo"},
	{Name: "KeyCDN", HeaderKey: "server", HeaderValue: "keycdn"},
	{Name: "StackPath", HeaderKey: "x-hw"},
	{Name: "Varnish", HeaderKey: "via", HeaderValue: "varnish"},
}

// DetectCDN checks normalized (lowercase) response headers for CDN indicators
func DetectCDN(headers map[string]string) (bool, string) {
	for _, rule := range cdnRules {
		val := headers[rule.HeaderKey]
		if val == "" {
			continue
		}

		if rule.HeaderValue == "" {
			return true, rule.Name
		}

		if strings.Contains(strings.ToLower(val), rule.HeaderValue) {
			return true, rule.Name
		}
	}

	if xcdn := headers["x-cdn"]; xcdn != "" {
		return true, xcdn
	}

	return false, ""
}
