package resolve

import (
	"fmt"
	"net/http"
	"strings"

	"chainHTTP/internal/cdn"
	"chainHTTP/internal/hash"
	"chainHTTP/internal/output"
	"chainHTTP/internal/parser"
	"chainHTTP/internal/probe"
	"chainHTTP/internal/storage"
)

// statusMessage renders "<code> <status text>"
func statusMessage(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

// terminalResult is the chain of a hop that does not redirect
func terminalResult(current string, record output.FullRedirect) *output.ChainResult {
	return &output.ChainResult{
		StatusCode:         record.StatusCode,
		Message:            statusMessage(record.StatusCode),
		NumberOfRedirects:  0,
		Redirects:          []output.Redirect{},
		FullRedirectChains: []output.FullRedirect{record},
		RedirectURLChain:   []string{current},
	}
}

// fold prepends a redirecting hop to the chain of its target
func fold(current string, record output.FullRedirect, redirect output.Redirect, child *output.ChainResult) *output.ChainResult {
	return &output.ChainResult{
		StatusCode:         child.StatusCode,
		Message:            child.Message,
		NumberOfRedirects:  child.NumberOfRedirects + 1,
		Redirects:          append([]output.Redirect{redirect}, child.Redirects...),
		FullRedirectChains: append([]output.FullRedirect{record}, child.FullRedirectChains...),
		RedirectURLChain:   append([]string{current}, child.RedirectURLChain...),
	}
}

// buildRedirect records a redirect from current to next. location is kept as received.
func buildRedirect(current, next string, statusCode int, location string) output.Redirect {
	from := parser.Decompose(current)
	to := parser.Decompose(next)

	return output.Redirect{
		StatusCode:     statusCode,
		RedirectURI:    location,
		CrossDomain:    siteOf(from) != siteOf(to),
		HTTPSDowngrade: strings.EqualFold(from.Protocol, "https") && strings.EqualFold(to.Protocol, "http"),
	}
}

// siteOf is the registrable domain, or the hostname for IPs and single-label hosts
func siteOf(d parser.DecomposedURL) string {
	if d.Domain != "" {
		return d.Domain
	}
	return strings.ToLower(d.HostName)
}

// buildHopRecord turns a probe result into its FullRedirect, adding the
// optional inspection, fingerprint and stored response
func (r *Resolver) buildHopRecord(current string, hop *probe.HopResult, trail []string) output.FullRedirect {
	record := output.FullRedirect{
		StatusCode: hop.StatusCode,
		URL:        current,
		ParsedURL:  parser.Decompose(current),
		LatencyMs:  hop.LatencyMs,
	}

	if r.config.IncludeResponse {
		record.Inspection = &output.Inspection{
			StatusCode: hop.StatusCode,
			Headers:    hop.Headers,
			Body:       hop.Body,
			Truncated:  hop.Truncated,
			LatencyMs:  hop.LatencyMs,
			Protocol:   hop.Protocol,
			IP:         hop.IP,
		}
	}

	if r.config.Fingerprint {
		record.Fingerprint = r.fingerprint(hop)
	}

	if r.config.StoreResponse {
		record.StoredResponsePath = r.storeHop(current, hop, trail)
	}

	return record
}

func (r *Resolver) fingerprint(hop *probe.HopResult) *output.Fingerprint {
	fp := &output.Fingerprint{
		Hash:        hash.Compute(hop.Body, hop.Headers),
		WebServer:   hop.Headers["server"],
		ContentType: hop.Headers["content-type"],
	}

	fp.Words, fp.Lines = parser.CountWordsAndLines(hop.Body)

	if hop.Body != "" && isHTML(fp.ContentType, hop.Body) {
		info := parser.InspectHTML(hop.Body)
		fp.Title = info.Title
		fp.MetaRefresh = info.MetaRefresh
	}

	if isCDN, name := cdn.DetectCDN(hop.Headers); isCDN {
		fp.CDN = name
	}

	if r.tech != nil {
		fp.Technologies = r.tech.Detect(hop.Headers, []byte(hop.Body))
	}

	return fp
}

func isHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return contentType == "" && strings.HasPrefix(strings.TrimSpace(body), "<")
}

// storeHop writes the raw hop to disk. Failures are logged and never fail the chain.
func (r *Resolver) storeHop(current string, hop *probe.HopResult, trail []string) string {
	entry := storage.HopEntry{
		URL:         current,
		RawRequest:  hop.RawRequest,
		RawResponse: hop.RawResponse,
		Body:        []byte(hop.Body),
	}

	path, err := storage.StoreHop(r.config.StoreResponseDir, entry, trail, hop.StatusCode, http.StatusText(hop.StatusCode))
	if err != nil {
		r.config.Logger.Warn("failed to store response",
			"url", current,
			"error", err,
		)
	}
	return path
}
