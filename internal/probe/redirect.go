package probe

// IsRedirect reports whether status is in the 3xx range. Every 3xx status
// is treated as a redirect, including 300 and 304.
func IsRedirect(statusCode int) bool {
	return statusCode >= 300 && statusCode < 400
}

// Location returns the redirect target of a hop as received, and whether
// a non-empty Location header was present.
func (h *HopResult) Location() (string, bool) {
	location, ok := h.Headers["location"]
	return location, ok && location != ""
}
