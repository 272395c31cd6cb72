package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// indexMu serializes appends to index.txt across workers
var indexMu sync.Mutex

// HopEntry is the raw capture of one probed hop
type HopEntry struct {
	URL         string
	RawRequest  string
	RawResponse string
	Body        []byte
}

// GenerateFilename returns SHA1(url) as a hex string
func GenerateFilename(urlStr string) string {
	hash := sha1.Sum([]byte(urlStr))
	return hex.EncodeToString(hash[:])
}

// SanitizeHost makes a host[:port] safe for use as a directory name
// (example.com:8080 -> example.com_8080)
func SanitizeHost(host string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, host)
}

// BuildStoragePath returns {baseDir}/{sanitized_host}/{filename}.txt
func BuildStoragePath(baseDir, host, filename string) string {
	return filepath.Join(baseDir, SanitizeHost(host), filename+".txt")
}

// StoreResponse writes data for parsedURL and returns the file path
func StoreResponse(baseDir string, parsedURL *url.URL, data []byte) (string, error) {
	storagePath := BuildStoragePath(baseDir, parsedURL.Host, GenerateFilename(parsedURL.String()))

	if err := os.MkdirAll(filepath.Dir(storagePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(storagePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write response: %w", err)
	}
	return storagePath, nil
}

// FormatHop renders a stored hop: raw request, raw response headers and
// body, followed by the URLs visited before this hop. The hop URL is
// always the last line.
func FormatHop(entry HopEntry, trail []string) []byte {
	var builder strings.Builder

	writeBlock(&builder, entry.RawRequest)
	writeBlock(&builder, entry.RawResponse)
	if len(entry.Body) > 0 {
		builder.Write(entry.Body)
		if entry.Body[len(entry.Body)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	for i, u := range trail {
		fmt.Fprintf(&builder, "[%d] %s\n", i+1, u)
	}
	builder.WriteString(entry.URL)
	builder.WriteByte('\n')

	return []byte(builder.String())
}

func writeBlock(builder *strings.Builder, s string) {
	if s == "" {
		return
	}
	builder.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		builder.WriteByte('\n')
	}
	builder.WriteByte('\n')
}

// StoreHop writes entry under baseDir and records it in index.txt
func StoreHop(baseDir string, entry HopEntry, trail []string, statusCode int, statusText string) (string, error) {
	parsedURL, err := url.Parse(entry.URL)
	if err != nil {
		return "", fmt.Errorf("parsing hop URL: %w", err)
	}

	storagePath, err := StoreResponse(baseDir, parsedURL, FormatHop(entry, trail))
	if err != nil {
		return "", err
	}
	if err := AppendToIndex(baseDir, storagePath, entry.URL, statusCode, statusText); err != nil {
		return storagePath, err
	}
	return storagePath, nil
}

// AppendToIndex appends "{relative_path} {url} ({status} {text})" to
// {baseDir}/index.txt. Safe for concurrent use.
func AppendToIndex(baseDir, storagePath, urlStr string, statusCode int, statusText string) error {
	relPath, err := filepath.Rel(baseDir, storagePath)
	if err != nil {
		relPath = storagePath
	}
	line := fmt.Sprintf("%s %s (%d %s)\n", filepath.ToSlash(relPath), urlStr, statusCode, statusText)

	indexMu.Lock()
	defer indexMu.Unlock()

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(baseDir, "index.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to index: %w", err)
	}
	return nil
}
