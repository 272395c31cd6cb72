package hash

import (
	"sort"
	"strconv"
	"strings"

	"github.com/twmb/murmur3"
)

// Hash contains MMH3 hashes of a hop's body and headers
type Hash struct {
	BodyMMH3   string `json:"bodyMmh3"`
	HeaderMMH3 string `json:"headerMmh3"`
}

// CalculateMMH3 calculates the MMH3 hash of the data as a decimal string
func CalculateMMH3(data []byte) string {
	return strconv.FormatUint(uint64(murmur3.Sum32(data)), 10)
}

// CalculateHeaderMMH3 hashes normalized headers as sorted "name: value" lines.
// Map iteration order does not affect the result.
func CalculateHeaderMMH3(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	estimatedSize := 0
	for k, v := range headers {
		keys = append(keys, k)
		estimatedSize += len(k) + 2 + len(v) + 1
	}
	sort.Strings(keys)

	var headerStr strings.Builder
	headerStr.Grow(estimatedSize)
	for _, k := range keys {
		headerStr.WriteString(k)
		headerStr.WriteString(": ")
		headerStr.WriteString(headers[k])
		headerStr.WriteString("\n")
	}

	return CalculateMMH3([]byte(headerStr.String()))
}

// Compute returns both hashes for a hop
func Compute(body string, headers map[string]string) Hash {
	return Hash{
		BodyMMH3:   CalculateMMH3([]byte(body)),
		HeaderMMH3: CalculateHeaderMMH3(headers),
	}
}
