package parser

import (
	"bufio"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	htmlparser "golang.org/x/net/html"
)

var unicodeEscapeRegex = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// HTMLInfo is what a hop fingerprint records about an HTML body
type HTMLInfo struct {
	Title string
	// MetaRefresh is the raw target of a <meta http-equiv="refresh"> tag.
	// It is reported, never followed.
	MetaRefresh string
	Words       int
	Lines       int
}

// InspectHTML parses body and extracts the page title, any meta refresh
// target, and word/line counts. Title priority: <title>, og:title, twitter:title.
func InspectHTML(body string) HTMLInfo {
	var info HTMLInfo
	info.Words, info.Lines = CountWordsAndLines(body)

	doc, err := htmlparser.Parse(strings.NewReader(body))
	if err != nil {
		return info
	}

	var htmlTitle, ogTitle, twitterTitle string

	var walk func(*htmlparser.Node)
	walk = func(n *htmlparser.Node) {
		if n.Type == htmlparser.ElementNode {
			switch n.Data {
			case "title":
				if htmlTitle == "" && n.FirstChild != nil {
					htmlTitle = n.FirstChild.Data
				}
			case "meta":
				attrs := make(map[string]string, len(n.Attr))
				for _, a := range n.Attr {
					attrs[strings.ToLower(a.Key)] = a.Val
				}
				content := attrs["content"]
				switch {
				case attrs["property"] == "og:title" && ogTitle == "":
					ogTitle = content
				case attrs["name"] == "twitter:title" && twitterTitle == "":
					twitterTitle = content
				case strings.EqualFold(attrs["http-equiv"], "refresh") && info.MetaRefresh == "":
					info.MetaRefresh = refreshTarget(content)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, candidate := range []string{htmlTitle, ogTitle, twitterTitle} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			info.Title = decodeTitleString(candidate)
			break
		}
	}

	return info
}

// ExtractTitle returns only the title part of InspectHTML.
func ExtractTitle(body string) string {
	return InspectHTML(body).Title
}

// refreshTarget extracts the URL from a refresh directive such as "0; url=/next".
func refreshTarget(content string) string {
	_, rest, found := strings.Cut(content, ";")
	if !found {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:4], "url=") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rest[4:]), `'"`)
}

// decodeTitleString decodes \uXXXX escapes, then HTML entities.
func decodeTitleString(s string) string {
	s = unicodeEscapeRegex.ReplaceAllStringFunc(s, func(match string) string {
		code, err := strconv.ParseUint(match[2:], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return match
		}
		return string(rune(code))
	})
	return html.UnescapeString(s)
}

// CountWordsAndLines counts words and lines in the text
func CountWordsAndLines(text string) (words int, lines int) {
	if text == "" {
		return 0, 0
	}
	lines = strings.Count(text, "\n") + 1

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		words++
	}

	return words, lines
}
