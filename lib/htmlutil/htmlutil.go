package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims a scraped text node down to a single printable line.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}

var charsetRegex = regexp.MustCompile(`(?i)charset=["']?([A-Za-z0-9_-]+)`)

// DecodeBytes turns a raw HTML response body into a utf-8 string. The
// charset is sniffed from the first 4KB of markup; kassiesa pages before
// 2009 declare latin-1 while newer ones are utf-8.
func DecodeBytes(raw []byte) string {
	head := raw
	if len(head) > 4000 {
		head = head[:4000]
	}

	declared := ""
	if m := charsetRegex.FindSubmatch(head); m != nil {
		declared = strings.ToLower(string(m[1]))
	}

	switch declared {
	case "iso-8859-1", "latin-1", "windows-1252":
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err == nil {
			return string(decoded)
		}
	}

	if s := string(raw); strings.ToValidUTF8(s, "") == s {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err == nil {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(raw), "")
}
