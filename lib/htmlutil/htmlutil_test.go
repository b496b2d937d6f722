package htmlutil

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<td>Real <b>Madrid</b></td>`))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Real Madrid", GetText(doc))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Bayern München", CleanText("  Bayern\n  München "))
}

func TestDecodeBytesUtf8(t *testing.T) {
	page := []byte(`<html><head><meta charset="utf-8"></head><body>Бешикташ</body></html>`)
	require.Contains(t, DecodeBytes(page), "Бешикташ")
}

func TestDecodeBytesLatin1(t *testing.T) {
	// "Málaga" encoded as latin-1 with a latin-1 charset declaration.
	page := append(
		[]byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"></head><body>M`),
		0xe1,
	)
	page = append(page, []byte(`laga</body></html>`)...)
	require.Contains(t, DecodeBytes(page), "Málaga")
}
