package kassiesa

import (
	"uefadata-backend/lib/htmlutil"
	"uefadata-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// cellText flattens a table cell to its text content, ignoring inline
// markup like the <b> winner highlight, and trims it to one clean line.
func cellText(sel *goquery.Selection) string {
	text := ""
	for _, node := range sel.Nodes {
		text += htmlutil.GetText(node)
	}
	return htmlutil.CleanText(textutil.CleanCell(text))
}
