package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
)

// Language codes read from the first cell of the details table.
const (
	langEnglish = "en"
	langPolish  = "pl"
)

// ParseDetail extracts the three language fields from a term details page.
//
// The Russian term is the master title. English and Polish come from the
// details table: only rows with more than sel.MinCells cells count, the
// language code is in cell sel.LanguageCell and the term in sel.TermCell.
// When a language appears more than once the last row wins. Fields not
// found on the page carry the placeholder; a field that is present but
// empty stays empty.
func ParseDetail(rawHTML string, sel config.Selectors, ph models.Placeholders) models.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ph.Record()
	}

	rec := ph.Record()

	if title := doc.Find(sel.MasterTitle).First(); title.Length() > 0 {
		rec.Russian = strings.TrimSpace(title.Text())
	}

	doc.Find(sel.DetailsRow).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= sel.MinCells {
			return
		}
		lang := strings.TrimSpace(cells.Eq(sel.LanguageCell).Text())
		term := strings.TrimSpace(cells.Eq(sel.TermCell).Text())

		switch lang {
		case langEnglish:
			rec.English = term
		case langPolish:
			rec.Polish = term
		}
	})

	return rec
}

// LooksLikeDetail reports whether rawHTML already contains the rendered
// details markup. A JavaScript shell without it is not usable.
func LooksLikeDetail(rawHTML string, sel config.Selectors) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}
	return doc.Find(sel.MasterTitle).Length() > 0 || doc.Find(sel.DetailsRow).Length() > 0
}
