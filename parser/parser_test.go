package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
)

func defaultSelectors() config.Selectors {
	return config.Selectors{
		Row:          "tbody tr",
		DetailLink:   "td.termDetails a",
		MasterTitle:  ".span10.english_master_title h4",
		DetailsRow:   ".detailsTable tr",
		LanguageCell: 0,
		TermCell:     2,
		MinCells:     3,
	}
}

var placeholders = models.Placeholders{
	Russian: "no rus text found",
	English: "no en text found",
	Polish:  "no pl text found",
}

const listingHTML = `<html><body>
<table>
  <thead><tr><th>Term</th><th>Details</th></tr></thead>
  <tbody>
    <tr><td>чай</td><td class="termDetails"><a href="/ec2/term/1001">details</a></td></tr>
    <tr><td>кофе</td><td class="other">no link here</td></tr>
    <tr><td>хлеб</td><td class="termDetails"><a href="https://euipo.europa.eu/ec2/term/1003?lang=ru">details</a></td></tr>
    <tr><td>сыр</td><td class="termDetails"><a href="  ">empty</a></td></tr>
  </tbody>
</table>
</body></html>`

func TestParseListing(t *testing.T) {
	rows, err := ParseListing(listingHTML, "https://euipo.europa.eu", defaultSelectors(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, models.ListingRow{Number: 1, DetailURL: "https://euipo.europa.eu/ec2/term/1001"}, rows[0])
	assert.Equal(t, models.ListingRow{Number: 2}, rows[1])
	assert.Equal(t, "https://euipo.europa.eu/ec2/term/1003?lang=ru", rows[2].DetailURL)
	assert.Empty(t, rows[3].DetailURL)
}

func TestParseListing_NumbersContinueAcrossPages(t *testing.T) {
	rows, err := ParseListing(listingHTML, "https://euipo.europa.eu", defaultSelectors(), 11)
	require.NoError(t, err)
	assert.Equal(t, 11, rows[0].Number)
	assert.Equal(t, 14, rows[3].Number)
}

func TestParseListing_NoRows(t *testing.T) {
	rows, err := ParseListing(`<html><body><p>nothing found</p></body></html>`, "https://euipo.europa.eu", defaultSelectors(), 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseListing_BadBaseURL(t *testing.T) {
	_, err := ParseListing(listingHTML, "://bad", defaultSelectors(), 1)
	assert.Error(t, err)
}

func TestListingPageURL(t *testing.T) {
	got, err := ListingPageURL(config.DefaultListingURL, 3)
	require.NoError(t, err)
	assert.Contains(t, got, "page=3")
	assert.NotContains(t, got, "page=1")
	assert.Contains(t, got, "officeList=RU")
}

const detailHTML = `<html><body>
<div class="row">
  <div class="span10 english_master_title"><h4>
     зубная паста
  </h4></div>
</div>
<table class="detailsTable">
  <tr><th>Lang</th><th>Id</th><th>Term</th><th>Status</th></tr>
  <tr><td> en </td><td>1</td><td> toothpaste </td><td>ok</td></tr>
  <tr><td>de</td><td>2</td><td>Zahnpasta</td><td>ok</td></tr>
  <tr><td>pl</td><td>3</td><td>pasta do zębów</td></tr>
  <tr><td>pl</td><td>4</td><td>pasty do zębów</td><td>ok</td></tr>
</table>
</body></html>`

func TestParseDetail(t *testing.T) {
	rec := ParseDetail(detailHTML, defaultSelectors(), placeholders)

	assert.Equal(t, "зубная паста", rec.Russian)
	assert.Equal(t, "toothpaste", rec.English)
	// The three-cell pl row is ignored; the four-cell one counts.
	assert.Equal(t, "pasty do zębów", rec.Polish)
}

func TestParseDetail_LastRowWins(t *testing.T) {
	html := `<table class="detailsTable">
	<tr><td>en</td><td></td><td>first</td><td></td></tr>
	<tr><td>en</td><td></td><td>second</td><td></td></tr>
	</table>`
	rec := ParseDetail(html, defaultSelectors(), placeholders)
	assert.Equal(t, "second", rec.English)
}

func TestParseDetail_Placeholders(t *testing.T) {
	rec := ParseDetail(`<html><body><h1>Session expired</h1></body></html>`, defaultSelectors(), placeholders)

	assert.Equal(t, models.Record{
		Russian: "no rus text found",
		English: "no en text found",
		Polish:  "no pl text found",
	}, rec)
}

func TestParseDetail_PresentButEmpty(t *testing.T) {
	html := `<div class="span10 english_master_title"><h4>   </h4></div>
	<table class="detailsTable">
	<tr><td>en</td><td></td><td>tea</td><td></td></tr>
	<tr><td>en</td><td></td><td> </td><td></td></tr>
	</table>`
	rec := ParseDetail(html, defaultSelectors(), placeholders)

	assert.Equal(t, models.Record{
		Russian: "",
		English: "",
		Polish:  "no pl text found",
	}, rec)
}

func TestLooksLikeDetail(t *testing.T) {
	sel := defaultSelectors()
	assert.True(t, LooksLikeDetail(detailHTML, sel))
	assert.False(t, LooksLikeDetail(`<html><body><div id="app"></div><script src="/bundle.js"></script></body></html>`, sel))
}

func TestValidateSelectors(t *testing.T) {
	require.NoError(t, ValidateSelectors(defaultSelectors()))

	bad := defaultSelectors()
	bad.DetailsRow = ".detailsTable tr["
	assert.Error(t, ValidateSelectors(bad))

	bad = defaultSelectors()
	bad.TermCell = 5
	assert.Error(t, ValidateSelectors(bad))

	bad = defaultSelectors()
	bad.LanguageCell = -1
	assert.Error(t, ValidateSelectors(bad))
}
