package models

// Record is one extracted trademark term. Every field holds either the
// text recovered from the detail page or the configured placeholder.
type Record struct {
	Russian string `json:"rus"`
	English string `json:"en"`
	Polish  string `json:"pl"`
}

// Columns returns the spreadsheet header row, in export order.
func Columns() []string {
	return []string{"rus", "en", "pl"}
}

// Values returns the record fields in the same order as Columns.
func (r Record) Values() []string {
	return []string{r.Russian, r.English, r.Polish}
}

// Placeholders are the fallback values written when a field is absent
// from the detail page.
type Placeholders struct {
	Russian string
	English string
	Polish  string
}

// Record returns a record holding only placeholders. Extraction
// overwrites the fields it finds on the page, even with empty text.
func (p Placeholders) Record() Record {
	return Record{Russian: p.Russian, English: p.English, Polish: p.Polish}
}

// ListingRow is one row of the search results table.
type ListingRow struct {
	// Number is the 1-based position of the row across all listing pages.
	Number int `json:"number"`

	// DetailURL is the absolute term details URL, or "" when the row
	// carries no details link.
	DetailURL string `json:"detail_url,omitempty"`
}
