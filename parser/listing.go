package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
)

// ParseListing returns one ListingRow per result row in document order.
// Row numbers start at firstNumber so that rows from later listing pages
// continue the count. Detail links are resolved against baseURL; a row
// without a link gets an empty DetailURL.
func ParseListing(rawHTML, baseURL string, sel config.Selectors, firstNumber int) ([]models.ListingRow, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parser: invalid base url %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parser: parse listing html: %w", err)
	}

	var rows []models.ListingRow
	doc.Find(sel.Row).Each(func(i int, s *goquery.Selection) {
		row := models.ListingRow{Number: firstNumber + i}

		href, ok := s.Find(sel.DetailLink).First().Attr("href")
		href = strings.TrimSpace(href)
		if ok && href != "" {
			if resolved, err := base.Parse(href); err == nil {
				row.DetailURL = resolved.String()
			}
		}
		rows = append(rows, row)
	})

	return rows, nil
}

// ListingPageURL returns rawURL with its "page" query parameter set to page.
func ListingPageURL(rawURL string, page int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parser: invalid listing url %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
