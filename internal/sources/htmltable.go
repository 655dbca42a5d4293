// file: internal/sources/htmltable.go
// version: 1.1.0
// guid: 8e2d5a7c-4b9f-4e1d-a6c8-3f7b1e9d5a2c

package sources

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/jalali"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/provinces"
)

// NewHTMLTableSource builds the adapter from its config section.
// Requires cfg["url"].
func NewHTMLTableSource(client *fetch.Client, cfg map[string]string) (Source, error) {
	url := cfg["url"]
	if url == "" {
		return nil, fmt.Errorf("htmltable source requires a url")
	}
	return &HTMLTableSource{
		client:   client,
		url:      url,
		fullName: defaultStr(cfg["name"], "Memorial table"),
	}, nil
}

// HTMLTableSource scrapes a memorial page laid out as an HTML table.
// Expected column order: Latin name, Farsi name, date of death, location,
// cause. The date cell may be Gregorian ("2022-09-21") or a Jalali string
// in Persian numerals; both parse.
type HTMLTableSource struct {
	client   *fetch.Client
	url      string
	fullName string
}

func (s *HTMLTableSource) Name() string     { return "htmltable" }
func (s *HTMLTableSource) FullName() string { return s.fullName }
func (s *HTMLTableSource) BaseURL() string  { return s.url }

// Fetch downloads the page and emits one record per data row.
func (s *HTMLTableSource) Fetch(ctx context.Context, emit func(*models.ExternalVictim) error) error {
	body, err := s.client.Get(ctx, s.url)
	if err != nil {
		return fmt.Errorf("htmltable: %w", err)
	}

	rows, err := parseTableRows(body)
	if err != nil {
		return fmt.Errorf("htmltable: parse %s: %w", s.url, err)
	}
	log.Printf("[INFO] htmltable: %d rows from %s", len(rows), s.url)

	for i, cells := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := s.rowToVictim(i, cells)
		if ext == nil {
			continue
		}
		if err := emit(ext); err != nil {
			return err
		}
	}
	return nil
}

// parseTableRows returns the cell texts of every <tr> containing <td>
// cells (header rows use <th> and fall out naturally).
func parseTableRows(body []byte) ([][]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "td" {
					cells = append(cells, strings.TrimSpace(nodeText(c)))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

var reDigits = regexp.MustCompile(`\d+`)

func parseAgeText(text string) *int {
	m := reDigits.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 || n > 120 {
		return nil
	}
	return &n
}

func (s *HTMLTableSource) rowToVictim(i int, cells []string) *models.ExternalVictim {
	if len(cells) < 2 {
		return nil
	}
	get := func(idx int) string {
		if idx < len(cells) {
			return strings.TrimSpace(cells[idx])
		}
		return ""
	}

	nameEN := get(0)
	nameFA := get(1)
	if nameEN == "" && nameFA == "" {
		return nil
	}

	ext := &models.ExternalVictim{
		SourceID:   fmt.Sprintf("htmltable_%d", i),
		SourceName: s.fullName,
		SourceURL:  s.url,
		SourceType: "memorial_page",
		NameLatin:  nameEN,
		NameFarsi:  optStr(nameFA),
	}

	if raw := get(2); raw != "" {
		if len(raw) >= 10 {
			if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
				ext.DateOfDeath = &t
			}
		}
		if ext.DateOfDeath == nil {
			if t, ok := jalali.ParseDate(raw); ok {
				ext.DateOfDeath = &t
			}
		}
	}

	if loc := get(3); loc != "" {
		ext.PlaceOfDeath = optStr(loc)
		ext.Province = optStr(provinces.Extract(loc))
	}
	ext.CauseOfDeath = optStr(get(4))
	if age := get(5); age != "" {
		ext.AgeAtDeath = parseAgeText(age)
	}

	return ext
}
