// Package extraction turns a report page into raw table rows after the page has
// passed identity and date verification.
package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hall-data-lab/internal/domain"
)

// DefaultHeaderKeyword marks header rows by their first cell ("unit type").
const DefaultHeaderKeyword = "機種"

// ColumnLayout maps report table columns onto RawRow fields.
type ColumnLayout struct {
	Name       int // model name column
	Unit       int // unit label column
	Diff       int // payout differential column
	Games      int // play count column
	MinColumns int // rows with fewer cells are ignored
}

// DefaultColumnLayout is the common report layout: name, unit, games, diff, ...
func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		Name:       0,
		Unit:       1,
		Games:      2,
		Diff:       3,
		MinColumns: 5,
	}
}

// withDefaults fills a zero MinColumns with the smallest count covering every index.
func (l ColumnLayout) withDefaults() ColumnLayout {
	if l.MinColumns > 0 {
		return l
	}
	l.MinColumns = max(l.Name, l.Unit, l.Diff, l.Games) + 1
	return l
}

// ParseRows reads every table row with at least layout.MinColumns cells, skipping
// rows whose first cell contains headerKeyword. Cell text is whitespace-collapsed;
// numeric normalization happens at commit time.
func ParseRows(doc *goquery.Document, layout ColumnLayout, headerKeyword string) []domain.RawRow {
	layout = layout.withDefaults()
	if headerKeyword == "" {
		headerKeyword = DefaultHeaderKeyword
	}

	var rows []domain.RawRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() < layout.MinColumns {
			return
		}

		texts := make([]string, cells.Length())
		cells.Each(func(i int, c *goquery.Selection) {
			texts[i] = strings.Join(strings.Fields(c.Text()), " ")
		})
		if strings.Contains(texts[0], headerKeyword) {
			return
		}

		rows = append(rows, domain.RawRow{
			Name:          cell(texts, layout.Name),
			UnitLabelText: cell(texts, layout.Unit),
			DiffText:      cell(texts, layout.Diff),
			GamesText:     cell(texts, layout.Games),
		})
	})
	return rows
}

func cell(texts []string, i int) string {
	if i < 0 || i >= len(texts) {
		return ""
	}
	return texts[i]
}
