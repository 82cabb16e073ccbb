// Package htmltab loads the first <table> element of an HTML document.
//
// The header comes from <thead> (or the first row when every cell is <th>);
// otherwise the first row is promoted to header. Rows with fewer cells than
// the header are padded with missing markers.
package htmltab

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"datafuse/internal/config"
	"datafuse/internal/loader"
	"datafuse/internal/table"
)

func init() {
	loader.Register("html", func() loader.Loader { return &Loader{} })
}

type Loader struct{}

func (l *Loader) Load(ctx context.Context, src config.Source) (table.RawTable, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return table.RawTable{}, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return table.RawTable{}, fmt.Errorf("parse html %s: %w", src.Path, err)
	}
	return FromDocument(ctx, src.EffectiveName(), doc)
}

// FromDocument extracts the first table of an already-parsed document.
func FromDocument(ctx context.Context, name string, doc *goquery.Document) (table.RawTable, error) {
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return table.RawTable{}, fmt.Errorf("document contains no <table>")
	}

	var header []string
	tbl.Find("thead th").Each(func(_ int, s *goquery.Selection) {
		header = append(header, strings.TrimSpace(s.Text()))
	})

	rows := tbl.Find("tr")
	start := 0
	if len(header) == 0 {
		// No <thead>: promote the first row.
		first := rows.First()
		first.Find("th, td").Each(func(_ int, s *goquery.Selection) {
			header = append(header, strings.TrimSpace(s.Text()))
		})
		start = 1
	}
	if len(header) == 0 {
		return table.RawTable{}, fmt.Errorf("table has no header row")
	}

	rt := table.RawTable{Name: name, Columns: header}
	rows.Each(func(i int, tr *goquery.Selection) {
		if i < start {
			return
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return // header or separator row
		}
		row := make([]any, len(header))
		cells.Each(func(j int, td *goquery.Selection) {
			if j >= len(header) {
				return
			}
			v := strings.TrimSpace(td.Text())
			if v != "" {
				row[j] = v
			}
		})
		rt.Rows = append(rt.Rows, row)
	})

	select {
	case <-ctx.Done():
		return table.RawTable{}, ctx.Err()
	default:
	}
	return rt, nil
}
