package htmltab

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func fromHTML(t *testing.T, html string) ([]string, [][]any, error) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	rt, err := FromDocument(context.Background(), "t", doc)
	return rt.Columns, rt.Rows, err
}

func TestTheadHeader(t *testing.T) {
	t.Parallel()

	cols, rows, err := fromHTML(t, `
		<table>
			<thead><tr><th>id</th><th>name</th></tr></thead>
			<tbody>
				<tr><td>1</td><td>one</td></tr>
				<tr><td>2</td><td>two</td></tr>
			</tbody>
		</table>`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(cols, []string{"id", "name"}) {
		t.Fatalf("cols=%v", cols)
	}
	if len(rows) != 2 || rows[1][1] != "two" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestFirstRowPromotedWithoutThead(t *testing.T) {
	t.Parallel()

	cols, rows, err := fromHTML(t, `
		<table>
			<tr><td>id</td><td>name</td></tr>
			<tr><td>1</td><td>one</td></tr>
		</table>`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(cols, []string{"id", "name"}) {
		t.Fatalf("cols=%v", cols)
	}
	if len(rows) != 1 || rows[0][0] != "1" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestFirstTableOnly(t *testing.T) {
	t.Parallel()

	cols, rows, err := fromHTML(t, `
		<table><tr><th>a</th></tr><tr><td>1</td></tr></table>
		<table><tr><th>b</th></tr><tr><td>2</td></tr></table>`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(cols, []string{"a"}) {
		t.Fatalf("cols=%v, want first table only", cols)
	}
	if len(rows) != 1 || rows[0][0] != "1" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestShortRowsPadded(t *testing.T) {
	t.Parallel()

	_, rows, err := fromHTML(t, `
		<table>
			<thead><tr><th>a</th><th>b</th><th>c</th></tr></thead>
			<tr><td>1</td></tr>
		</table>`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rows[0]) != 3 || rows[0][1] != nil {
		t.Fatalf("rows=%v", rows)
	}
}

func TestWhitespaceTrimmed(t *testing.T) {
	t.Parallel()

	_, rows, err := fromHTML(t, `
		<table>
			<thead><tr><th> a </th></tr></thead>
			<tr><td>
				spaced
			</td></tr>
		</table>`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rows[0][0] != "spaced" {
		t.Fatalf("cell=%q", rows[0][0])
	}
}

func TestNoTable(t *testing.T) {
	t.Parallel()

	_, _, err := fromHTML(t, `<p>no tables here</p>`)
	if err == nil {
		t.Fatalf("err=nil, want error for missing table")
	}
}
