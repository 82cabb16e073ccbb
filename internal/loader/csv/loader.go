// Package csv loads delimited-text sources.
//
// The delimiter is either explicit (option "comma") or sniffed from the
// header line; the sniffed delimiter applies to the whole file. Input that is
// not valid UTF-8 is re-decoded (UTF-16 by BOM, otherwise Latin-1) before
// parsing.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"datafuse/internal/config"
	"datafuse/internal/loader"
	"datafuse/internal/table"
)

func init() {
	loader.Register("csv", func() loader.Loader { return &Loader{} })
}

type Loader struct{}

// sniffDelimiters are tried in order; the winner is the one appearing most
// often in the header line.
var sniffDelimiters = []rune{',', ';', '\t', '|'}

func (l *Loader) Load(ctx context.Context, src config.Source) (table.RawTable, error) {
	b, err := os.ReadFile(src.Path)
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read %s: %w", src.Path, err)
	}
	return Parse(ctx, src.EffectiveName(), b, src.Options)
}

// Parse decodes raw delimited bytes into a RawTable. The header row defines
// the columns; rows with too few fields are padded with missing markers and
// rows with too many keep their prefix, so no row is ever dropped.
func Parse(ctx context.Context, name string, b []byte, opt config.Options) (table.RawTable, error) {
	b = decodeCharset(b)

	comma := opt.Rune("comma", 0)
	if comma == 0 {
		comma = sniffDelimiter(b)
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opt.Bool("lazy_quotes", true)
	trim := opt.Bool("trim_space", true)

	header, err := cr.Read()
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		h := header[i]
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = strings.TrimSpace(h)
	}

	rt := table.RawTable{Name: name, Columns: header}
	for {
		select {
		case <-ctx.Done():
			return table.RawTable{}, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: csv.Reader already consumed it; keep going.
			continue
		}

		row := make([]any, len(header))
		for i := range header {
			if i >= len(rec) {
				continue
			}
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			row[i] = v
		}
		rt.Rows = append(rt.Rows, row)
	}
	return rt, nil
}

// decodeCharset makes the input UTF-8: UTF-16 inputs are detected by BOM and
// anything else that fails utf8 validation is treated as Latin-1.
func decodeCharset(b []byte) []byte {
	if len(b) >= 2 {
		if (b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF) {
			dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
			if out, err := dec.Bytes(b); err == nil {
				return out
			}
		}
	}
	if utf8.Valid(b) {
		return b
	}
	if out, err := charmap.ISO8859_1.NewDecoder().Bytes(b); err == nil {
		return out
	}
	return b
}

func sniffDelimiter(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	best := ','
	bestN := -1
	for _, d := range sniffDelimiters {
		n := bytes.Count(line, []byte(string(d)))
		if n > bestN {
			best = d
			bestN = n
		}
	}
	return best
}
