// Package export encodes reconciliation rows into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"

	"github.com/sells-group/recon-cli/internal/model"
)

// ErrNothingToExport is returned when there are no rows to encode.
var ErrNothingToExport = eris.New("export: nothing to export")

// Header is the first line of a CSV export.
var Header = []string{"姓名", "账号", "投注数", "中签数", "状态"}

// Record is one exported line. Counts are raw: the decimal value, or empty
// when absent.
type Record struct {
	Name     string `csv:"姓名"`
	Account  string `csv:"账号"`
	BuyCount string `csv:"投注数"`
	WinCount string `csv:"中签数"`
	Status   string `csv:"状态"`
}

// RecordOf converts a row to its exported form.
func RecordOf(row model.Row) Record {
	return Record{
		Name:     row.Name,
		Account:  row.Account,
		BuyCount: row.BuyCount.String(),
		WinCount: row.WinCount.String(),
		Status:   row.Status.Label(),
	}
}

// Records converts rows in order.
func Records(rows []model.Row) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = RecordOf(row)
	}
	return out
}

// Encode writes rows as UTF-8 CSV with a leading byte order mark so that
// spreadsheet tools detect the encoding.
func Encode(rows []model.Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.Encode(Records(rows)); err != nil {
		return nil, eris.Wrap(err, "export: encode rows")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}

	out, err := unicode.UTF8BOM.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return nil, eris.Wrap(err, "export: add byte order mark")
	}
	return out, nil
}

// Decode parses a document produced by Encode. It is the inverse used to
// check that exports are lossless.
func Decode(data []byte) ([]Record, error) {
	body, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrap(err, "export: strip byte order mark")
	}

	r := csv.NewReader(bytes.NewReader(body))
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrap(err, "export: read header")
	}
	if got := strings.Join(dec.Header(), ","); got != strings.Join(Header, ",") {
		return nil, eris.Errorf("export: unexpected header %q", got)
	}

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, eris.Wrap(err, "export: decode rows")
	}
	return records, nil
}
