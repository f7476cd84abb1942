package export

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/recon-cli/internal/model"
)

// SheetName is the worksheet holding an XLSX export.
const SheetName = "对账结果"

// Formatter turns rows into a document of one file type.
type Formatter interface {
	Format(rows []model.Row) ([]byte, error)
	FileExtension() string
	ContentType() string
}

// ForFormat returns the formatter registered under name. The empty name
// selects CSV.
func ForFormat(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "csv":
		return CSVFormatter{}, nil
	case "xlsx":
		return XLSXFormatter{}, nil
	default:
		return nil, eris.Errorf("export: unsupported format %q", name)
	}
}

// CSVFormatter produces the BOM-prefixed CSV of Encode.
type CSVFormatter struct{}

func (CSVFormatter) Format(rows []model.Row) ([]byte, error) { return Encode(rows) }

func (CSVFormatter) FileExtension() string { return "csv" }

func (CSVFormatter) ContentType() string { return "text/csv; charset=utf-8" }

// XLSXFormatter writes the same header and values into a single worksheet.
// Absent counts are left as empty cells.
type XLSXFormatter struct{}

func (XLSXFormatter) Format(rows []model.Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range Header {
		hdr.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Name)
		r.AddCell().SetString(row.Account)
		setCount(r.AddCell(), row.BuyCount)
		setCount(r.AddCell(), row.WinCount)
		r.AddCell().SetString(row.Status.Label())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write workbook")
	}
	return buf.Bytes(), nil
}

func (XLSXFormatter) FileExtension() string { return "xlsx" }

func (XLSXFormatter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func setCount(cell *xlsx.Cell, c model.Count) {
	if n, ok := c.Value(); ok {
		cell.SetInt(n)
		return
	}
	cell.SetString("")
}
