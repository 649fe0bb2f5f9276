package dataset

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

// buildXLSX assembles a minimal single-sheet workbook archive.
func buildXLSX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

const testWorkbookXML = `<?xml version="1.0"?>
<workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets>
</workbook>`

const testRelsXML = `<?xml version="1.0"?>
<Relationships>
  <Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
</Relationships>`

const testSharedStringsXML = `<?xml version="1.0"?>
<sst><si><t>name</t></si><si><t>score</t></si><si><t>alice</t></si><si><t>bob</t></si></sst>`

const testSheetXML = `<?xml version="1.0"?>
<worksheet><sheetData>
  <row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
  <row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>10</v></c></row>
  <row r="3"><c r="A3" t="s"><v>3</v></c><c r="B3"><v>20</v></c></row>
</sheetData></worksheet>`

func TestLoadXLSX(t *testing.T) {
	data := buildXLSX(t, map[string]string{
		"xl/workbook.xml":            testWorkbookXML,
		"xl/_rels/workbook.xml.rels": testRelsXML,
		"xl/sharedStrings.xml":       testSharedStringsXML,
		"xl/worksheets/sheet1.xml":   testSheetXML,
	})

	table, err := Load(data, "xlsx")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	got := table.ColumnNames()
	if len(got) != 2 || got[0] != "name" || got[1] != "score" {
		t.Fatalf("column names = %v, want [name score]", got)
	}
	if table.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", table.Rows())
	}
	if table.Column("name").Values[0] != "alice" {
		t.Errorf("name[0] = %v, want alice", table.Column("name").Values[0])
	}
	if table.Column("score").Values[1] != "20" {
		t.Errorf("score[1] = %v, want raw string 20", table.Column("score").Values[1])
	}
}

func TestLoadXLSXSparseRow(t *testing.T) {
	sheet := `<?xml version="1.0"?>
<worksheet><sheetData>
  <row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
  <row r="2"><c r="B2"><v>5</v></c></row>
</sheetData></worksheet>`
	data := buildXLSX(t, map[string]string{
		"xl/workbook.xml":            testWorkbookXML,
		"xl/_rels/workbook.xml.rels": testRelsXML,
		"xl/sharedStrings.xml":       testSharedStringsXML,
		"xl/worksheets/sheet1.xml":   sheet,
	})

	table, err := Load(data, "xlsx")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if table.Column("name").Values[0] != nil {
		t.Errorf("skipped cell = %v, want nil", table.Column("name").Values[0])
	}
	if table.Column("score").Values[0] != "5" {
		t.Errorf("score[0] = %v, want 5", table.Column("score").Values[0])
	}
}

func TestLoadXLSXNotAnArchive(t *testing.T) {
	_, err := Load([]byte("this is not a zip"), "xlsx")
	var parse *ErrParse
	if !errors.As(err, &parse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
}

func TestLoadXLSXHeaderOnly(t *testing.T) {
	sheet := `<?xml version="1.0"?>
<worksheet><sheetData>
  <row r="1"><c r="A1" t="s"><v>0</v></c></row>
</sheetData></worksheet>`
	data := buildXLSX(t, map[string]string{
		"xl/workbook.xml":            testWorkbookXML,
		"xl/_rels/workbook.xml.rels": testRelsXML,
		"xl/sharedStrings.xml":       testSharedStringsXML,
		"xl/worksheets/sheet1.xml":   sheet,
	})
	var empty *ErrEmptyInput
	if _, err := Load(data, "xlsx"); !errors.As(err, &empty) {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
}

func TestColumnIndex(t *testing.T) {
	cases := map[string]int{"A1": 0, "C12": 2, "Z3": 25, "AA1": 26, "": -1, "42": -1}
	for ref, want := range cases {
		if got := columnIndex(ref); got != want {
			t.Errorf("columnIndex(%q) = %d, want %d", ref, got, want)
		}
	}
}
