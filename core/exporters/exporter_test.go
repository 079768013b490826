package exporters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

var sampleUsers = []model.User{
	{ID: 1, Name: "Alice", Age: 30},
	{ID: 2, Name: "O'Brien <b>", Age: 41},
}

func export(t *testing.T, format string, opts ExportOptions) string {
	t.Helper()

	exp, err := Get(format)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", format, err)
	}
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(t.TempDir(), "users."+format)
	}
	opts.Format = format

	n, err := exp.Export(sampleUsers, opts)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != len(sampleUsers) {
		t.Errorf("Export() = %d rows, want %d", n, len(sampleUsers))
	}
	return opts.OutputPath
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestList(t *testing.T) {
	got := strings.Join(List(), ",")
	want := "csv,json,sql,template,xlsx,xml,yaml"
	if got != want {
		t.Errorf("List() = %s, want %s", got, want)
	}
}

func TestGet_Unsupported(t *testing.T) {
	if _, err := Get("parquet"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := Get("  JSON "); err != nil {
		t.Errorf("Get should normalize format: %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	if err := Register(FormatCSV, func() Exporter { return &csvExporter{} }); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestCSVExport(t *testing.T) {
	tests := []struct {
		name string
		opts ExportOptions
		want string
	}{
		{"default", ExportOptions{Delimiter: ','}, "id,name,age\n1,Alice,30\n2,O'Brien <b>,41\n"},
		{"semicolon", ExportOptions{Delimiter: ';'}, "id;name;age\n1;Alice;30\n2;O'Brien <b>;41\n"},
		{"no header", ExportOptions{NoHeader: true}, "1,Alice,30\n2,O'Brien <b>,41\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readFile(t, export(t, FormatCSV, tt.opts)); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONExport(t *testing.T) {
	content := readFile(t, export(t, FormatJSON, ExportOptions{}))

	var got []model.User
	if err := json.Unmarshal([]byte(content), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, content)
	}
	if len(got) != 2 || got[1] != sampleUsers[1] {
		t.Errorf("decoded %+v", got)
	}
	if strings.Index(content, `"id"`) > strings.Index(content, `"name"`) {
		t.Error("keys should follow column order")
	}
	if !strings.Contains(content, "<b>") {
		t.Error("HTML characters should not be escaped")
	}
}

func TestJSONExport_Empty(t *testing.T) {
	exp, _ := Get(FormatJSON)
	path := filepath.Join(t.TempDir(), "empty.json")
	if _, err := exp.Export(nil, ExportOptions{Format: FormatJSON, OutputPath: path}); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "[\n]\n" {
		t.Errorf("content = %q", got)
	}
}

func TestYAMLExport(t *testing.T) {
	content := readFile(t, export(t, FormatYAML, ExportOptions{}))

	var got []model.User
	if err := yaml.Unmarshal([]byte(content), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(got) != 2 || got[0] != sampleUsers[0] {
		t.Errorf("decoded %+v", got)
	}
}

func TestXMLExport(t *testing.T) {
	content := readFile(t, export(t, FormatXML, ExportOptions{XmlRootElement: "people", XmlRowElement: "person"}))

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		"<people>",
		"<person>",
		"<name>Alice</name>",
		"<name>O&#39;Brien &lt;b&gt;</name>",
		"<age>41</age>",
		"</people>",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in:\n%s", want, content)
		}
	}
}

func TestXMLExport_DefaultElements(t *testing.T) {
	content := readFile(t, export(t, FormatXML, ExportOptions{}))
	if !strings.Contains(content, "<users>") || !strings.Contains(content, "<user>") {
		t.Errorf("expected default element names:\n%s", content)
	}
}

func TestSQLExport(t *testing.T) {
	tests := []struct {
		name string
		rows int
		want string
	}{
		{
			name: "one row per statement",
			rows: 1,
			want: "INSERT INTO \"people\" (\"id\", \"name\", \"age\") VALUES\n\t(1, 'Alice', 30);\n" +
				"INSERT INTO \"people\" (\"id\", \"name\", \"age\") VALUES\n\t(2, 'O''Brien <b>', 41);\n",
		},
		{
			name: "batched",
			rows: 10,
			want: "INSERT INTO \"people\" (\"id\", \"name\", \"age\") VALUES\n\t(1, 'Alice', 30),\n\t(2, 'O''Brien <b>', 41);\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := export(t, FormatSQL, ExportOptions{TableName: "people", RowPerStatement: tt.rows})
			if got := readFile(t, path); got != tt.want {
				t.Errorf("content =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestXLSXExport(t *testing.T) {
	path := export(t, FormatXLSX, ExportOptions{})

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "id,name,age" {
		t.Errorf("header = %v", rows[0])
	}
	if strings.Join(rows[1], ",") != "1,Alice,30" {
		t.Errorf("first row = %v", rows[1])
	}
}

func TestTemplateExport_Full(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "report.tpl")
	tpl := "{{.Count}} users\n{{range .Users}}{{upper .Name}}:{{.Age}}\n{{end}}"
	if err := os.WriteFile(tplPath, []byte(tpl), 0o644); err != nil {
		t.Fatal(err)
	}

	path := export(t, FormatTemplate, ExportOptions{
		TemplateFile: tplPath,
		OutputPath:   filepath.Join(dir, "report.txt"),
	})
	want := "2 users\nALICE:30\nO'BRIEN <B>:41\n"
	if got := readFile(t, path); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestTemplateExport_Streaming(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	path := export(t, FormatTemplate, ExportOptions{
		TemplateStreaming: true,
		TemplateHeader:    write("h.tpl", "{{join .Columns \"|\"}}\n"),
		TemplateRow:       write("r.tpl", "{{.ID}}|{{lower .Name}}|{{add .Age 1}}\n"),
		TemplateFooter:    write("f.tpl", "total={{.Count}}\n"),
		OutputPath:        filepath.Join(dir, "out.txt"),
	})
	want := "id|name|age\n1|alice|31\n2|o'brien <b>|42\ntotal=2\n"
	if got := readFile(t, path); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestTemplateExport_MissingRowTemplate(t *testing.T) {
	exp, _ := Get(FormatTemplate)
	_, err := exp.Export(sampleUsers, ExportOptions{
		Format:            FormatTemplate,
		TemplateStreaming: true,
		OutputPath:        filepath.Join(t.TempDir(), "out.txt"),
	})
	if err == nil {
		t.Fatal("expected error when row template is missing")
	}
}
