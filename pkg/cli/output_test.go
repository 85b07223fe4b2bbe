package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type checkTable [][]string

func (checkTable) Header() []string   { return []string{"INDEX", "CATEGORY", "POLICY"} }
func (t checkTable) Rows() [][]string { return t }

var sampleTable = checkTable{
	{"0", "overlap_existing", "WithAnarchy"},
	{"1", "already_exists", "Never"},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "csv", want: FormatCSV},
		{in: "junit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	output, err := formatter.Format("anarchy enabled")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "anarchy enabled\n" {
		t.Errorf("Format() = %q", output)
	}
}

func TestTextFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, sampleTable); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "POLICY")
	for _, l := range lines[1:] {
		if strings.Index(l, "WithAnarchy") != col && strings.Index(l, "Never") != col {
			t.Errorf("policy column not aligned:\n%s", buf.String())
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   interface{}
		indent bool
	}{
		{name: "simple string", data: "test"},
		{name: "map with indent", data: map[string]string{"key": "value"}, indent: true},
		{
			name: "struct",
			data: struct {
				Name  string `json:"name"`
				Value int    `json:"value"`
			}{Name: "test", Value: 42},
			indent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var result interface{}
			if err := json.Unmarshal(output, &result); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestYAMLFormatter(t *testing.T) {
	data := map[string]int{"frames": 3}
	out, err := (&YAMLFormatter{}).Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got map[string]int
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("Format() produced invalid YAML: %v", err)
	}
	if got["frames"] != 3 {
		t.Errorf("round trip = %v", got)
	}
}

func TestCSVFormatter(t *testing.T) {
	out, err := (&CSVFormatter{}).Format(sampleTable)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "INDEX,CATEGORY,POLICY\n0,overlap_existing,WithAnarchy\n1,already_exists,Never\n"
	if string(out) != want {
		t.Errorf("Format() = %q, want %q", out, want)
	}

	if _, err := (&CSVFormatter{}).Format("not a table"); err == nil {
		t.Error("Format() of a non-table succeeded")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{format: FormatText, want: "*cli.TextFormatter"},
		{format: FormatJSON, want: "*cli.JSONFormatter"},
		{format: FormatYAML, want: "*cli.YAMLFormatter"},
		{format: FormatCSV, want: "*cli.CSVFormatter"},
		{format: "unknown", want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := fmt.Sprintf("%T", NewFormatter(tt.format)); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
