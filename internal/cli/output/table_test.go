package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintTable(t *testing.T) {
	data := NewTableData("Scheme", "Status")
	data.AddRow("basic", "configured")
	data.AddRow("ntlm", "not configured")

	var buf bytes.Buffer
	if err := PrintTable(&buf, data); err != nil {
		t.Fatalf("PrintTable() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SCHEME", "STATUS", "basic", "ntlm"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	err := SimpleTable(&buf, [][2]string{
		{"User", "alice"},
		{"Expires", "never"},
	})
	if err != nil {
		t.Fatalf("SimpleTable() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "alice") || !strings.Contains(out, "Expires") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
