package fileconf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string  `toml:"name" yaml:"name"`
	Ratio float64 `toml:"ratio" yaml:"ratio"`
	Keep  int     `toml:"keep" yaml:"keep"`
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file    string
		content string
	}{
		{"a.toml", "name = \"ink\"\nratio = 0.35\n"},
		{"b.yaml", "name: ink\nratio: 0.35\n"},
		{"c.YML", "name: ink\nratio: 0.35\n"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got := sample{Keep: 7}
			if err := DecodeFile(path, &got); err != nil {
				t.Fatal(err)
			}
			if got != (sample{Name: "ink", Ratio: 0.35, Keep: 7}) {
				t.Errorf("decoded %+v", got)
			}
		})
	}
}

func TestDecodeFileUnknownFormat(t *testing.T) {
	if err := DecodeFile("params.json", &sample{}); !errors.Is(err, ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}
