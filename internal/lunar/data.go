package lunar

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	yaml "go.yaml.in/yaml/v3"
)

//go:embed data/reference.yaml
var referenceYAML []byte

// tableFile is the on-disk layout of a lunar table.
type tableFile struct {
	Years []YearSpec `yaml:"years"`
}

// ParseTable decodes a YAML table document and validates it.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode lunar table: %w", err)
	}
	return NewTable(f.Years)
}

// LoadTable reads and parses a YAML table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lunar table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

var referenceTable = sync.OnceValues(func() (*Table, error) {
	return ParseTable(referenceYAML)
})

// ReferenceTable returns the table compiled into the binary, covering
// 2024-2053. It is parsed on first use and shared afterwards.
func ReferenceTable() (*Table, error) {
	return referenceTable()
}

// MustReferenceTable is like ReferenceTable but panics on error.
func MustReferenceTable() *Table {
	t, err := ReferenceTable()
	if err != nil {
		panic(err)
	}
	return t
}
