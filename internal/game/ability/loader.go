package ability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadRecords reads every *.yaml, *.yml, and *.json file in dir, one record per
// file, in lexical file-name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the parsed records plus one warning per unreadable or
// malformed file; err is non-nil only when dir itself cannot be read.
func LoadRecords(dir string) ([]Record, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}

	var (
		records  []Record
		warnings []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("reading %q: %w", path, err))
			continue
		}
		r, err := UnmarshalRecord(data)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("loading %q: %w", path, err))
			continue
		}
		records = append(records, r)
	}
	return records, warnings, nil
}

// LoadDirectory loads every record in dir and builds a catalog from them,
// qualifying bare ability ids with namespace.
//
// Postcondition: warnings lists every dropped file, record, and entry.
func LoadDirectory(dir, namespace string) (*Catalog, []error, error) {
	records, warnings, err := LoadRecords(dir)
	if err != nil {
		return nil, nil, err
	}
	c, buildWarnings := Build(records, namespace)
	return c, append(warnings, buildWarnings...), nil
}

func isRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
