// Package input reads the identifier list the scrape run processes.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadIdentifiers loads CMP identifiers from a delimited file: the first
// field of each line, with blank lines and blank fields skipped. Identifiers
// are opaque keys and are not validated beyond non-emptiness.
func ReadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identifier file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var cmps []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read identifier file: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		cmp := strings.TrimSpace(record[0])
		if cmp != "" {
			cmps = append(cmps, cmp)
		}
	}
	return cmps, nil
}
