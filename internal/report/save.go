package report

import (
	"encoding/json"
	"fmt"

	"github.com/drive-assess/drive-assess/internal/atomicfile"
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

// Marshal renders a report as four-space indented JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("report: marshaling: %w", err)
	}

	return append(data, '\n'), nil
}

// Save writes a report to path atomically, replacing any previous file.
func Save(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}

	if err := atomicfile.Write(path, data, filePerms, dirPerms); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}

	return nil
}
