// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var errData = errors.New("data entry")

// DataEntry is a resource file embedded in a glossary. The bytes are either
// held inline or spilled to a temporary file which the entry owns until Save
// moves it elsewhere.
type DataEntry struct {
	name     string
	data     []byte
	tmpPath  string
	owned    bool
	progress *Progress
}

// NewDataEntry returns a data entry holding data inline.
func NewDataEntry(name string, data []byte) *DataEntry {
	return &DataEntry{
		name: name,
		data: data,
	}
}

// NewTempDataEntry writes data to tmpPath and returns a data entry that
// refers to the file.
func NewTempDataEntry(name string, data []byte, tmpPath string) (*DataEntry, error) {
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", errData, err)
	}
	//nolint:gosec // tmpPath is chosen by the glossary.
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %w", errData, err)
	}
	return &DataEntry{
		name:    name,
		tmpPath: tmpPath,
		owned:   true,
	}, nil
}

// OpenDataEntry returns a data entry referring to an existing file. The file
// is not owned by the entry and Save copies it.
func OpenDataEntry(name, path string) *DataEntry {
	return &DataEntry{
		name:    name,
		tmpPath: path,
	}
}

// Name returns the resource's relative path name.
func (d *DataEntry) Name() string {
	return d.name
}

// TempPath returns the path of the file holding the data, or an empty string
// if the data is held inline.
func (d *DataEntry) TempPath() string {
	return d.tmpPath
}

// Data returns the resource's bytes.
func (d *DataEntry) Data() ([]byte, error) {
	if d.tmpPath == "" {
		return d.data, nil
	}
	b, err := os.ReadFile(d.tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errData, err)
	}
	return b, nil
}

// Size returns the size of the resource in bytes.
func (d *DataEntry) Size() (int64, error) {
	if d.tmpPath == "" {
		return int64(len(d.data)), nil
	}
	fi, err := os.Stat(d.tmpPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errData, err)
	}
	return fi.Size(), nil
}

// Save stores the resource under dir using its name and returns the path of
// the new file. Inline data is written out and a spilled file is moved. In
// both cases the entry then refers to the new path. Files opened with
// [OpenDataEntry] are copied.
func (d *DataEntry) Save(dir string) (string, error) {
	dst := filepath.Join(dir, filepath.FromSlash(d.name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", errData, err)
	}

	if d.tmpPath == "" {
		//nolint:gosec // dst is under the output directory.
		if err := os.WriteFile(dst, d.data, 0o644); err != nil {
			return "", fmt.Errorf("%w: %w", errData, err)
		}
		d.tmpPath = dst
		d.data = nil
		return dst, nil
	}

	if !d.owned {
		if err := copyFile(d.tmpPath, dst); err != nil {
			return "", err
		}
		return dst, nil
	}

	if err := os.Rename(d.tmpPath, dst); err != nil {
		// Rename fails across devices.
		if err := copyFile(d.tmpPath, dst); err != nil {
			return "", err
		}
		if err := os.Remove(d.tmpPath); err != nil {
			return "", fmt.Errorf("%w: %w", errData, err)
		}
	}
	d.tmpPath = dst
	d.data = nil
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", errData, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", errData, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %w", errData, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", errData, err)
	}
	return nil
}

// SetProgress records the entry's byte position in its source.
func (d *DataEntry) SetProgress(pos, total int64) {
	d.progress = &Progress{Pos: pos, Total: total}
}

// IsData implements [Record.IsData].
func (*DataEntry) IsData() bool {
	return true
}

// Terms implements [Record.Terms]. The only term is the resource name.
func (d *DataEntry) Terms() []string {
	return []string{d.name}
}

// Headword implements [Record.Headword].
func (d *DataEntry) Headword() string {
	return d.name
}

// Definition implements [Record.Definition].
func (d *DataEntry) Definition() string {
	return "File: " + d.name
}

// Format implements [Record.Format].
func (*DataEntry) Format() Format {
	return Binary
}

// SetFormat implements [Record.SetFormat].
func (*DataEntry) SetFormat(Format) error {
	return nil
}

// DetectFormat implements [Record.DetectFormat].
func (*DataEntry) DetectFormat() Format {
	return Binary
}

// ByteProgress implements [Record.ByteProgress].
func (d *DataEntry) ByteProgress() *Progress {
	return d.progress
}

// SetTerms implements [Record.SetTerms].
func (*DataEntry) SetTerms([]string) error {
	return nil
}

// EditTerms implements [Record.EditTerms].
func (*DataEntry) EditTerms(func(string) string) {}

// EditDefinition implements [Record.EditDefinition].
func (*DataEntry) EditDefinition(func(string) string) {}

// Strip implements [Record.Strip].
func (*DataEntry) Strip() {}

// Replace implements [Record.Replace].
func (*DataEntry) Replace(string, string) {}

// RemoveEmptyAndDuplicateAlternates implements
// [Record.RemoveEmptyAndDuplicateAlternates].
func (*DataEntry) RemoveEmptyAndDuplicateAlternates() {}

// StripFullHTML implements [Record.StripFullHTML].
func (*DataEntry) StripFullHTML() error {
	return nil
}

// String returns a debug representation of the entry.
func (d *DataEntry) String() string {
	return fmt.Sprintf("DataEntry(%q, tmpPath=%q)", d.name, d.tmpPath)
}
