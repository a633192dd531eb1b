package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ContentType is the MIME type of an export archive.
const ContentType = "application/zip"

// ReadmeName is the note written when an export produced no rows.
const ReadmeName = "README.txt"

const readmeText = "No segmentation rows were generated. Ensure annotations include Brush (RLE) or Polygon regions, and that original image dimensions are present."

// Table is the set of rows exported for one image of one task.
type Table struct {
	Filename string `json:"image_filename"`
	TaskID   string `json:"task_id"`
	Rows     []Row  `json:"rows"`

	name string
}

// Name returns the archive entry name of the table,
// "<filename>__task_<task id>.csv" with path separators replaced.
func (t *Table) Name() string {
	if t.name != "" {
		return t.name
	}
	return baseName(t.Filename, t.TaskID)
}

func baseName(filename, taskID string) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(filename + "__task_" + taskID)
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name += ".csv"
	}
	return name
}

type tableKey struct {
	filename string
	taskID   string
}

// tableSet groups rows by (display filename, task id) in first-seen order.
type tableSet struct {
	tables []*Table
	index  map[tableKey]*Table
	names  map[string]int
}

func newTableSet() *tableSet {
	return &tableSet{
		index: make(map[tableKey]*Table),
		names: make(map[string]int),
	}
}

func (s *tableSet) add(row Row) {
	key := tableKey{filename: row.ImageFilename, taskID: row.TaskID}
	t, ok := s.index[key]
	if !ok {
		t = &Table{Filename: row.ImageFilename, TaskID: row.TaskID}
		t.name = s.uniqueName(baseName(t.Filename, t.TaskID))
		s.index[key] = t
		s.tables = append(s.tables, t)
	}
	t.Rows = append(t.Rows, row)
}

// uniqueName suffixes names that collide after sanitizing, e.g. "a/b.png"
// and "a_b.png" of the same task.
func (s *tableSet) uniqueName(name string) string {
	n := s.names[name]
	s.names[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}

// ArchiveName returns the download name of a project's export archive.
func ArchiveName(projectID string) string {
	return fmt.Sprintf("project-%s-segmentation.csv.zip", projectID)
}

// WriteArchive writes one CSV per table into a zip stream. When there are no
// rows at all the archive holds only README.txt.
func WriteArchive(w io.Writer, tables []*Table, decimals int) error {
	zw := zip.NewWriter(w)

	rows := 0
	for _, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}
		rows += len(t.Rows)
		if err := writeTable(zw, t, decimals); err != nil {
			zw.Close()
			return err
		}
	}

	if rows == 0 {
		f, err := zw.Create(ReadmeName)
		if err != nil {
			zw.Close()
			return fmt.Errorf("create %s: %w", ReadmeName, err)
		}
		if _, err := io.WriteString(f, readmeText); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", ReadmeName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func writeTable(zw *zip.Writer, t *Table, decimals int) error {
	f, err := zw.Create(t.Name())
	if err != nil {
		return fmt.Errorf("create %s: %w", t.Name(), err)
	}
	cw := csv.NewWriter(f)
	cw.UseCRLF = true
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name(), err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row.Record(decimals)); err != nil {
			return fmt.Errorf("write %s: %w", t.Name(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", t.Name(), err)
	}
	return nil
}

// WriteArchiveFile writes the archive for a project into dir and returns its
// path. The file is written to a temporary name and renamed into place.
func WriteArchiveFile(dir, projectID string, tables []*Table, decimals int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".segexport-*.zip")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteArchive(tmp, tables, decimals); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}

	path := filepath.Join(dir, ArchiveName(projectID))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move archive into place: %w", err)
	}
	return path, nil
}
