// Package archive reads and repacks zip containers (jar, aar) holding class
// entries, including one level of nesting such as classes.jar inside an aar.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrEntryNotFound reports a lookup of a name no entry carries.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrOverflow reports an entry whose declared size does not fit in an
	// int32.
	ErrOverflow = errors.New("archive entry size overflows int32")
	// ErrDuplicateEntry reports two entries with the same name.
	ErrDuplicateEntry = errors.New("duplicate archive entry")
)

// Entry is one listed archive entry.
type Entry struct {
	Name string
	Size int32
}

// NewEntry is an entry to append with RepackAppending.
type NewEntry struct {
	Name string
	Data []byte
}

// Archive is a decoded zip central directory over an in-memory or
// random-access byte source. Entries keep their on-disk order.
type Archive struct {
	comment string
	files   []*zip.File
}

// Empty returns an archive without entries.
func Empty() *Archive {
	return &Archive{}
}

// Open decodes a zip held in memory.
func Open(data []byte) (*Archive, error) {
	return OpenReaderAt(bytes.NewReader(data), int64(len(data)))
}

// OpenReaderAt decodes a zip of size bytes readable from r. r must stay
// readable for as long as the archive is used.
func OpenReaderAt(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	registerDecompressors(zr)

	seen := make(map[string]struct{}, len(zr.File))
	for _, f := range zr.File {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("open archive: %w: %s", ErrDuplicateEntry, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Archive{comment: zr.Comment, files: zr.File}, nil
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.files)
}

// Names returns entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.files))
	for i, f := range a.files {
		names[i] = f.Name
	}
	return names
}

func entrySize(f *zip.File) (int32, error) {
	if f.UncompressedSize64 > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s declares %d bytes", ErrOverflow, f.Name, f.UncompressedSize64)
	}
	return int32(f.UncompressedSize64), nil
}

// Entries lists every entry with its uncompressed size. It fails with
// ErrOverflow, before anything is decompressed, when any entry declares a
// size beyond math.MaxInt32.
func (a *Archive) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(a.files))
	for _, f := range a.files {
		size, err := entrySize(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: f.Name, Size: size})
	}
	return entries, nil
}

func (a *Archive) find(name string) *zip.File {
	for _, f := range a.files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Has reports whether an entry is called name.
func (a *Archive) Has(name string) bool {
	return a.find(name) != nil
}

// ReadEntry returns the uncompressed bytes of the entry called name.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return readFile(f)
}

func readFile(f *zip.File) ([]byte, error) {
	size, err := entrySize(f)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// Each calls fn with every entry accepted by match, in archive order,
// decompressing one entry at a time.
func (a *Archive) Each(match func(name string) bool, fn func(name string, data []byte) error) error {
	for _, f := range a.files {
		if match != nil && !match(f.Name) {
			continue
		}
		data, err := readFile(f)
		if err != nil {
			return err
		}
		if err := fn(f.Name, data); err != nil {
			return err
		}
	}
	return nil
}

// OpenNested reinterprets the first entry called name as an archive. A
// missing entry yields an empty archive and no error; an entry that is not
// a zip is an error.
func (a *Archive) OpenNested(name string) (*Archive, error) {
	f := a.find(name)
	if f == nil {
		return Empty(), nil
	}
	data, err := readFile(f)
	if err != nil {
		return nil, err
	}
	nested, err := Open(data)
	if err != nil {
		return nil, fmt.Errorf("nested %s: %w", name, err)
	}
	return nested, nil
}
