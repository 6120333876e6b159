package archive

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zip"
)

func (a *Archive) newWriter(buf *bytes.Buffer) (*zip.Writer, error) {
	zw := zip.NewWriter(buf)
	registerCompressors(zw)
	if a.comment != "" {
		if err := zw.SetComment(a.comment); err != nil {
			return nil, fmt.Errorf("set archive comment: %w", err)
		}
	}
	return zw, nil
}

// RepackReplacing returns a new zip with every entry copied raw (same order,
// compression method, timestamps and extra fields) except the entries named
// in replacements, which carry the given bytes instead. Entries are never
// added: a replacement for a name the archive lacks fails with
// ErrEntryNotFound.
func (a *Archive) RepackReplacing(replacements map[string][]byte) ([]byte, error) {
	for name := range replacements {
		if a.find(name) == nil {
			return nil, fmt.Errorf("repack: replace %s: %w", name, ErrEntryNotFound)
		}
	}

	var buf bytes.Buffer
	zw, err := a.newWriter(&buf)
	if err != nil {
		return nil, err
	}
	for _, f := range a.files {
		data, ok := replacements[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("repack: copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := writeReplacement(zw, f, data); err != nil {
			return nil, fmt.Errorf("repack: replace %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("repack: close: %w", err)
	}
	return buf.Bytes(), nil
}

// writeReplacement re-encodes data under f's name, method and metadata.
// Sizes and CRC are recomputed by the writer.
func writeReplacement(zw *zip.Writer, f *zip.File, data []byte) error {
	fh := &zip.FileHeader{
		Name:           f.Name,
		Comment:        f.Comment,
		NonUTF8:        f.NonUTF8,
		CreatorVersion: f.CreatorVersion,
		Method:         f.Method,
		Modified:       f.Modified,
		ExternalAttrs:  f.ExternalAttrs,
	}
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// RepackAppending returns a new zip with every entry copied raw followed by
// entries, deflated, in the given order. It fails with ErrDuplicateEntry
// when an appended name is already taken.
func (a *Archive) RepackAppending(entries []NewEntry) ([]byte, error) {
	taken := make(map[string]struct{}, len(a.files)+len(entries))
	for _, f := range a.files {
		taken[f.Name] = struct{}{}
	}
	for _, e := range entries {
		if _, dup := taken[e.Name]; dup {
			return nil, fmt.Errorf("repack: append %s: %w", e.Name, ErrDuplicateEntry)
		}
		taken[e.Name] = struct{}{}
	}

	var buf bytes.Buffer
	zw, err := a.newWriter(&buf)
	if err != nil {
		return nil, err
	}
	for _, f := range a.files {
		if err := zw.Copy(f); err != nil {
			return nil, fmt.Errorf("repack: copy %s: %w", f.Name, err)
		}
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("repack: append %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("repack: append %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("repack: close: %w", err)
	}
	return buf.Bytes(), nil
}
