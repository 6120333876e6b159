package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// ErrCopyThrough reports a repacked archive whose untouched entries differ
// from the source archive.
var ErrCopyThrough = errors.New("archive copy-through mismatch")

// Digest is the BLAKE2b-256 digest of an entry's uncompressed bytes.
type Digest [blake2b.Size256]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DigestBytes hashes data the way Manifest hashes entries.
func DigestBytes(data []byte) Digest {
	return blake2b.Sum256(data)
}

// ManifestEntry is one entry name and its content digest.
type ManifestEntry struct {
	Name   string
	Digest Digest
}

// Manifest lists entry digests in archive order.
type Manifest []ManifestEntry

// Manifest streams every entry through the hash; only one entry is
// decompressed at a time.
func (a *Archive) Manifest() (Manifest, error) {
	m := make(Manifest, 0, len(a.files))
	for _, f := range a.files {
		if _, err := entrySize(f); err != nil {
			return nil, err
		}
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		_, err = io.Copy(h, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("hash entry %s: %w", f.Name, err)
		}
		var d Digest
		copy(d[:], h.Sum(nil))
		m = append(m, ManifestEntry{Name: f.Name, Digest: d})
	}
	return m, nil
}

// VerifyCopyThrough checks that after holds the same entries as before, in
// the same order, with identical content except for the entries named in
// replaced, whose content must equal the replacement bytes.
func VerifyCopyThrough(before, after *Archive, replaced map[string][]byte) error {
	want, err := before.Manifest()
	if err != nil {
		return fmt.Errorf("verify: source manifest: %w", err)
	}
	got, err := after.Manifest()
	if err != nil {
		return fmt.Errorf("verify: output manifest: %w", err)
	}
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d entries, want %d", ErrCopyThrough, len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name {
			return fmt.Errorf("%w: entry %d is %s, want %s", ErrCopyThrough, i, got[i].Name, want[i].Name)
		}
		expect := want[i].Digest
		if data, ok := replaced[want[i].Name]; ok {
			expect = DigestBytes(data)
		}
		if got[i].Digest != expect {
			return fmt.Errorf("%w: %s digest %s, want %s", ErrCopyThrough, got[i].Name, got[i].Digest, expect)
		}
	}
	return nil
}
