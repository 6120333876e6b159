package archive

import (
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// MethodZstd is the zip compression method WinZip assigns to Zstandard.
const MethodZstd = zstd.ZipMethodWinZip

// registerDecompressors lets a reader open zstd entries next to the stored
// and deflated ones zip handles natively.
func registerDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(MethodZstd, zstd.ZipDecompressor())
}

// registerCompressors lets a writer re-encode replaced zstd entries with
// their original method.
func registerCompressors(zw *zip.Writer) {
	zw.RegisterCompressor(MethodZstd, zstd.ZipCompressor())
}
