package detect

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for file kind detection
var (
	// ELF binaries start with 0x7F "ELF"
	elfMagic = []byte{0x7F, 0x45, 0x4C, 0x46}

	// RPM packages start with 0xED 0xAB 0xEE 0xDB
	rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

	// Zip archives (also wheels, eggs, jars)
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

	// Gzip magic bytes
	gzipMagic = []byte{0x1F, 0x8B}

	// Zstandard magic bytes
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

	// XZ magic bytes
	xzMagic = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}

	// Bzip2 magic bytes
	bzip2Magic = []byte("BZh")

	// SFNT-housed font flavors: TrueType, CFF, legacy Mac, collections
	// and the WOFF wrappers.
	fontMagics = [][]byte{
		{0x00, 0x01, 0x00, 0x00},
		[]byte("OTTO"),
		[]byte("true"),
		[]byte("ttcf"),
		[]byte("wOFF"),
		[]byte("wOF2"),
	}

	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gifMagic  = []byte("GIF8")
	tiffLE    = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBE    = []byte{0x4D, 0x4D, 0x00, 0x2A}
	riffMagic = []byte("RIFF")
)

var archiveExtensions = map[string]bool{
	".zip": true, ".whl": true, ".egg": true, ".jar": true,
	".tar": true, ".tgz": true, ".txz": true, ".tbz2": true,
	".gz": true, ".xz": true, ".zst": true, ".bz2": true,
	".crate": true, ".rpm": true,
}

var fontExtensions = map[string]bool{
	".ttf": true, ".otf": true, ".ttc": true,
	".woff": true, ".woff2": true, ".eot": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// headerSize is how much of a file is read for sniffing.
const headerSize = 512

// DetectKind determines the file kind. Content sniffing always wins; the
// file name and extension are consulted only when no magic matches.
func DetectKind(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		// Zero-byte files have nothing to sniff.
		header = header[:0]
	} else {
		header = header[:n]
	}

	if kind := sniffKind(header); kind != KindUnknown {
		return kind, nil
	}
	return kindFromName(path, header), nil
}

// sniffKind matches the magic bytes of all supported formats.
func sniffKind(header []byte) Kind {
	if bytes.HasPrefix(header, elfMagic) {
		return KindELF
	}
	if bytes.HasPrefix(header, rpmMagic) {
		return KindRPM
	}
	if bytes.HasPrefix(header, zipMagic) ||
		bytes.HasPrefix(header, gzipMagic) ||
		bytes.HasPrefix(header, zstdMagic) ||
		bytes.HasPrefix(header, xzMagic) ||
		bytes.HasPrefix(header, bzip2Magic) {
		return KindArchive
	}
	// Tar has its magic in the middle of the first header block.
	if len(header) >= 262 && bytes.Equal(header[257:262], []byte("ustar")) {
		return KindArchive
	}
	for _, magic := range fontMagics {
		if bytes.HasPrefix(header, magic) {
			return KindFont
		}
	}
	if sniffImage(header) {
		return KindImage
	}
	return KindUnknown
}

func sniffImage(header []byte) bool {
	if bytes.HasPrefix(header, pngMagic) ||
		bytes.HasPrefix(header, jpegMagic) ||
		bytes.HasPrefix(header, gifMagic) ||
		bytes.HasPrefix(header, tiffLE) ||
		bytes.HasPrefix(header, tiffBE) {
		return true
	}
	if bytes.HasPrefix(header, riffMagic) && len(header) >= 12 && bytes.Equal(header[8:12], []byte("WEBP")) {
		return true
	}
	// BM is too generic on its own, require the extension check later.
	return false
}

// kindFromName is the fallback when no magic matched.
func kindFromName(path string, header []byte) Kind {
	basename := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case basename == "Cargo.toml":
		return KindCargoManifest
	case basename == "METADATA" && strings.HasSuffix(filepath.Dir(path), ".dist-info"):
		return KindPythonMetadata
	case basename == "PKG-INFO" && strings.HasSuffix(filepath.Dir(path), ".egg-info"):
		return KindPythonMetadata
	case archiveExtensions[ext]:
		return KindArchive
	case fontExtensions[ext]:
		return KindFont
	case imageExtensions[ext]:
		return KindImage
	// Versioned shared objects like libfoo.so.1.2 keep the .so in the middle.
	case ext == ".so" || strings.Contains(basename, ".so."):
		return KindELF
	}

	if IsBinary(header) {
		return KindBinary
	}
	return KindText
}

// IsBinary reports whether the sniffed header looks like binary content.
// Binary blobs are not worth full-text license scanning.
func IsBinary(header []byte) bool {
	return bytes.IndexByte(header, 0x00) >= 0
}

// SniffHeader reads the sniffing window of a file.
func SniffHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return nil, err
	}
	return header[:n], nil
}
