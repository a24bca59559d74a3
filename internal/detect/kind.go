package detect

// Kind represents the detected kind of a file
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindBinary
	KindArchive
	KindELF
	KindFont
	KindRPM
	KindImage
	KindCargoManifest
	KindPythonMetadata
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindArchive:
		return "archive"
	case KindELF:
		return "elf"
	case KindFont:
		return "font"
	case KindRPM:
		return "rpm"
	case KindImage:
		return "image"
	case KindCargoManifest:
		return "cargo-manifest"
	case KindPythonMetadata:
		return "python-metadata"
	default:
		return "unknown"
	}
}
