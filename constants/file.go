package constants

import "strings"

// FileType is the declared or sniffed format of a downloaded attachment.
type FileType string

const (
	PDF     FileType = "PDF"
	DOCX    FileType = "DOCX"
	Unknown FileType = ""
)

// AllowedExtensions holds the attachment extensions the extractor accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to a FileType.
func MapExtToFormat(ext string) FileType {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "docx":
		return DOCX
	default:
		return Unknown
	}
}
