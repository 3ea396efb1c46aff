package files

import "strings"

// Kind is a coarse presentation category derived from a MIME type.
type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindAudio       Kind = "audio"
	KindSpreadsheet Kind = "spreadsheet"
	KindPDF         Kind = "pdf"
	KindDocument    Kind = "document"
	KindArchive     Kind = "archive"
	KindText        Kind = "text"
	KindOther       Kind = "other"
)

// KindOf classifies contentType. Rules are checked in order, so
// "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" is a
// spreadsheet even though it also mentions "document".
func KindOf(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case strings.HasPrefix(ct, "audio/"):
		return KindAudio
	case strings.Contains(ct, "spreadsheet"), strings.Contains(ct, "excel"):
		return KindSpreadsheet
	case strings.Contains(ct, "pdf"):
		return KindPDF
	case strings.Contains(ct, "word"), strings.Contains(ct, "document"):
		return KindDocument
	case strings.Contains(ct, "zip"), strings.Contains(ct, "compressed"):
		return KindArchive
	case strings.HasPrefix(ct, "text/"):
		return KindText
	default:
		return KindOther
	}
}
