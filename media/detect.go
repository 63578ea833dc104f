package media

import (
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".wma":  "audio/x-ms-wma",
	".aac":  "audio/aac",
	".opus": "audio/opus",
	".aiff": "audio/aiff",
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// MIMETypeFromName guesses a MIME type from a file extension. Known audio
// and video extensions win over the system mime table.
func MIMETypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mt, _, _ := strings.Cut(t, ";")
		return strings.TrimSpace(mt)
	}
	return ""
}

// IsMediaType reports whether mimeType is in the audio or video family
func IsMediaType(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/")
}

// IsSupportedFile checks a path against the known audio/video extensions
func IsSupportedFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	_, audio := audioTypes[ext]
	_, video := videoTypes[ext]
	return audio || video
}

// SupportedExtensions lists accepted extensions, sorted, with the leading dot
func SupportedExtensions() []string {
	exts := make([]string, 0, len(audioTypes)+len(videoTypes))
	for ext := range audioTypes {
		exts = append(exts, ext)
	}
	for ext := range videoTypes {
		if _, dup := audioTypes[ext]; !dup {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

var driveIDPattern = regexp.MustCompile(`(?:/d/|id=|open\?id=)([-\w]{25,})`)

const driveDownloadURL = "https://drive.google.com/uc?export=download&id="

// IsDriveURL reports whether the link points at Google Drive
func IsDriveURL(raw string) bool {
	return strings.Contains(raw, "drive.google.com")
}

// IsYouTubeURL reports whether the link points at YouTube
func IsYouTubeURL(raw string) bool {
	return strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be")
}

// ResolveURL rewrites Google Drive share links into their direct download
// form. drive is true only when a rewrite happened; other links, and Drive
// links without a recognizable file id, are returned unchanged.
func ResolveURL(raw string) (target string, drive bool) {
	if !IsDriveURL(raw) {
		return raw, false
	}
	m := driveIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, false
	}
	return driveDownloadURL + m[1], true
}

// IsHTMLContentType reports whether a Content-Type header announces a web page
func IsHTMLContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

var dispositionPattern = regexp.MustCompile(`filename[^;=\n]*=((?:"[^"]*")|(?:'[^']*')|[^;\n]*)`)

// FilenameFromDisposition extracts the filename from a Content-Disposition
// header value. Quote characters are stripped and any directory part is
// dropped. An RFC 5987 "charset''value" form is percent-decoded.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	m := dispositionPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if charset, encoded, ok := strings.Cut(name, "''"); ok && !strings.ContainsAny(charset, `"' `) {
		if decoded, err := url.PathUnescape(encoded); err == nil {
			name = decoded
		}
	}
	name = strings.NewReplacer(`"`, "", `'`, "").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ResponseMIMEType picks the MIME type for a downloaded body. A missing
// header defaults to DefaultMIMEType; a generic octet-stream is refined from
// the filename when the extension is a known media type.
func ResponseMIMEType(contentType, filename string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultMIMEType
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "" {
		return DefaultMIMEType
	}
	if mt == "application/octet-stream" {
		if guessed := MIMETypeFromName(filename); IsMediaType(guessed) {
			return guessed
		}
	}
	return mt
}

const (
	driveGuidance = "Google Drive blocked the direct download. Please download the file to your computer, " +
		"then use the local file option to upload it."
	youTubeGuidance = "YouTube does not allow direct raw video downloading. Please use a local file."
	genericGuidance = "Could not download the file due to security restrictions on the host. " +
		"Please download it manually and upload it here."
)

// Guidance returns the manual fallback advice for a failed download of raw
func Guidance(raw string) string {
	switch {
	case IsDriveURL(raw):
		return driveGuidance
	case IsYouTubeURL(raw):
		return youTubeGuidance
	default:
		return genericGuidance
	}
}
