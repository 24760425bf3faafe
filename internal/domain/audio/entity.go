package audio

import (
	"path/filepath"
	"strings"
)

// File is an audio recording in the audio directory.
type File struct {
	Filename     string  `json:"filename"`
	Path         string  `json:"path"`
	Format       string  `json:"-"`
	DurationMins float64 `json:"duration_mins"`
}

// Format is a supported recording type.
type Format string

const (
	FormatMP3 Format = ".mp3"
	FormatWAV Format = ".wav"
	FormatM4A Format = ".m4a"
	FormatOGG Format = ".ogg"
)

var mimeTypes = map[Format]string{
	FormatMP3: "audio/mpeg",
	FormatWAV: "audio/wav",
	FormatM4A: "audio/m4a",
	FormatOGG: "audio/ogg",
}

// FormatOf returns the lower-cased extension of name.
func FormatOf(name string) Format {
	return Format(strings.ToLower(filepath.Ext(name)))
}

// Supported reports whether f is one of the recognized formats.
func (f Format) Supported() bool {
	_, ok := mimeTypes[f]
	return ok
}

// MIMEType returns the MIME type sent to the model, or "" for unknown formats.
func (f Format) MIMEType() string {
	return mimeTypes[f]
}

// BaseName strips directory and extension: "/a/call1.mp3" -> "call1".
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
