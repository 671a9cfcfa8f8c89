package folder

import (
	"path/filepath"
	"strings"
)

// videoExtensions are the file extensions treated as video media.
var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".wmv":  true,
	".ts":   true,
	".m2ts": true,
	".webm": true,
	".mpg":  true,
	".mpeg": true,
}

// audioExtensions are the file extensions treated as audio media.
var audioExtensions = map[string]bool{
	".flac": true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".aiff": true,
	".ape":  true,
	".wv":   true,
}

// IsVideoFile reports whether the filename has a recognized video extension.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsAudioFile reports whether the filename has a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsSampleFile reports whether the filename looks like a sample clip.
func IsSampleFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "sample") || strings.HasPrefix(lower, "rarbg")
}
