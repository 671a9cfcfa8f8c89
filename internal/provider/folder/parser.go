package folder

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedFile holds what could be read from a media file's name and location.
type ParsedFile struct {
	Title      string
	Year       int
	IsTV       bool
	Season     int
	Episode    int
	Resolution string // "2160p", "1080p", "720p", "480p"
	VideoCodec string
	HDR        bool
}

var (
	// TV patterns: Show.S01E02 or Show.1x02
	tvPatternSE = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})[Ee](\d{1,2})[\.\s_-]*(.*)$`)
	tvPatternX  = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+(\d{1,2})[xX](\d{1,2})[\.\s_-]*(.*)$`)

	// Movie patterns: Title.Year or Title (Year)
	moviePatternParen  = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)\s*(.*)$`)
	moviePatternDot    = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})[\.\s_-]+(.*)$`)
	moviePatternSimple = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})$`)

	resolutionPatterns = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"2160p", regexp.MustCompile(`(?i)(2160p|4k|uhd)`)},
		{"1080p", regexp.MustCompile(`(?i)1080p`)},
		{"720p", regexp.MustCompile(`(?i)720p`)},
		{"480p", regexp.MustCompile(`(?i)(480p|sd)`)},
	}

	codecPatterns = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"HEVC", regexp.MustCompile(`(?i)(x265|h\.?265|hevc)`)},
		{"H.264", regexp.MustCompile(`(?i)(x264|h\.?264|avc)`)},
		{"AV1", regexp.MustCompile(`(?i)av1`)},
		{"VP9", regexp.MustCompile(`(?i)vp9`)},
		{"MPEG2", regexp.MustCompile(`(?i)mpeg-?2`)},
	}

	hdrPattern = regexp.MustCompile(`(?i)(dolby[\.\s]?vision|dovi|\.dv\.|hdr10\+?|[\.\s\-]hdr[\.\s\-]|hlg)`)

	cleanupPattern = regexp.MustCompile(`[\.\s_-]+`)
)

// ParseFilename parses a media filename into structured data. TV patterns
// are tried before movie patterns because an episode name usually contains a
// year-like token too.
func ParseFilename(filename string) ParsedFile {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	var parsed ParsedFile

	if match := tvPatternSE.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		parseTechInfo(match[4], &parsed)
		return parsed
	}

	if match := tvPatternX.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		parseTechInfo(match[4], &parsed)
		return parsed
	}

	if match := moviePatternParen.FindStringSubmatch(name); match != nil {
		parsed.Title = cleanTitle(match[1])
		parsed.Year, _ = strconv.Atoi(match[2])
		parseTechInfo(match[3], &parsed)
		return parsed
	}

	if match := moviePatternDot.FindStringSubmatch(name); match != nil {
		if year, _ := strconv.Atoi(match[2]); year >= 1900 && year <= 2100 {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			parseTechInfo(match[3], &parsed)
			return parsed
		}
	}

	if match := moviePatternSimple.FindStringSubmatch(name); match != nil {
		if year, _ := strconv.Atoi(match[2]); year >= 1900 && year <= 2100 {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			return parsed
		}
	}

	parsed.Title = cleanTitle(name)
	parseTechInfo(name, &parsed)
	return parsed
}

// ParsePath parses a full path, borrowing title and year from the parent
// folder when the filename alone lacks them, e.g.
// "The Matrix (1999)/The.Matrix.1080p.BluRay.mkv".
func ParsePath(fullPath string) ParsedFile {
	parsed := ParseFilename(filepath.Base(fullPath))

	if !parsed.IsTV && parsed.Year == 0 {
		folderParsed := ParseFilename(filepath.Base(filepath.Dir(fullPath)))
		if folderParsed.Year != 0 {
			parsed.Year = folderParsed.Year
			if folderParsed.Title != "" {
				parsed.Title = folderParsed.Title
			}
		}
	}

	return parsed
}

func cleanTitle(title string) string {
	return strings.TrimSpace(cleanupPattern.ReplaceAllString(title, " "))
}

func parseTechInfo(text string, parsed *ParsedFile) {
	for _, rp := range resolutionPatterns {
		if rp.pattern.MatchString(text) {
			parsed.Resolution = rp.name
			break
		}
	}
	for _, cp := range codecPatterns {
		if cp.pattern.MatchString(text) {
			parsed.VideoCodec = cp.name
			break
		}
	}
	parsed.HDR = hdrPattern.MatchString(text)
}
