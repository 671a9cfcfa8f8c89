package probe

import "strings"

// videoCodecMap maps raw codec names to standard display names.
var videoCodecMap = map[string]string{
	"hevc":       "HEVC",
	"h265":       "HEVC",
	"h.265":      "HEVC",
	"h264":       "H.264",
	"h.264":      "H.264",
	"avc":        "H.264",
	"av1":        "AV1",
	"vp9":        "VP9",
	"vp8":        "VP8",
	"mpeg2":      "MPEG2",
	"mpeg-2":     "MPEG2",
	"mpeg2video": "MPEG2",
	"vc1":        "VC-1",
	"xvid":       "XviD",
	"divx":       "DivX",
}

// audioCodecMap maps raw audio codec names to standard display names.
var audioCodecMap = map[string]string{
	"dts":       "DTS",
	"truehd":    "TrueHD",
	"eac3":      "EAC3",
	"e-ac-3":    "EAC3",
	"ac3":       "AC3",
	"ac-3":      "AC3",
	"aac":       "AAC",
	"flac":      "FLAC",
	"alac":      "ALAC",
	"opus":      "Opus",
	"mp3":       "MP3",
	"vorbis":    "Vorbis",
	"pcm":       "PCM",
	"pcm_s16le": "PCM",
	"pcm_s24le": "PCM",
}

var losslessCodecs = map[string]bool{
	"FLAC":   true,
	"ALAC":   true,
	"PCM":    true,
	"TrueHD": true,
}

// NormalizeVideoCodec normalizes a video codec name to its standard form.
func NormalizeVideoCodec(codec string) string {
	lower := strings.ToLower(strings.TrimSpace(codec))
	if normalized, ok := videoCodecMap[lower]; ok {
		return normalized
	}
	for key, value := range videoCodecMap {
		if strings.Contains(lower, key) {
			return value
		}
	}
	return codec
}

// NormalizeAudioCodec normalizes an audio codec name to its standard form.
func NormalizeAudioCodec(codec string) string {
	lower := strings.ToLower(strings.TrimSpace(codec))
	if normalized, ok := audioCodecMap[lower]; ok {
		return normalized
	}
	for key, value := range audioCodecMap {
		if strings.Contains(lower, key) {
			return value
		}
	}
	return codec
}

// IsLosslessCodec reports whether the normalized codec name is lossless.
func IsLosslessCodec(codec string) bool {
	return losslessCodecs[codec]
}
