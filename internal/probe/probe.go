// Package probe extracts technical attributes from media files on disk.
// It is the fallback used for filesystem sources, which carry no
// provider-native stream description.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/media"
)

// ErrNoProber is returned when no ffprobe binary could be located.
var ErrNoProber = errors.New("ffprobe binary not found")

// Prober extracts technical attributes from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.TechnicalAttributes, error)
}

// FFprobe probes files by executing the ffprobe CLI with JSON output.
type FFprobe struct {
	binaryPath string
	logger     zerolog.Logger
}

// NewFFprobe creates a prober. explicitPath overrides PATH lookup.
func NewFFprobe(explicitPath string, logger zerolog.Logger) (*FFprobe, error) {
	path := findExecutable("ffprobe", explicitPath)
	if path == "" {
		return nil, ErrNoProber
	}
	return &FFprobe{
		binaryPath: path,
		logger:     logger.With().Str("component", "probe").Logger(),
	}, nil
}

// findExecutable finds an executable by name or explicit path.
func findExecutable(name, explicitPath string) string {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err == nil {
			return explicitPath
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "darwin":
		commonPaths = []string{
			"/usr/local/bin/" + name,
			"/opt/homebrew/bin/" + name,
		}
	case "linux":
		commonPaths = []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
		}
	case "windows":
		commonPaths = []string{
			`C:\Program Files\ffmpeg\bin\` + name + ".exe",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Probe runs ffprobe against the file and maps the stream description into
// canonical technical attributes.
func (f *FFprobe) Probe(ctx context.Context, path string) (media.TechnicalAttributes, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binaryPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return media.TechnicalAttributes{}, fmt.Errorf("ffprobe failed: %w: %s", err, stderr.String())
	}

	attrs, err := parseFFprobeJSON(stdout.Bytes())
	if err != nil {
		return media.TechnicalAttributes{}, err
	}

	f.logger.Debug().
		Str("path", path).
		Str("videoCodec", attrs.VideoCodec).
		Str("resolution", attrs.Resolution).
		Int("bitrateKbps", attrs.BitrateKbps).
		Msg("Probed file")

	return attrs, nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	BitRate       string `json:"bit_rate"`
	Channels      int    `json:"channels"`
	SampleRate    string `json:"sample_rate"`
	BitsPerSample int    `json:"bits_per_raw_sample,string,omitempty"`
	ColorTransfer string `json:"color_transfer"`
	Profile       string `json:"profile"`
}

type ffprobeFormat struct {
	BitRate string `json:"bit_rate"`
}

func parseFFprobeJSON(data []byte) (media.TechnicalAttributes, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return media.TechnicalAttributes{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var attrs media.TechnicalAttributes
	var haveVideo, haveAudio bool

	for _, stream := range output.Streams {
		switch stream.CodecType {
		case "video":
			if haveVideo {
				continue
			}
			haveVideo = true
			attrs.VideoCodec = NormalizeVideoCodec(stream.CodecName)
			attrs.Resolution = resolutionFromDimensions(stream.Width, stream.Height)
			attrs.HDR = isHDRTransfer(stream.ColorTransfer)
		case "audio":
			if haveAudio {
				continue
			}
			haveAudio = true
			attrs.AudioCodec = NormalizeAudioCodec(stream.CodecName)
			attrs.AudioChannels = stream.Channels
			attrs.SampleRate = atoiSafe(stream.SampleRate)
			attrs.BitDepth = stream.BitsPerSample
			attrs.Lossless = IsLosslessCodec(attrs.AudioCodec)
			if attrs.BitrateKbps == 0 {
				attrs.BitrateKbps = atoiSafe(stream.BitRate) / 1000
			}
		}
	}

	// Stream bitrates are often absent in Matroska; fall back to the
	// container-level bitrate.
	if haveVideo || attrs.BitrateKbps == 0 {
		if br := atoiSafe(output.Format.BitRate) / 1000; br > 0 {
			attrs.BitrateKbps = br
		}
	}

	return attrs, nil
}

func resolutionFromDimensions(width, height int) string {
	switch {
	case height >= 2000 || width >= 3800:
		return "2160p"
	case height >= 1000 || width >= 1900:
		return "1080p"
	case height >= 700 || width >= 1200:
		return "720p"
	case height > 0 || width > 0:
		return "480p"
	default:
		return ""
	}
}

func isHDRTransfer(transfer string) bool {
	switch strings.ToLower(transfer) {
	case "smpte2084", "arib-std-b67":
		return true
	}
	return false
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
