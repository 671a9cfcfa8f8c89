// Package quality classifies technical media attributes into coarse tiers.
// Classification is a pure function of the attributes and the configured
// threshold table; the same input always produces the same tier.
package quality

import (
	"strings"

	"github.com/medley-app/medley/internal/media"
)

// Tier is a coarse quality classification.
type Tier string

const (
	TierUnknown Tier = ""
	TierLow     Tier = "LOW"
	TierMedium  Tier = "MEDIUM"
	TierHigh    Tier = "HIGH"
	TierUltra   Tier = "ULTRA"
)

// Classifier computes quality tiers from a threshold table.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier from a threshold table.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Classify returns the video quality tier for the given attributes at the
// given resolution tier. Unknown bitrate or resolution yields TierUnknown.
func (c *Classifier) Classify(attrs media.TechnicalAttributes, resolutionTier string) Tier {
	if attrs.BitrateKbps <= 0 {
		return TierUnknown
	}

	bp, ok := c.thresholds.Video[resolutionTier]
	if !ok {
		return TierUnknown
	}

	effective := float64(attrs.BitrateKbps) * c.videoMultiplier(attrs.VideoCodec)

	switch {
	case effective < float64(bp.Low):
		return TierLow
	case effective <= float64(bp.High):
		return TierMedium
	default:
		return TierHigh
	}
}

// ClassifyAudio returns the audio quality tier. Lossless codecs bypass the
// bitrate zones entirely: high-resolution lossless (>=24-bit or >48kHz) is
// ULTRA, other lossless is HIGH.
func (c *Classifier) ClassifyAudio(attrs media.TechnicalAttributes) Tier {
	if attrs.Lossless || c.isLosslessCodec(attrs.AudioCodec) {
		if attrs.BitDepth >= 24 || attrs.SampleRate > 48000 {
			return TierUltra
		}
		return TierHigh
	}

	if attrs.BitrateKbps <= 0 {
		return TierUnknown
	}

	bp := c.thresholds.Audio
	effective := float64(attrs.BitrateKbps) * c.audioMultiplier(attrs.AudioCodec)

	switch {
	case effective < float64(bp.Low):
		return TierLow
	case effective <= float64(bp.High):
		return TierMedium
	default:
		return TierHigh
	}
}

func (c *Classifier) videoMultiplier(codec string) float64 {
	if m, ok := c.thresholds.VideoMultipliers[codec]; ok && m > 0 {
		return m
	}
	return 1.0
}

func (c *Classifier) audioMultiplier(codec string) float64 {
	if m, ok := c.thresholds.AudioMultipliers[codec]; ok && m > 0 {
		return m
	}
	return 1.0
}

func (c *Classifier) isLosslessCodec(codec string) bool {
	for _, l := range c.thresholds.LosslessCodecs {
		if strings.EqualFold(l, codec) {
			return true
		}
	}
	return false
}

// ResolutionTier maps pixel dimensions to a resolution tier name.
func ResolutionTier(width, height int) string {
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
