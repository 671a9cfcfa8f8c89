package quality

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var defaultThresholdsYAML []byte

// Breakpoints defines two bitrate breakpoints (kbps) splitting the scale into
// three zones: below Low, Low..High inclusive, above High.
type Breakpoints struct {
	Low  int `yaml:"low" json:"low"`
	High int `yaml:"high" json:"high"`
}

// Thresholds drives the classifier. Bitrates are compared after scaling by
// the codec's efficiency multiplier, so a more efficient codec reaches a
// given tier at a lower measured bitrate.
type Thresholds struct {
	Video            map[string]Breakpoints `yaml:"video" json:"video"` // keyed by resolution tier
	Audio            Breakpoints            `yaml:"audio" json:"audio"`
	VideoMultipliers map[string]float64     `yaml:"video_multipliers" json:"videoMultipliers"`
	AudioMultipliers map[string]float64     `yaml:"audio_multipliers" json:"audioMultipliers"`
	LosslessCodecs   []string               `yaml:"lossless_codecs" json:"losslessCodecs"`
}

// DefaultThresholds returns the embedded default threshold table.
func DefaultThresholds() Thresholds {
	t, err := ParseThresholds(defaultThresholdsYAML)
	if err != nil {
		// The embedded defaults are validated by tests; this cannot happen
		// at runtime with a clean build.
		panic(fmt.Sprintf("quality: invalid embedded thresholds: %v", err))
	}
	return t
}

// ParseThresholds parses a YAML threshold table.
func ParseThresholds(data []byte) (Thresholds, error) {
	var t Thresholds
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds: %w", err)
	}
	if len(t.Video) == 0 {
		return Thresholds{}, fmt.Errorf("thresholds: no video resolution tiers defined")
	}
	for tier, bp := range t.Video {
		if bp.Low <= 0 || bp.High <= bp.Low {
			return Thresholds{}, fmt.Errorf("thresholds: invalid breakpoints for %q", tier)
		}
	}
	return t, nil
}
