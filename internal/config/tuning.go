package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/detector"
	"github.com/LdDl/conveyor-inspect/inspect"
	"github.com/LdDl/conveyor-inspect/mot"
)

// TuningConfig is the JSON tuning file. Every field is optional:
// omitted fields fall back to the defaults returned by Get* accessors.
type TuningConfig struct {
	// Identity tracker
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	MaxNoMatch        *int     `json:"max_no_match,omitempty"`
	Association       *string  `json:"association,omitempty"` // "first_match", "nearest" or "hungarian"
	MaxTrackLen       *int     `json:"max_track_len,omitempty"`

	// Classifier and counter
	FillRatioThreshold *float64 `json:"fill_ratio_threshold,omitempty"`
	MinFramesTracked   *int     `json:"min_frames_tracked,omitempty"`
	MinDisplacement    *float64 `json:"min_displacement,omitempty"`
	MatchRadius        *float64 `json:"match_radius,omitempty"`

	// Segmentation
	HSVLower        *[3]float64 `json:"hsv_lower,omitempty"`
	HSVUpper        *[3]float64 `json:"hsv_upper,omitempty"`
	InvertMask      *bool       `json:"invert_mask,omitempty"`
	KernelSize      *int        `json:"kernel_size,omitempty"`
	OpenIterations  *int        `json:"open_iterations,omitempty"`
	CloseIterations *int        `json:"close_iterations,omitempty"`
	MinArea         *float64    `json:"min_area,omitempty"`
	ApproxEpsilon   *float64    `json:"approx_epsilon,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// LoadTuningConfig loads TuningConfig from a JSON file.
// The file must have .json extension and be under 1MB. Partial configs are fine
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stat config file")
	}
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read config file")
	}
	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "Can't parse config JSON")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks values which are set. Cross-field checks run on the resulting inspector and detector configs
func (c *TuningConfig) Validate() error {
	if c.DistanceThreshold != nil && *c.DistanceThreshold <= 0 {
		return errors.Errorf("distance_threshold must be positive, got %f", *c.DistanceThreshold)
	}
	if c.MaxNoMatch != nil && *c.MaxNoMatch < 0 {
		return errors.Errorf("max_no_match must be non-negative, got %d", *c.MaxNoMatch)
	}
	if c.Association != nil {
		if _, err := mot.ParseAssociationStrategy(*c.Association); err != nil {
			return errors.Wrap(err, "association")
		}
	}
	if c.MaxTrackLen != nil && *c.MaxTrackLen < 1 {
		return errors.Errorf("max_track_len must be positive, got %d", *c.MaxTrackLen)
	}
	if err := c.InspectConfig().Validate(); err != nil {
		return err
	}
	return c.DetectorParams().Validate()
}

// GetDistanceThreshold returns the distance_threshold value or the default.
func (c *TuningConfig) GetDistanceThreshold() float64 {
	if c.DistanceThreshold == nil {
		return mot.DefaultDistanceThreshold
	}
	return *c.DistanceThreshold
}

// GetMaxNoMatch returns the max_no_match value or the default.
func (c *TuningConfig) GetMaxNoMatch() int {
	if c.MaxNoMatch == nil {
		return mot.DefaultMaxNoMatch
	}
	return *c.MaxNoMatch
}

// GetAssociation returns parsed association strategy. Unknown names fall back to first match
func (c *TuningConfig) GetAssociation() mot.AssociationStrategy {
	if c.Association == nil {
		return mot.AssociationFirstMatch
	}
	strategy, err := mot.ParseAssociationStrategy(*c.Association)
	if err != nil {
		return mot.AssociationFirstMatch
	}
	return strategy
}

// GetMaxTrackLen returns the max_track_len value or the default.
func (c *TuningConfig) GetMaxTrackLen() int {
	if c.MaxTrackLen == nil {
		return mot.DefaultMaxTrackLen
	}
	return *c.MaxTrackLen
}

// GetFillRatioThreshold returns the fill_ratio_threshold value or the default.
func (c *TuningConfig) GetFillRatioThreshold() float64 {
	if c.FillRatioThreshold == nil {
		return inspect.DefaultFillRatioThreshold
	}
	return *c.FillRatioThreshold
}

// GetMinFramesTracked returns the min_frames_tracked value or the default.
func (c *TuningConfig) GetMinFramesTracked() int {
	if c.MinFramesTracked == nil {
		return inspect.DefaultMinFramesTracked
	}
	return *c.MinFramesTracked
}

// GetMinDisplacement returns the min_displacement value or the default.
func (c *TuningConfig) GetMinDisplacement() float64 {
	if c.MinDisplacement == nil {
		return inspect.DefaultMinDisplacement
	}
	return *c.MinDisplacement
}

// GetMatchRadius returns the match_radius value or the default.
func (c *TuningConfig) GetMatchRadius() float64 {
	if c.MatchRadius == nil {
		return inspect.DefaultMatchRadius
	}
	return *c.MatchRadius
}

// InspectConfig converts tuning into inspector thresholds
func (c *TuningConfig) InspectConfig() inspect.Config {
	return inspect.Config{
		DistanceThreshold:  c.GetDistanceThreshold(),
		MaxNoMatch:         c.GetMaxNoMatch(),
		Association:        c.GetAssociation(),
		MaxTrackLen:        c.GetMaxTrackLen(),
		FillRatioThreshold: c.GetFillRatioThreshold(),
		MinFramesTracked:   c.GetMinFramesTracked(),
		MinDisplacement:    c.GetMinDisplacement(),
		MatchRadius:        c.GetMatchRadius(),
	}
}

// TrackerOptions converts tuning into options of a standalone identity tracker
func (c *TuningConfig) TrackerOptions() []mot.TrackerOption {
	return []mot.TrackerOption{
		mot.WithDistanceThreshold(c.GetDistanceThreshold()),
		mot.WithMaxNoMatch(c.GetMaxNoMatch()),
		mot.WithAssociation(c.GetAssociation()),
		mot.WithMaxTrackLen(c.GetMaxTrackLen()),
	}
}

// DetectorParams converts tuning into segmentation params. Unset fields keep detector defaults
func (c *TuningConfig) DetectorParams() detector.Params {
	params := detector.DefaultParams()
	if c.HSVLower != nil {
		params.HueMin, params.SatMin, params.ValMin = c.HSVLower[0], c.HSVLower[1], c.HSVLower[2]
	}
	if c.HSVUpper != nil {
		params.HueMax, params.SatMax, params.ValMax = c.HSVUpper[0], c.HSVUpper[1], c.HSVUpper[2]
	}
	if c.InvertMask != nil {
		params.InvertMask = *c.InvertMask
	}
	if c.KernelSize != nil {
		params.KernelSize = *c.KernelSize
	}
	if c.OpenIterations != nil {
		params.OpenIterations = *c.OpenIterations
	}
	if c.CloseIterations != nil {
		params.CloseIterations = *c.CloseIterations
	}
	if c.MinArea != nil {
		params.MinArea = *c.MinArea
	}
	if c.ApproxEpsilon != nil {
		params.ApproxEpsilon = *c.ApproxEpsilon
	}
	return params
}
