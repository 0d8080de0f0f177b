package process

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	yaml "gopkg.in/yaml.v3"

	"proxysift/agemodel"
	"proxysift/ncdc"
)

type (
	// ReservoirOverride replaces one determinant's reservoir correction.
	ReservoirOverride struct {
		DeltaR      float64 `yaml:"delta_r"`
		DeltaRError float64 `yaml:"delta_r_1s_err"`
	}

	// SiteOverrides is a per-site YAML file adjusting a record before export.
	// All fields are optional.
	SiteOverrides struct {
		CutShallow *float64                     `yaml:"cut_shallow"`
		CutDeep    *float64                     `yaml:"cut_deep"`
		DeltaR     map[string]ReservoirOverride `yaml:"delta_r"`
		// Seasonality and DatabaseLabels ride through to the exported
		// dataset attributes, they have no record-level operation.
		Seasonality    []int    `yaml:"seasonality"`
		DatabaseLabels []string `yaml:"database_labels"`
	}
)

// overridesName maps a record identifier to its override file name, same
// slugging as NetCDF site group names so one convention covers both.
func overridesName(identifier string) string {
	return slug.Make(identifier) + ".yaml"
}

// LoadOverrides looks up the override file for identifier under dir. Missing
// file is not an error, sites without adjustments are the common case.
func LoadOverrides(dir, identifier string) (*SiteOverrides, error) {
	if len(dir) == 0 || len(identifier) == 0 {
		return nil, nil
	}

	path := filepath.Join(dir, overridesName(identifier))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read site overrides '%s': %w", path, err)
	}

	// we want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	var o SiteOverrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("unable to decode site overrides '%s': %w", path, err)
	}
	return &o, nil
}

// reservoirFileName is the shared reservoir correction table inside the
// site config directory.
const reservoirFileName = "reservoir.yaml"

// LoadReservoirPoints reads the shared reservoir correction observations
// from dir. Missing file means an empty table.
func LoadReservoirPoints(dir string) ([]agemodel.ReservoirPoint, error) {
	if len(dir) == 0 {
		return nil, nil
	}

	path := filepath.Join(dir, reservoirFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read reservoir table '%s': %w", path, err)
	}

	var raw []struct {
		Lat         float64 `yaml:"lat"`
		Lon         float64 `yaml:"lon"`
		DeltaR      float64 `yaml:"delta_r"`
		DeltaRError float64 `yaml:"delta_r_1s_err"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unable to decode reservoir table '%s': %w", path, err)
	}

	points := make([]agemodel.ReservoirPoint, len(raw))
	for i, p := range raw {
		points[i] = agemodel.ReservoirPoint{Lat: p.Lat, Lon: p.Lon, DeltaR: p.DeltaR, DeltaRError: p.DeltaRError}
	}
	return points, nil
}

// Apply adjusts the record in place: depth cutoffs first, then reservoir
// corrections keyed by labcode. A failed step leaves the record as it was
// before that step.
func (o *SiteOverrides) Apply(r *ncdc.Record) error {
	if o == nil {
		return nil
	}
	if o.CutShallow != nil || o.CutDeep != nil {
		if err := r.Chronology.SetCutoffs(o.CutShallow, o.CutDeep); err != nil {
			return fmt.Errorf("unable to apply depth cutoffs: %w", err)
		}
	}
	if len(o.DeltaR) > 0 {
		swaps := make(map[string]ncdc.DeltaROverride, len(o.DeltaR))
		for labcode, v := range o.DeltaR {
			swaps[labcode] = ncdc.DeltaROverride{DeltaR: v.DeltaR, DeltaRError: v.DeltaRError}
		}
		if err := r.SwapInDeltaR(swaps); err != nil {
			return fmt.Errorf("unable to apply reservoir corrections: %w", err)
		}
	}
	return nil
}
