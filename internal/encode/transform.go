package encode

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fraudprep/internal/table"
)

// formatVersion is bumped when the saved layout changes incompatibly.
const formatVersion = 1

// Spec lists the columns a Transform covers.
type Spec struct {
	Categorical   []string
	Scale         []string
	HandleUnknown string
}

// Transform bundles a fitted encoder and scaler. Either may be nil.
type Transform struct {
	Version int     `json:"version"`
	OneHot  *OneHot `json:"one_hot,omitempty"`
	Scaler  *Scaler `json:"scaler,omitempty"`
}

// Fit learns categories and scaling parameters from t. It does not modify t.
func Fit(t *table.Table, spec Spec) (*Transform, error) {
	tr := &Transform{Version: formatVersion}
	if len(spec.Categorical) > 0 {
		oh, err := FitOneHot(t, spec.Categorical, spec.HandleUnknown)
		if err != nil {
			return nil, err
		}
		tr.OneHot = oh
	}
	if len(spec.Scale) > 0 {
		s, err := FitScaler(t, spec.Scale)
		if err != nil {
			return nil, err
		}
		tr.Scaler = s
	}
	return tr, nil
}

// Apply scales numeric columns in place and then replaces nominal columns
// with their indicators.
func (tr *Transform) Apply(t *table.Table) (*table.Table, error) {
	out := t
	var err error
	if tr.Scaler != nil {
		if out, err = tr.Scaler.Apply(out); err != nil {
			return nil, err
		}
	}
	if tr.OneHot != nil {
		if out, err = tr.OneHot.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save writes tr as indented JSON.
func (tr *Transform) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tr); err != nil {
		return fmt.Errorf("encode: save transform: %w", err)
	}
	return nil
}

// SaveFile writes tr to path, replacing any existing file.
func (tr *Transform) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("encode: save transform: %w", err)
	}
	if err := tr.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a transform written by Save.
func Load(r io.Reader) (*Transform, error) {
	var tr Transform
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tr); err != nil {
		return nil, fmt.Errorf("encode: load transform: %w", err)
	}
	if tr.Version != formatVersion {
		return nil, fmt.Errorf("encode: load transform: unsupported version %d", tr.Version)
	}
	for _, cs := range scalerColumns(tr.Scaler) {
		if cs.Scale == 0 {
			return nil, fmt.Errorf("encode: load transform: column %q has zero scale", cs.Column)
		}
	}
	return &tr, nil
}

// LoadFile reads a transform from path.
func LoadFile(path string) (*Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("encode: load transform: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func scalerColumns(s *Scaler) []ColumnScale {
	if s == nil {
		return nil
	}
	return s.Columns
}
