package stnu

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type RawConstraint struct {
	Source string   `mapstructure:"source" json:"source" yaml:"source"`
	Sink   string   `mapstructure:"sink" json:"sink" yaml:"sink"`
	Lb     *float64 `mapstructure:"lb" json:"lb,omitempty" yaml:"lb,omitempty"`
	Ub     *float64 `mapstructure:"ub" json:"ub,omitempty" yaml:"ub,omitempty"`
	Type   string   `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Label  string   `mapstructure:"label" json:"label,omitempty" yaml:"label,omitempty"`
}

type RawNetwork struct {
	Name         string          `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Controllable *bool           `mapstructure:"controllable" json:"controllable,omitempty" yaml:"controllable,omitempty"` // Expected verdict, used by tests and benchmarks only
	Events       []string        `mapstructure:"events" json:"events,omitempty" yaml:"events,omitempty"`
	Constraints  []RawConstraint `mapstructure:"constraints" json:"constraints" yaml:"constraints"`
}

// FromFile reads a network document, either JSON or YAML depending on the file's extension
func FromFile(file string) (*Network, error) {
	raw, err := RawFromFile(file)
	if err != nil {
		return nil, err
	}
	return ProcessRawNetwork(raw)
}

func RawFromFile(file string) (RawNetwork, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return RawNetwork{}, fmt.Errorf("cannot read network file: %w", err)
	}

	var document map[string]any
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &document)
	default:
		err = json.Unmarshal(bytes, &document)
	}
	if err != nil {
		return RawNetwork{}, fmt.Errorf("cannot parse network file %v: %w", file, err)
	}

	return DecodeRawNetwork(document)
}

// DecodeRawNetwork decodes a generic document into a RawNetwork. Bounds may be numbers, numeric strings, "inf"/"-inf" or be omitted (open bound)
func DecodeRawNetwork(document map[string]any) (RawNetwork, error) {
	var raw RawNetwork
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &raw,
	})
	if err != nil {
		return RawNetwork{}, err
	}
	if err := decoder.Decode(document); err != nil {
		return RawNetwork{}, fmt.Errorf("cannot decode network: %w", err)
	}
	return raw, nil
}

func ProcessRawNetwork(raw RawNetwork) (*Network, error) {
	network := NewNetwork()
	for i, rawConstraint := range raw.Constraints {
		if rawConstraint.Source == "" || rawConstraint.Sink == "" {
			return nil, fmt.Errorf("%w: constraint #%d must name both source and sink", ErrInvalidNetwork, i)
		}

		lowerBound, upperBound := math.Inf(-1), math.Inf(1)
		if rawConstraint.Lb != nil {
			lowerBound = *rawConstraint.Lb
		}
		if rawConstraint.Ub != nil {
			upperBound = *rawConstraint.Ub
		}

		source, sink := Event(rawConstraint.Source), Event(rawConstraint.Sink)
		switch strings.ToLower(rawConstraint.Type) {
		case "", "requirement", "req", "stc":
			network.AddConstraint(Requirement(source, sink, lowerBound, upperBound, rawConstraint.Label))
		case "contingent", "cont", "stcu":
			network.AddConstraint(Contingent(source, sink, lowerBound, upperBound, rawConstraint.Label))
		default:
			return nil, fmt.Errorf("%w: constraint #%d has unknown type %q", ErrInvalidNetwork, i, rawConstraint.Type)
		}
	}

	for _, event := range raw.Events {
		network.AddEvent(Event(event))
	}

	return network, nil
}

// ToRawNetwork is the inverse of ProcessRawNetwork. Open bounds are omitted and every event is listed, so isolated events survive
func ToRawNetwork(network *Network, name string) RawNetwork {
	raw := RawNetwork{
		Name:        name,
		Events:      lo.Map(network.Events(), func(event Event, _ int) string { return string(event) }),
		Constraints: make([]RawConstraint, 0, len(network.constraints)),
	}
	for _, c := range network.constraints {
		rawConstraint := RawConstraint{
			Source: string(c.Source),
			Sink:   string(c.Sink),
			Type:   "requirement",
			Label:  c.Label,
		}
		if c.IsContingent() {
			rawConstraint.Type = "contingent"
		}
		if c.HasLowerBound() {
			rawConstraint.Lb = lo.ToPtr(c.LowerBound)
		}
		if c.HasUpperBound() {
			rawConstraint.Ub = lo.ToPtr(c.UpperBound)
		}
		raw.Constraints = append(raw.Constraints, rawConstraint)
	}
	return raw
}

// WriteRawNetwork encodes the document as indented JSON, or as YAML when asYAML is set
func WriteRawNetwork(w io.Writer, raw RawNetwork, asYAML bool) error {
	var (
		bytes []byte
		err   error
	)
	if asYAML {
		bytes, err = yaml.Marshal(raw)
	} else {
		bytes, err = json.MarshalIndent(raw, "", "  ")
		bytes = append(bytes, '\n')
	}
	if err != nil {
		return fmt.Errorf("cannot encode network: %w", err)
	}
	_, err = w.Write(bytes)
	return err
}
