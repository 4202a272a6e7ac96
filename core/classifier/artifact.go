package classifier

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"GenreFM/core/features"
)

// Model kinds an artifact can carry.
const (
	KindForest   = "forest"
	KindLogistic = "logistic"
)

// Format is an artifact serialisation.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown model artifact extension %q", filepath.Ext(path))
	}
}

// Artifact is the serialised form of a trained model.
type Artifact struct {
	Name     string          `json:"name" yaml:"name" msgpack:"name"`
	Version  string          `json:"version" yaml:"version" msgpack:"version"`
	Kind     string          `json:"kind" yaml:"kind" msgpack:"kind"`
	Schema   features.Schema `json:"schema" yaml:"schema" msgpack:"schema"`
	Classes  []int           `json:"classes" yaml:"classes" msgpack:"classes"`
	Trained  string          `json:"trained,omitempty" yaml:"trained,omitempty" msgpack:"trained,omitempty"`
	Forest   *ForestSpec     `json:"forest,omitempty" yaml:"forest,omitempty" msgpack:"forest,omitempty"`
	Logistic *LogisticSpec   `json:"logistic,omitempty" yaml:"logistic,omitempty" msgpack:"logistic,omitempty"`
}

// DecodeArtifact parses data in the given format.
func DecodeArtifact(data []byte, format Format) (*Artifact, error) {
	var a Artifact
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &a)
	case FormatJSON:
		err = json.Unmarshal(data, &a)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &a)
	default:
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", format, err)
	}
	return &a, nil
}

// EncodeArtifact serialises a in the given format.
func EncodeArtifact(a *Artifact, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(a)
	case FormatJSON:
		return json.MarshalIndent(a, "", "  ")
	case FormatMsgpack:
		return msgpack.Marshal(a)
	default:
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}
}

// Validate checks the artifact against the extractor schema and the genre map.
func (a *Artifact) Validate() error {
	if err := features.DefaultSchema().Compatible(a.Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("%w: artifact declares no classes", ErrSchema)
	}
	for i, c := range a.Classes {
		if _, err := Label(c); err != nil {
			return fmt.Errorf("%w: class %d is not in the genre map", ErrSchema, c)
		}
		if i > 0 && c <= a.Classes[i-1] {
			return fmt.Errorf("%w: classes must be strictly ascending", ErrSchema)
		}
	}

	switch a.Kind {
	case KindForest:
		if a.Forest == nil {
			return fmt.Errorf("%w: forest artifact has no trees", ErrSchema)
		}
		return a.Forest.validate(len(a.Classes))
	case KindLogistic:
		if a.Logistic == nil {
			return fmt.Errorf("%w: logistic artifact has no coefficients", ErrSchema)
		}
		return a.Logistic.validate(len(a.Classes))
	default:
		return fmt.Errorf("%w: unknown model kind %q", ErrSchema, a.Kind)
	}
}

// model builds the inference model. The artifact must be valid.
func (a *Artifact) model() Model {
	switch a.Kind {
	case KindForest:
		return newForest(a.Forest, len(a.Classes))
	default:
		return newLogistic(a.Logistic)
	}
}
