package costmodel

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a cost-model YAML file and returns the Model with raw bytes.
// KnownFields(true) makes typos and unused fields fail immediately.
func Load(path string) (*Model, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var model Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&model); err != nil {
		return nil, nil, err
	}

	// Omitted rates and factors fall back to the documented defaults, so a
	// model file only needs to state what differs.
	model.Parameters = MergeDefaults(model.Parameters)

	if err := Validate(&model); err != nil {
		return nil, data, err
	}

	return &model, data, nil
}

// Hash generates a SHA256 hash of the model (canonical JSON).
// Structs rather than maps at the top level keep the hash reproducible.
func Hash(model *Model) (string, error) {
	jsonBytes, err := json.Marshal(model)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewModelSnapshot creates a snapshot for audit trails
func NewModelSnapshot(model *Model, yamlData []byte) (*ModelSnapshot, error) {
	hash, err := Hash(model)
	if err != nil {
		return nil, err
	}

	return &ModelSnapshot{
		ParamsHash:     hash,
		ModelYAML:      string(yamlData),
		ModelID:        model.Meta.ModelID,
		Jurisdiction:   model.Meta.Jurisdiction,
		AssessmentYear: model.Meta.AssessmentYear,
		CreatedAt:      time.Now(),
	}, nil
}
