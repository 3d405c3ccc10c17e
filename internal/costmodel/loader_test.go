package costmodel

import (
	"os"
	"testing"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

func TestLoad(t *testing.T) {
	path := "../../config/costmodel/benton_2025.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("model file not found")
	}

	model, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if model.Meta.ModelID != "benton_2025" {
		t.Errorf("expected model_id=benton_2025, got %s", model.Meta.ModelID)
	}

	if model.Parameters.EconomicLifeYears != 50 {
		t.Errorf("expected economic_life_years=50, got %d", model.Parameters.EconomicLifeYears)
	}

	if model.Parameters.BaseCostPerSquareFoot[valuation.SingleFamily] != 145.0 {
		t.Errorf("expected single_family rate 145, got %f",
			model.Parameters.BaseCostPerSquareFoot[valuation.SingleFamily])
	}

	if model.Parameters.LocationMultiplier["Richland"] != 1.08 {
		t.Errorf("expected Richland multiplier 1.08, got %f",
			model.Parameters.LocationMultiplier["Richland"])
	}

	// Hash generation
	hash, err := Hash(model)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// Same model, same hash
	hash2, _ := Hash(model)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	t.Logf("model hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "model-*.yaml")
	if err != nil {
		t.Fatal(err)
	}

	content := `
meta:
  model_id: test
  jurisdiction: test-wa
  assessment_year: 2025
parameters:
  base_cost_per_sqaure_foot:
    single_family: 145.0
  economic_life_years: 50
`
	if _, err := tmp.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmp.Close()

	if _, _, err := Load(tmp.Name()); err == nil {
		t.Error("expected error for misspelled field, got nil")
	}
}

func TestNewModelSnapshot(t *testing.T) {
	model := &Model{
		Meta: Meta{
			ModelID:        "snap_test",
			Jurisdiction:   "benton-wa",
			AssessmentYear: 2025,
		},
		Parameters: Defaults(),
	}

	snapshot, err := NewModelSnapshot(model, []byte("raw yaml"))
	if err != nil {
		t.Fatalf("NewModelSnapshot failed: %v", err)
	}

	if snapshot.ModelID != "snap_test" {
		t.Errorf("expected model_id=snap_test, got %s", snapshot.ModelID)
	}
	if snapshot.ModelYAML != "raw yaml" {
		t.Error("expected raw yaml to be preserved")
	}
	if len(snapshot.ParamsHash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(snapshot.ParamsHash))
	}
}
