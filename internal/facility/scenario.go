package facility

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Scenario models available to scenario files.
const (
	ModelLSCP = "lscp"
	ModelMCLP = "mclp"
)

// Scenario is a declarative facility-location run: which demand dataset
// and candidate sites to use, the service radius, and the model.
type Scenario struct {
	Name         string  `yaml:"name"`
	Demand       string  `yaml:"demand"`     // stored dataset name
	Candidates   string  `yaml:"candidates"` // stored dataset name
	RadiusMeters float64 `yaml:"radius_meters"`
	Model        string  `yaml:"model"`
	P            int     `yaml:"p"` // site budget, MCLP only
}

// LoadScenario reads a scenario from a YAML file and validates it.
// The file has a top-level "scenario" key.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "facility: read scenario %s", path)
	}

	var wrapper struct {
		Scenario Scenario `yaml:"scenario"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "facility: parse scenario")
	}

	sc := &wrapper.Scenario
	if sc.Demand == "" {
		return nil, eris.New("facility: scenario missing demand dataset")
	}
	if sc.Candidates == "" {
		return nil, eris.New("facility: scenario missing candidates dataset")
	}
	if sc.RadiusMeters <= 0 {
		return nil, eris.Errorf("facility: scenario radius must be positive, got %g", sc.RadiusMeters)
	}
	switch sc.Model {
	case ModelLSCP:
	case ModelMCLP:
		if sc.P < 1 {
			return nil, eris.New("facility: mclp scenario needs p >= 1")
		}
	default:
		return nil, eris.Errorf("facility: unknown scenario model %q", sc.Model)
	}
	return sc, nil
}
