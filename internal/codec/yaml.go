package codec

import (
	"fmt"
	"io"

	"motorpool/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFleet represents the YAML structure for fleet data
type yamlFleet struct {
	Cars []yamlCar `yaml:"cars"`
}

type yamlCar struct {
	ID    int64  `yaml:"id,omitempty"`
	Make  string `yaml:"make"`
	Model string `yaml:"model"`
	Year  string `yaml:"year"`
}

// Parse imports fleet data from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Fleet, error) {
	var yf yamlFleet
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fleet := domain.NewFleet()
	for _, yc := range yf.Cars {
		fleet.Add(domain.Car{
			ID:    yc.ID,
			Make:  yc.Make,
			Model: yc.Model,
			Year:  yc.Year,
		})
	}

	return fleet, nil
}

// Export exports fleet data to YAML
func (c *YAMLCodec) Export(fleet *domain.Fleet, w io.Writer) error {
	yf := yamlFleet{
		Cars: make([]yamlCar, 0, len(fleet.Cars)),
	}

	for _, car := range fleet.Cars {
		yf.Cars = append(yf.Cars, yamlCar{
			ID:    car.ID,
			Make:  car.Make,
			Model: car.Model,
			Year:  car.Year,
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
