package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"motorpool/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports fleet data from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Fleet, error) {
	var fleet domain.Fleet
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&fleet); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &fleet, nil
}

// Export exports fleet data to JSON
func (c *JSONCodec) Export(fleet *domain.Fleet, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fleet); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
