package codec

import (
	"io"

	"motorpool/internal/domain"
)

// Importer interface for importing fleet data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Fleet, error)
	Format() string
}

// Exporter interface for exporting fleet data to various formats
type Exporter interface {
	Export(fleet *domain.Fleet, w io.Writer) error
	Format() string
}
