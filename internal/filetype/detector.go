package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/pdferr"
)

const mimePDF = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType string
	IsPDF    bool
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	info := &FileTypeInfo{MIMEType: mtype.String(), IsPDF: mtype.Is(mimePDF)}
	log.Debug().Str("mime", info.MIMEType).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// RequirePDF returns a SourceError unless filePath holds a PDF.
func (d *Detector) RequirePDF(filePath string) error {
	info, err := d.Detect(filePath)
	if err != nil {
		return &pdferr.SourceError{Path: filePath, Err: err}
	}
	if !info.IsPDF {
		return &pdferr.SourceError{Path: filePath, Err: fmt.Errorf("not a PDF (%s)", info.MIMEType)}
	}
	return nil
}
