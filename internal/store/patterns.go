package store

import (
	"fmt"
	"io"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"

	"gopkg.in/yaml.v3"
)

// PatternFile is the portable form of a pattern list
type PatternFile struct {
	Version    int                        `yaml:"version"`
	ExportedAt time.Time                  `yaml:"exported_at"`
	Patterns   []*models.ExclusionPattern `yaml:"patterns"`
}

// ExportPatterns writes patterns to w as YAML
func ExportPatterns(w io.Writer, patterns []*models.ExclusionPattern, at time.Time) error {
	if patterns == nil {
		patterns = []*models.ExclusionPattern{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(PatternFile{Version: documentVersion, ExportedAt: at.UTC(), Patterns: patterns}); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "export patterns", err)
	}
	return enc.Close()
}

// ImportPatterns reads a pattern list written by ExportPatterns. Kinds and
// categories are read case-insensitively. Every pattern is validated; the
// first invalid one fails the import.
func ImportPatterns(r io.Reader) ([]*models.ExclusionPattern, error) {
	var file PatternFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, "patterns", 0, "document", "", err)
	}

	for i, p := range file.Patterns {
		if p == nil {
			return nil, errors.ValidationError(errors.CodeInvalidPattern, fmt.Sprintf("patterns[%d]", i), "empty", nil)
		}
		if err := p.Normalize(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidPattern, fmt.Sprintf("patterns[%d]", i), p.String(), err)
		}
		if err := p.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidPattern, fmt.Sprintf("patterns[%d]", i), p.String(), err)
		}
	}
	return file.Patterns, nil
}
