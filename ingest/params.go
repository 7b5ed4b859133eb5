package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/bundle"
)

// Params describes one ingestion run.
type Params struct {
	CameraDirs  []string
	OutputDir   string
	Format      string
	Granularity string
	StartDate   string // inclusive YYYY_MM bound, empty for none
	EndDate     string // inclusive YYYY_MM bound, empty for none
	Logger      zerolog.Logger
}

// ConfigError reports invalid parameters. Nothing has been touched on disk.
type ConfigError struct {
	Errs *multierror.Error
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.TrimSpace(e.Errs.Error())
}

func (e *ConfigError) Unwrap() error {
	return e.Errs
}

// Validate checks params without any filesystem access and returns the
// parsed granularity.
func (p Params) Validate() (bundle.Granularity, error) {
	var result *multierror.Error

	if len(p.CameraDirs) == 0 {
		result = multierror.Append(result, errors.New("no camera directory given"))
	}
	for _, dir := range p.CameraDirs {
		if strings.TrimSpace(dir) == "" {
			result = multierror.Append(result, errors.New("empty camera directory"))
			continue
		}
		if base := filepath.Base(filepath.Clean(dir)); base == "." || base == string(filepath.Separator) {
			result = multierror.Append(result, fmt.Errorf("no camera name in directory %q", dir))
		}
	}
	if strings.TrimSpace(p.OutputDir) == "" {
		result = multierror.Append(result, errors.New("no output directory given"))
	}
	if bundle.NormalizeFormat(p.Format) == "" {
		result = multierror.Append(result, errors.New("no file format given"))
	}
	if p.StartDate != "" && p.EndDate != "" && p.EndDate < p.StartDate {
		result = multierror.Append(result, fmt.Errorf("end date %s is before start date %s", p.EndDate, p.StartDate))
	}
	g, err := bundle.ParseGranularity(p.Granularity)
	if err != nil {
		result = multierror.Append(result, err)
	}

	if result != nil {
		result.ErrorFormat = formatErrors
		return 0, &ConfigError{Errs: result}
	}
	return g, nil
}

func formatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Camera is named after the last element of its directory.
func cameraName(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}
