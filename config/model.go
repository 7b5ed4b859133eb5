package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

type Config struct {
	Jobs []Job `json:"jobs,omitempty"`
}

// Job is one scheduled bundling run.
type Job struct {
	Name         string       `json:"name"`
	CameraDirs   []string     `json:"camera_dirs"`
	OutputDir    string       `json:"output_dir"`
	Granularity  string       `json:"granularity,omitempty"`
	Format       string       `json:"format,omitempty"`
	StartDate    string       `json:"start_date,omitempty"`
	EndDate      string       `json:"end_date,omitempty"`
	Force        bool         `json:"force,omitempty"`
	RemoveSource bool         `json:"remove_source,omitempty"`
	MaxFileSize  SizeArgument `json:"max_file_size,omitempty"`
	Enable       bool         `json:"enable"`
	Schedule     string       `json:"cron"`
}

const (
	DefaultGranularity = "day"
	DefaultFormat      = "jpg"
)

// WithDefaults fills the optional fields left empty.
func (j Job) WithDefaults() Job {
	if j.Granularity == "" {
		j.Granularity = DefaultGranularity
	}
	if j.Format == "" {
		j.Format = DefaultFormat
	}
	return j
}

// Validate checks the fields the scheduler needs. Bundling parameters are
// checked when the job runs.
func (j Job) Validate() error {
	var result *multierror.Error
	if j.Name == "" {
		result = multierror.Append(result, errors.New("job must have a name"))
	}
	if len(j.CameraDirs) == 0 {
		result = multierror.Append(result, fmt.Errorf("job %q must have camera directories", j.Name))
	}
	if j.OutputDir == "" {
		result = multierror.Append(result, fmt.Errorf("job %q must have an output directory", j.Name))
	}
	if j.Schedule == "" {
		result = multierror.Append(result, fmt.Errorf("job %q must have a schedule", j.Name))
	}
	return result.ErrorOrNil()
}

func (j Job) MarshalZerologObject(e *zerolog.Event) {
	e.Str("name", j.Name)
	e.Strs("camera_dirs", j.CameraDirs)
	e.Str("output_dir", j.OutputDir)
	e.Str("granularity", j.Granularity)
	e.Str("format", j.Format)
	e.Bool("enable", j.Enable)
	e.Str("schedule", j.Schedule)

	if j.StartDate != "" {
		e.Str("start_date", j.StartDate)
	}
	if j.EndDate != "" {
		e.Str("end_date", j.EndDate)
	}
	if j.Force {
		e.Bool("force", j.Force)
	}
	if j.RemoveSource {
		e.Bool("remove_source", j.RemoveSource)
	}
	if j.MaxFileSize.Size > 0 {
		e.Int64("max_file_size", j.MaxFileSize.Size)
	}
}
