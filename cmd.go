package main

import "github.com/stupid-simple/tsbundle/config"

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Bundle  struct {
		CameraDirs   []string            `arg:"" help:"camera directories, each named after its camera"`
		Start        string              `help:"first year and month to bundle, as YYYY_MM" short:"s"`
		End          string              `help:"last year and month to bundle, as YYYY_MM" short:"e"`
		Format       string              `help:"image file format" short:"f" default:"jpg"`
		Output       string              `help:"output directory path, must exist" short:"o" required:""`
		Granularity  string              `help:"time span of one bundle: year, month, day, hour, minute or second" short:"b" default:"day"`
		Force        bool                `help:"insert captures without checking the bundle for an existing copy"`
		RemoveSource bool                `help:"delete source files once they are held by their bundle"`
		MaxFileSize  config.SizeArgument `help:"skip captures larger than this size"`
		Database     string              `help:"catalog database path, archived captures are recorded when set" short:"d"`
		DryRun       bool                `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Bundle camera captures."`
	Extract struct {
		Bundles   []string `arg:"" help:"bundle paths"`
		Dest      string   `help:"destination directory path where captures will be restored" short:"D" required:""`
		Overwrite bool     `help:"replace existing files whose content differs"`
		DryRun    bool     `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Restore captures from bundles."`
	Catalog struct {
		Database string `help:"database path" short:"d" required:""`
		Camera   string `help:"only list captures of this camera"`
		Bundle   string `help:"only list captures of this bundle"`
		Limit    int    `help:"maximum number of captures to list"`
	} `cmd:"" help:"List archived captures recorded in the catalog."`
	Daemon struct {
		Config   string `help:"config file path" short:"c" required:""`
		Database string `help:"catalog database path" short:"d"`
		DryRun   bool   `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Run the scheduled bundling service."`
}
