package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/item-notifier/tools/dashgen/dashboards"
	"github.com/donaldgifford/item-notifier/tools/dashgen/rules"
	"github.com/donaldgifford/item-notifier/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file, relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	arts, err := generate(cfg)
	if err != nil {
		return err
	}
	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range arts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	var arts []artifact

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building overview dashboard: %w", err)
		}
		if err := report("dashboard", validate.Dashboard(dash, KnownMetrics)); err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding dashboard: %w", err)
		}
		arts = append(arts, artifact{
			path: filepath.Join("grafana", "data", dashboards.OverviewUID+".json"),
			data: append(data, '\n'),
		})
	}

	if cfg.RulesEnabled {
		for _, cr := range []rules.PrometheusRule{rules.RecordingRules(), rules.AlertRules()} {
			if err := report(cr.Metadata.Name, validate.Rules(cr, KnownMetrics)); err != nil {
				return nil, err
			}
			data, err := yaml.Marshal(cr)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", cr.Metadata.Name, err)
			}
			arts = append(arts, artifact{
				path: filepath.Join("prometheus", cr.Metadata.Name+".yaml"),
				data: append([]byte(generatedHeader), data...),
			})

			plain, err := yaml.Marshal(cr.File())
			if err != nil {
				return nil, fmt.Errorf("encoding %s rule file: %w", cr.Metadata.Name, err)
			}
			arts = append(arts, artifact{
				path: filepath.Join("prometheus", "rules", cr.Metadata.Name+".yaml"),
				data: append([]byte(generatedHeader), plain...),
			})
		}
	}

	return arts, nil
}

func report(name string, r *validate.Result) error {
	for _, w := range r.Warnings {
		fmt.Fprintf(os.Stderr, "dashgen: %s: warning: %s\n", name, w)
	}
	if !r.Ok() {
		return fmt.Errorf("%s failed validation: %w", name, errors.Join(toErrors(r.Errors)...))
	}
	return nil
}

func toErrors(msgs []string) []error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, errors.New(m))
	}
	return errs
}
