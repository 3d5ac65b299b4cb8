package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl/pkg/astyaml"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext"
	"github.com/sandrolain/gognl/pkg/functions"
)

// defaultConfigFile is read from the working directory when -config is
// not given.
const defaultConfigFile = "gognl.yaml"

// Config is the CLI configuration file.
//
//	timeout: 5s
//	debug: false
//	trace: true
//	maxDepth: 2000
//	classes: [Math, Strings]
//	vars:
//	  limit: 10
type Config struct {
	Timeout  time.Duration  `yaml:"timeout"`
	Debug    bool           `yaml:"debug"`
	Trace    bool           `yaml:"trace"`
	MaxDepth int            `yaml:"maxDepth"`
	Classes  []string       `yaml:"classes"` // extension classes; empty means all
	Vars     map[string]any `yaml:"vars"`
}

// loadConfig reads path. A missing default file yields the zero Config;
// a missing explicit file is an error.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, name := range cfg.Classes {
		if !slices.ContainsFunc(ext.All(), func(d functions.Class) bool { return strings.EqualFold(d.Name, name) }) {
			return cfg, fmt.Errorf("config %s: unknown class %q", path, name)
		}
	}
	return cfg, nil
}

// options turns the configuration into evaluator options.
func (c Config) options() []evaluator.EvalOption {
	opts := []evaluator.EvalOption{
		evaluator.WithParser(astyaml.Parse),
		ext.WithClasses(c.classes()...),
	}
	if c.Timeout > 0 {
		opts = append(opts, evaluator.WithTimeout(c.Timeout))
	}
	if c.MaxDepth > 0 {
		opts = append(opts, evaluator.WithMaxDepth(c.MaxDepth))
	}
	if c.Trace {
		opts = append(opts, evaluator.WithTrace(true))
	}
	if c.Debug {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, evaluator.WithDebug(true), evaluator.WithLogger(slog.New(handler)))
	}
	for name, v := range c.Vars {
		opts = append(opts, evaluator.WithVar(name, v))
	}
	return opts
}

// classes returns the extension classes the configuration enables.
func (c Config) classes() []functions.Class {
	all := ext.All()
	if len(c.Classes) == 0 {
		return all
	}
	var defs []functions.Class
	for _, d := range all {
		if slices.ContainsFunc(c.Classes, func(name string) bool { return strings.EqualFold(d.Name, name) }) {
			defs = append(defs, d)
		}
	}
	return defs
}
