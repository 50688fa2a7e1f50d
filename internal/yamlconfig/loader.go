// Package yamlconfig provides a YAML implementation of config.Loader for
// deployments that prefer YAML over HCL. Values may reference environment
// variables with ${NAME}.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/statusboard/internal/config"
	"github.com/vk/statusboard/internal/ctxlog"
	"github.com/vk/statusboard/internal/fsutil"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Endpoint           string        `yaml:"endpoint"`
	Namespace          string        `yaml:"namespace"`
	ReadyEvent         string        `yaml:"ready_event"`
	ConnectTimeout     string        `yaml:"connect_timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Bindings           []bindingNode `yaml:"bindings"`
}

type bindingNode struct {
	Event  string `yaml:"event"`
	Region string `yaml:"region"`
	Field  string `yaml:"field"`
}

// Loader reads .yaml and .yml files.
type Loader struct {
	expand func(string) string
}

// NewLoader creates a YAML loader that expands variables from the process
// environment.
func NewLoader() *Loader {
	return &Loader{expand: os.ExpandEnv}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		fileModel, err := l.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}
		model.Merge(fileModel)
	}

	logger.Debug("YAML loading complete.", "files", len(files), "bindings", len(model.Bindings))
	return model, nil
}

func (l *Loader) decode(raw []byte) (*config.Model, error) {
	var root fileRoot
	dec := yaml.NewDecoder(bytes.NewReader([]byte(l.expand(string(raw)))))
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil {
		// A file with no document (empty or comments only) is empty config.
		if errors.Is(err, io.EOF) {
			return &config.Model{}, nil
		}
		return nil, err
	}

	timeout, err := config.ParseDuration(root.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect_timeout: %w", err)
	}

	m := &config.Model{
		Endpoint:           root.Endpoint,
		Namespace:          root.Namespace,
		ReadyEvent:         root.ReadyEvent,
		ConnectTimeout:     timeout,
		InsecureSkipVerify: root.InsecureSkipVerify,
	}
	for _, b := range root.Bindings {
		m.Bindings = append(m.Bindings, config.Binding(b))
	}
	return m, nil
}
