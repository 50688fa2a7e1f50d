package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/statusboard/internal/config"
	"github.com/vk/statusboard/internal/ctxlog"
	"github.com/vk/statusboard/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load parses every .hcl file found under paths and merges them, in path
// order, into a single model. The returned model is not finalized.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext(processEnviron())
	model := &config.Model{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		fileModel, err := translate(&root)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", file, err)
		}
		model.Merge(fileModel)
	}

	logger.Debug("HCL loading complete.", "files", len(files), "bindings", len(model.Bindings))
	return model, nil
}

// translate converts the decoded HCL schema into the format-agnostic model.
func translate(root *fileRoot) (*config.Model, error) {
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
		m.Bindings = append(m.Bindings, config.Binding{
			Event:  b.Event,
			Region: b.Region,
			Field:  b.Field,
		})
	}
	return m, nil
}
