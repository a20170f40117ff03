// Package completion hands completed submissions to the systems that
// consume them. Mapping strings are opaque here: only a Mapper knows what
// "client.companyName" means.
package completion

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-wizard/wizard"
)

type Exporter interface {
	Export(ctx context.Context, c wizard.Completion) error
}

// Mapper writes one mapped answer into an external record.
type Mapper interface {
	ApplyMapping(ctx context.Context, mapping string, value any) error
}

type MapperFunc func(ctx context.Context, mapping string, value any) error

func (f MapperFunc) ApplyMapping(ctx context.Context, mapping string, value any) error {
	return f(ctx, mapping, value)
}

// Apply passes every answered field that has a mapping to m, in template
// order. Orphaned answers are passed only when includeOrphaned is set.
func Apply(ctx context.Context, c wizard.Completion, m Mapper, includeOrphaned bool) error {
	for _, name := range c.MappedFields() {
		value, answered := c.Answers[name]
		if !answered {
			continue
		}
		if !includeOrphaned && c.IsOrphaned(name) {
			continue
		}
		if err := m.ApplyMapping(ctx, c.Mappings[name], value); err != nil {
			return errors.Wrapf(err, "apply mapping of %q", name)
		}
	}
	return nil
}

// MappingExporter exports through a Mapper.
type MappingExporter struct {
	Mapper          Mapper
	IncludeOrphaned bool
}

func (e MappingExporter) Export(ctx context.Context, c wizard.Completion) error {
	return Apply(ctx, c, e.Mapper, e.IncludeOrphaned)
}
