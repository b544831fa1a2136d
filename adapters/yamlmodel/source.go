package yamlmodel

import (
	"context"
	"os"

	"relana/domain/project"
	apperrors "relana/internal/errors"
	"relana/ports"
)

// FileSource loads a project from a YAML file.
type FileSource struct {
	Path string
}

var _ ports.ModelSource = FileSource{}

func (s FileSource) Load(ctx context.Context) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.InvalidInput(err.Error()), "cannot read model %s", s.Path)
	}
	return Parse(data)
}

// BytesSource loads a project from YAML held in memory.
type BytesSource []byte

var _ ports.ModelSource = BytesSource(nil)

func (s BytesSource) Load(ctx context.Context) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(s)
}
