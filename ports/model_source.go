package ports

import (
	"context"

	"relana/domain/project"
)

// ModelSource provides a resolved project: a verified class graph plus the
// outputs to evaluate
type ModelSource interface {
	Load(ctx context.Context) (*project.Project, error)
}
