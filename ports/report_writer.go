package ports

import (
	"context"

	"relana/domain/project"
)

// ReportWriter persists or forwards a finished analysis report
type ReportWriter interface {
	Write(ctx context.Context, rep *project.Report) error
}
