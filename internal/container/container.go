// Package container wires configuration, logging and adapters into the
// services the commands run.
package container

import (
	"fmt"

	"relana/adapters/httpapi"
	"relana/adapters/xlsxreport"
	"relana/app"
	"relana/internal"
	"relana/internal/config"
	"relana/ports"
)

// Container holds the application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger
}

// New creates a container from a loaded configuration
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg, Logger: internal.NewLogger(cfg.Log.Level)}, nil
}

// AnalysisService builds a service handing its reports to writers
func (c *Container) AnalysisService(writers ...ports.ReportWriter) *app.AnalysisService {
	return app.NewAnalysisService(app.AnalysisConfig{
		ParallelDepth: c.Config.Engine.ParallelDepth,
		MaxWorkers:    c.Config.Engine.MaxWorkers,
	}, c.Logger, writers...)
}

// WorkbookWriter exports reports to an xlsx file at path
func (c *Container) WorkbookWriter(path string) *xlsxreport.Writer {
	return xlsxreport.NewWriter(path, c.Config.Report.Decimals)
}

// HTTPServer builds the API server over a writer-less analysis service
func (c *Container) HTTPServer() *httpapi.Server {
	return httpapi.NewServer(c.AnalysisService(), c.Logger, httpapi.Options{
		MaxBodyBytes: c.Config.Server.MaxBodyBytes,
		Decimals:     c.Config.Report.Decimals,
	})
}
