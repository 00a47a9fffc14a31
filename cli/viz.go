// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the funnel graph and terminal dashboard commands
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/models"
	"github.com/harperreed/pipegen/viz"
)

func resolvePipeline(database *sql.DB, name string) (*models.Pipeline, error) {
	if name != "" {
		pipeline, err := db.FindPipelineByName(database, name)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup pipeline: %w", err)
		}
		if pipeline == nil {
			return nil, fmt.Errorf("pipeline not found: %s", name)
		}
		return pipeline, nil
	}
	pipeline, err := db.SeedDefaultPipeline(database)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default pipeline: %w", err)
	}
	return pipeline, nil
}

// VizFunnelCommand generates a pipeline funnel graph.
func VizFunnelCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("viz funnel", flag.ExitOnError)
	pipelineName := fs.String("pipeline", "", "Pipeline name (default pipeline if omitted)")
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	pipeline, err := resolvePipeline(database, *pipelineName)
	if err != nil {
		return err
	}

	generator := viz.NewGraphGenerator(database)
	dot, err := generator.GenerateFunnelGraph(pipeline.ID)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Println(dot)
	return nil
}

// DashboardCommand renders the terminal pipeline dashboard.
func DashboardCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	pipelineName := fs.String("pipeline", "", "Pipeline name (default pipeline if omitted)")
	_ = fs.Parse(args)

	pipeline, err := resolvePipeline(database, *pipelineName)
	if err != nil {
		return err
	}

	stats, err := viz.GenerateDashboardStats(database, pipeline)
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	fmt.Print(viz.RenderDashboard(stats))
	return nil
}
