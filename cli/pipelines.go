// ABOUTME: Pipeline CLI commands
// ABOUTME: Human-friendly commands for managing pipelines and their stages
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/models"
)

// AddPipelineCommand creates a new pipeline with ordered stages.
// Stages are given as a comma-separated list of name:probability pairs,
// e.g. "Discovery:10,Demo:40,Contract:80,Closed Won:100,Closed Lost:0".
func AddPipelineCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-pipeline", flag.ExitOnError)
	name := fs.String("name", "", "Pipeline name (required)")
	stages := fs.String("stages", "", "Comma-separated name:probability pairs (required)")
	rotten := fs.Int("rotten-days", 0, "Rotten threshold applied to non-terminal stages (0 = none)")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *stages == "" {
		return fmt.Errorf("--stages is required")
	}

	pipeline := &models.Pipeline{Name: *name}
	var stageModels []models.PipelineStage

	for i, spec := range strings.Split(*stages, ",") {
		parts := strings.SplitN(strings.TrimSpace(spec), ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid stage %q: expected name:probability", spec)
		}
		probability, err := strconv.Atoi(parts[1])
		if err != nil || probability < 0 || probability > 100 {
			return fmt.Errorf("invalid probability for stage %q: must be 0-100", parts[0])
		}

		stage := models.PipelineStage{
			Name:               parts[0],
			SortOrder:          i + 1,
			DefaultProbability: probability,
		}
		won, lost := models.TerminalFlagsForName(parts[0])
		if *rotten > 0 && !won && !lost {
			threshold := *rotten
			stage.RottenDays = &threshold
		}
		stageModels = append(stageModels, stage)
	}

	if err := db.CreatePipeline(database, pipeline, stageModels); err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	fmt.Printf("✓ Pipeline created: %s (ID: %s)\n", pipeline.Name, pipeline.ID)
	for _, stage := range stageModels {
		fmt.Printf("  %d. %s (%d%%)\n", stage.SortOrder, stage.Name, stage.DefaultProbability)
	}

	return nil
}

// ListPipelinesCommand lists all pipelines with their stages.
func ListPipelinesCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-pipelines", flag.ExitOnError)
	_ = fs.Parse(args)

	pipelines, err := db.ListPipelines(database)
	if err != nil {
		return fmt.Errorf("failed to list pipelines: %w", err)
	}

	if len(pipelines) == 0 {
		fmt.Println("No pipelines found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PIPELINE\tSTAGE\tORDER\tPROBABILITY\tROTTEN DAYS\tID")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-----\t-----------\t-----------\t--")

	for _, pipeline := range pipelines {
		stages, err := db.ListStagesByPipeline(database, pipeline.ID)
		if err != nil {
			return fmt.Errorf("failed to list stages: %w", err)
		}
		for _, stage := range stages {
			rotten := "-"
			if stage.RottenDays != nil {
				rotten = strconv.Itoa(*stage.RottenDays)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d%%\t%s\t%s\n",
				pipeline.Name, stage.Name, stage.SortOrder,
				stage.DefaultProbability, rotten, stage.ID.String()[:8])
		}
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d pipeline(s)\n", len(pipelines))
	return nil
}
