// ABOUTME: Forecast and conversion CLI commands
// ABOUTME: Commands for period forecasts and stage conversion rates
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
)

// ForecastCommand prints a revenue forecast for a period.
func ForecastCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	period := fs.String("period", models.PeriodThisMonth, "Forecast period (this_month, next_month, this_quarter, next_quarter)")
	pipelineName := fs.String("pipeline", "", "Filter by pipeline name")
	ownerID := fs.String("owner-id", "", "Filter by owner ID")
	_ = fs.Parse(args)

	var filters engine.Filters
	if *pipelineName != "" {
		pipeline, err := db.FindPipelineByName(database, *pipelineName)
		if err != nil {
			return fmt.Errorf("failed to lookup pipeline: %w", err)
		}
		if pipeline == nil {
			return fmt.Errorf("pipeline not found: %s", *pipelineName)
		}
		filters.PipelineID = &pipeline.ID
	}
	if *ownerID != "" {
		id, err := uuid.Parse(*ownerID)
		if err != nil {
			return fmt.Errorf("invalid owner ID: %w", err)
		}
		filters.OwnerID = &id
	}

	forecast, err := engine.NewForecastEngine(db.NewStore(database)).Generate(*period, filters)
	if err != nil {
		return fmt.Errorf("failed to generate forecast: %w", err)
	}

	fmt.Printf("Forecast: %s (%s to %s)\n", forecast.Period,
		forecast.StartDate.Format("2006-01-02"), forecast.EndDate.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Printf("  Deals:          %d\n", forecast.DealCount)
	fmt.Printf("  Total value:    $%.2f\n", float64(forecast.TotalValue)/100.0)
	fmt.Printf("  Weighted value: $%.2f\n", forecast.WeightedValue/100.0)
	fmt.Printf("  Confidence:     %d%%\n", forecast.Confidence)

	if len(forecast.ByStage) > 0 {
		fmt.Println("\nBy stage:")
		printBuckets(forecast.ByStage)
	}
	if len(forecast.ByOwner) > 0 {
		fmt.Println("\nBy owner:")
		printBuckets(forecast.ByOwner)
	}

	return nil
}

func printBuckets(buckets map[string]models.ForecastBucket) {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  \tDEALS\tTOTAL\tWEIGHTED\tAVG PROB")
	for _, key := range keys {
		bucket := buckets[key]
		_, _ = fmt.Fprintf(w, "  %s\t%d\t$%.2f\t$%.2f\t%.1f%%\n",
			key, bucket.DealCount, float64(bucket.TotalValue)/100.0,
			bucket.WeightedValue/100.0, bucket.AvgProbability)
	}
	_ = w.Flush()
}

// ConversionsCommand prints stage-to-stage conversion rates for a pipeline.
func ConversionsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("conversions", flag.ExitOnError)
	pipelineName := fs.String("pipeline", "", "Pipeline name (default pipeline if omitted)")
	_ = fs.Parse(args)

	var pipeline *models.Pipeline
	var err error
	if *pipelineName != "" {
		pipeline, err = db.FindPipelineByName(database, *pipelineName)
		if err != nil {
			return fmt.Errorf("failed to lookup pipeline: %w", err)
		}
		if pipeline == nil {
			return fmt.Errorf("pipeline not found: %s", *pipelineName)
		}
	} else {
		pipeline, err = db.SeedDefaultPipeline(database)
		if err != nil {
			return fmt.Errorf("failed to resolve default pipeline: %w", err)
		}
	}

	rates, err := engine.NewConversionAnalyzer(db.NewStore(database)).ConversionRates(pipeline.ID)
	if err != nil {
		return fmt.Errorf("failed to compute conversion rates: %w", err)
	}

	stages, err := db.ListStagesByPipeline(database, pipeline.ID)
	if err != nil {
		return fmt.Errorf("failed to list stages: %w", err)
	}

	fmt.Printf("Conversion rates: %s (trailing 12 months)\n\n", pipeline.Name)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FROM\tTO\tRATE\tDEALS")
	_, _ = fmt.Fprintln(w, "----\t--\t----\t-----")

	// Walk stage pairs in pipeline order rather than map order.
	for i := 0; i < len(stages)-1; i++ {
		key := fmt.Sprintf("%s_to_%s", stages[i].Name, stages[i+1].Name)
		rate, ok := rates[key]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d\n", rate.From, rate.To, rate.Rate, rate.DealCount)
	}
	_ = w.Flush()

	return nil
}
