// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII pipeline overview with rotten deals and contact stats
package viz

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
)

type DashboardStats struct {
	PipelineName    string
	StageStats      []StageStats
	TotalContacts   int
	TotalDeals      int
	OpenDeals       int
	OpenValue       int64 // in cents
	RottenDeals     []models.RottenDeal
	StaleContacts   int
}

type StageStats struct {
	Stage string
	Count int
	Value int64 // in cents
}

func GenerateDashboardStats(database *sql.DB, pipeline *models.Pipeline) (*DashboardStats, error) {
	stats := &DashboardStats{PipelineName: pipeline.Name}

	stages, err := db.ListStagesByPipeline(database, pipeline.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stages: %w", err)
	}

	deals, err := db.FindDeals(database, &pipeline.ID, nil, nil, 10000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	counts := make(map[string]int)
	values := make(map[string]int64)
	for _, deal := range deals {
		stats.TotalDeals++
		if !deal.Open() {
			continue
		}
		stats.OpenDeals++
		stats.OpenValue += deal.Value
		counts[deal.StageID.String()]++
		values[deal.StageID.String()] += deal.Value
	}

	for _, stage := range stages {
		stats.StageStats = append(stats.StageStats, StageStats{
			Stage: stage.Name,
			Count: counts[stage.ID.String()],
			Value: values[stage.ID.String()],
		})
	}

	store := db.NewStore(database)
	rotten, err := engine.NewStageTransitionEngine(store, store).RottenDeals(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find rotten deals: %w", err)
	}
	stats.RottenDeals = rotten

	contacts, err := db.FindContacts(database, "", "", 10000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	stats.TotalContacts = len(contacts)

	for _, contact := range contacts {
		if contact.LastContactedAt == nil {
			stats.StaleContacts++
		}
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString(fmt.Sprintf("  %s PIPELINE\n", strings.ToUpper(stats.PipelineName)))
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("OPEN DEALS BY STAGE\n")
	renderStages(&out, stats.StageStats)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d open deals ($%.2f)  📇 %d contacts\n\n",
		stats.OpenDeals, float64(stats.OpenValue)/100.0, stats.TotalContacts))

	if len(stats.RottenDeals) > 0 || stats.StaleContacts > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.RottenDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d rotten deal(s) sitting past their stage threshold\n", len(stats.RottenDeals)))
			for _, deal := range stats.RottenDeals {
				out.WriteString(fmt.Sprintf("      %s - %d days in %s (threshold %d)\n",
					deal.Title, deal.DaysInStage, deal.StageName, deal.RottenDays))
			}
		}
		if stats.StaleContacts > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d contact(s) never contacted\n", stats.StaleContacts))
		}
	}

	return out.String()
}

func renderStages(out *strings.Builder, stages []StageStats) {
	maxCount := 0
	for _, stage := range stages {
		if stage.Count > maxCount {
			maxCount = stage.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, stage := range stages {
		barLength := (stage.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		valueK := stage.Value / 100000

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d ($%dK)\n",
			stage.Stage, bar, stage.Count, valueK))
	}
}
