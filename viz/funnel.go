// ABOUTME: Pipeline funnel graph generation
// ABOUTME: Renders stages as a funnel with deal counts, value, and conversion rates
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
)

type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

// GenerateFunnelGraph creates a funnel for one pipeline: a node per stage
// showing open deal count and value, with edges between adjacent stages
// annotated with trailing-12-month conversion rates.
func (g *GraphGenerator) GenerateFunnelGraph(pipelineID uuid.UUID) (string, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			fmt.Printf("Error closing graphviz: %v\n", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			fmt.Printf("Error closing graph: %v\n", err)
		}
	}()

	pipeline, err := db.GetPipeline(g.db, pipelineID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch pipeline: %w", err)
	}
	if pipeline == nil {
		return "", fmt.Errorf("pipeline not found: %s", pipelineID)
	}

	graph.SetLabel(fmt.Sprintf("%s Funnel", pipeline.Name))
	graph.SetRankDir(cgraph.TBRank)

	stages, err := db.ListStagesByPipeline(g.db, pipelineID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch stages: %w", err)
	}

	deals, err := db.FindDeals(g.db, &pipelineID, nil, nil, 10000)
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}

	// Open deal count and value per stage
	counts := make(map[uuid.UUID]int)
	values := make(map[uuid.UUID]int64)
	for _, deal := range deals {
		if !deal.Open() {
			continue
		}
		counts[deal.StageID]++
		values[deal.StageID] += deal.Value
	}

	rates, err := engine.NewConversionAnalyzer(db.NewStore(g.db)).ConversionRates(pipelineID)
	if err != nil {
		return "", fmt.Errorf("failed to compute conversion rates: %w", err)
	}

	nodes := make([]*cgraph.Node, len(stages))
	for i, stage := range stages {
		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%s", stage.ID.String()[:8]))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}

		valueK := values[stage.ID] / 100000
		node.SetLabel(fmt.Sprintf("%s (%d%%)\n%d deals / $%dK",
			stage.Name, stage.DefaultProbability, counts[stage.ID], valueK))
		node.SetShape("box")
		node.SetStyle("filled")
		switch {
		case stage.IsWon:
			node.SetFillColor("lightgreen")
		case stage.IsLost:
			node.SetFillColor("lightpink")
		default:
			node.SetFillColor("lightblue")
		}
		nodes[i] = node
	}

	for i := 0; i < len(stages)-1; i++ {
		edge, err := graph.CreateEdgeByName("", nodes[i], nodes[i+1])
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		key := fmt.Sprintf("%s_to_%s", stages[i].Name, stages[i+1].Name)
		if rate, ok := rates[key]; ok {
			edge.SetLabel(fmt.Sprintf("%.1f%%", rate.Rate))
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}
