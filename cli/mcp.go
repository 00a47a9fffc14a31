// ABOUTME: MCP server subcommand
// ABOUTME: Registers pipeline tools and runs the MCP server on stdio
package cli

import (
	"context"
	"database/sql"
	"log"

	"github.com/harperreed/pipegen/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(db *sql.DB) error {
	log.Println("Starting pipeline MCP server...")

	pipelineHandlers := handlers.NewPipelineHandlers(db)
	dealHandlers := handlers.NewDealHandlers(db)
	forecastHandlers := handlers.NewForecastHandlers(db)
	contactHandlers := handlers.NewContactHandlers(db)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pipegen",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_pipeline",
		Description: "Create a pipeline with an ordered list of stages",
	}, pipelineHandlers.CreatePipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipelines",
		Description: "List all pipelines and their stages",
	}, pipelineHandlers.ListPipelines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal in a pipeline",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal_stage",
		Description: "Move a deal to a different pipeline stage, updating probability and close state",
	}, dealHandlers.MoveDealStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_rotten_deals",
		Description: "List open deals that have sat in their stage past the rotten threshold",
	}, dealHandlers.ListRottenDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recalculate_deal_value",
		Description: "Replace a deal's line items and recalculate its value from them",
	}, dealHandlers.RecalculateDealValue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_deals",
		Description: "Search for deals by pipeline, stage, or owner",
	}, dealHandlers.FindDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_forecast",
		Description: "Generate a revenue forecast for a period (this_month, next_month, this_quarter, next_quarter)",
	}, forecastHandlers.GenerateForecast)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conversion_rates",
		Description: "Get stage-to-stage conversion rates for a pipeline over the trailing 12 months",
	}, forecastHandlers.GetConversionRates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact with an optional lifecycle stage",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search for contacts by name, email, or lifecycle stage",
	}, contactHandlers.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "progress_contact",
		Description: "Move a contact to a new lifecycle stage along the progression graph",
	}, contactHandlers.ProgressContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_next_actions",
		Description: "Suggest prioritized follow-up actions for a contact",
	}, contactHandlers.SuggestNextActions)

	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
