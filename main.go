// ABOUTME: Entry point for pipeline MCP server and CLI
// ABOUTME: Routes to MCP server, CRM commands, or visualization based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/harperreed/pipegen/cli"
	"github.com/harperreed/pipegen/db"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/pipegen/pipegen.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("pipegen version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "mcp":
		// MCP server doesn't need database init message
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		if err := cli.MCPCommand(database); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	case "crm":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		log.Printf("Pipeline database: %s", finalDBPath)

		if *initOnly {
			if _, err := db.SeedDefaultPipeline(database); err != nil {
				log.Fatalf("Failed to seed default pipeline: %v", err)
			}
			log.Println("Database initialized successfully")
			os.Exit(0)
		}

		if len(commandArgs) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		crmCommand := commandArgs[0]
		crmArgs := commandArgs[1:]

		switch crmCommand {
		// Pipeline commands
		case "add-pipeline":
			if err := cli.AddPipelineCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "list-pipelines":
			if err := cli.ListPipelinesCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}

		// Deal commands
		case "add-deal":
			if err := cli.AddDealCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "list-deals":
			if err := cli.ListDealsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "move-deal":
			if err := cli.MoveDealCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "rotten":
			if err := cli.RottenDealsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "set-line-items":
			if err := cli.SetLineItemsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "activities":
			if err := cli.ActivitiesCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}

		// Forecasting commands
		case "forecast":
			if err := cli.ForecastCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "conversions":
			if err := cli.ConversionsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}

		// Contact commands
		case "add-contact":
			if err := cli.AddContactCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "list-contacts":
			if err := cli.ListContactsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "progress-contact":
			if err := cli.ProgressContactCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "next-actions":
			if err := cli.NextActionsCommand(database, crmArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}

		default:
			fmt.Printf("Unknown crm command: %s\n\n", crmCommand)
			printUsage()
			os.Exit(1)
		}

	case "viz":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		log.Printf("Pipeline database: %s", finalDBPath)

		if len(commandArgs) == 0 {
			fmt.Println("Error: viz requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		vizCommand := commandArgs[0]
		vizArgs := commandArgs[1:]

		switch vizCommand {
		case "funnel":
			if err := cli.VizFunnelCommand(database, vizArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "dashboard":
			if err := cli.DashboardCommand(database, vizArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown viz command: %s\n\n", vizCommand)
			printUsage()
			os.Exit(1)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(xdg.DataHome, "pipegen", "pipegen.db")
}

func printUsage() {
	fmt.Printf(`pipegen v%s - Deal pipeline and forecasting toolkit

USAGE:
  pipegen [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/pipegen/pipegen.db)
  --init                 Initialize database and exit (use with 'crm')

COMMANDS:
  mcp                    Start MCP server for Claude Desktop
  crm                    Pipeline management commands
  viz                    Visualization commands

MCP SERVER:
  pipegen mcp            Start MCP server (for Claude Desktop integration)

CRM COMMANDS:
  pipegen crm add-pipeline   Create a pipeline with ordered stages
    --name <name>              Pipeline name (required)
    --stages <specs>           Comma-separated name:probability pairs (required)
    --rotten-days <n>          Rotten threshold for non-terminal stages

  pipegen crm list-pipelines List pipelines and their stages

  pipegen crm add-deal       Add a new deal
    --title <title>            Deal title (required)
    --value <cents>            Deal value in cents
    --currency <code>          Currency code (default: USD)
    --pipeline <name>          Pipeline name (default pipeline if omitted)
    --owner <name>             Owner name
    --contact <id>             Contact ID
    --close-date <date>        Expected close date (YYYY-MM-DD)

  pipegen crm list-deals     List deals
    --pipeline <name>          Filter by pipeline name
    --owner-id <id>            Filter by owner ID
    --limit <n>                Max results (default: 50)

  pipegen crm move-deal [flags] <id>  Move a deal to another stage
    --stage <name>             Target stage name (required)
    --reason <text>            Reason recorded with the transition
    Note: flags must come before the deal ID

  pipegen crm rotten         List deals stuck past their stage threshold
    --owner-id <id>            Filter by owner ID

  pipegen crm set-line-items [flags] <id>  Replace line items, recalc value
    --items <specs>            Comma-separated name:qty:price[:discount]

  pipegen crm activities [flags] <id>  Show the activity log for an entity
    --type <type>              Entity type: deal or contact (default: deal)
    --limit <n>                Max results (default: 20)

  pipegen crm forecast       Revenue forecast for a period
    --period <period>          this_month, next_month, this_quarter, next_quarter
    --pipeline <name>          Filter by pipeline name
    --owner-id <id>            Filter by owner ID

  pipegen crm conversions    Stage conversion rates (trailing 12 months)
    --pipeline <name>          Pipeline name (default pipeline if omitted)

  pipegen crm add-contact    Add a new contact
    --name <name>              Contact name (required)
    --email <email>            Email address
    --phone <phone>            Phone number
    --stage <stage>            Initial lifecycle stage (default: subscriber)
    --notes <notes>            Notes about contact

  pipegen crm list-contacts  List contacts
    --query <text>             Search by name or email
    --stage <stage>            Filter by lifecycle stage
    --limit <n>                Max results (default: 50)

  pipegen crm progress-contact [flags] <id>  Advance a contact's lifecycle
    --stage <stage>            Target lifecycle stage (required)
    --reason <text>            Reason recorded with the progression

  pipegen crm next-actions <id>  Recommended follow-ups for a contact

VIZ COMMANDS:
  pipegen viz funnel         Generate a pipeline funnel graph
    --pipeline <name>          Pipeline name (default pipeline if omitted)
    --output <file>            Output file (default: stdout)

  pipegen viz dashboard      Terminal pipeline dashboard
    --pipeline <name>          Pipeline name (default pipeline if omitted)

EXAMPLES:
  # Start MCP server for Claude Desktop
  pipegen mcp

  # Add a deal to the default pipeline
  pipegen crm add-deal --title "Enterprise License" --value 5000000 --owner "Dana"

  # Move it to Proposal
  pipegen crm move-deal --stage Proposal --reason "Sent draft" <deal-id>

  # Forecast this quarter
  pipegen crm forecast --period this_quarter

`, version)
}
