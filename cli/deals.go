// ABOUTME: Deal CLI commands
// ABOUTME: Commands for creating, listing, and moving deals through stages
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
)

func newTransitionEngine(database *sql.DB) *engine.StageTransitionEngine {
	store := db.NewStore(database)
	return engine.NewStageTransitionEngine(store, store)
}

// AddDealCommand creates a new deal in a pipeline.
func AddDealCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title (required)")
	value := fs.Int64("value", 0, "Deal value in cents")
	currency := fs.String("currency", "USD", "Currency code")
	pipelineName := fs.String("pipeline", "", "Pipeline name (default pipeline if omitted)")
	owner := fs.String("owner", "", "Owner name")
	contactID := fs.String("contact", "", "Contact ID")
	closeDate := fs.String("close-date", "", "Expected close date (YYYY-MM-DD)")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	if *value < 0 {
		return fmt.Errorf("--value must be non-negative")
	}

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

	deal := &models.Deal{
		Title:      *title,
		Value:      *value,
		Currency:   *currency,
		PipelineID: pipeline.ID,
		OwnerName:  *owner,
	}

	if *contactID != "" {
		id, err := uuid.Parse(*contactID)
		if err != nil {
			return fmt.Errorf("invalid contact ID: %w", err)
		}
		deal.ContactID = &id
	}

	if *closeDate != "" {
		parsed, err := time.Parse("2006-01-02", *closeDate)
		if err != nil {
			return fmt.Errorf("invalid close date (expected YYYY-MM-DD): %w", err)
		}
		deal.ExpectedCloseDate = &parsed
	}

	if err := db.CreateDeal(database, deal); err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	fmt.Printf("✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
	fmt.Printf("  Value: $%.2f %s\n", float64(deal.Value)/100.0, deal.Currency)
	fmt.Printf("  Pipeline: %s\n", pipeline.Name)

	return nil
}

// ListDealsCommand lists deals, optionally filtered by pipeline or owner.
func ListDealsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	pipelineName := fs.String("pipeline", "", "Filter by pipeline name")
	ownerID := fs.String("owner-id", "", "Filter by owner ID")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	var pipelineIDPtr *uuid.UUID
	if *pipelineName != "" {
		pipeline, err := db.FindPipelineByName(database, *pipelineName)
		if err != nil {
			return fmt.Errorf("failed to lookup pipeline: %w", err)
		}
		if pipeline != nil {
			pipelineIDPtr = &pipeline.ID
		}
	}

	var ownerIDPtr *uuid.UUID
	if *ownerID != "" {
		id, err := uuid.Parse(*ownerID)
		if err != nil {
			return fmt.Errorf("invalid owner ID: %w", err)
		}
		ownerIDPtr = &id
	}

	deals, err := db.FindDeals(database, pipelineIDPtr, nil, ownerIDPtr, *limit)
	if err != nil {
		return fmt.Errorf("failed to find deals: %w", err)
	}

	if len(deals) == 0 {
		fmt.Println("No deals found")
		return nil
	}

	stageNames := make(map[uuid.UUID]string)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tVALUE\tSTAGE\tPROB\tOWNER\tID")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----\t----\t-----\t--")

	var total int64
	for _, deal := range deals {
		stageName, ok := stageNames[deal.StageID]
		if !ok {
			stage, err := db.GetStage(database, deal.StageID)
			if err == nil && stage != nil {
				stageName = stage.Name
			} else {
				stageName = "unknown"
			}
			stageNames[deal.StageID] = stageName
		}

		owner := deal.OwnerName
		if owner == "" {
			owner = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t$%.2f\t%s\t%d%%\t%s\t%s\n",
			deal.Title, float64(deal.Value)/100.0, stageName,
			deal.Probability, owner, deal.ID.String()[:8])
		total += deal.Value
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d deal(s), $%.2f\n", len(deals), float64(total)/100.0)
	return nil
}

// MoveDealCommand moves a deal to a different stage.
func MoveDealCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("move-deal", flag.ExitOnError)
	stageName := fs.String("stage", "", "Target stage name (required)")
	reason := fs.String("reason", "", "Reason recorded with the transition")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("deal ID is required")
	}
	if *stageName == "" {
		return fmt.Errorf("--stage is required")
	}

	dealID, err := uuid.Parse(fs.Args()[0])
	if err != nil {
		return fmt.Errorf("invalid deal ID: %w", err)
	}

	deal, err := db.GetDeal(database, dealID)
	if err != nil {
		return fmt.Errorf("failed to lookup deal: %w", err)
	}
	if deal == nil {
		return fmt.Errorf("deal not found: %s", dealID)
	}

	stages, err := db.ListStagesByPipeline(database, deal.PipelineID)
	if err != nil {
		return fmt.Errorf("failed to list stages: %w", err)
	}

	var target *models.PipelineStage
	for i := range stages {
		if strings.EqualFold(stages[i].Name, *stageName) {
			target = &stages[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("stage not found in pipeline: %s", *stageName)
	}

	moved, err := newTransitionEngine(database).MoveToStage(dealID, target.ID, *reason)
	if err != nil {
		return fmt.Errorf("failed to move deal: %w", err)
	}

	fmt.Printf("✓ Deal moved: %s → %s (%d%%)\n", moved.Title, target.Name, moved.Probability)
	if moved.ActualCloseDate != nil {
		fmt.Printf("  Closed: %s\n", moved.ActualCloseDate.Format("2006-01-02"))
	}

	return nil
}

// RottenDealsCommand lists open deals that have sat in their stage too long.
func RottenDealsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("rotten", flag.ExitOnError)
	ownerID := fs.String("owner-id", "", "Filter by owner ID")
	_ = fs.Parse(args)

	var ownerIDPtr *uuid.UUID
	if *ownerID != "" {
		id, err := uuid.Parse(*ownerID)
		if err != nil {
			return fmt.Errorf("invalid owner ID: %w", err)
		}
		ownerIDPtr = &id
	}

	rotten, err := newTransitionEngine(database).RottenDeals(ownerIDPtr)
	if err != nil {
		return fmt.Errorf("failed to find rotten deals: %w", err)
	}

	if len(rotten) == 0 {
		fmt.Println("No rotten deals")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tSTAGE\tDAYS IN STAGE\tTHRESHOLD\tVALUE\tID")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-------------\t---------\t-----\t--")

	for _, deal := range rotten {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t$%.2f\t%s\n",
			deal.Title, deal.StageName, deal.DaysInStage, deal.RottenDays,
			float64(deal.Value)/100.0, deal.ID.String()[:8])
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d rotten deal(s)\n", len(rotten))
	return nil
}

// SetLineItemsCommand replaces a deal's line items and recalculates its value.
// Items are given as comma-separated name:qty:unit_price_cents[:discount] specs,
// e.g. "Seats:2:10000:10,Setup:1:5000".
func SetLineItemsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("set-line-items", flag.ExitOnError)
	items := fs.String("items", "", "Comma-separated name:qty:price[:discount] specs (required)")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("deal ID is required")
	}
	if *items == "" {
		return fmt.Errorf("--items is required")
	}

	dealID, err := uuid.Parse(fs.Args()[0])
	if err != nil {
		return fmt.Errorf("invalid deal ID: %w", err)
	}

	var lineItems []models.DealLineItem
	for _, spec := range strings.Split(*items, ",") {
		parts := strings.Split(strings.TrimSpace(spec), ":")
		if len(parts) < 3 || len(parts) > 4 {
			return fmt.Errorf("invalid line item %q: expected name:qty:price[:discount]", spec)
		}

		qty, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity in %q: %w", spec, err)
		}
		price, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unit price in %q: %w", spec, err)
		}

		item := models.DealLineItem{Name: parts[0], Quantity: qty, UnitPrice: price}
		if len(parts) == 4 {
			discount, err := strconv.ParseFloat(parts[3], 64)
			if err != nil {
				return fmt.Errorf("invalid discount in %q: %w", spec, err)
			}
			item.DiscountPercent = discount
		}
		lineItems = append(lineItems, item)
	}

	deal, err := newTransitionEngine(database).RecalculateValue(dealID, lineItems)
	if err != nil {
		return fmt.Errorf("failed to recalculate value: %w", err)
	}

	fmt.Printf("✓ Deal value recalculated: %s\n", deal.Title)
	fmt.Printf("  New value: $%.2f %s (%d line items)\n",
		float64(deal.Value)/100.0, deal.Currency, len(lineItems))

	return nil
}

// ActivitiesCommand lists the activity log for a deal or contact.
func ActivitiesCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("activities", flag.ExitOnError)
	entityType := fs.String("type", models.EntityDeal, "Entity type (deal or contact)")
	limit := fs.Int("limit", 20, "Maximum results")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("entity ID is required")
	}
	if *entityType != models.EntityDeal && *entityType != models.EntityContact {
		return fmt.Errorf("invalid entity type: %s", *entityType)
	}

	entityID, err := uuid.Parse(fs.Args()[0])
	if err != nil {
		return fmt.Errorf("invalid entity ID: %w", err)
	}

	activities, err := db.ListActivitiesByEntity(database, *entityType, entityID, *limit)
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}

	if len(activities) == 0 {
		fmt.Println("No activities found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tTYPE\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t----\t-----------")

	for _, activity := range activities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			activity.CreatedAt.Format("2006-01-02 15:04"), activity.Type, activity.Description)
	}
	_ = w.Flush()

	return nil
}
