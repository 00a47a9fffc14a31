// ABOUTME: Contact CLI commands
// ABOUTME: Commands for managing contacts and lifecycle progression
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
)

func newLifecycleEngine(database *sql.DB) *engine.LifecycleProgressionEngine {
	store := db.NewStore(database)
	return engine.NewLifecycleProgressionEngine(store, store)
}

// AddContactCommand adds a new contact.
func AddContactCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-contact", flag.ExitOnError)
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	stage := fs.String("stage", "", "Initial lifecycle stage (default subscriber)")
	notes := fs.String("notes", "", "Notes about the contact")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *stage != "" && !models.ValidLifecycleStage(*stage) {
		return fmt.Errorf("unknown lifecycle stage: %s", *stage)
	}

	contact := &models.Contact{
		Name:           *name,
		Email:          *email,
		Phone:          *phone,
		LifecycleStage: *stage,
		Notes:          *notes,
	}

	if err := db.CreateContact(database, contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	fmt.Printf("✓ Contact created: %s (ID: %s)\n", contact.Name, contact.ID)
	fmt.Printf("  Lifecycle: %s (%s)\n", contact.LifecycleStage, contact.Status)
	if contact.Email != "" {
		fmt.Printf("  Email: %s\n", contact.Email)
	}

	return nil
}

// ListContactsCommand lists contacts.
func ListContactsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-contacts", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or email")
	stage := fs.String("stage", "", "Filter by lifecycle stage")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	contacts, err := db.FindContacts(database, *query, *stage, *limit)
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}

	if len(contacts) == 0 {
		fmt.Println("No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tLIFECYCLE\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t---------\t------\t--")

	for _, contact := range contacts {
		email := contact.Email
		if email == "" {
			email = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			contact.Name, email, contact.LifecycleStage, contact.Status,
			contact.ID.String()[:8])
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d contact(s)\n", len(contacts))
	return nil
}

// ProgressContactCommand moves a contact to a new lifecycle stage.
func ProgressContactCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("progress-contact", flag.ExitOnError)
	stage := fs.String("stage", "", "Target lifecycle stage (required)")
	reason := fs.String("reason", "", "Reason recorded with the progression")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}
	if *stage == "" {
		return fmt.Errorf("--stage is required")
	}

	contactID, err := uuid.Parse(fs.Args()[0])
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}

	contact, err := newLifecycleEngine(database).Progress(contactID, *stage, *reason)
	if err != nil {
		return fmt.Errorf("failed to progress contact: %w", err)
	}

	fmt.Printf("✓ Contact progressed: %s → %s (%s)\n",
		contact.Name, contact.LifecycleStage, contact.Status)
	return nil
}

// NextActionsCommand prints recommended follow-ups for a contact.
func NextActionsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("next-actions", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contactID, err := uuid.Parse(fs.Args()[0])
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}

	actions, err := newLifecycleEngine(database).NextActions(contactID)
	if err != nil {
		return fmt.Errorf("failed to compute next actions: %w", err)
	}

	if len(actions) == 0 {
		fmt.Println("No recommended actions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ACTION\tPRIORITY\tREASON")
	_, _ = fmt.Fprintln(w, "------\t--------\t------")
	for _, action := range actions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", action.Type, action.Priority, action.Reason)
	}
	_ = w.Flush()

	return nil
}
