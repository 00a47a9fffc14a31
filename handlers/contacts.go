// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact, progress_contact, and suggest_next_actions tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	db        *sql.DB
	lifecycle *engine.LifecycleProgressionEngine
}

func NewContactHandlers(database *sql.DB) *ContactHandlers {
	store := db.NewStore(database)
	return &ContactHandlers{
		db:        database,
		lifecycle: engine.NewLifecycleProgressionEngine(store, store),
	}
}

type AddContactInput struct {
	Name           string `json:"name" jsonschema:"Contact name (required)"`
	Email          string `json:"email,omitempty" jsonschema:"Email address"`
	Phone          string `json:"phone,omitempty" jsonschema:"Phone number"`
	LifecycleStage string `json:"lifecycle_stage,omitempty" jsonschema:"Initial lifecycle stage (default subscriber)"`
	Notes          string `json:"notes,omitempty" jsonschema:"Notes about the contact"`
}

type ContactOutput struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	LifecycleStage  string  `json:"lifecycle_stage"`
	Status          string  `json:"status"`
	LastContactedAt *string `json:"last_contacted_at,omitempty"`
}

func (h *ContactHandlers) AddContact(_ context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	if input.Name == "" {
		return nil, ContactOutput{}, fmt.Errorf("name is required")
	}
	if input.LifecycleStage != "" && !models.ValidLifecycleStage(input.LifecycleStage) {
		return nil, ContactOutput{}, fmt.Errorf("unknown lifecycle stage: %s", input.LifecycleStage)
	}

	contact := &models.Contact{
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		LifecycleStage: input.LifecycleStage,
		Notes:          input.Notes,
	}

	if err := db.CreateContact(h.db, contact); err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to create contact: %w", err)
	}

	return nil, contactToOutput(contact), nil
}

type ProgressContactInput struct {
	ContactID   string `json:"contact_id" jsonschema:"Contact ID (required)"`
	TargetStage string `json:"target_stage" jsonschema:"Target lifecycle stage (required)"`
	Reason      string `json:"reason,omitempty" jsonschema:"Free-text reason recorded with the progression"`
}

func (h *ContactHandlers) ProgressContact(_ context.Context, request *mcp.CallToolRequest, input ProgressContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	if input.ContactID == "" {
		return nil, ContactOutput{}, fmt.Errorf("contact_id is required")
	}
	if input.TargetStage == "" {
		return nil, ContactOutput{}, fmt.Errorf("target_stage is required")
	}

	contactID, err := uuid.Parse(input.ContactID)
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("invalid contact_id: %w", err)
	}

	contact, err := h.lifecycle.Progress(contactID, input.TargetStage, input.Reason)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	return nil, contactToOutput(contact), nil
}

type SuggestNextActionsInput struct {
	ContactID string `json:"contact_id" jsonschema:"Contact ID (required)"`
}

type NextActionOutput struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

type SuggestNextActionsOutput struct {
	Actions []NextActionOutput `json:"actions"`
}

func (h *ContactHandlers) SuggestNextActions(_ context.Context, request *mcp.CallToolRequest, input SuggestNextActionsInput) (*mcp.CallToolResult, SuggestNextActionsOutput, error) {
	if input.ContactID == "" {
		return nil, SuggestNextActionsOutput{}, fmt.Errorf("contact_id is required")
	}

	contactID, err := uuid.Parse(input.ContactID)
	if err != nil {
		return nil, SuggestNextActionsOutput{}, fmt.Errorf("invalid contact_id: %w", err)
	}

	actions, err := h.lifecycle.NextActions(contactID)
	if err != nil {
		return nil, SuggestNextActionsOutput{}, err
	}

	output := SuggestNextActionsOutput{}
	for _, a := range actions {
		output.Actions = append(output.Actions, NextActionOutput{
			Type:     a.Type,
			Priority: a.Priority,
			Reason:   a.Reason,
		})
	}

	return nil, output, nil
}

type FindContactsInput struct {
	Query          string `json:"query,omitempty" jsonschema:"Search by name or email"`
	LifecycleStage string `json:"lifecycle_stage,omitempty" jsonschema:"Filter by lifecycle stage"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Max results (default 50)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Count    int             `json:"count"`
}

func (h *ContactHandlers) FindContacts(_ context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	contacts, err := db.FindContacts(h.db, input.Query, input.LifecycleStage, input.Limit)
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	output := FindContactsOutput{Count: len(contacts)}
	for i := range contacts {
		output.Contacts = append(output.Contacts, contactToOutput(&contacts[i]))
	}

	return nil, output, nil
}

func contactToOutput(contact *models.Contact) ContactOutput {
	output := ContactOutput{
		ID:             contact.ID.String(),
		Name:           contact.Name,
		Email:          contact.Email,
		Phone:          contact.Phone,
		LifecycleStage: contact.LifecycleStage,
		Status:         contact.Status,
	}

	if contact.LastContactedAt != nil {
		lca := contact.LastContactedAt.Format(time.RFC3339)
		output.LastContactedAt = &lca
	}

	return output
}
