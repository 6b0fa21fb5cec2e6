package models

// Built-in CRM entity type tags.
const (
	EntityAccount     = "Account"
	EntityContact     = "Contact"
	EntityLead        = "Lead"
	EntityOpportunity = "Opportunity"
	EntityTask        = "Task"
)

// Opportunity stage values.
const (
	StageProspecting      = "prospecting"
	StageQualification    = "qualification"
	StageNeedsAnalysis    = "needs_analysis"
	StageValueProposition = "value_proposition"
	StageNegotiation      = "negotiation"
	StageClosedWon        = "closed_won"
	StageClosedLost       = "closed_lost"
)

// Task status and priority values.
const (
	TaskStatusNotStarted = "not_started"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusDeferred   = "deferred"

	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

func fieldSet(names ...string) map[string]struct{} {
	fields := make(map[string]struct{}, len(names))
	for _, name := range names {
		fields[name] = struct{}{}
	}

	return fields
}

// DefaultEntityRegistry returns a registry with the built-in CRM entity
// schemas. Deployments extend these with custom fields before wiring the
// engines.
func DefaultEntityRegistry() *EntityRegistry {
	registry := NewEntityRegistry()

	registry.Register(&EntitySchema{
		Name: EntityAccount,
		Fields: fieldSet(
			"name", "phone", "website", "industry", "annual_revenue",
			"description", "billing_address", "shipping_address",
		),
	})

	registry.Register(&EntitySchema{
		Name: EntityContact,
		Fields: fieldSet(
			"account_id", "first_name", "last_name", "email", "phone",
			"title", "department", "mailing_address",
		),
	})

	registry.Register(&EntitySchema{
		Name: EntityLead,
		Fields: fieldSet(
			"first_name", "last_name", "email", "company", "title",
			"phone", "status", "source", "description",
		),
	})

	registry.Register(&EntitySchema{
		Name: EntityOpportunity,
		Fields: fieldSet(
			"name", "account_id", "amount", "stage", "close_date",
			"probability", "description",
		),
	})

	registry.Register(&EntitySchema{
		Name: EntityTask,
		Fields: fieldSet(
			"subject", "due_date", "status", "priority", "description",
			"related_to_type", "related_to_id",
		),
	})

	return registry
}
