/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Users:     UserDTO
  Agenda:    AgendaEntryDTO (keyed by visit id in responses)
  Visits:    VisitDTO, UpdateVisitRequest
  Forms:     FormDTO, FieldDTO, FormsRepsDTO
  Builders:  BuilderDTO, CreateBuilderRequest
  Periods:   PeriodDTO

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - forms/resolver.go: the Result FormsRepsDTO flattens
*/
package api

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope. Errors carries the full
// aggregated violation list when a validation fails on several
// invariants at once.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	Active   bool    `json:"active"`
	Cats     []int64 `json:"cats,omitempty"`
}

// =============================================================================
// AGENDA AND VISITS
// =============================================================================

// AgendaEntryDTO is one agenda cell. Responses key these by visit id.
type AgendaEntryDTO struct {
	ID          int64  `json:"id"`
	Full        string `json:"full"`
	At          string `json:"at"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Node        int64  `json:"node"`
	NodeName    string `json:"node_name"`
	Loc         int64  `json:"loc"`
	LocName     string `json:"loc_name"`
}

// VisitDTO represents a visit in API responses.
type VisitDTO struct {
	ID           int64  `json:"id"`
	Node         int64  `json:"node"`
	Loc          int64  `json:"loc"`
	At           string `json:"at"`
	Status       string `json:"status"`
	StatusLabel  string `json:"status_label"`
	Accompanied  bool   `json:"accompanied"`
	Observations string `json:"observations"`
	Rec          string `json:"rec,omitempty"`
	Syscode      string `json:"syscode,omitempty"`
}

// UpdateVisitRequest is a partial visit update. Nil fields are left
// untouched; Rec is merged key-by-key onto the stored record blob.
type UpdateVisitRequest struct {
	Status       *string        `json:"status,omitempty"`
	Accompanied  *bool          `json:"accompanied,omitempty"`
	Observations *string        `json:"observations,omitempty"`
	At           *string        `json:"at,omitempty"`
	Rec          map[string]any `json:"rec,omitempty"`
}

// =============================================================================
// FORMS
// =============================================================================

// FormDTO represents a form in API responses.
type FormDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Scope       string `json:"scope"`
	Description string `json:"description,omitempty"`
	Expandable  bool   `json:"expandable"`
	Order       int    `json:"order"`
	Active      bool   `json:"active"`
}

// OptionDTO is one selectable field choice.
type OptionDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDTO represents a form field with its derived options.
type FieldDTO struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        string      `json:"type"`
	Widget      string      `json:"widget"`
	Default     string      `json:"default,omitempty"`
	Required    bool        `json:"required"`
	Order       int         `json:"order"`
	Options     []OptionDTO `json:"options,omitempty"`
}

// FormsRepsDTO flattens a resolver result. Forms lists form ids whose
// report-item union was empty; Reps is keyed form -> item ids for user
// resolutions and item -> form ids for visit resolutions.
type FormsRepsDTO struct {
	Forms []int64           `json:"forms"`
	Reps  map[int64][]int64 `json:"reps"`
}

// =============================================================================
// BUILDERS
// =============================================================================

// BuilderDTO represents a visit builder in API responses.
type BuilderDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	State        string `json:"state"`
	Qty          int    `json:"qty"`
	Node         int64  `json:"node"`
	EveryHours   int    `json:"every_hours"`
	EveryMinutes int    `json:"every_minutes"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// CreateBuilderRequest describes one generation run. Exactly one of
// PeriodID or the Start/End pair must be set; LocID is where every
// generated visit is placed.
type CreateBuilderRequest struct {
	Name         string `json:"name"`
	Node         int64  `json:"node"`
	WeekID       int64  `json:"week_id"`
	LocID        int64  `json:"loc_id"`
	EveryHours   int    `json:"every_hours"`
	EveryMinutes int    `json:"every_minutes"`
	PeriodID     int64  `json:"period_id,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Syscode      string `json:"syscode,omitempty"`

	UserCats  []int64 `json:"usercats,omitempty"`
	LocCats   []int64 `json:"loccats,omitempty"`
	Regions   []int64 `json:"regions,omitempty"`
	Cities    []int64 `json:"cities,omitempty"`
	States    []int64 `json:"states,omitempty"`
	Countries []int64 `json:"countries,omitempty"`
	Zips      []int64 `json:"zips,omitempty"`
	Bricks    []int64 `json:"bricks,omitempty"`
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodDTO represents a period with its implied range.
type PeriodDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}
