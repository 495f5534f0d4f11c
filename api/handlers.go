/*
handlers.go - HTTP API handlers for the field-operations engine

PURPOSE:
  Exposes the eligibility resolver, the visit agenda, and builder
  generation via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                  List all users
    GET    /api/users/{id}             Get user details
    GET    /api/users/{id}/forms       Resolve applicable forms/reps

  Visits:
    GET    /api/agenda                 Agenda window, keyed by visit id
    GET    /api/visits/{id}            Get visit details
    PUT    /api/visits/{id}            Partial update (rec merged)
    GET    /api/visits/{id}/forms      Resolve applicable forms/reps

  Forms:
    GET    /api/forms                  List forms
    GET    /api/forms/{id}/fields      Fields with derived options

  Builders:
    GET    /api/builders               List builders
    POST   /api/builders               Create and generate (one shot)
    GET    /api/builders/{id}          Get builder details
    DELETE /api/builders/{id}          Refused once generated

  Periods:
    GET    /api/periods                Periods with implied ranges

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Cached catalog, form list and period chain, reloaded after
    administrative writes (Reload)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (resolver, generator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input (full violation list)
  - 404: Resource not found
  - 409: Conflict (uniqueness, regeneration attempts)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo data loader
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/forms"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/schedule"
	"github.com/warp/field-engine/store/sqlite"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Logger *zap.Logger

	// Read-side caches; swapped wholesale by Reload.
	mu    sync.RWMutex
	cat   *catalog.Catalog
	forms []forms.Form
	chain *schedule.Chain
}

// NewHandler creates a handler over the given store. Logger may be nil.
func NewHandler(store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Logger: logger,
		cat:    catalog.New(),
		chain:  schedule.NewChain(),
	}
}

// Reload hydrates the catalog, form list and period chain from the
// store. Called on startup and after administrative writes.
func (h *Handler) Reload(ctx context.Context) error {
	cat, err := h.Store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	formList, err := h.Store.ListForms(ctx)
	if err != nil {
		return err
	}
	chain, err := h.Store.LoadChain(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.cat, h.forms, h.chain = cat, formList, chain
	h.mu.Unlock()
	return nil
}

// snapshot returns a consistent view of the read-side caches.
func (h *Handler) snapshot() (*catalog.Catalog, []forms.Form, *schedule.Chain) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cat, h.forms, h.chain
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users ordered by name.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	cat, _, _ := h.snapshot()

	dtos := make([]UserDTO, 0, len(cat.Users))
	for _, u := range cat.Users {
		dtos = append(dtos, userDTO(u))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].ID < dtos[j].ID })
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	cat, _, _ := h.snapshot()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id", err)
		return
	}
	u, ok := cat.Users[catalog.UserID(id)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, userDTO(u))
}

// UserForms resolves the forms and report items applicable to a user.
func (h *Handler) UserForms(w http.ResponseWriter, r *http.Request) {
	cat, formList, _ := h.snapshot()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id", err)
		return
	}

	q, err := forms.QueryForUser(cat, catalog.UserID(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found", err)
		return
	}
	resolver := &forms.Resolver{Catalog: cat, Forms: formList}
	res, err := resolver.FormsReps(q, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve forms", err)
		return
	}

	dto := FormsRepsDTO{Forms: []int64{}, Reps: map[int64][]int64{}}
	for _, f := range res.Forms {
		dto.Forms = append(dto.Forms, int64(f))
	}
	for formID, items := range res.UserReps {
		for _, item := range items {
			dto.Reps[int64(formID)] = append(dto.Reps[int64(formID)], int64(item))
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// AGENDA AND VISIT HANDLERS
// =============================================================================

// Agenda returns the visit agenda for a window, keyed by visit id.
// Query parameters: node (optional), from, to (YYYY-MM-DD; default is
// a five-week window around today).
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	cat, _, _ := h.snapshot()

	now := time.Now().UTC()
	from := schedule.DayOf(now).AddDate(0, 0, -7)
	to := schedule.DayOf(now).AddDate(0, 0, 28)
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
	}
	var node tree.ID
	if s := r.URL.Query().Get("node"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid node id", err)
			return
		}
		node = tree.ID(n)
	}

	visits, err := h.Store.ListVisits(r.Context(), node, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list visits", err)
		return
	}

	agenda := make(map[string]AgendaEntryDTO, len(visits))
	for _, v := range visits {
		agenda[strconv.FormatInt(int64(v.ID), 10)] = h.agendaEntry(cat, v)
	}
	writeJSON(w, http.StatusOK, agenda)
}

func (h *Handler) agendaEntry(cat *catalog.Catalog, v schedule.ForceVisit) AgendaEntryDTO {
	nodeName := ""
	if n, ok := cat.Nodes[v.Node]; ok {
		nodeName = n.Name
	}
	locName := ""
	if l, ok := cat.Locs[v.Loc]; ok {
		locName = l.Name
	}
	return AgendaEntryDTO{
		ID:          int64(v.ID),
		Full:        v.At.Format("2006-01-02 15:04") + " " + nodeName + " / " + locName,
		At:          v.At.Format(time.RFC3339),
		Status:      string(v.Status),
		StatusLabel: v.Status.Label(),
		Node:        int64(v.Node),
		NodeName:    nodeName,
		Loc:         int64(v.Loc),
		LocName:     locName,
	}
}

// GetVisit returns a single visit.
func (h *Handler) GetVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid visit id", err)
		return
	}
	v, err := h.Store.GetVisit(r.Context(), schedule.VisitID(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Visit not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get visit", err)
		return
	}
	writeJSON(w, http.StatusOK, visitDTO(v))
}

// UpdateVisit applies a partial update. Every validation violation is
// collected and returned as one list; the stored row is only touched
// when the whole update is clean.
func (h *Handler) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid visit id", err)
		return
	}
	var req UpdateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	v, err := h.Store.GetVisit(r.Context(), schedule.VisitID(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Visit not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get visit", err)
		return
	}

	var violations []string
	if req.Status != nil {
		st := schedule.Status(*req.Status)
		if !st.Valid() {
			violations = append(violations, "invalid status "+strconv.Quote(*req.Status))
		} else {
			v.Status = st
		}
	}
	if req.At != nil {
		at, err := time.Parse(time.RFC3339, *req.At)
		if err != nil {
			violations = append(violations, "invalid at timestamp")
		} else {
			v.At = at.UTC()
		}
	}
	if req.Accompanied != nil {
		v.Accompanied = *req.Accompanied
	}
	if req.Observations != nil {
		v.Observations = *req.Observations
	}
	if req.Rec != nil {
		if err := v.MergeRec(req.Rec); err != nil {
			violations = append(violations, err.Error())
		}
	}
	if len(violations) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Errors: violations,
		})
		return
	}

	if err := h.Store.UpdateVisit(r.Context(), v); err != nil {
		writeStoreError(w, "Failed to update visit", err)
		return
	}
	writeJSON(w, http.StatusOK, visitDTO(v))
}

// VisitForms resolves the forms and report items applicable to a visit.
func (h *Handler) VisitForms(w http.ResponseWriter, r *http.Request) {
	cat, formList, _ := h.snapshot()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid visit id", err)
		return
	}
	v, err := h.Store.GetVisit(r.Context(), schedule.VisitID(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Visit not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get visit", err)
		return
	}

	q, err := forms.QueryForVisit(cat, v.Node, v.Loc)
	if err != nil {
		writeError(w, http.StatusNotFound, "Visit references unknown entities", err)
		return
	}
	resolver := &forms.Resolver{Catalog: cat, Forms: formList}
	res, err := resolver.FormsReps(nil, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve forms", err)
		return
	}

	dto := FormsRepsDTO{Forms: []int64{}, Reps: map[int64][]int64{}}
	for _, f := range res.Forms {
		dto.Forms = append(dto.Forms, int64(f))
	}
	for item, formIDs := range res.VisitReps {
		for _, f := range formIDs {
			dto.Reps[int64(item)] = append(dto.Reps[int64(item)], int64(f))
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// FORM HANDLERS
// =============================================================================

// ListForms returns all form definitions with their current
// validity-window state.
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	_, formList, _ := h.snapshot()
	now := time.Now().UTC()
	dtos := make([]FormDTO, 0, len(formList))
	for _, f := range formList {
		dtos = append(dtos, FormDTO{
			ID:          int64(f.ID),
			Name:        f.Name,
			Scope:       string(f.Scope),
			Description: f.Description,
			Expandable:  f.Expandable,
			Order:       f.Order,
			Active:      f.ActiveAt(now),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListFormFields returns a form's fields with options derived against
// the generic category tree.
func (h *Handler) ListFormFields(w http.ResponseWriter, r *http.Request) {
	cat, _, _ := h.snapshot()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form id", err)
		return
	}

	fields, err := h.Store.ListFields(r.Context(), forms.FormID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fields", err)
		return
	}

	dtos := make([]FieldDTO, 0, len(fields))
	for _, f := range fields {
		dto := FieldDTO{
			ID:          int64(f.ID),
			Name:        f.Name,
			Description: f.Description,
			Type:        string(f.Type),
			Widget:      string(f.Widget),
			Default:     f.Default,
			Required:    f.Required,
			Order:       f.Order,
		}
		for _, opt := range f.Options(cat.GenericCats) {
			dto.Options = append(dto.Options, OptionDTO{Value: opt.Value, Label: opt.Label})
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all periods with their implied date ranges.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	_, _, chain := h.snapshot()
	periods := chain.Periods()

	dtos := make([]PeriodDTO, 0, len(periods))
	for _, p := range periods {
		from, to := chain.RangeFor(p)
		dtos = append(dtos, PeriodDTO{
			ID:   int64(p.ID),
			Name: p.Name,
			From: from.Format("2006-01-02"),
			To:   to.Format("2006-01-02"),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BUILDER HANDLERS
// =============================================================================

// ListBuilders returns all builders, newest first.
func (h *Handler) ListBuilders(w http.ResponseWriter, r *http.Request) {
	builders, err := h.Store.ListBuilders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list builders", err)
		return
	}
	dtos := make([]BuilderDTO, 0, len(builders))
	for _, b := range builders {
		dtos = append(dtos, builderDTO(&b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBuilder returns a single builder.
func (h *Handler) GetBuilder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid builder id", err)
		return
	}
	b, err := h.Store.GetBuilder(r.Context(), schedule.BuilderID(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Builder not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get builder", err)
		return
	}
	writeJSON(w, http.StatusOK, builderDTO(b))
}

// CreateBuilder creates a builder and runs its one-shot generation.
// The builder row and every generated visit commit in one transaction;
// a validation failure produces no visits and no builder.
func (h *Handler) CreateBuilder(w http.ResponseWriter, r *http.Request) {
	_, _, chain := h.snapshot()

	var req CreateBuilderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b := &schedule.VisitBuilder{
		CreatedAt:    time.Now().UTC(),
		Name:         req.Name,
		Syscode:      req.Syscode,
		State:        schedule.StatePending,
		Node:         tree.ID(req.Node),
		EveryHours:   req.EveryHours,
		EveryMinutes: req.EveryMinutes,
		UserCats:     asTreeIDs(req.UserCats),
		LocCats:      asTreeIDs(req.LocCats),
		Regions:      asGeoIDs(req.Regions),
		Cities:       asGeoIDs(req.Cities),
		States:       asGeoIDs(req.States),
		Countries:    asGeoIDs(req.Countries),
		Zips:         asGeoIDs(req.Zips),
		Bricks:       asGeoIDs(req.Bricks),
	}

	week, err := h.Store.GetWeek(r.Context(), req.WeekID)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Unknown week configuration", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load week configuration", err)
		return
	}
	b.Week = week

	if req.PeriodID != 0 {
		p, err := h.Store.GetPeriod(r.Context(), schedule.PeriodID(req.PeriodID))
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Unknown period", nil)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load period", err)
			return
		}
		b.Period = &p
	}
	if req.Start != "" {
		start, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
			return
		}
		b.Start = &start
	}
	if req.End != "" {
		end, err := time.Parse("2006-01-02", req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
			return
		}
		b.End = &end
	}

	gen := schedule.Generator{
		Locs:   schedule.FixedLoc(req.LocID),
		Logger: h.Logger,
	}
	err = h.Store.WithTx(r.Context(), func(tx *sqlite.Store) error {
		gen.Sink = tx
		if _, err := gen.Generate(r.Context(), b, chain); err != nil {
			return err
		}
		return tx.InsertBuilder(r.Context(), b)
	})
	if err != nil {
		var verrs schedule.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			msgs := make([]string, len(verrs))
			for i, e := range verrs {
				msgs[i] = e.Error()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Errors: msgs,
			})
		case errors.Is(err, schedule.ErrAlreadyGenerated):
			writeError(w, http.StatusConflict, "Builder already generated", err)
		default:
			writeStoreError(w, "Failed to generate visits", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, builderDTO(b))
}

// DeleteBuilder refuses deletion of generated builders.
func (h *Handler) DeleteBuilder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid builder id", err)
		return
	}
	err = h.Store.DeleteBuilder(r.Context(), schedule.BuilderID(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Builder not found", nil)
		return
	}
	if errors.Is(err, sqlite.ErrBuilderImmutable) {
		writeError(w, http.StatusConflict, "Generated builders cannot be deleted", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete builder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ReloadCaches rebuilds the read-side caches from the store.
func (h *Handler) ReloadCaches(w http.ResponseWriter, r *http.Request) {
	if err := h.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": true})
}

// SeedDemo loads the demo dataset and reloads the caches.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := Seed(r.Context(), h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	if err := h.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seeded": true})
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func userDTO(u catalog.User) UserDTO {
	d := UserDTO{
		ID:       int64(u.ID),
		Email:    u.Email,
		Name:     u.Name(),
		FullName: u.FullName(),
		Active:   u.Active,
	}
	for _, c := range u.Cats {
		d.Cats = append(d.Cats, int64(c))
	}
	return d
}

func visitDTO(v schedule.ForceVisit) VisitDTO {
	return VisitDTO{
		ID:           int64(v.ID),
		Node:         int64(v.Node),
		Loc:          int64(v.Loc),
		At:           v.At.Format(time.RFC3339),
		Status:       string(v.Status),
		StatusLabel:  v.Status.Label(),
		Accompanied:  v.Accompanied,
		Observations: v.Observations,
		Rec:          v.Rec,
		Syscode:      v.Syscode,
	}
}

func builderDTO(b *schedule.VisitBuilder) BuilderDTO {
	d := BuilderDTO{
		ID:           int64(b.ID),
		Name:         b.Name,
		State:        string(b.State),
		Qty:          b.Qty,
		Node:         int64(b.Node),
		EveryHours:   b.EveryHours,
		EveryMinutes: b.EveryMinutes,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if b.Start != nil {
		d.Start = b.Start.Format("2006-01-02")
	}
	if b.End != nil {
		d.End = b.End.Format("2006-01-02")
	}
	return d
}

func asTreeIDs(ids []int64) []tree.ID {
	out := make([]tree.ID, len(ids))
	for i, id := range ids {
		out[i] = tree.ID(id)
	}
	return out
}

func asGeoIDs(ids []int64) []geo.ID {
	out := make([]geo.ID, len(ids))
	for i, id := range ids {
		out[i] = geo.ID(id)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store conditions to HTTP statuses; uniqueness
// violations surface with the generic conflict message.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotUnique):
		writeError(w, http.StatusConflict, "Not unique, invalid.", err)
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
