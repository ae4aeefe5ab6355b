package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/query"
)

// Handler holds API route handlers.
type Handler struct {
	svc *journal.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc}
}

// ListRecords handles GET /records.
//
//	@Summary		List records of the current selection or of an explicit query
//	@Tags			records
//	@Produce		json
//	@Param			q			query		string	false	"Text to search in title and notes"
//	@Param			date		query		string	false	"Day (YYYY-MM-DD)"
//	@Param			quality		query		int		false	"Quality ordinal"	Enums(0, 1, 2)
//	@Param			mealtime	query		string	false	"Mealtime"
//	@Param			tag			query		string	false	"Tag id"
//	@Param			newest		query		bool	false	"Newest first"
//	@Success		200			{object}	RecordListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q, explicit, err := h.queryFromURL(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var records []models.MealRecord
	if explicit {
		records = h.svc.Search(r.Context(), q)
	} else {
		records = h.svc.Fetch(r.Context())
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: records, Total: len(records)})
}

// CountRecords handles GET /records/count.
//
//	@Summary		Count records of the current selection or of an explicit query
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Security		BearerAuth
//	@Router			/records/count [get]
func (h *Handler) CountRecords(w http.ResponseWriter, r *http.Request) {
	q, explicit, err := h.queryFromURL(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var n int
	if explicit {
		n = h.svc.CountQuery(r.Context(), q)
	} else {
		n = h.svc.Count(r.Context())
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// queryFromURL compiles the query parameters. explicit is false when none
// are given and the current selection applies.
func (h *Handler) queryFromURL(r *http.Request) (query.Query, bool, error) {
	v := r.URL.Query()
	if !v.Has("q") && !v.Has("date") && !v.Has("quality") && !v.Has("mealtime") && !v.Has("tag") && !v.Has("newest") {
		return query.Query{}, false, nil
	}

	c := journal.Criteria{Text: v.Get("q"), NewestFirst: true}
	if s := v.Get("quality"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return query.Query{}, false, errors.New("quality must be a number")
		}
		qual, err := models.ParseQuality(n)
		if err != nil {
			return query.Query{}, false, err
		}
		c.Quality = &qual
	}
	if s := v.Get("mealtime"); s != "" {
		m, err := models.ParseMealtime(s)
		if err != nil {
			return query.Query{}, false, err
		}
		c.Mealtime = &m
	}
	if s := v.Get("tag"); s != "" {
		c.TagID = &s
	}
	if s := v.Get("date"); s != "" {
		day, err := parseDay(s)
		if err != nil {
			return query.Query{}, false, errors.New("date must be YYYY-MM-DD")
		}
		c.Date = &day
	}
	if s := v.Get("newest"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return query.Query{}, false, errors.New("newest must be a boolean")
		}
		c.NewestFirst = b
	}
	return c.Query(), true, nil
}

// CreateRecord handles POST /records.
//
//	@Summary		Create a record with default fields
//	@Description	Answers 402 with upgrade=true once the free record limit is used up.
//	@Tags			records
//	@Produce		json
//	@Success		201	{object}	models.MealRecord
//	@Failure		402	{object}	UpgradeResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := h.svc.CreateRecord(r.Context())
	if err != nil {
		writeError(w, "create record", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusPaymentRequired, UpgradeResponse{
			Upgrade: true,
			Limit:   h.svc.FreeLimit(),
			Used:    h.svc.UsageCount(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetRecord handles GET /records/{id}.
//
//	@Summary		Get a single record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	models.MealRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord handles PATCH /records/{id}.
//
//	@Summary		Edit a record
//	@Description	Edits are saved after a short delay; reads see them immediately.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Record id"
//	@Param			body	body		UpdateRecordRequest	true	"Fields to change"
//	@Success		200		{object}	models.MealRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [patch]
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := journal.Patch{Title: req.Title, Notes: req.Notes}
	if req.Quality != nil {
		q := models.Quality(*req.Quality)
		p.Quality = &q
	}
	if req.Mealtime != nil {
		m := models.Mealtime(*req.Mealtime)
		p.Mealtime = &m
	}
	rec, err := h.svc.UpdateRecord(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, "update record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /records/{id}.
//
//	@Summary		Delete a record
//	@Tags			records
//	@Param			id	path	string	true	"Record id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachTag handles POST /records/{id}/tags/{tagID}.
//
//	@Summary		Attach a tag to a record
//	@Tags			records
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			tagID	path		string	true	"Tag id"
//	@Success		200		{object}	models.MealRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/tags/{tagID} [post]
func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.AttachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, "attach tag", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DetachTag handles DELETE /records/{id}/tags/{tagID}.
//
//	@Summary		Detach a tag from a record
//	@Tags			records
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			tagID	path		string	true	"Tag id"
//	@Success		200		{object}	models.MealRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/tags/{tagID} [delete]
func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.DetachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, "detach tag", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListTags handles GET /tags.
//
//	@Summary		List tags, optionally grouped by category
//	@Tags			tags
//	@Produce		json
//	@Param			grouped	query	bool	false	"Group by category"
//	@Success		200
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		groups, err := h.svc.GroupedTags(r.Context())
		if err != nil {
			writeError(w, "group tags", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
		return
	}
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// CreateTag handles POST /tags.
//
//	@Summary		Create a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTagRequest	true	"Tag to create"
//	@Success		201		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	category := models.CategoryMine
	if req.Category != "" {
		category = models.ParseTagCategory(req.Category)
	}
	t, err := h.svc.CreateTag(r.Context(), req.Name, category)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// CreateDefaultTags handles POST /tags/defaults.
//
//	@Summary		Create the default tag set of a built-in category
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body	DefaultTagsRequest	true	"Category"
//	@Success		201
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/defaults [post]
func (h *Handler) CreateDefaultTags(w http.ResponseWriter, r *http.Request) {
	var req DefaultTagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tags, err := h.svc.CreateDefaultTags(r.Context(), models.ParseTagCategory(req.Category))
	if err != nil {
		writeError(w, "create default tags", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tags": tags})
}

// DeleteTag handles DELETE /tags/{id}.
//
//	@Summary		Delete a tag and unlink it from every record
//	@Tags			tags
//	@Param			id	path	string	true	"Tag id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{id} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Presets handles GET /filters/presets.
//
//	@Summary		List the canned filters
//	@Tags			filters
//	@Produce		json
//	@Success		200	{object}	PresetsResponse
//	@Security		BearerAuth
//	@Router			/filters/presets [get]
func (h *Handler) Presets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PresetsResponse{Filters: h.svc.Presets().List()})
}

// GetSelection handles GET /selection.
//
//	@Summary		Get the browsing state
//	@Tags			filters
//	@Produce		json
//	@Success		200	{object}	journal.Selection
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Selection())
}

// UpdateSelection handles PUT /selection.
//
//	@Summary		Change the browsing state
//	@Tags			filters
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Changes"
//	@Success		200		{object}	journal.Selection
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.PresetID != nil:
		f, ok := findPreset(h.svc.Presets(), *req.PresetID)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody("unknown preset"))
			return
		}
		h.svc.SetFilter(f)
	case req.hasConstraints():
		f := filter.New("Custom", "line.3.horizontal.decrease")
		if req.Quality != nil {
			f.Quality = models.Quality(*req.Quality)
		}
		if req.Mealtime != nil {
			m := models.Mealtime(*req.Mealtime)
			f.Mealtime = &m
		}
		f.TagID = req.TagID
		h.svc.SetFilter(f)
	}

	if req.Date != nil {
		day, err := parseDay(*req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
		h.svc.SelectDate(&day)
	} else if req.ClearDate {
		h.svc.SelectDate(nil)
	}
	if req.NewestFirst != nil {
		h.svc.SetNewestFirst(*req.NewestFirst)
	}
	if req.Text != nil {
		h.svc.SetText(*req.Text)
	}
	writeJSON(w, http.StatusOK, h.svc.Selection())
}

func findPreset(p filter.Presets, id string) (filter.Filter, bool) {
	for _, f := range p.List() {
		if f.ID.String() == id {
			return f, true
		}
	}
	return filter.Filter{}, false
}

// CheckAward handles POST /awards/check.
//
//	@Summary		Report the next award earned but not yet shown
//	@Tags			awards
//	@Produce		json
//	@Success		200	{object}	AwardCheckResponse
//	@Security		BearerAuth
//	@Router			/awards/check [post]
func (h *Handler) CheckAward(w http.ResponseWriter, r *http.Request) {
	d, ok := h.svc.CheckForNewlyEarnedAward(r.Context())
	resp := AwardCheckResponse{Earned: ok}
	if ok {
		resp.Award = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAwards handles GET /awards.
//
//	@Summary		List every award with its state
//	@Tags			awards
//	@Produce		json
//	@Success		200	{object}	AwardListResponse
//	@Security		BearerAuth
//	@Router			/awards [get]
func (h *Handler) ListAwards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AwardListResponse{
		Awards: h.svc.AwardProgress(r.Context()),
		Count:  h.svc.UsageCount(r.Context()),
	})
}
