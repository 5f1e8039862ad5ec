package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

const defaultPageSize = 20

// POST /api/reviews
// Body: {"content_type": "blog", "original_content": "...", "source": "slack", "source_reference": "..."}
// source defaults to manual.
// Answers 202 with the pending review; analysis runs in the background.
func (r *Router) handleSubmitReview(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ContentType     string `json:"content_type"`
		OriginalContent string `json:"original_content"`
		Source          string `json:"source"`
		SourceReference string `json:"source_reference"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	ct, err := middleware.ValidateContentType(body.ContentType)
	if err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateContent(body.OriginalContent); err != nil {
		return badRequest("%v", err)
	}

	rv, err := r.Reviews.Submit(req.Context(), currentUser(req), appreviews.NewReview{
		Content:         body.OriginalContent,
		ContentType:     ct,
		Source:          reviews.Source(strings.ToLower(strings.TrimSpace(body.Source))),
		SourceReference: strings.TrimSpace(body.SourceReference),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, rv)
}

// GET /api/reviews?page=&page_size=
func (r *Router) handleListReviews(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.QueryInt(req, "page", 1)
	if err != nil {
		return badRequest("%v", err)
	}
	size, err := middleware.QueryInt(req, "page_size", defaultPageSize)
	if err != nil {
		return badRequest("%v", err)
	}

	list, err := r.Reviews.List(req.Context(), currentUser(req), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/reviews/{id}
func (r *Router) handleGetReview(w http.ResponseWriter, req *http.Request) error {
	rv, err := r.Reviews.Get(req.Context(), currentUser(req), reviews.ID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rv)
}

// DELETE /api/reviews/{id}
func (r *Router) handleDeleteReview(w http.ResponseWriter, req *http.Request) error {
	if err := r.Reviews.Delete(req.Context(), currentUser(req), reviews.ID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /api/settings/guidelines
func (r *Router) handleGetGuidelines(w http.ResponseWriter, req *http.Request) error {
	g, err := r.Settings.Guidelines(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, g)
}

// PUT /api/settings/guidelines
func (r *Router) handleUpdateGuidelines(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Content *string `json:"content"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.Content == nil {
		return badRequest("content is required")
	}
	g, err := r.Settings.UpdateGuidelines(req.Context(), currentUser(req), *body.Content)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, g)
}

// GET /api/dashboard/stats
func (r *Router) handleDashboardStats(w http.ResponseWriter, req *http.Request) error {
	stats, err := r.Dashboard.Stats(req.Context(), currentUser(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stats)
}
