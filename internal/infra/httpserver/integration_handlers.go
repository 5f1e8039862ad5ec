package httpserver

import (
	"net/http"

	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

var saved = map[string]string{"status": "saved"}

// POST /api/integrations/slack/config
func (r *Router) handleSlackConfig(w http.ResponseWriter, req *http.Request) error {
	var body integrations.SlackSettings
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := r.Integrations.SaveSlack(req.Context(), currentUser(req), body); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, saved)
}

// POST /api/integrations/notion/config
func (r *Router) handleNotionConfig(w http.ResponseWriter, req *http.Request) error {
	var body integrations.NotionSettings
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := r.Integrations.SaveNotion(req.Context(), currentUser(req), body); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, saved)
}

// GET /api/integrations/status
func (r *Router) handleIntegrationStatus(w http.ResponseWriter, req *http.Request) error {
	st, err := r.Integrations.Status(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}

// GET /api/integrations/slack/channels
func (r *Router) handleSlackChannels(w http.ResponseWriter, req *http.Request) error {
	list, err := r.Integrations.ListChannels(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/integrations/notion/databases
func (r *Router) handleNotionDatabases(w http.ResponseWriter, req *http.Request) error {
	list, err := r.Integrations.ListDatabases(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/integrations/slack/fetch?channel_id=&limit=
func (r *Router) handleSlackFetch(w http.ResponseWriter, req *http.Request) error {
	limit, err := middleware.QueryInt(req, "limit", 0)
	if err != nil {
		return badRequest("%v", err)
	}
	channelID := middleware.SanitizeString(req.URL.Query().Get("channel_id"))

	res, err := r.Integrations.FetchSlack(req.Context(), currentUser(req), channelID, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /api/integrations/notion/fetch?database_id=&content_type=&limit=
func (r *Router) handleNotionFetch(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	limit, err := middleware.QueryInt(req, "limit", 0)
	if err != nil {
		return badRequest("%v", err)
	}
	var ct reviews.ContentType
	if raw := q.Get("content_type"); raw != "" {
		if ct, err = middleware.ValidateContentType(raw); err != nil {
			return badRequest("%v", err)
		}
	}

	res, err := r.Integrations.FetchNotion(req.Context(), currentUser(req), middleware.SanitizeString(q.Get("database_id")), ct, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}
