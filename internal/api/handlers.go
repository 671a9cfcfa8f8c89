package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medley-app/medley/internal/completeness"
	"github.com/medley-app/medley/internal/jobs"
	"github.com/medley-app/medley/internal/media"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleGetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, s.queue.GetState())
}

func (s *Server) handleEnqueue(c echo.Context) error {
	var spec jobs.Spec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job spec")
	}

	job, err := s.queue.Enqueue(spec)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleCancelCurrent(c echo.Context) error {
	if err := s.queue.CancelCurrent(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handlePause(c echo.Context) error {
	s.queue.Pause()
	return c.JSON(http.StatusOK, s.queue.GetState())
}

func (s *Server) handleResume(c echo.Context) error {
	s.queue.Resume()
	return c.JSON(http.StatusOK, s.queue.GetState())
}

func (s *Server) handleListSources(c echo.Context) error {
	sources, err := s.store.ListSources(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) handleCreateSource(c echo.Context) error {
	var source media.Source
	if err := c.Bind(&source); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid source")
	}
	if source.Kind == "" || source.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "kind and name are required")
	}

	id, err := s.store.CreateSource(c.Request().Context(), &source)
	if err != nil {
		return err
	}
	source.ID = id
	return c.JSON(http.StatusCreated, source)
}

func (s *Server) handleDeleteSource(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid source id")
	}
	if err := s.store.DeleteSource(c.Request().Context(), id); err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "source not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSourceStats(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid source id")
	}
	stats, err := s.store.Stats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListItems(c echo.Context) error {
	filter := media.ItemFilter{
		Type:        media.MediaType(c.QueryParam("type")),
		SeriesTitle: c.QueryParam("seriesTitle"),
	}
	if v := c.QueryParam("sourceId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid sourceId")
		}
		filter.SourceID = id
	}
	if v := c.QueryParam("tmdbId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid tmdbId")
		}
		filter.TMDBID = id
	}

	items, err := s.store.ListItems(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// handleListCompleteness returns stored reports. Missing entries the user
// has dismissed are dropped from each report's missing list; the reports
// and their percentages always stay visible. Passing includeExcluded=true
// shows the dismissed entries too.
func (s *Server) handleListCompleteness(c echo.Context) error {
	ctx := c.Request().Context()
	filter := completeness.RecordFilter{
		EntityType: c.QueryParam("entityType"),
		Status:     completeness.Status(c.QueryParam("status")),
	}

	if c.QueryParam("includeExcluded") != "true" {
		excluded, err := s.store.ListAllExclusions(ctx)
		if err != nil {
			return err
		}
		filter.Excluded = excluded
	}

	reports, err := s.records.List(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) handleGetCompleteness(c echo.Context) error {
	ctx := c.Request().Context()
	entityType := c.Param("entityType")
	report, err := s.records.Get(ctx, entityType, c.Param("key"))
	if err != nil {
		if errors.Is(err, completeness.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no report for entity")
		}
		return err
	}

	if c.QueryParam("includeExcluded") != "true" {
		excluded, err := s.store.ListExclusions(ctx, entityType)
		if err != nil {
			return err
		}
		report.FilterExcluded(excluded)
	}
	return c.JSON(http.StatusOK, report)
}

type exclusionRequest struct {
	EntityType string `json:"entityType"`
	CatalogKey string `json:"catalogKey"`
}

func (s *Server) handleAddExclusion(c echo.Context) error {
	var req exclusionRequest
	if err := c.Bind(&req); err != nil || req.EntityType == "" || req.CatalogKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entityType and catalogKey are required")
	}
	if err := s.store.AddExclusion(c.Request().Context(), req.EntityType, req.CatalogKey); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveExclusion(c echo.Context) error {
	var req exclusionRequest
	if err := c.Bind(&req); err != nil || req.EntityType == "" || req.CatalogKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entityType and catalogKey are required")
	}
	if err := s.store.RemoveExclusion(c.Request().Context(), req.EntityType, req.CatalogKey); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scheduler.ListTasks())
}

func (s *Server) handleRunTask(c echo.Context) error {
	if err := s.scheduler.RunNow(c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
