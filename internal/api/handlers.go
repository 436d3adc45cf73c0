package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/matchday/matchday/internal/autosearch"
)

func (s *Server) listEvents(c echo.Context) error {
	list, err := s.events.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) searchEvent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	result, err := s.autosearch.SearchEvent(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autosearch.ErrNoResults) {
			return c.JSON(http.StatusOK, result)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listQueue(c echo.Context) error {
	items, err := s.queue.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) indexerStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.statuses.All())
}

func (s *Server) rssSyncStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.rsssync.LastStatus())
}

func (s *Server) runRSSSync(c echo.Context) error {
	if err := s.rsssync.Run(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, s.rsssync.LastStatus())
}

func (s *Server) serveWebSocket(c echo.Context) error {
	return s.hub.HandleWebSocket(c)
}
