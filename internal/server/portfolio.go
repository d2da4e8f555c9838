package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/price-relay/internal/api"
	"github.com/rickgao/price-relay/internal/portfolio"
)

func (s *Server) handleAnalytics(c *gin.Context) {
	if s.deps.Analytics == nil {
		abortError(c, http.StatusServiceUnavailable, "portfolio analytics not configured")
		return
	}
	userID, ok := parseUUID(c, c.Query("user_id"), "user_id")
	if !ok {
		return
	}

	report, err := s.deps.Analytics.Analytics(c.Request.Context(), userID)
	if err != nil {
		var apiErr *api.APIError
		switch {
		case errors.Is(err, portfolio.ErrNoHoldings):
			abortError(c, http.StatusNotFound, "User not found or no holdings")
		case errors.As(err, &apiErr):
			abortError(c, http.StatusBadGateway, err.Error())
		default:
			s.logger.Error("analytics failed", "user_id", userID, "error", err)
			abortError(c, http.StatusInternalServerError, "failed to compute analytics")
		}
		return
	}
	c.JSON(http.StatusOK, report)
}
