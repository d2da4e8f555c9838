package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/price-relay/internal/api"
	"github.com/rickgao/price-relay/internal/model"
)

const msgQuotesDisabled = "quote provider not configured"

func (s *Server) handleGetQuote(c *gin.Context) {
	if s.deps.Quotes == nil {
		abortError(c, http.StatusServiceUnavailable, msgQuotesDisabled)
		return
	}
	symbol := model.NormalizeSymbol(c.Query("symbol"))
	if symbol == "" {
		abortError(c, http.StatusBadRequest, "symbol is required")
		return
	}

	q, err := s.deps.Quotes.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		s.logger.Warn("quote fetch failed", "symbol", symbol, "error", err)
		abortError(c, http.StatusBadGateway, "Failed to fetch quote data")
		return
	}
	c.JSON(http.StatusOK, q)
}

// handleSearchSymbol returns at most the provider's best match.
func (s *Server) handleSearchSymbol(c *gin.Context) {
	if s.deps.Quotes == nil {
		abortError(c, http.StatusServiceUnavailable, msgQuotesDisabled)
		return
	}
	query := strings.TrimSpace(c.Param("symbol"))
	if query == "" {
		abortError(c, http.StatusBadRequest, "symbol is required")
		return
	}

	results, err := s.deps.Quotes.SearchSymbol(c.Request.Context(), query)
	if err != nil {
		s.logger.Warn("symbol search failed", "query", query, "error", err)
		abortError(c, http.StatusBadGateway, "Failed to search symbol")
		return
	}
	if len(results) > 1 {
		results = results[:1]
	}
	if results == nil {
		results = []api.SearchResult{}
	}
	c.JSON(http.StatusOK, results)
}
