package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rickgao/price-relay/internal/holdings"
	"github.com/rickgao/price-relay/internal/model"
)

const msgHoldingsDisabled = "holdings database not configured"

func (s *Server) holdingsStore(c *gin.Context) (holdings.Store, bool) {
	if s.deps.Holdings == nil {
		abortError(c, http.StatusServiceUnavailable, msgHoldingsDisabled)
		return nil, false
	}
	return s.deps.Holdings, true
}

func parseUUID(c *gin.Context, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		abortError(c, http.StatusBadRequest, "invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

func bindHolding(c *gin.Context) (model.HoldingInput, bool) {
	var in model.HoldingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return in, false
	}
	in, err := holdings.Validate(in)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

// holdingError maps store errors to responses.
func (s *Server) holdingError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, holdings.ErrNotFound):
		abortError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, holdings.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("holdings request failed", "op", op, "error", err)
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleListHoldings(c *gin.Context) {
	store, ok := s.holdingsStore(c)
	if !ok {
		return
	}
	userID, ok := parseUUID(c, c.Query("user_id"), "user_id")
	if !ok {
		return
	}

	list, err := store.List(c.Request.Context(), userID)
	if err != nil {
		s.holdingError(c, "list", err)
		return
	}
	if list == nil {
		list = []model.Holding{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateHolding(c *gin.Context) {
	store, ok := s.holdingsStore(c)
	if !ok {
		return
	}
	userID, ok := parseUUID(c, c.Query("user_id"), "user_id")
	if !ok {
		return
	}
	in, ok := bindHolding(c)
	if !ok {
		return
	}

	h, err := store.Create(c.Request.Context(), userID, in)
	if err != nil {
		s.holdingError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) handleGetHolding(c *gin.Context) {
	store, ok := s.holdingsStore(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, c.Param("id"), "id")
	if !ok {
		return
	}

	h, err := store.Get(c.Request.Context(), id)
	if err != nil {
		s.holdingError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleUpdateHolding(c *gin.Context) {
	store, ok := s.holdingsStore(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, c.Param("id"), "id")
	if !ok {
		return
	}
	in, ok := bindHolding(c)
	if !ok {
		return
	}

	h, err := store.Update(c.Request.Context(), id, in)
	if err != nil {
		s.holdingError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleDeleteHolding(c *gin.Context) {
	store, ok := s.holdingsStore(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, c.Param("id"), "id")
	if !ok {
		return
	}

	if err := store.Delete(c.Request.Context(), id); err != nil {
		s.holdingError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
