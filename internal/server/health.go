package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/price-relay/internal/version"
)

const healthCheckTimeout = 2 * time.Second

type streamHealth struct {
	Enabled bool   `json:"enabled"`
	State   string `json:"state"`
	Clients int    `json:"clients"`
	Symbols int    `json:"symbols"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components healthComponents  `json:"components"`
	Build      map[string]string `json:"build"`
}

type healthComponents struct {
	Stream   streamHealth `json:"stream"`
	Database string       `json:"database"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Portfolio API"})
}

// handleHealth reports "degraded" when a configured database fails its
// ping. A disabled stream is not a fault.
func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status: "ok",
		Build:  version.Info(),
	}

	if s.deps.Engine != nil {
		st := s.deps.Engine.Stats()
		resp.Components.Stream = streamHealth{
			Enabled: st.Enabled,
			State:   st.Upstream.State,
			Clients: st.Clients,
			Symbols: st.ActiveSymbols,
		}
	}

	resp.Components.Database = "disabled"
	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.deps.Database.Ping(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Components.Database = "error"
			resp.Status = "degraded"
		} else {
			resp.Components.Database = "ok"
		}
	}

	c.JSON(http.StatusOK, resp)
}
