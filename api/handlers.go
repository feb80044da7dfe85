package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pwb_feeds/feed"
)

type providerStatus struct {
	ID         string `json:"id"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Available  *bool  `json:"available,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
	CheckedAt  string `json:"checked_at,omitempty"`
}

func (s *Server) statuses() []providerStatus {
	latest := s.health.Latest()
	ids := s.feeds.ProviderIDs()
	out := make([]providerStatus, 0, len(ids))
	for _, id := range ids {
		p, err := s.feeds.Provider(id)
		if err != nil {
			continue
		}
		st := providerStatus{ID: id, Provider: string(p.Name()), Configured: p.Configured()}
		if check, ok := latest[id]; ok {
			available := check.Available
			st.Available = &available
			st.LatencyMS = check.Latency.Milliseconds()
			st.CheckedAt = check.CheckedAt.Format(time.RFC3339)
		}
		out = append(out, st)
	}
	return out
}

// handleHealth reports "degraded" when any probed account was unavailable
func (s *Server) handleHealth(c *gin.Context) {
	statuses := s.statuses()
	status := "ok"
	for _, st := range statuses {
		if st.Available != nil && !*st.Available {
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "providers": statuses})
}

func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.statuses()})
}

func (s *Server) handleSearch(c *gin.Context) {
	result, err := s.feeds.Search(c.Request.Context(), c.Param("id"), searchParams(c.Request.URL.Query()))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"properties":   result.Properties,
		"total_count":  result.TotalCount,
		"total_pages":  result.TotalPages(),
		"page":         result.Page,
		"per_page":     result.PerPage,
		"provider":     result.Provider,
		"query_params": result.QueryParams,
	})
}

func (s *Server) handleSearchAll(c *gin.Context) {
	results := s.feeds.SearchAll(c.Request.Context(), searchParams(c.Request.URL.Query()))
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleFind(c *gin.Context) {
	id, ref := c.Param("id"), c.Param("ref")
	prop, err := s.feeds.Find(c.Request.Context(), id, ref, findParams(c.Request.URL.Query()))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if prop == nil {
		abortWithError(c, feed.NewError(feed.ErrNotFound, id, "find", nil))
		return
	}
	c.JSON(http.StatusOK, prop)
}

func (s *Server) handleSimilar(c *gin.Context) {
	q := c.Request.URL.Query()
	similar, err := s.feeds.Similar(c.Request.Context(), c.Param("id"), c.Param("ref"), findParams(q), similarParams(q))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": similar})
}

func (s *Server) handleLocations(c *gin.Context) {
	options, err := s.feeds.Locations(c.Request.Context(), c.Param("id"), lookupParams(c.Request.URL.Query()))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": options})
}

func (s *Server) handlePropertyTypes(c *gin.Context) {
	options, err := s.feeds.PropertyTypes(c.Request.Context(), c.Param("id"), lookupParams(c.Request.URL.Query()))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_types": options})
}

func (s *Server) handleChecks(c *gin.Context) {
	checks, err := s.health.History(c.Request.Context(), c.Param("id"), intParam(c.Request.URL.Query(), "limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks})
}
