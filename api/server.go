// Package api exposes the normalized feed contract over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pwb_feeds/services"
)

type Server struct {
	feeds  *services.FeedService
	health *services.HealthcheckService
	log    logrus.FieldLogger
}

func NewServer(feeds *services.FeedService, health *services.HealthcheckService, log logrus.FieldLogger) *Server {
	return &Server{feeds: feeds, health: health, log: log}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.log))

	r.GET("/health", s.handleHealth)
	r.GET("/providers", s.handleProviders)
	r.GET("/search", s.handleSearchAll)

	p := r.Group("/providers/:id")
	p.GET("/search", s.handleSearch)
	p.GET("/properties/:ref", s.handleFind)
	p.GET("/properties/:ref/similar", s.handleSimilar)
	p.GET("/locations", s.handleLocations)
	p.GET("/property-types", s.handlePropertyTypes)
	p.GET("/checks", s.handleChecks)

	return r
}

// HTTPServer wraps the router with the listen timeouts
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
