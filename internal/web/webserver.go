// Package web serves the optional read-only status API of lord. It is a
// monitoring surface over the article store, not a reading interface.
package web

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

// WebServer exposes the status API.
type WebServer struct {
	Cfg     *config.Config
	Catalog []*models.Group
	Router  *gin.Engine
	Port    int

	started time.Time
}

// GroupStatus is the JSON shape of one group's counters.
type GroupStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ForumID     int64  `json:"forum_id"`
	Count       int64  `json:"count"`
	Min         int64  `json:"min"`
	Max         int64  `json:"max"`
}

// NewServer builds the router. Gin runs in release mode; security headers
// follow the usual reverse-proxy-friendly set.
func NewServer(cfg *config.Config, catalog []*models.Group, port int) *WebServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	router.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	server := &WebServer{
		Cfg:     cfg,
		Catalog: catalog,
		Router:  router,
		Port:    port,
		started: time.Now(),
	}
	server.setupRoutes()
	return server
}

func (s *WebServer) setupRoutes() {
	api := s.Router.Group("/api")
	api.GET("/status", s.apiStatus)
	api.GET("/groups", s.apiGroups)
	api.GET("/groups/:group", s.apiGroup)
}

// ListenAndServe blocks on the HTTP listener.
func (s *WebServer) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.Port)
	log.Printf("[WEB] status API listening on %s", addr)
	return s.Router.Run(addr)
}

func (s *WebServer) apiStatus(c *gin.Context) {
	var articles int64
	for _, g := range s.Catalog {
		st, err := s.groupStatus(g)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		articles += st.Count
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  config.AppVersion,
		"groups":   len(s.Catalog),
		"articles": articles,
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *WebServer) apiGroups(c *gin.Context) {
	statuses := make([]*GroupStatus, 0, len(s.Catalog))
	for _, g := range s.Catalog {
		st, err := s.groupStatus(g)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		statuses = append(statuses, st)
	}
	c.JSON(http.StatusOK, statuses)
}

func (s *WebServer) apiGroup(c *gin.Context) {
	group := config.FindGroup(s.Catalog, c.Param("group"))
	if group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	st, err := s.groupStatus(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// groupStatus reads a group's counters, empty-group values for groups that
// were never pulled.
func (s *WebServer) groupStatus(g *models.Group) (*GroupStatus, error) {
	st := &GroupStatus{
		Name:        g.Name,
		Description: g.Description,
		ForumID:     g.ForumID,
		Count:       0,
		Min:         1,
		Max:         0,
	}
	idx, err := spool.OpenGroupIndex(s.Cfg.GroupDir(g.Name), g.Name, spool.ModeRead)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return nil, err
	}
	defer idx.Close()
	st.Count, st.Min, st.Max = idx.Count, idx.Min, idx.Max
	return st, nil
}
