// Package rest provides the Gin-based REST API server.
package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/AxlHim26/gview-server/internal/directory"
	"github.com/AxlHim26/gview-server/internal/registry"
)

// Server is the REST API server for the synchronous request/response
// operations: register, connect, lookup.
type Server struct {
	engine    *gin.Engine
	directory *directory.Directory
	registry  *registry.SessionRegistry
	logger    *zap.Logger
}

// New creates a REST Server.
func New(dir *directory.Directory, reg *registry.SessionRegistry, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		directory: dir,
		registry:  reg,
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// registerRoutes sets up the /api context path.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	// Swagger UI
	api.GET("/swagger-ui/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	peer := api.Group("/peer")
	{
		peer.POST("/register", s.register)
		peer.POST("/connect", s.connect)
		peer.GET("/lookup/:peerId", s.lookup)
		peer.GET("/stats", s.stats)
	}
}

type registerRequest struct {
	Password string `json:"password" binding:"required"`
}

type connectRequest struct {
	PeerID    string `json:"peerId" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"ipAddress" binding:"required"`
	Port      int    `json:"port" binding:"required,min=1,max=65535"`
}

// @Summary Register a new peer
// @Tags peer
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration request"
// @Success 200 {object} map[string]string
// @Router /api/peer/register [post]
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	peerID, err := s.directory.Register(req.Password)
	if err != nil {
		s.logger.Error("Registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"peerId": peerID})
}

// @Summary Connect a peer (update connection info)
// @Tags peer
// @Accept json
// @Produce json
// @Param request body connectRequest true "Connect request"
// @Success 200 {object} map[string]any
// @Router /api/peer/connect [post]
func (s *Server) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.directory.Authenticate(req.PeerID, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	// The real session id is bound when the WebSocket connects; REST-only
	// connects get a placeholder that is never liveness-tracked.
	sessionID := fmt.Sprintf("rest-%d", time.Now().UnixMilli())
	if err := s.directory.UpdateConnectionInfo(req.PeerID, req.IPAddress, req.Port, sessionID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
			return
		}
		s.logger.Error("Connect failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connected successfully"})
}

// @Summary Lookup peer connection details
// @Tags peer
// @Produce json
// @Param peerId path string true "Peer ID"
// @Param password query string true "Peer credential"
// @Success 200 {object} map[string]any
// @Router /api/peer/lookup/{peerId} [get]
func (s *Server) lookup(c *gin.Context) {
	peerID := c.Param("peerId")
	password := c.Query("password")

	if !s.directory.Authenticate(peerID, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	result, err := s.directory.Lookup(peerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ipAddress": result.IPAddress,
		"port":      result.Port,
		"online":    result.Online,
	})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activeSessions": s.registry.ActiveCount()})
}
