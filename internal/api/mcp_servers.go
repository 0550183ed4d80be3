package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcpbridge/mcpbridge/pkg/types"
)

func (s *Server) registerServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.MCPServer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := input.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.registry.SaveServer(c, &input); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		// a live connection would keep using the old configuration
		s.tools.Disconnect(input.ID)

		c.JSON(http.StatusCreated, input)
	}
}

func (s *Server) deregisterServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if err := s.registry.DeleteServer(c, id); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		s.tools.Disconnect(id)

		c.Status(http.StatusNoContent)
	}
}

func (s *Server) listServersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		servers, err := s.registry.ListServers(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, servers)
	}
}

func (s *Server) disconnectServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.tools.Disconnect(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}
