package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getHome reports that the API is up.
func getHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Billingo backend API v1"})
}
