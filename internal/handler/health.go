package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Health returns a JSON health check response.
// Checks that the data directory is reachable; never exposes internals.
func Health(dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		storageStatus := "ok"
		if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
			storageStatus = "error"
		}

		status := http.StatusOK
		if storageStatus != "ok" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"storage": storageStatus,
		})
	}
}
