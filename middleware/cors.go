package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// defaultOrigins is used when no origins are configured
var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS returns a configured CORS middleware
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = origins
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"}
	config.ExposeHeaders = []string{RequestIDHeader}

	return cors.New(config)
}
