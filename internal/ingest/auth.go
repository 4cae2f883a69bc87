package ingest

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkbio-telemetry/backend/internal/security"
)

// subjectKey is the gin context key holding the authenticated token subject.
const subjectKey = "ingest_subject"

// AuthRequired rejects requests without a valid bearer token issued by tokens.
func AuthRequired(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized: no token provided"})
			return
		}
		claims, err := tokens.Validate(tokenString)
		if err != nil {
			log.Printf("ingest: invalid bearer token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized: invalid or expired token"})
			return
		}
		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
