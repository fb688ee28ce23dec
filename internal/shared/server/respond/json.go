package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// blobCacheControl keeps stored artifacts out of shared caches; they belong
// to a single principal.
const blobCacheControl = "private, max-age=300"

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Blob writes a stored artifact. fallbackType is used when the stored type
// is unknown.
func Blob(c *gin.Context, contentType, fallbackType string, data []byte) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = fallbackType
	}
	c.Header("Cache-Control", blobCacheControl)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, data)
}
