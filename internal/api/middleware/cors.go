package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginPolicy decides which browser origins may call the API. An empty
// policy or a "*" entry allows every origin.
type OriginPolicy struct {
	any     bool
	origins map[string]struct{}
}

func NewOriginPolicy(allowedOrigins []string) OriginPolicy {
	p := OriginPolicy{any: len(allowedOrigins) == 0, origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			p.any = true
		}
		p.origins[origin] = struct{}{}
	}
	return p
}

// Allows reports whether origin may be served. Requests without an Origin
// header are not cross-origin and always pass.
func (p OriginPolicy) Allows(origin string) bool {
	if origin == "" || p.any {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// AllowsRequest is shaped for websocket.Upgrader.CheckOrigin
func (p OriginPolicy) AllowsRequest(r *http.Request) bool {
	return p.Allows(r.Header.Get("Origin"))
}

// CORSMiddleware answers preflight requests and sets CORS headers for
// origins the policy allows
func CORSMiddleware(policy OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && policy.Allows(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
