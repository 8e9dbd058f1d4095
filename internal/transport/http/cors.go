package http

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS applies the browser origin policy to the REST API. Origins are
// matched against cfg patterns the same way the socket handshake matches
// them: a pattern with a scheme is compared to scheme://host, otherwise to
// the host alone. Outside production localhost is always allowed and an
// empty list allows every origin.
func CORS(patterns []string, production bool) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  originPolicy(patterns, production),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func originPolicy(patterns []string, production bool) func(string) bool {
	return func(origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		if !production && u.Scheme == "http" && isLoopback(u.Hostname()) {
			return true
		}
		if len(patterns) == 0 {
			return !production
		}
		for _, p := range patterns {
			target := u.Host
			if strings.Contains(p, "://") {
				target = u.Scheme + "://" + u.Host
			}
			if ok, err := path.Match(strings.ToLower(p), strings.ToLower(target)); err == nil && ok {
				return true
			}
		}
		return false
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}
