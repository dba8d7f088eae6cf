package cors

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const defaultMethods = "GET, POST, OPTIONS"

// Option customises the middleware.
type Option func(*options)

type options struct {
	methods func() string
}

// WithRouteMethods advertises the methods registered on r. The route table is
// read on the first request, after every route has been mounted.
func WithRouteMethods(r *gin.Engine) Option {
	return func(o *options) {
		var (
			once    sync.Once
			methods string
		)
		o.methods = func() string {
			once.Do(func() { methods = RouteMethods(r.Routes()) })
			return methods
		}
	}
}

// RouteMethods returns the distinct methods of routes plus OPTIONS, sorted.
func RouteMethods(routes gin.RoutesInfo) string {
	set := map[string]struct{}{http.MethodOptions: {}}
	for _, route := range routes {
		set[route.Method] = struct{}{}
	}
	methods := make([]string, 0, len(set))
	for m := range set {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// New returns a CORS middleware that honors a list of allowed origins. Export
// download headers are exposed so browsers can read the file name.
func New(allowedOrigins []string, opts ...Option) gin.HandlerFunc {
	o := options{methods: func() string { return defaultMethods }}
	for _, opt := range opts {
		opt(&o)
	}
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || hasOrigin(originSet, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", o.methods())
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-Rows, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	if len(originSet) == 0 {
		return true
	}

	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
