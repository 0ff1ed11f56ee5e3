// Package ginkit connects a crashkit Notifier to gin: a middleware that
// reports panics and, optionally, errors recorded on the request context.
package ginkit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beaconops/crashkit"
)

// Options adjusts the middleware behavior.
type Options struct {
	// Repanic rethrows after reporting so an outer gin.Recovery produces the
	// response. Off by default; the middleware answers 500 itself.
	Repanic bool

	// ReportErrors forwards errors attached with c.Error once the handler
	// chain finishes.
	ReportErrors bool
}

// New returns a middleware that reports panics, and with ReportErrors also
// every error the handlers record, to n. Request method, path, client
// address and the X-Request-ID header ride along as ad-hoc context.
func New(n *crashkit.Notifier, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				_, _ = n.Notify(c.Request.Context(), err, requestContext(c))
				if opts.Repanic {
					panic(r)
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()

		if opts.ReportErrors {
			for _, ginErr := range c.Errors {
				_, _ = n.Notify(c.Request.Context(), ginErr.Err, requestContext(c))
			}
		}
	}
}

func requestContext(c *gin.Context) map[string]any {
	m := map[string]any{
		"http_method": c.Request.Method,
		"http_path":   c.Request.URL.Path,
		"client_ip":   c.ClientIP(),
	}
	if rid := c.GetHeader("X-Request-ID"); rid != "" {
		m["request_id"] = rid
	}
	return m
}
