package main

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/ratelimit"
	"github.com/cyw0ng95/v2e/pkg/rpcenvelope"
)

// setupRouter creates the Gin router, registers middleware, and wires
// the JSON-RPC dispatch endpoint plus the plain health/CORS surface.
func setupRouter(reg *rpcenvelope.Registry, limiter *ratelimit.ClientLimiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = os.Stderr
	gin.DefaultErrorWriter = os.Stderr

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.RecoveryWithWriter(os.Stderr))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
	}))

	if limiter != nil {
		router.Use(rateLimitMiddleware(limiter))
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/rpc", rpcHandler(reg))

	router.NoMethod(func(c *gin.Context) {
		if c.Request.URL.Path != "/rpc" {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusMethodNotAllowed, rpcenvelope.ErrorResponse(nil, rpcenvelope.NewError(rpcenvelope.InvalidRequest, "method not allowed")))
	})

	return router
}

// rateLimitMiddleware rejects requests beyond the per-client token
// bucket with 429; the client key is gin's ClientIP(), which honors
// X-Forwarded-For / X-Real-IP before falling back to the remote address.
func rateLimitMiddleware(limiter *ratelimit.ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.AllowWithRetryAfter(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", retryAfter.Truncate(time.Second).String())
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// rpcHandler implements POST /rpc: parse body as a JSON-RPC request,
// dispatch, and reply per the notification/response HTTP contract.
func rpcHandler(reg *rpcenvelope.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusOK, rpcenvelope.ErrorResponse(nil, rpcenvelope.NewError(rpcenvelope.ParseError, "failed to read request body")))
			return
		}

		req, err := rpcenvelope.Decode(body)
		if err != nil {
			c.JSON(http.StatusOK, rpcenvelope.ErrorResponse(nil, rpcenvelope.NewError(rpcenvelope.ParseError, "invalid JSON")))
			return
		}

		start := time.Now()
		resp := reg.Dispatch(c.Request.Context(), req)
		if resp.Error != nil {
			common.Info("rpc method=%q id=%s duration=%s error=%d", req.Method, req.ID, time.Since(start), resp.Error.Code)
		} else {
			common.Info("rpc method=%q id=%s duration=%s ok", req.Method, req.ID, time.Since(start))
		}

		if req.IsNotification() {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
