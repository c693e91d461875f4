package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/budgetbox/budgetbox/internal/logger"
)

// CSRF double-submit names. Async requests send the token in CSRFHeader,
// full page form posts in the CSRFField body field.
const (
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"
	CSRFField  = "csrfmiddlewaretoken"
)

const requestIDHeader = "X-Request-ID"

// requestLogger logs each request and stores a request-scoped logger in the
// request context.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		reqLog := log.With().Str("request_id", reqID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		c.Next()

		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("HTTP request")
	}
}

// recovery turns a panic into a 500 JSON response.
func recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// csrf issues a token cookie on safe requests and requires the header to
// echo it on unsafe ones.
func csrf() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(CSRFCookie)
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if err != nil || cookie == "" {
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(CSRFCookie, uuid.NewString(), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)
			}
			c.Next()
			return
		}

		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFField)
		}
		if err != nil || cookie == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(sent)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "CSRF token missing or incorrect."})
			return
		}
		c.Next()
	}
}
