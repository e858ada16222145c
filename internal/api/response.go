package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	xerrors "xhscrawler/pkg/errors"
)

// Envelope wraps every response body
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// requestError is a rejected request body or parameter
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(err error) error {
	return &requestError{msg: err.Error()}
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Message: "success", Data: data})
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, Envelope{Code: code, Message: msg})
}

// statusOf maps request and crawler errors to 400, anything else to 500
func statusOf(err error) int {
	var re *requestError
	var ce *xerrors.Error
	if errors.As(err, &re) || errors.As(err, &ce) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// wrap adapts a handler that returns its failure
func (s *Server) wrap(h func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h(c)
		if err == nil || c.Writer.Written() {
			return
		}
		code := statusOf(err)
		log := s.logger.WithError(err).WithField("request_id", c.GetString(requestIDKey))
		msg := err.Error()
		if code == http.StatusInternalServerError {
			log.Error("request failed")
			msg = "internal error"
		} else {
			log.Warn("request rejected")
		}
		fail(c, code, msg)
	}
}
