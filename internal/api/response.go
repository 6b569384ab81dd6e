package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every JSON endpoint returns.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func successWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message})
}

func badRequest(c *gin.Context, message string) { fail(c, http.StatusBadRequest, message) }
func notFound(c *gin.Context, message string)   { fail(c, http.StatusNotFound, message) }
func internalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, message)
}
