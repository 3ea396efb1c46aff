package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageResponse is the body of confirmation-only responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Created writes a 201 Created JSON response.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}

// Message writes a 200 OK confirmation message.
func Message(c *gin.Context, msg string) {
	JSON(c, http.StatusOK, MessageResponse{Message: msg})
}
