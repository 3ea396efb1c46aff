package ui

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

// RegisterRoutes serves the single-page client at "/".
func RegisterRoutes(r gin.IRoutes) {
	r.GET("/", serveIndex)
	r.HEAD("/", serveIndex)
}

func serveIndex(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
