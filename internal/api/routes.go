package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/", h.index)
	r.POST("/upload", h.upload)
	r.GET("/uploads/:name", h.sticker)
	r.GET("/export", h.export)
	r.GET("/export.png", h.exportSheet)
	r.GET("/export.txt", h.exportText)
	r.GET("/deck", h.deckPage)

	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/qr", qrHandler)
	}
}

// NewRouter builds an engine with request logging, panic recovery and the
// deck routes.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(h.log), gin.Recovery())
	r.MaxMultipartMemory = h.maxUpload
	RegisterRoutes(r, h)
	return r
}
