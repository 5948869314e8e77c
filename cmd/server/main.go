package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youruser/spotdeck/internal/api"
	"github.com/youruser/spotdeck/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("DECK_CONFIG"))
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.Log, false)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	store := api.NewStore(cfg.Server.UploadDir)
	r := api.NewRouter(api.NewHandlers(cfg.Server, store, log))

	addr := ":" + cfg.Server.Port
	log.Info("starting server", zap.String("url", "http://localhost"+addr), zap.String("upload_dir", store.Dir()))
	if err := r.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
}
