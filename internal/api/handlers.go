package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/youruser/spotdeck/internal/config"
	"github.com/youruser/spotdeck/internal/deck"
	imagepkg "github.com/youruser/spotdeck/internal/image"
	"github.com/youruser/spotdeck/internal/layout"
	"github.com/youruser/spotdeck/internal/render"
	"github.com/youruser/spotdeck/internal/util"
)

// Handlers serves the upload page, the deck endpoints and the stored stickers.
type Handlers struct {
	store     *Store
	sheet     imagepkg.SheetOptions
	maxUpload int64
	log       *zap.Logger
}

func NewHandlers(cfg config.ServerConfig, store *Store, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	maxUpload := cfg.MaxUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		store:     store,
		sheet:     imagepkg.SheetOptions{CardSize: cfg.CardSize, CardsPerRow: cfg.CardsPerRow},
		maxUpload: maxUpload,
		log:       log,
	}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		text = "spotdeck"
	}
	size := 256
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 && v <= 2048 {
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handlers) index(c *gin.Context) {
	page, err := render.NewPage()
	if err != nil {
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handlers) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, deck.Response{Error: "invalid upload: " + err.Error()})
		return
	}
	files := form.File["stickers"]
	names := make([]deck.StickerRef, len(files))
	for i, fh := range files {
		name, err := util.SafeName(fh.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, deck.Response{Error: fmt.Sprintf("invalid file name %q", fh.Filename)})
			return
		}
		names[i] = name
	}

	d, err := deck.Generate(names)
	if err != nil {
		c.JSON(http.StatusBadRequest, deck.Response{Error: err.Error()})
		return
	}

	sess := &Session{ID: uuid.NewString(), Stickers: names, Deck: d}
	if err := h.store.Replace(files, names, sess); err != nil {
		h.log.Error("store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, deck.Response{Error: "Error saving file"})
		return
	}
	h.log.Info("deck generated",
		zap.String("deck_id", sess.ID),
		zap.Int("stickers", len(names)),
		zap.Int("cards", len(d)),
	)
	c.JSON(http.StatusOK, deck.Response{ID: sess.ID, Deck: d, Stickers: names})
}

func (h *Handlers) sticker(c *gin.Context) {
	name, err := util.SafeName(c.Param("name"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	err = h.store.Open(name, func(path string) error {
		c.Header("Content-Type", util.ImageContentType(name))
		c.File(path)
		return nil
	})
	if err != nil {
		c.Status(http.StatusNotFound)
	}
}

func (h *Handlers) export(c *gin.Context) {
	sess := h.store.Current()
	if sess == nil {
		c.JSON(http.StatusBadRequest, deck.Response{Error: "No deck generated yet"})
		return
	}
	stickers, err := imagepkg.OpenStickers(h.store.Dir(), sess.Deck)
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	var buf bytes.Buffer
	pages, err := imagepkg.WriteDeckPDF(&buf, sess.Deck, stickers, layout.Circular{}, imagepkg.PDFOptions{})
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	h.log.Debug("export pdf", zap.String("id", sess.ID), zap.Int("pages", pages))
	c.Header("Content-Disposition", "attachment; filename=spotit_deck.pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handlers) exportSheet(c *gin.Context) {
	sess := h.store.Current()
	if sess == nil {
		c.JSON(http.StatusBadRequest, deck.Response{Error: "No deck generated yet"})
		return
	}
	stickers, err := imagepkg.OpenStickers(h.store.Dir(), sess.Deck)
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	opt := h.sheet
	opt.QRText = "spotdeck:" + sess.ID
	sheet, err := imagepkg.ComposeDeckSheet(sess.Deck, stickers, layout.Circular{}, opt)
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	b, err := imagepkg.EncodePNG(sheet)
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=spotit_deck.png")
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handlers) exportFailed(c *gin.Context, err error) {
	h.log.Error("export", zap.Error(err))
	c.JSON(http.StatusInternalServerError, deck.Response{Error: "Error generating export"})
}

func (h *Handlers) exportText(c *gin.Context) {
	sess := h.store.Current()
	if sess == nil {
		c.JSON(http.StatusBadRequest, deck.Response{Error: "No deck generated yet"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=spotit_deck.txt")
	c.String(http.StatusOK, deck.ExportText(sess.Deck)+"\n")
}

func (h *Handlers) deckPage(c *gin.Context) {
	s, err := layout.ByName(c.Query("layout"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	var d deck.Deck
	if sess := h.store.Current(); sess != nil {
		d = sess.Deck
	}
	var buf bytes.Buffer
	if err := render.RenderDocument(&buf, d, s); err != nil {
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
