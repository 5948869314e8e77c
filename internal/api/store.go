package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/util"
)

// Session is the most recent successful upload.
type Session struct {
	ID       string
	Stickers []deck.StickerRef
	Deck     deck.Deck
}

// Store keeps the uploaded stickers on disk and the current session in
// memory. Each upload replaces the previous one entirely.
type Store struct {
	dir string

	mu      sync.RWMutex
	current *Session
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Current returns the latest session, or nil before the first upload.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace wipes the upload directory, writes files under names and makes
// sess current.
func (s *Store) Replace(files []*multipart.FileHeader, names []string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.ResetDir(s.dir); err != nil {
		return fmt.Errorf("reset upload dir: %w", err)
	}
	for i, fh := range files {
		if err := saveFile(fh, filepath.Join(s.dir, names[i])); err != nil {
			s.current = nil
			return fmt.Errorf("save %s: %w", names[i], err)
		}
	}
	s.current = sess
	return nil
}

// Open opens a stored sticker for reading while holding the read lock for
// the duration of fn.
func (s *Store) Open(name string, fn func(path string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return fn(path)
}

func saveFile(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
