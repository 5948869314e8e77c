package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// StickerField is the form field the upload endpoint reads files from.
const StickerField = "stickers"

// Form is the content of the upload form.
type Form struct {
	Fields map[string]string
	Files  []File
}

// File is one file input value.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// FormFromPaths reads each path into a sticker file entry.
func FormFromPaths(paths ...string) (*Form, error) {
	f := &Form{}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read sticker: %w", err)
		}
		f.Files = append(f.Files, File{Field: StickerField, Name: filepath.Base(p), Content: bytes.NewReader(b)})
	}
	return f, nil
}

// encode writes f as a multipart body and returns it with its content type.
func (f *Form) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if f != nil {
		for k, v := range f.Fields {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
		for _, file := range f.Files {
			field := file.Field
			if field == "" {
				field = StickerField
			}
			w, err := mw.CreateFormFile(field, file.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := io.Copy(w, file.Content); err != nil {
				return nil, "", fmt.Errorf("copy %s: %w", file.Name, err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}
