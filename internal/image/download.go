package imagepkg

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
)

// DownloadImage fetches url and decodes the body as an image.
func DownloadImage(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}
