// Package web provides the embedded default model thumbnails.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
)

//go:embed thumbs/*.png
var thumbFiles embed.FS

// ThumbPrefix is the URL prefix the thumbnails are served under.
const ThumbPrefix = "/assets/thumbs"

// GetFileSystem returns the embedded filesystem with the thumbs folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(thumbFiles, "thumbs")
}

// HasThumb reports whether a default thumbnail with this name is embedded.
func HasThumb(name string) bool {
	if name == "" || path.Base(name) != name {
		return false
	}
	_, err := fs.Stat(thumbFiles, path.Join("thumbs", name))
	return err == nil
}

// RegisterStaticRoutes serves the thumbnails under ThumbPrefix.
func RegisterStaticRoutes(e *echo.Echo) error {
	thumbFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.GET(ThumbPrefix+"/:name", func(c echo.Context) error {
		name := c.Param("name")
		if !HasThumb(name) {
			return echo.NewHTTPError(http.StatusNotFound, "thumbnail not found")
		}
		data, err := fs.ReadFile(thumbFS, name)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to read thumbnail")
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		return c.Blob(http.StatusOK, "image/png", data)
	})
	return nil
}
