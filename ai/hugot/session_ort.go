//go:build ORT

package hugot

import (
	"os"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

func newSession() (*hugot.Session, error) {
	opts := []options.WithOption{}
	if dir := os.Getenv("ORT_LIB_DIR"); dir != "" {
		opts = append(opts, options.WithOnnxLibraryPath(dir))
	}
	return hugot.NewORTSession(opts...)
}
