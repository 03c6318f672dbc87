//go:build !ORT

package hugot

import "github.com/knights-analytics/hugot"

func newSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
