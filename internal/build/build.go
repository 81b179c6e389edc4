// Package build holds version metadata stamped at link time.
package build

import "strings"

var (
	Version = "dev"
	AppName = "Dagflow"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
