// Package embedded carries the default configuration compiled into the
// binary. A file of the same name under ./config takes precedence.
package embedded

import (
	"embed"
)

//go:embed config/*.yaml
var Content embed.FS
