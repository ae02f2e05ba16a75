package webembed

import (
	"embed"
	"io/fs"
)

//go:embed static
var efs embed.FS

// Static is the web UI rooted at the static directory.
var Static fs.FS

func init() {
	sub, err := fs.Sub(efs, "static")
	if err != nil {
		panic(err)
	}
	Static = sub
}
