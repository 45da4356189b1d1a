// Command gdcfetch downloads the objects listed in a manifest (or the
// failed items of an earlier session log) and verifies their checksums.
package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/gdcfetch/internal/app"
)

func main() {
	os.Exit(app.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
