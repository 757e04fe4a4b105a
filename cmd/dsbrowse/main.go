// dsbrowse browses, selects and transfers files in the user and global
// dataspaces of a workflow server.
package main

import (
	"os"

	"github.com/proactive/dataspace-browser/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
