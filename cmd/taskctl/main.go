// Command taskctl edits the tasks file from the shell. The store lock only
// serialises writers inside one process, so avoid running it against a file
// the API server is writing at the same moment.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
