package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The copy summary has already been printed; only the status matters.
		if errors.Is(err, errCopyIncomplete) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
