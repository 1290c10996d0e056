// riskctl scores learner signal files offline with the same engine the
// server uses.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
