// Command authctl performs operator tasks against the GophAuth database:
// applying migrations and seeding administrator accounts.
package main

import "os"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
