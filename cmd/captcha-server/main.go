// Command captcha-server runs the captcha HTTP service.
//
//	captcha-server serve   start the service (configured from the environment)
//	captcha-server keygen  print a fresh sealing key as a JWK
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
