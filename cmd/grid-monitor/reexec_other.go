//go:build !unix

package main

import "errors"

// reexec is not available here; exiting lets the service manager restart us.
func reexec() error {
	return errors.New("restart requested: exiting for service manager restart")
}
