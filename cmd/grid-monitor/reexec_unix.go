//go:build unix

package main

import (
	"fmt"
	"log"
	"os"
	"syscall"
)

// reexec replaces the process with a fresh copy of the same binary.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	log.Printf("restarting %s", exe)
	return syscall.Exec(exe, os.Args, os.Environ())
}
