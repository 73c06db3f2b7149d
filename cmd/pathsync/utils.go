package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// defaultDataDir prefers $HOME, falling back to the OS user record.
func defaultDataDir() string {
	return filepath.Join(mustHomeDir(), ".pathsync")
}

func mustHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	return filepath.Base(os.Args[0])
}

func fatal(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
