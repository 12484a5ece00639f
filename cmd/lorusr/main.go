// lorusr creates or updates a forum user's credentials under the store:
// prompts for the password without echo and writes users/<nick>/passwd
// (mode 0600). The cookie jar is created on first posting.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/go-while/go-lornews/internal/config"
)

var showVersion bool

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.BoolVar(&showVersion, "v", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("lorusr/" + appVersion)
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lorusr <nick>")
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "lorusr: %v\n", err)
		os.Exit(1)
	}
}

func run(nick string) error {
	cfg, err := config.Resolve()
	if err != nil {
		return err
	}

	fmt.Printf("Password for %s: ", nick)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return fmt.Errorf("password cannot be empty")
	}

	userDir := cfg.UserDir(nick)
	if err := os.MkdirAll(userDir, 0o700); err != nil {
		return err
	}
	passwdPath := filepath.Join(userDir, "passwd")
	if err := os.WriteFile(passwdPath, append(password, '\n'), 0o600); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", passwdPath)
	return nil
}
