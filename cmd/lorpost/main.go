// lorpost reads one RFC-5322-style article on stdin and submits it to the
// forum. Success is silent with exit status 0; any failure goes to stderr
// with exit status 1 — the lord POST handler relays the last stderr line
// to the NNTP client.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/post"
)

var (
	timeoutSecs int
	showVersion bool
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&timeoutSecs, "t", int(config.DefaultHTTPTimeout/time.Second), "HTTP timeout in seconds")
	flag.BoolVar(&showVersion, "v", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("lorpost/" + appVersion)
		return
	}
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lorpost: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Resolve()
	if err != nil {
		return err
	}
	sub, err := post.ParseArticle(os.Stdin)
	if err != nil {
		return err
	}
	return post.NewPoster(cfg, time.Duration(timeoutSecs)*time.Second).Submit(sub)
}
