package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/pull"
)

var (
	pullDays    int
	expireDays  int
	timeoutSecs int
	quiet       bool
	showVersion bool
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&pullDays, "d", config.DefaultPullDays, "pull threads touched within this many days (<0: do not pull)")
	flag.IntVar(&expireDays, "e", -1, "expire articles older than this many days (0: all, <0: do not expire)")
	flag.IntVar(&timeoutSecs, "t", int(config.DefaultHTTPTimeout/time.Second), "HTTP timeout in seconds")
	flag.BoolVar(&quiet, "q", false, "suppress per-thread progress output")
	flag.BoolVar(&showVersion, "v", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("lorpull/" + appVersion)
		return
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}

	var pattern *common.Pattern
	if flag.NArg() == 1 {
		var err error
		if pattern, err = common.ParsePattern(flag.Arg(0)); err != nil {
			log.Fatalf("lorpull: bad pattern: %v", err)
		}
	}

	cfg, err := config.Resolve()
	if err != nil {
		log.Fatalf("lorpull: %v", err)
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("lorpull: %v", err)
	}
	if _, err := cfg.EnsureCreationDate(time.Now()); err != nil {
		log.Fatalf("lorpull: %v", err)
	}

	p := pull.NewPuller(cfg, time.Duration(timeoutSecs)*time.Second, quiet)
	if err := p.Run(catalog, pattern, pullDays, expireDays); err != nil {
		log.Fatalf("lorpull: %v", err)
	}
}
