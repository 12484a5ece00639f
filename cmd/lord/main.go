package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/nntp"
	"github.com/go-while/go-lornews/internal/web"
)

var (
	nntpPort    int
	postCmd     string
	webPort     int
	profAddr    string
	showVersion bool
)

var appVersion = "-unset-"

var Prof *prof.Profiler

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&nntpPort, "p", config.DefaultNNTPPort, "NNTP TCP port")
	flag.StringVar(&postCmd, "c", config.DefaultPostCmd, "command spawned to post an article")
	flag.IntVar(&webPort, "w", 0, "serve the read-only status API on this port (0: off)")
	flag.StringVar(&profAddr, "prof", "", "serve pprof web on this address (empty: off)")
	flag.BoolVar(&showVersion, "v", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("lord/" + appVersion)
		return
	}
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	log.Printf("Starting lord NNTP server (version: %s)", appVersion)

	cfg, err := config.Resolve()
	if err != nil {
		log.Fatalf("[NNTP] %v", err)
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("[NNTP] %v", err)
	}
	if _, err := cfg.EnsureCreationDate(time.Now()); err != nil {
		log.Fatalf("[NNTP] %v", err)
	}

	if profAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(profAddr)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
	}

	if webPort > 0 {
		ws := web.NewServer(cfg, catalog, webPort)
		go func() {
			if err := ws.ListenAndServe(); err != nil {
				log.Fatalf("[WEB] %v", err)
			}
		}()
	}

	server, err := nntp.NewServer(cfg, catalog, nntpPort, postCmd)
	if err != nil {
		log.Fatalf("[NNTP] %v", err)
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("[NNTP] %v", err)
	}
}
