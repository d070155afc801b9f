// Command uploader uploads audio clips and manages their details from the
// terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: uploader [-config file] <command> [flags] [args]

commands:
  upload [-title T] [-public] FILE   upload an mp3/ogg file
  list   [-search TERM]              list your uploads, newest first
  edit   [-title T] [-visibility public|private] LINK
  delete LINK                        delete an upload and its file
  login                              print the sign-in URL
`

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, os.Stdout)
	app.prompt = promptToken
	app.clipboard = systemClipboard{}

	if err := app.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
