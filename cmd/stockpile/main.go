package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockpile-io/stockpile/config"
	"github.com/stockpile-io/stockpile/internal/adminapi"
	"github.com/stockpile-io/stockpile/internal/app"
	"github.com/stockpile-io/stockpile/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        bool
	initdb   bool
	conffile string
	port     int
)

func init() {
	flag.BoolVar(&h, "h", false, "display help")
	flag.BoolVar(&initdb, "initdb", false, "drop and recreate all tables, then exit")
	flag.StringVar(&conffile, "c", "/etc/stockpile.yml", "config file path")
	flag.IntVar(&port, "p", 0, "override web listen port")
}

func printHelp() {
	if h {
		ustr := fmt.Sprintf("stockpile usage:\nUsage: %s -h\nOptions:", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s\n", ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()
	printHelp()

	cfg := config.LoadConfig(conffile)
	if port > 0 {
		cfg.Web.Port = port
	}
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	webserver.Init(cfg, application.DB())
	adminapi.InitRouter(application, application.Ledger())

	application.StartBackgroundJobs(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		webserver.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
	}
}
