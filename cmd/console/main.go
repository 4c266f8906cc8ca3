// Command console runs the ReserveEase staff console: an HTTP surface
// over the reservation backend plus a few maintenance subcommands.
//
//	console [serve]                    run the console HTTP server
//	console login -email E -password P sign in and store the tokens
//	console register -email E -password P -name N -phone P
//	console logout                     drop the stored tokens
//	console board [-day YYYY-MM-DD]    print the day board
//	console export -o FILE [-q TERM]   write reservations to an .xlsx file
//	console audit                      consume status change events into the audit log
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/board"
	"github.com/iliyamo/reserveease-console/internal/config"
	"github.com/iliyamo/reserveease-console/internal/events"
	"github.com/iliyamo/reserveease-console/internal/export"
	"github.com/iliyamo/reserveease-console/internal/handler"
	"github.com/iliyamo/reserveease-console/internal/logging"
	"github.com/iliyamo/reserveease-console/internal/middleware"
	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/router"
	"github.com/iliyamo/reserveease-console/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	if err := run(ctx, cmd, args, cfg, logger); err != nil {
		logger.Error("command failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg config.Config, log *slog.Logger) error {
	if cmd == "audit" {
		return runAudit(ctx, cfg, log)
	}

	shutdownTracing, err := setupTracing(ctx, cfg.OTLPAddr, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", "err", err)
		}
	}()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "serve":
		return serve(ctx, a)
	case "login":
		return runLogin(ctx, a, args)
	case "register":
		return runRegister(ctx, a, args)
	case "logout":
		return a.guard.Logout(ctx)
	case "board":
		return runBoard(ctx, a, args)
	case "export":
		return runExport(ctx, a, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func serve(ctx context.Context, a *app) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(a.log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, a.store, a.cfg.MetricsEnabled)
	router.RegisterAuth(e, handler.NewAuthHandler(a.guard, a.store, a.board),
		middleware.SignInLimiter(a.cfg.RateLimit, a.rdb, a.log))
	router.RegisterConsole(e, router.Console{
		Board:        handler.NewBoardHandler(a.board, a.cfg.Location),
		Clients:      handler.NewClientHandler(a.roster),
		Reservations: handler.NewReservationHandler(a.schedule),
	}, a.guard, a.store)

	// A session left over from a previous run starts loading right away.
	if a.guard.Check(ctx) == session.StateAuthorized {
		a.store.Start(context.WithoutCancel(ctx))
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "address", a.cfg.Addr, "api", a.api.BaseURL(), "policy", a.board.Policy().String())
		if err := e.Start(a.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.log.Info("shutting down")
	return e.Shutdown(sctx)
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "staff email")
	password := fs.String("password", os.Getenv("CONSOLE_PASSWORD"), "staff password (default $CONSOLE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.guard.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Println("logged in as", *email)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var in apiclient.RegisterInput
	fs.StringVar(&in.Email, "email", "", "staff email")
	fs.StringVar(&in.Password, "password", os.Getenv("CONSOLE_PASSWORD"), "staff password (default $CONSOLE_PASSWORD)")
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.PhoneNumber, "phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.guard.Register(ctx, in); err != nil {
		return err
	}
	fmt.Println("registered", in.Email, "- log in to continue")
	return nil
}

func runBoard(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	day := fs.String("day", "", "day to show (YYYY-MM-DD), default today")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *day != "" {
		d, err := time.ParseInLocation(board.DateLayout, *day, a.cfg.Location)
		if err != nil {
			return fmt.Errorf("-day: %w", err)
		}
		a.board.SetDay(d)
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	v, err := a.board.View()
	if err != nil {
		return err
	}

	fmt.Printf("%s  reservations: %d  guests: %d\n\n", v.Day, v.Totals.Reservations, v.Totals.Guests)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tTIME\tID\tCLIENT\tGUESTS\tNOTES")
	for _, st := range model.Statuses {
		for _, r := range v.Buckets.Get(st) {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n", st, r.ReservationDate.In(a.cfg.Location).Format("15:04"),
				r.ID, r.Client.Name, r.GuestCount, r.Notes)
		}
	}
	return tw.Flush()
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "reservations.xlsx", "output file")
	term := fs.String("q", "", "only reservations matching this search term")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	res, err := a.schedule.Search(*term)
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := export.WriteReservations(f, res, a.cfg.Location); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %d reservations to %s\n", len(res), *out)
	return nil
}

func runAudit(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("audit: RABBITMQ_URL is not set")
	}
	c := &events.AuditConsumer{URL: cfg.AMQPURL, Path: cfg.AuditLogPath, Log: log}
	err := c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
