package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/stenstromen/todogate/api"
	"github.com/stenstromen/todogate/config"
	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/logger"
	"github.com/stenstromen/todogate/mailer"
	"github.com/stenstromen/todogate/reminder"
	"github.com/stenstromen/todogate/service"
	"github.com/stenstromen/todogate/session"
)

// store is what the services and the HTTP layer need from storage.
type store interface {
	service.UserStore
	service.TodoStore
	reminder.Source
	api.Pinger
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "todogate",
		Usage: "to-do list web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"TODOGATE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

// openStore connects to the configured database and brings its schema up
// to date.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store, func() error, error) {
	if cfg.DB.Driver == db.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return db.NewMemory(), func() error { return nil }, nil
	}

	d, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := d.ConnectionCheck(); err != nil {
		d.Close()
		return nil, nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, nil, err
	}
	log.Infof("Connected to %s database", cfg.DB.Driver)
	return d, d.Close, nil
}

func migrate(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}
	_, closeStore, err := openStore(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("Migrations applied")
	return nil
}

func serve(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	mail := mailer.NewSender(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)

	sessions, err := session.NewManager(session.Options{
		Name:   cfg.Session.Name,
		Secret: cfg.Session.Secret,
		Store:  cfg.Session.Store,
		Path:   cfg.Session.Path,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	}, log)
	if err != nil {
		return err
	}

	router := api.Handlers(api.Deps{
		Users:      service.NewUsers(st, mail, log, cfg.Auth.BcryptCost, cfg.Auth.Issuer),
		Todos:      service.NewTodos(st),
		Sessions:   sessions,
		DB:         st,
		Log:        log,
		LoginRate:  cfg.Auth.LoginRate,
		LoginBurst: cfg.Auth.LoginBurst,
	})

	var sched *reminder.Scheduler
	if mail.Enabled() {
		sched, err = reminder.NewScheduler(cfg.Reminder.Schedule, reminder.NewJob(st, mail, log), log)
		if err != nil {
			return err
		}
		sched.Start()
		log.Infof("Overdue reminders scheduled: %s", cfg.Reminder.Schedule)
	} else {
		log.Info("SMTP host not set, overdue reminders disabled")
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	return server.Shutdown(shutdownCtx)
}
