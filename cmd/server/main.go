package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/mugshot-app/mugshot"
	"github.com/mugshot-app/mugshot/fsstore"
	"github.com/mugshot-app/mugshot/mailer"
	"github.com/mugshot-app/mugshot/persistent"
	"github.com/mugshot-app/mugshot/pgdb"
	"github.com/mugshot-app/mugshot/queue"
	"github.com/mugshot-app/mugshot/transport/rest"
	"github.com/mugshot-app/mugshot/upstream"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

func listenAndServe(
	ctx context.Context,
	db *bun.DB,
	outbox *queue.Outbox,
	upstreamUrl string,
	avatarsDir string,
	debug bool,
) func() error {
	userStore := &persistent.UserStore{DB: db}

	userService := &mugshot.UserService{
		Store: userStore,
		Mail:  outbox,
	}
	avatarCache := &mugshot.AvatarCache{
		Users:        userStore,
		Files:        &fsstore.Store{Dir: avatarsDir},
		FetchProfile: upstream.RestProfileProvider(upstreamUrl),
		FetchBytes:   upstream.RestBytesFetcher(),
	}
	userController := rest.UserController{
		Users:        userService,
		Avatars:      avatarCache,
		FetchProfile: upstream.RestProfileProvider(upstreamUrl),
	}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})
	api.Use(cors.New())

	api.Get("/status", monitor.New())
	userController.InstallTo(api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)

	var addr string
	if debug {
		addr = "127.0.0.1:3000"
	} else {
		addr = ":3000"
	}
	go server.Listen(addr)

	return func() error {
		return server.Shutdown()
	}
}

func setupLogger(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "mugshot_backend")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logrus.Fatalln(key + " not set!")
	}
	return value
}

func envOr(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// Welcome mail delivery runs only when smtp is configured. The outbox is
// durable either way, payloads wait until a worker picks them up.
func startMailWorker(ctx context.Context, outbox *queue.Outbox) {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		logrus.Warningln("SMTP_HOST not set, welcome mail delivery disabled.")
		return
	}
	sender := mailer.SmtpSender(
		smtpHost,
		envOr("SMTP_PORT", "587"),
		requireEnv("SMTP_USER"),
		requireEnv("SMTP_PASSWORD"),
		requireEnv("FROM_EMAIL"),
	)
	worker := &queue.Worker{
		Outbox:  outbox,
		Deliver: mailer.DeliverPayload(sender),
		Period:  5 * time.Second,
	}
	go worker.Run(ctx)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	flag.Parse()
	debug := os.Getenv("DEBUG") == "true"
	setupLogger(debug)
	logrus.Infoln("Starting backend.")

	pgDsn := requireEnv("POSTGRES_DSN")
	upstreamUrl := requireEnv("UPSTREAM_URL")
	avatarsDir := envOr("AVATARS_DIR", "avatars")

	bdb, err := buntdb.Open(envOr("OUTBOX_PATH", "outbox.db"))
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open outbox db.")
	}
	defer bdb.Close()

	outbox := &queue.Outbox{Buntdb: bdb}
	outbox.CreateIndexes()

	logrus.Infoln("Opening database.")
	db := pgdb.Open(context.Background(), pgDsn)
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	defer db.DB.Close()
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	startMailWorker(ctx, outbox)

	logrus.Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(ctx, db, outbox, upstreamUrl, avatarsDir, debug)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	cancel()
	err = shutdown()
	if err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	logrus.Exit(0)
}
