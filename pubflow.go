package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/backend"
	"github.com/wansing/pubflow/classes"
	"github.com/wansing/pubflow/config"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/filestore"
	"github.com/wansing/pubflow/memdb"
	"github.com/wansing/pubflow/sqldb"
	"github.com/wansing/pubflow/sqldb/mysql"
	"github.com/wansing/pubflow/sqldb/sqlite3"
	"github.com/wansing/pubflow/upload"
	"github.com/wansing/pubflow/workflow"
	"golang.org/x/crypto/ssh/terminal"
)

func main() {

	var settings = config.Default()
	var iniPath string

	// default FlagSet

	var serveFlags = flag.NewFlagSet("pubflow", flag.ExitOnError)

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)
	var initInsert = initFlags.Bool("insert", false, "creates the given group or user")
	var initJoin = initFlags.Bool("join", false, "joins the given user to the given group")
	var initMakeAdmin = initFlags.Bool("make-admin", false, "gives admin permissions on the wiki to the given group")
	var initPassword = initFlags.Bool("password", false, "sets the password of the given user")
	var groupname = initFlags.String("group", "", "specifies a group `name`")
	var username = initFlags.String("user", "", "specifies a user `name`")

	for _, fs := range []*flag.FlagSet{serveFlags, initFlags} {
		fs.StringVar(&iniPath, "config", "pubflow.ini", "read settings from this ini `file`, flags take precedence")
		settings.Flags(fs)
	}

	var args = os.Args[1:]
	var fs = serveFlags
	if len(args) > 0 && args[0] == "init" {
		fs = initFlags
		args = args[1:]
	}

	// parse twice, so the flags overwrite the ini file, which is given by a flag
	_ = fs.Parse(args)
	if err := settings.LoadIni(iniPath); err != nil {
		fmt.Fprintf(os.Stderr, "could not read config file: %v\n", err)
		os.Exit(1)
	}
	_ = fs.Parse(args)

	// logging

	level, err := settings.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	// no timestamps, on most systems systemd-journald adds them
	var log = zerolog.New(zerolog.ConsoleWriter{
		Out:          os.Stderr,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).Level(level)

	// database

	var attachments upload.Store
	if settings.Uploads != "" {
		attachments = &filestore.Store{
			UploadDir: settings.Uploads,
		}
	}

	db, sessionStore, closeDB, err := open(settings, attachments, log)
	if err != nil {
		log.Error().Err(err).Msg("could not open database")
		return
	}
	defer func() {
		log.Info().Msg("closing database")
		closeDB()
	}()

	var ctx = context.Background()

	if settings.Workflows != "" {
		configs, err := config.LoadWorkflows(settings.Workflows)
		if err != nil {
			log.Error().Err(err).Str("file", settings.Workflows).Msg("could not load workflow configurations")
			return
		}
		if err := config.ImportWorkflows(ctx, db, configs); err != nil {
			log.Error().Err(err).Msg("could not import workflow configurations")
			return
		}
		log.Info().Int("count", len(configs)).Str("file", settings.Workflows).Msg("imported workflow configurations")
	}

	// init

	if initFlags.Parsed() {
		var err error
		switch {
		case *initInsert:
			if *groupname != "" {
				err = insertGroup(ctx, db, *groupname)
			}
			if *username != "" && err == nil {
				err = insertUser(ctx, db, *username)
			}
		case *initJoin:
			err = join(ctx, db, *groupname, *username)
		case *initMakeAdmin:
			err = makeAdmin(ctx, db, settings.Wiki, *groupname)
		case *initPassword:
			err = setPassword(ctx, db, *username)
		}
		if err != nil {
			log.Error().Err(err).Msg("init")
		}
		return
	}

	listen(db, sessionStore, settings, log)
}

// open returns the database selected in the settings and a session store in the same database.
func open(settings config.Settings, attachments upload.Store, log zerolog.Logger) (*core.CoreDB, scs.Store, func(), error) {

	dbURL, err := settings.Database()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing database url: %w", err)
	}

	if dbURL == nil {
		log.Warn().Msg("using in-memory database, all data will be lost on shutdown")
		return memdb.New().CoreDB(classes.DefaultRegistry, attachments), memstore.New(), func() {}, nil
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		return nil, nil, nil, err
	}

	var closeDB = func() {
		_ = sqlDB.Close()
	}

	if err = sqlDB.Ping(); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("ping: %w", err)
	}

	var sessionStore scs.Store
	switch dbURL.Driver {
	case mysql.Driver:
		sessionStore, err = mysql.NewSessionStore(sqlDB)
	case sqlite3.Driver:
		sessionStore, err = sqlite3.NewSessionStore(sqlDB)
	default:
		err = fmt.Errorf("unknown database backend: %s", dbURL.Driver)
	}
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}

	stores, err := sqldb.New(sqlDB, dbURL.Driver)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}

	log.Info().Str("driver", dbURL.Driver).Str("url", dbURL.Redacted()).Msg("using database")
	return stores.CoreDB(classes.DefaultRegistry, attachments), sessionStore, closeDB, nil
}

func readPassword(username string) (string, error) {

	fmt.Printf("password for user %s: ", username)
	pass1, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Printf("repeat password: ")
	pass2, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return "", errors.New("passwords don't match")
	}
	return string(pass1), nil
}

func insertGroup(ctx context.Context, db *core.CoreDB, name string) error {
	if _, err := db.InsertGroup(ctx, name); err != nil {
		return fmt.Errorf("creating group %s: %w", name, err)
	}
	return nil
}

func insertUser(ctx context.Context, db *core.CoreDB, name string) error {

	password, err := readPassword(name)
	if err != nil {
		return err
	}

	user, err := db.InsertUser(ctx, name)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", name, err)
	}

	return db.SetPassword(ctx, user, password)
}

func setPassword(ctx context.Context, db *core.CoreDB, username string) error {

	user, err := db.GetUserByName(ctx, username)
	if err != nil {
		return err
	}

	password, err := readPassword(user.Name())
	if err != nil {
		return err
	}

	return db.SetPassword(ctx, user, password)
}

func join(ctx context.Context, db *core.CoreDB, groupname string, username string) error {

	group, err := db.GetGroupByName(ctx, groupname)
	if err != nil {
		return err
	}

	user, err := db.GetUserByName(ctx, username)
	if err != nil {
		return err
	}

	return db.Join(ctx, group, user)
}

func makeAdmin(ctx context.Context, db *core.CoreDB, wiki string, groupname string) error {

	group, err := db.GetGroupByName(ctx, groupname)
	if err != nil {
		return err
	}

	return db.InsertAccessRule(ctx, wiki, group.Name(), core.Admin)
}

func listen(db *core.CoreDB, sessionStore scs.Store, settings config.Settings, log zerolog.Logger) {

	var roles = auth.NewResolver(db, settings.Wiki, log)
	var engine = workflow.NewEngine(db, log)
	engine.Listen(roles)

	var sessions = scs.New()
	sessions.Store = sessionStore
	sessions.Cookie.Path = settings.NormalizedBase() + "/"

	var base = settings.NormalizedBase()
	var mux = http.NewServeMux()
	mux.Handle(base+"/backend/", http.StripPrefix(base+"/backend", backend.NewBackend(db, engine, roles, sessions, settings.Wiki, log).Handler()))

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", settings.Listen)
	if err != nil {
		log.Error().Err(err).Msg("listen")
		return
	}

	log.Info().Str("addr", settings.Listen).Str("base", base).Msg("listening")

	httpSrv := &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Error().Err(err).Msg("serve")
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
