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

	"github.com/ardanlabs/conf/v3"
	"github.com/hlandauf/namecore/app/services/node/handlers"
	"github.com/hlandauf/namecore/business/sys/dnsbridge"
	"github.com/hlandauf/namecore/business/sys/metrics"
	"github.com/hlandauf/namecore/business/web/mid"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/namedb"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/peer"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/blockchain/storage/disk"
	"github.com/hlandauf/namecore/foundation/blockchain/worker"
	"github.com/hlandauf/namecore/foundation/events"
	"github.com/hlandauf/namecore/foundation/keystore"
	"github.com/hlandauf/namecore/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. A log file is only used when
	// NODE_LOG_FILE is set, the remaining file settings come from config.
	var log *zap.SugaredLogger
	if path := os.Getenv("NODE_LOG_FILE"); path != "" {
		log = logger.NewWithFile("NODE", logger.FileConfig{
			Path:       path,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		})
	} else {
		var err error
		log, err = logger.New("NODE")
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		RateLimit struct {
			RequestsPerMinute float64 `conf:"default:120"`
			Burst             int     `conf:"default:20"`
		}
		State struct {
			MinerName      string   `conf:"default:miner1"`
			GenesisPath    string   `conf:"default:zblock/genesis.toml"`
			DBPath         string   `conf:"default:zblock/blocks/"`
			NameDBPath     string   `conf:"default:zblock/names/"`
			SelectStrategy string   `conf:"default:round"`
			KnownPeers     []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
		}
		KeyStore struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
		DNS struct {
			Host string `conf:"default:0.0.0.0:5353"`
			TTL  uint32 `conf:"default:600"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "namecore name registry node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Key Store Support

	// The keystore package provides name resolution for account addresses.
	// The names come from the file names in the zblock/accounts folder.
	ks, err := keystore.New(cfg.KeyStore.Folder)
	if err != nil {
		return fmt.Errorf("unable to load key store: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for address, name := range ks.Copy() {
		log.Infow("startup", "status", "keystore", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// Need to load the private key file for the configured miner so the
	// account can get credited with the block outputs.
	privateKey, err := ks.Load(cfg.State.MinerName)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}

	// The genesis file carries the consensus parameters. Without one the
	// node runs with the development network parameters.
	gen := genesis.Default()
	if _, err := os.Stat(cfg.State.GenesisPath); err == nil {
		if gen, err = genesis.Load(cfg.State.GenesisPath); err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	} else {
		log.Infow("startup", "status", "genesis file missing, using defaults", "path", cfg.State.GenesisPath)
	}

	// A peer set is a collection of known nodes in the network so transactions
	// and blocks can be shared.
	peerSet := peer.NewPeerSet()
	for _, host := range cfg.State.KnownPeers {
		peerSet.Add(peer.New(host))
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Messages marked for the viewer are sent to any
	// websocket client that is connected into the system through the events
	// package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Forward(s)
	}

	// The disk storage holds one file per block.
	storage, err := disk.New(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open block storage: %w", err)
	}

	// The name database keeps the registry at the tip so tooling can read it
	// without replaying the chain.
	nameDB, err := namedb.Open(cfg.State.NameDBPath)
	if err != nil {
		return fmt.Errorf("unable to open name database: %w", err)
	}
	defer nameDB.Close()

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerAddress:   names.PublicKeyToAddress(privateKey.PublicKey),
		Host:           cfg.Web.PrivateHost,
		Storage:        storage,
		Genesis:        gen,
		SelectStrategy: cfg.State.SelectStrategy,
		KnownPeers:     peerSet,
		NameDB:         nameDB,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and peer updates. The worker will register
	// itself with the state.
	worker.Run(st, ev)

	// =========================================================================
	// Metrics Support

	m := metrics.New()
	m.WatchChain(st)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st, m)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start DNS Bridge

	var dnsErrors <-chan error
	var bridge *dnsbridge.Bridge
	if cfg.DNS.Host != "" {
		bridge = dnsbridge.New(dnsbridge.Config{
			Addr:     cfg.DNS.Host,
			TTL:      cfg.DNS.TTL,
			Resolver: st,
			Log:      log,
		})
		dnsErrors = bridge.Start()
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	limit := mid.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:  shutdown,
		Log:       log,
		State:     st,
		KS:        ks,
		Evts:      evts,
		Metrics:   m,
		RateLimit: limit,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Metrics:  m,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case err := <-dnsErrors:
		return fmt.Errorf("dns bridge error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if bridge != nil {
			log.Infow("shutdown", "status", "shutdown dns bridge started")
			if err := bridge.Shutdown(ctx); err != nil {
				log.Errorw("shutdown", "status", "dns bridge", "ERROR", err)
			}
		}

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
