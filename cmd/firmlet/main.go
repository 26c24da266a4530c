package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/applet/demo"
	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/config"
	"github.com/wippyai/firmlet/engine"
	"github.com/wippyai/firmlet/runner/host"
	"github.com/wippyai/firmlet/runner/host/sqlstore"
	"github.com/wippyai/firmlet/scheduler"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to board YAML config")
		appletPath  = flag.String("applet", "", "Path to applet wasm module (default: built-in demo)")
		list        = flag.Bool("list", false, "List the applet API and exit")
		interactive = flag.Bool("i", term.IsTerminal(int(os.Stdout.Fd())), "Interactive console")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *appletPath != "" {
		cfg.Applet.Path = *appletPath
	}

	if *list {
		listAPI()
		return
	}

	if err := run(cfg, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, w zapcore.WriteSyncer, color bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Logging.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if color {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, w, cfg.LogLevel()))
}

// system is everything run brings up.
type system struct {
	board *host.Board
	air   *host.Air
	sched *scheduler.Scheduler
	eng   *engine.Engine
	store *sqlstore.Store
	inst  applet.InstID
}

func (s *system) close(ctx context.Context) {
	if s.board != nil {
		s.board.Close()
	}
	if s.eng != nil {
		s.eng.Close(ctx)
	}
	if s.store != nil {
		s.store.Close()
	}
}

func bringUp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, onPrint func(applet.InstID, string)) (*system, error) {
	host.SetLogger(logger.Named("board"))
	scheduler.SetLogger(logger.Named("scheduler"))
	engine.SetLogger(logger.Named("engine"))

	boardMetrics := host.NewMetrics(reg)
	schedMetrics := scheduler.NewMetrics(reg)
	if err := boardMetrics.Register(); err != nil {
		return nil, err
	}
	if err := schedMetrics.Register(); err != nil {
		return nil, err
	}

	algs, err := cfg.Algorithms()
	if err != nil {
		return nil, err
	}

	sys := &system{air: host.NewAir()}
	var store board.Store
	if cfg.Storage.Path != "" {
		sys.store, err = sqlstore.Open(sqlstore.Config{
			Path:        cfg.Storage.Path,
			BusyTimeout: cfg.BusyTimeout(),
		}, logger.Named("storage"))
		if err != nil {
			return nil, err
		}
		store = sys.store
	}

	sys.board, err = host.New(host.Config{
		Support:       cfg.Board.Support,
		QueueCapacity: cfg.Scheduler.QueueCapacity,
		HopInterval:   cfg.HopInterval(),
		AEAD:          algs,
		Store:         store,
		Air:           sys.air,
		Metrics:       boardMetrics,
	})
	if err != nil {
		sys.close(ctx)
		return nil, err
	}

	sys.eng, err = engine.New(ctx, nil)
	if err != nil {
		sys.close(ctx)
		return nil, err
	}
	sys.sched, err = scheduler.New(sys.board, sys.eng, &scheduler.Config{
		Metrics:    schedMetrics,
		Println:    onPrint,
		TrapPolicy: cfg.TrapPolicy(),
		MaxNesting: cfg.Scheduler.MaxNesting,
	})
	if err != nil {
		sys.close(ctx)
		return nil, err
	}

	bin := demo.ButtonLED()
	if cfg.Applet.Path != "" {
		if bin, err = os.ReadFile(cfg.Applet.Path); err != nil {
			sys.close(ctx)
			return nil, fmt.Errorf("read applet: %w", err)
		}
	}
	sys.inst, err = sys.sched.Load(ctx, cfg.Applet.Name, bin)
	if err != nil {
		sys.close(ctx)
		return nil, err
	}

	sys.board.Start()
	return sys, nil
}

func run(cfg *config.Config, interactive bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		logger *zap.Logger
		ring   *logRing
	)
	if interactive {
		ring = newLogRing(200)
		logger = newLogger(cfg, zapcore.AddSync(ring), false)
	} else {
		logger = newLogger(cfg, zapcore.Lock(os.Stderr), term.IsTerminal(int(os.Stderr.Fd())))
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	var onPrint func(applet.InstID, string)
	if ring != nil {
		onPrint = func(inst applet.InstID, msg string) {
			ring.Append(fmt.Sprintf("applet#%d> %s", inst, msg))
		}
	}
	sys, err := bringUp(ctx, cfg, logger, reg, onPrint)
	if err != nil {
		return err
	}
	defer sys.close(context.Background())

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer srv.Close()
	}
	if cfg.USB.Listen != "" {
		ln, err := net.Listen("tcp", cfg.USB.Listen)
		if err != nil {
			return fmt.Errorf("usb listen: %w", err)
		}
		defer ln.Close()
		go acceptSerial(ln, sys.board, logger)
		logger.Info("usb serial listening", zap.String("addr", ln.Addr().String()))
	}

	runErr := make(chan error, 1)
	go func() { runErr <- sys.sched.Run(ctx) }()

	if interactive {
		err := runInteractive(ctx, newConsole(sys, cfg), ring)
		stop()
		<-runErr
		return err
	}

	err = <-runErr
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}

// acceptSerial attaches each new connection as the USB host, replacing the
// previous one.
func acceptSerial(ln net.Listener, b *host.Board, logger *zap.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		logger.Info("usb host connected", zap.String("remote", conn.RemoteAddr().String()))
		if err := b.AttachSerial(conn); err != nil {
			logger.Warn("attach serial", zap.Error(err))
			conn.Close()
		}
	}
}

func listAPI() {
	b, err := host.New(host.Config{Support: config.Default().Board.Support})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()
	s, err := scheduler.New(b, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Applet API (module %q):\n", applet.Module)
	for _, bnd := range s.Bindings() {
		fmt.Printf("  %-4s %s\n", bnd.Link, formatFunc(bnd.Func))
	}
}

func formatFunc(f applet.Func) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = witTypeStr(p)
	}
	result := ""
	if len(f.Results) > 0 {
		result = " -> " + witTypeStr(f.Results[0])
	}
	return fmt.Sprintf("%s(%s)%s", f.Doc, strings.Join(params, ", "), result)
}
