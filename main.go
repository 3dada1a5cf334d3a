package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/facet/internal/config"
	"github.com/lumenworks/facet/pkg/animations"
	"github.com/lumenworks/facet/pkg/discovery"
	"github.com/lumenworks/facet/pkg/logging"
	"github.com/lumenworks/facet/pkg/protocol"
	"github.com/lumenworks/facet/pkg/scheduler"
	"github.com/lumenworks/facet/pkg/selector"
	"github.com/lumenworks/facet/pkg/sensor"
	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
	"github.com/lumenworks/facet/pkg/watchdog"
)

func main() {
	// Command line flags; they override FACET_* environment variables.
	var (
		role        = flag.String("role", "sculpture", "Node role: sculpture or coordinator")
		nodeID      = flag.String("id", "", "Unique ID of this node")
		port        = flag.Int("port", 0, "Animation protocol port")
		coordinator = flag.String("coordinator", "", "Coordinator address (host:port)")
		sensors     = flag.Int("sensors", 0, "Number of distance sensors")
		seeds       = flag.String("seeds", "", "Comma-separated gossip seed addresses")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showUsage   = flag.Bool("help", false, "Show usage help")
	)
	flag.Parse()

	if *showUsage {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *coordinator != "" {
		cfg.CoordinatorAddr = *coordinator
	}
	if *sensors != 0 {
		cfg.SensorCount = *sensors
	}
	if *seeds != "" {
		cfg.DiscoverySeeds = strings.Split(*seeds, ",")
	}
	if *debug {
		cfg.Debug = true
	}

	root, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = root.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("=== Facet %s (%s) ===\n", cfg.NodeID, *role)
	fmt.Printf("Animation port: %d\n", cfg.Port)
	fmt.Printf("Sensors: %d, poll %v\n", cfg.SensorCount, cfg.SensorPoll)
	fmt.Printf("Starting...\n\n")

	switch *role {
	case "sculpture":
		err = runSculpture(ctx, cfg, root)
	case "coordinator":
		err = runCoordinator(ctx, cfg, root)
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		root.Sugar().Fatalw("node failed", "error", err)
	}
}

// runSculpture wires the sculpture side: sensors feeding the store, the
// coordinator poller, the animation scheduler, and the uptime watchdog.
func runSculpture(ctx context.Context, cfg *config.Config, root *zap.Logger) error {
	log := logging.Component(root, "main")

	strip := shape.NewMemoryStrip(0)
	sh, err := shape.LoadFromMarker(cfg.ShapeMarker, cfg.ShapeDir, strip)
	if err != nil {
		return fmt.Errorf("load shape: %w", err)
	}
	log.Infow("shape loaded", "shape", sh.Name, "faces", sh.NumFaces, "layers", len(sh.Layers))

	store := state.NewStore(map[string]interface{}{
		state.KeyAnimation: nil,
		state.KeyDistances: state.DefaultReadings(cfg.SensorCount),
	})

	var resolver protocol.AddrResolver = protocol.StaticAddr(cfg.CoordinatorAddr)
	if len(cfg.DiscoverySeeds) > 0 {
		member, err := discovery.New(discovery.Config{
			NodeID:   cfg.NodeID,
			Role:     discovery.RoleSculpture,
			BindAddr: cfg.BindAddr,
			BindPort: cfg.DiscoveryPort,
			Seeds:    cfg.DiscoverySeeds,
			Fallback: cfg.CoordinatorAddr,
		}, logging.Component(root, "discovery"))
		if err != nil {
			return fmt.Errorf("start discovery: %w", err)
		}
		defer func() { _ = member.Leave() }()
		resolver = member
	}

	client := protocol.NewClient(resolver, cfg.RequestTimeout, logging.Component(root, "protocol"))

	manager := sensor.NewManager(sensor.Options{
		Sensors:        cfg.SensorCount,
		PollInterval:   cfg.SensorPoll,
		ReinitInterval: cfg.ReinitInterval,
		DistanceOffset: cfg.DistanceOffset,
		HotThreshold:   cfg.HotThreshold,
		StepUp:         cfg.TempStepUp,
		StepDown:       cfg.TempStepDown,
		RiseThreshold:  cfg.RiseThreshold,
		HistoryLength:  cfg.HistoryLength(),
		LockCooldown:   cfg.LockCooldown,
	}, sensor.NewSimBus(cfg.SensorCount, time.Now().UnixNano()), store, client, logging.Component(root, "sensor"))

	registry, err := animations.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("build animation registry: %w", err)
	}
	sched := scheduler.New(registry, store, sh, cfg.SwitchPoll, cfg.ForceFile, logging.Component(root, "scheduler"))
	poller := protocol.NewPoller(client, store, cfg.QueryPoll, logging.Component(root, "protocol"))
	dog := watchdog.New(cfg.RestartAfter, nil, logging.Component(root, "watchdog"))

	return runAll(ctx, manager.Run, poller.Run, sched.Run, dog.Run)
}

// runCoordinator wires the coordinator side: the animation server over
// the shared store and the rotation selector. The coordinator always
// joins the gossip layer so sculptures can find it.
func runCoordinator(ctx context.Context, cfg *config.Config, root *zap.Logger) error {
	store := state.NewStore(map[string]interface{}{
		state.KeyAnimation:  nil,
		state.KeyLastLocked: nil,
	})

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	srv := protocol.NewServer(addr, store, cfg.RequestTimeout, cfg.AckTimeout, logging.Component(root, "protocol"))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start animation server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	member, err := discovery.New(discovery.Config{
		NodeID:      cfg.NodeID,
		Role:        discovery.RoleCoordinator,
		BindAddr:    cfg.BindAddr,
		BindPort:    cfg.DiscoveryPort,
		ServicePort: cfg.Port,
		Seeds:       cfg.DiscoverySeeds,
	}, logging.Component(root, "discovery"))
	if err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	defer func() { _ = member.Leave() }()

	registry, err := animations.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("build animation registry: %w", err)
	}
	sel := selector.New(registry, store, selector.Options{
		Rotation:         cfg.RotationInterval,
		LockWindow:       cfg.LockWindow,
		MaxLockExtension: cfg.MaxLockExtension,
	}, logging.Component(root, "selector"))

	return runAll(ctx, sel.Run)
}

// runAll runs every task until the first one returns, then cancels and
// joins the rest. The first result is the node's exit cause.
func runAll(ctx context.Context, tasks ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			errCh <- run(ctx)
		}(task)
	}

	first := <-errCh
	cancel()
	wg.Wait()
	return first
}

// printUsage shows available options for both roles.
func printUsage() {
	fmt.Fprintf(os.Stderr, `
=== Facet LED Sculpture ===

USAGE:
  %s [options]

EXAMPLES:
  %s -role=coordinator -port=8266
  %s -role=sculpture -id=facet-1 -coordinator=192.168.4.1:8266
  %s -role=sculpture -id=facet-2 -seeds=192.168.4.1:7946
  %s -role=sculpture -sensors=8 -debug

OPTIONS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])

	flag.PrintDefaults()

	fmt.Fprintf(os.Stderr, `
PROTOCOL (TCP, null-terminated frames):
  GET_ANIMATION   - Coordinator state snapshot as JSON
  LOCK_ANIMATION  - Pin the current animation, answered with LOCKED
`)
}
