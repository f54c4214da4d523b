package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"cooler-indexer/internal/chain"
	"cooler-indexer/internal/config"
	"cooler-indexer/internal/indexer"
	"cooler-indexer/internal/observability"
	"cooler-indexer/internal/price"
	"cooler-indexer/internal/storage"
	chstore "cooler-indexer/internal/storage/clickhouse"
	"cooler-indexer/internal/storage/memory"
	"cooler-indexer/internal/storage/migrations"
	pgstore "cooler-indexer/internal/storage/postgres"
)

func main() {
	// Parse flags
	rpcEndpoint := flag.String("rpc-endpoint", "", "Ethereum RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Ethereum WebSocket endpoint (empty to poll eth_getLogs)")
	networkName := flag.String("network", "mainnet", "Network name from the networks config")
	configPath := flag.String("config", "", "Path to networks YAML (empty for built-in defaults)")
	factories := flag.String("factories", "", "Comma-separated Cooler factory addresses to monitor")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	pollInterval := flag.Duration("poll-interval", 12*time.Second, "eth_getLogs polling interval without a WebSocket endpoint")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags|log.Lshortfile)

	metrics := observability.NewMetrics("")

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	factoryList, err := parseFactories(*factories)
	if err != nil {
		logger.Fatalf("Invalid --factories: %v", err)
	}
	if len(factoryList) == 0 {
		logger.Fatal("No factory addresses specified. Use --factories")
	}
	logger.Printf("Monitoring Cooler factories: %v", factoryList)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, metrics, options{
		rpcEndpoint:   *rpcEndpoint,
		wsEndpoint:    *wsEndpoint,
		networkName:   *networkName,
		configPath:    *configPath,
		factories:     factoryList,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		pollInterval:  *pollInterval,
	})

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type options struct {
	rpcEndpoint   string
	wsEndpoint    string
	networkName   string
	configPath    string
	factories     []common.Address
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	pollInterval  time.Duration
}

// parseFactories parses the comma-separated factory address list.
func parseFactories(raw string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("not a hex address: %q", part)
		}
		out = append(out, common.HexToAddress(part))
	}
	return out, nil
}

// run wires clients, stores, and the runner and blocks until shutdown.
func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, opts options) error {
	if opts.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}

	// Load network config
	networks := config.Default()
	if opts.configPath != "" {
		var err error
		networks, err = config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load networks config: %w", err)
		}
	}
	network, err := networks.Lookup(opts.networkName)
	if err != nil {
		return fmt.Errorf("resolve network: %w", err)
	}
	logger.Printf("Network: %s (OHM feed %s)", network.Name, network.OhmUsdFeed)

	// Create chain clients
	rpc := chain.NewHTTPClient(opts.rpcEndpoint, chain.WithMetrics(metrics))

	coolers := chain.NewCoolerReader(rpc)
	tokens := chain.NewTokenReader(rpc)
	feeds := chain.NewFeedReader(rpc)
	oracle := price.NewOracle(network, feeds, tokens)

	// Require storage DSNs unless --use-memory is explicitly set
	if !opts.useMemory && (opts.postgresDSN == "" || opts.clickhouseDSN == "") {
		return fmt.Errorf("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var requestStore storage.RequestStore = memory.NewRequestStore()
	var loanStore storage.LoanStore = memory.NewLoanStore()
	var recordStore storage.RecordStore = memory.NewRecordStore()

	if !opts.useMemory {
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		chConn, err := migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer chConn.Close()

		requestStore = pgstore.NewRequestStore(pool)
		loanStore = pgstore.NewLoanStore(pool)
		recordStore = chstore.NewRecordStore(chConn)
	}

	handler := indexer.NewHandler(indexer.HandlerOptions{
		Coolers:  coolers,
		Tokens:   tokens,
		Prices:   oracle,
		Requests: requestStore,
		Loans:    loanStore,
		Records:  recordStore,
		Logger:   logger,
		Metrics:  metrics,
	})

	runnerOpts := indexer.RunnerOptions{
		Poller:    rpc,
		Headers:   rpc,
		Handler:   handler,
		Factories: opts.factories,
		PollEvery: opts.pollInterval,
		Logger:    logger,
		Metrics:   metrics,
	}

	if opts.wsEndpoint != "" {
		wsConfig := chain.DefaultWSConfig()
		wsConfig.Metrics = metrics
		ws, err := chain.NewWSClient(ctx, opts.wsEndpoint, &wsConfig)
		if err != nil {
			return fmt.Errorf("create websocket client: %w", err)
		}
		defer ws.Close()
		runnerOpts.Subscriber = ws
	}

	runner := indexer.NewRunner(runnerOpts)

	logger.Println("Starting live indexing...")
	return runner.Run(ctx)
}
