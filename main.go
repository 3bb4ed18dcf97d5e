package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"appointment-dispatch/aggregator"
	"appointment-dispatch/config"
	"appointment-dispatch/formatter"
	"appointment-dispatch/metrics"
	"appointment-dispatch/models"
	"appointment-dispatch/oracle"
	"appointment-dispatch/orchestrator"
	"appointment-dispatch/parser"
	"appointment-dispatch/roster"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

func main() {
	// Define flags
	apptsPath := flag.String("appointments", "", "Appointments CSV file (required)")
	rosterPath := flag.String("roster", "", "Representative roster CSV file (required)")
	configPath := flag.String("config", "", "YAML run configuration (optional)")
	format := flag.String("format", "text", "Output format: text|json|csv")
	interactive := flag.Bool("interactive", false, "Prompt for roster edits between windows")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pushGateway := flag.String("push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	wait := flag.Bool("wait", false, "Keep process running after completion to allow for metric scraping")

	// Parse command-line flags
	flag.Parse()

	// Start metrics server if address provided
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			fmt.Printf("Metrics server listening on %s/metrics\n", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				fmt.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	// Validate required input flags
	if *apptsPath == "" || *rosterPath == "" {
		fmt.Println("Error: -appointments and -roster flags are required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate format enum
	validFormats := map[string]bool{"text": true, "json": true, "csv": true}
	if !validFormats[*format] {
		fmt.Printf("Error: format must be one of: text, json, csv (got: %s)\n", *format)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	windows := cfg.WindowList()

	apptsFile, err := os.Open(*apptsPath)
	if err != nil {
		fmt.Printf("Error opening appointments file: %v\n", err)
		os.Exit(1)
	}
	defer apptsFile.Close()
	appts, err := parser.ParseAppointments(apptsFile, windows)
	if err != nil {
		fmt.Printf("Error parsing appointments: %v\n", err)
		os.Exit(1)
	}

	rosterFile, err := os.Open(*rosterPath)
	if err != nil {
		fmt.Printf("Error opening roster file: %v\n", err)
		os.Exit(1)
	}
	defer rosterFile.Close()
	reps, err := parser.ParseRoster(rosterFile, windows)
	if err != nil {
		fmt.Printf("Error parsing roster: %v\n", err)
		os.Exit(1)
	}

	rm, err := roster.NewManager(reps)
	if err != nil {
		fmt.Printf("Error building roster: %v\n", err)
		os.Exit(1)
	}

	metrics.ResetRunGauges()

	adapter := oracle.NewAdapter(oracle.Haversine{SpeedKph: cfg.Oracle.SpeedKph}, oracle.Config{
		Timeout:       time.Duration(cfg.Oracle.Timeout),
		RatePerSecond: cfg.Oracle.RatePerSecond,
		Burst:         cfg.Oracle.Burst,
		OrderedCache:  cfg.Oracle.OrderedCache,
	})

	orch := orchestrator.New(rm, appts, windows, adapter, cfg.SolverConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewScanner(os.Stdin)
	failed := runWindows(ctx, orch, stdin, *interactive, windows)

	report := aggregator.Build(orch)

	// Output based on format
	switch *format {
	case "json":
		fmt.Print(formatter.FormatJSON(report))
	case "csv":
		fmt.Print(formatter.FormatCSV(report, windows))
	default: // "text"
		fmt.Print(formatter.FormatText(report, windows))
	}

	// Handle metrics pushing or waiting
	if *pushGateway != "" {
		jobName := "appointment_dispatch"
		if err := push.New(*pushGateway, jobName).Gatherer(metrics.Registry).Push(); err != nil {
			fmt.Fprintf(os.Stderr, "Error pushing to Pushgateway: %v\n", err)
		} else {
			fmt.Println("\nMetrics successfully pushed to Pushgateway")
		}
	}

	if *wait && *metricsAddr != "" {
		fmt.Println("\nProcess kept alive for metric scraping. Press Ctrl+C to exit.")
		// Wait for interrupt signal
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		fmt.Println("\nExiting...")
	} else if *metricsAddr != "" && *pushGateway == "" {
		// Small delay to allow final scrape if not waiting explicitly
		// but typically batch jobs should use pushgateway or wait
		time.Sleep(100 * time.Millisecond)
	}

	if failed {
		os.Exit(1)
	}
}

// runWindows drives the window sequence. Returns true if a window was
// left unsolved (oracle failure without a successful retry, or the run
// was cancelled).
func runWindows(ctx context.Context, orch *orchestrator.Orchestrator, stdin *bufio.Scanner, interactive bool, windows []models.TimeWindow) bool {
	for orch.State() != orchestrator.StateDone {
		w, ok := orch.CurrentWindow()
		if !ok {
			break
		}
		if err := orch.SolveWindow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Window %s failed: %v\n", w, err)
			if interactive && promptYesNo(stdin, fmt.Sprintf("Retry window %s? (y/n): ", w)) {
				continue
			}
			return true
		}
		if interactive {
			editLoop(orch, stdin, windows)
		}
		if err := orch.Confirm(); err != nil {
			fmt.Fprintf(os.Stderr, "Error advancing run: %v\n", err)
			return true
		}
	}
	return false
}

// editLoop accepts roster edits between windows until the operator is
// done. An add payload is a single roster CSV row; remove takes a
// comma-separated identifier list.
func editLoop(orch *orchestrator.Orchestrator, stdin *bufio.Scanner, windows []models.TimeWindow) {
	printRoster(orch)
	fmt.Println("Roster edits: add <id,name,lat,lng,tags,windows> | remove <id1, id2, ...> | done")
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		switch {
		case line == "done" || line == "":
			return
		case strings.HasPrefix(line, "add "):
			payload := strings.TrimPrefix(line, "add ")
			reps, err := parser.ParseRoster(strings.NewReader(payload), windows)
			if err != nil || len(reps) != 1 {
				fmt.Printf("Invalid add payload: %v\n", err)
				continue
			}
			if err := orch.AddRepresentative(reps[0]); err != nil {
				fmt.Printf("Add rejected: %v\n", err)
				continue
			}
			fmt.Printf("Added representative %s\n", reps[0].ID)
		case strings.HasPrefix(line, "remove "):
			var ids []string
			for _, id := range strings.Split(strings.TrimPrefix(line, "remove "), ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
			if err := orch.RemoveRepresentatives(ids); err != nil {
				fmt.Printf("Remove rejected: %v\n", err)
				continue
			}
			fmt.Printf("Removed %d representative(s)\n", len(ids))
		default:
			fmt.Println("Unknown command. Use add, remove or done.")
		}
	}
}

func printRoster(orch *orchestrator.Orchestrator) {
	fmt.Println("Current representatives:")
	for _, rep := range orch.Roster().All() {
		fmt.Printf("  %s (%s) expertise=%s\n", rep.ID, rep.Name, strings.Join(rep.Expertise, ";"))
	}
}

func promptYesNo(stdin *bufio.Scanner, prompt string) bool {
	fmt.Print(prompt)
	if !stdin.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(stdin.Text()))
	return answer == "y" || answer == "yes"
}
