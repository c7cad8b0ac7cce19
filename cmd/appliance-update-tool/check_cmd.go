package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/open-edge-platform/appliance-update-tool/internal/catalog"
	"github.com/open-edge-platform/appliance-update-tool/internal/compat"
	"github.com/open-edge-platform/appliance-update-tool/internal/config"
	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/installer"
	"github.com/open-edge-platform/appliance-update-tool/internal/pkgfetcher"
	"github.com/open-edge-platform/appliance-update-tool/internal/report"
	"github.com/open-edge-platform/appliance-update-tool/internal/resolver"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/general/slice"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/network"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/shell"
)

// ErrConflictingScope is returned when both --os-only and --packages-only
// are given.
var ErrConflictingScope = errors.New("--os-only and --packages-only are mutually exclusive")

// Check command flags
var (
	dryRun        bool
	infoOnly      bool
	runningOnly   bool
	officialOnly  bool
	communityOnly bool
	osOnly        bool
	packagesOnly  bool
	outFormat     string = "text"
	prettyJSON    bool   = true
	workers       int
)

type deviceCollector interface {
	Identity(ctx context.Context) (device.Identity, error)
	Inventory(ctx context.Context) ([]device.InventoryItem, error)
}

// Seams overridden in tests.
var (
	executor shell.Executor = shell.Default

	newCollector = func(cfg *config.GlobalConfig, status device.StatusChecker) deviceCollector {
		return &device.Collector{
			IdentityFile:   cfg.Device.IdentityFile,
			VersionFile:    cfg.Device.VersionFile,
			PackagesDir:    cfg.Device.PackagesDir,
			VendorNames:    cfg.Device.VendorNames,
			FamilyPrefixes: cfg.Device.FamilyPrefixes,
			Keys: device.IdentityKeys{
				Product:      cfg.Device.Keys.Product,
				Model:        cfg.Device.Keys.Model,
				Platform:     cfg.Device.Keys.Platform,
				Unique:       cfg.Device.Keys.Unique,
				Architecture: cfg.Device.Keys.Architecture,
				Variant:      cfg.Device.Keys.Variant,
				Family:       cfg.Device.Keys.Family,
			},
			Status: status,
		}
	}

	newCatalogFetcher = func() catalog.Fetcher { return network.NewFetcher() }

	newArtifactFetcher = func(workers int, progress io.Writer) *pkgfetcher.Fetcher {
		f := pkgfetcher.New(workers)
		f.Progress = progress
		return f
	}

	newPrompter = func(cmd *cobra.Command) installer.Prompter {
		return installer.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	isInteractive = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}
)

func createCheckCommand() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [flags]",
		Short: "Check for updates and optionally install them",
		Long: `Check resolves every installed package (and the base OS) against the
configured catalogs and prints a report. Unless --info-only or --dry-run is
given, an interactive prompt then offers the available package updates for
installation.`,
		Args: cobra.NoArgs,
		RunE: executeCheck,
	}

	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Resolve and report, walk the prompts but never download or install")
	checkCmd.Flags().BoolVar(&infoOnly, "info-only", false,
		"Resolve and report only, skip the interactive installation")
	checkCmd.Flags().BoolVar(&runningOnly, "running-only", false,
		"Only consider packages that are currently running")
	checkCmd.Flags().BoolVar(&officialOnly, "official-only", false,
		"Only consider packages from the vendor")
	checkCmd.Flags().BoolVar(&communityOnly, "community-only", false,
		"Only consider community packages")
	checkCmd.Flags().BoolVar(&osOnly, "os-only", false,
		"Only check the base OS")
	checkCmd.Flags().BoolVar(&packagesOnly, "packages-only", false,
		"Only check packages, skip the base OS")
	checkCmd.Flags().StringVar(&outFormat, "format", "text",
		"Report format: text or json")
	checkCmd.Flags().BoolVar(&prettyJSON, "pretty", true,
		"Pretty-print JSON output (only for --format json)")
	checkCmd.Flags().IntVar(&workers, "workers", 0,
		"Parallel catalog lookups and downloads (default from configuration)")
	return checkCmd
}

// checkOptions collects the flag state of one invocation.
type checkOptions struct {
	filter       report.Filter
	format       string
	osOnly       bool
	packagesOnly bool
	dryRun       bool
	infoOnly     bool
}

func currentOptions() (checkOptions, error) {
	opts := checkOptions{
		filter:       report.Filter{RunningOnly: runningOnly, OfficialOnly: officialOnly, CommunityOnly: communityOnly},
		format:       strings.ToLower(outFormat),
		osOnly:       osOnly,
		packagesOnly: packagesOnly,
		dryRun:       dryRun,
		infoOnly:     infoOnly,
	}
	if err := opts.filter.Validate(); err != nil {
		return opts, err
	}
	if osOnly && packagesOnly {
		return opts, ErrConflictingScope
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, fmt.Errorf("invalid --format %q (expected text|json)", outFormat)
	}
	return opts, nil
}

// executeCheck handles the check command execution logic
func executeCheck(cmd *cobra.Command, args []string) error {
	opts, err := currentOptions()
	if err != nil {
		return err
	}

	cfg := config.Global()
	if workers > 0 {
		cfg.Workers = workers
	}
	helpers := config.NewConfigHelpers(cfg)
	log := logger.With("run", uuid.NewString())
	cmd.Flags().Visit(func(f *pflag.Flag) {
		log.Debugf("flag --%s=%s", f.Name, f.Value)
	})

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lifecycle := &installer.CommandLifecycle{
		Executor:   executor,
		InstallCmd: cfg.Lifecycle.Install,
		StartCmd:   cfg.Lifecycle.Start,
		StatusCmd:  cfg.Lifecycle.Status,
		Sudo:       cfg.Lifecycle.Sudo,
	}
	collector := newCollector(cfg, lifecycle)

	id, err := collector.Identity(ctx)
	if err != nil {
		return err
	}

	var items []device.InventoryItem
	if !opts.osOnly {
		all, err := collector.Inventory(ctx)
		if err != nil {
			return err
		}
		for _, it := range all {
			if opts.filter.Includes(it) {
				items = append(items, it)
			}
		}
	}

	chain := buildChain(cfg)

	var osResult *resolver.Result
	if !opts.packagesOnly {
		r := chain.ResolveOS(ctx, id)
		osResult = &r
	}
	results := chain.ResolveAll(ctx, id, items)
	if ctx.Err() != nil {
		return fmt.Errorf("check interrupted: %w", ctx.Err())
	}

	downloadDir, err := helpers.DownloadDir()
	if err != nil {
		return fmt.Errorf("resolving download directory: %w", err)
	}
	rep := report.Build(osResult, items, results, opts.filter, downloadDir)
	if err := writeReport(cmd.OutOrStdout(), rep, opts.format); err != nil {
		return err
	}

	tasks := rep.Tasks()
	if opts.infoOnly || len(tasks) == 0 {
		return nil
	}
	if !isInteractive() {
		log.Infof("standard input is not a terminal, skipping installation of %d update(s)", len(tasks))
		return nil
	}

	// Prompts go to stderr when stdout carries JSON.
	promptOut := cmd.OutOrStdout()
	if opts.format == "json" {
		promptOut = cmd.ErrOrStderr()
	}

	var ctrl *installer.Controller
	if opts.dryRun {
		dry := &installer.DryRun{Out: promptOut}
		ctrl = installer.New(tasks, newPrompter(cmd), promptOut, dry, dry)
	} else {
		if _, err := helpers.PrepareDownloadDir(); err != nil {
			return err
		}
		defer func() {
			if err := os.RemoveAll(downloadDir); err != nil {
				log.Warnf("removing download directory %s: %v", downloadDir, err)
			}
		}()

		if tool := strings.Fields(cfg.Lifecycle.Install); len(tool) > 0 && !shell.IsCommandExist(ctx, tool[0]) {
			log.Warnf("install command %s not found on this host", tool[0])
		}

		// Debug log lines would tear the progress bar.
		var progress io.Writer = cmd.ErrOrStderr()
		if helpers.IsDebugMode() {
			progress = nil
		}
		fetcher := newArtifactFetcher(helpers.Workers(), progress)
		if cfg.Verify.PublicKey != "" {
			v, err := pkgfetcher.LoadVerifier(cfg.Verify.PublicKey)
			if err != nil {
				return err
			}
			fetcher.Verifier = v
		}
		ctrl = installer.New(tasks, newPrompter(cmd), promptOut, fetcher, lifecycle)
		ctrl.Prefetch = fetcher
	}

	final := ctrl.Run(ctx)
	printOutcomeSummary(promptOut, final)
	return nil
}

// buildChain wires the configured sources into a resolver chain.
func buildChain(cfg *config.GlobalConfig) *resolver.Chain {
	markers := make(map[device.OSVariant]string, len(cfg.Matching.VariantMarkers))
	for name, marker := range cfg.Matching.VariantMarkers {
		markers[device.ParseVariant(name)] = marker
	}

	chain := &resolver.Chain{
		Fetcher: newCatalogFetcher(),
		Matcher: &compat.Matcher{
			GenericPlatforms: cfg.Matching.GenericPlatforms,
			VariantMarkers:   markers,
		},
		Primary:        sourceOf(cfg.Catalogs.Primary, "primary"),
		OS:             sourceOf(cfg.Catalogs.OS, "os"),
		Secondary:      make(map[string]resolver.Source, len(cfg.Catalogs.Community)),
		SecondaryOrder: slice.Unique(cfg.Catalogs.Order()),
		Workers:        config.NewConfigHelpers(cfg).Workers(),
	}
	for _, s := range cfg.Catalogs.Community {
		chain.Secondary[s.Key] = sourceOf(s, s.Key)
	}
	if cfg.Lifecycle.LocalUpdate != "" {
		chain.Local = &resolver.CommandChannel{
			Executor: executor,
			Command:  cfg.Lifecycle.LocalUpdate,
			Sudo:     cfg.Lifecycle.Sudo,
		}
	}
	return chain
}

func sourceOf(s config.SourceConfig, key string) resolver.Source {
	if s.Key != "" {
		key = s.Key
	}
	return resolver.Source{
		Key:               key,
		BaseURL:           s.URL,
		Format:            s.Format,
		IndexFile:         s.IndexFile,
		Distributors:      s.Distributors,
		AllowArchitecture: s.ArchitectureAllowed(),
	}
}

func writeReport(w io.Writer, rep *report.Report, format string) error {
	if format == "json" {
		return report.RenderJSON(w, rep, prettyJSON)
	}
	return report.RenderText(w, rep)
}

func printOutcomeSummary(w io.Writer, tasks []*report.DownloadTask) {
	counts := make(map[report.TaskStatus]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	fmt.Fprintf(w, "\n%d installed, %d failed, %d skipped\n",
		counts[report.StatusInstalled], counts[report.StatusFailed], counts[report.StatusCancelled])
}
