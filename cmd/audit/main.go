// Command audit runs one audit over a local export folder and records it in
// the configured store.
// Usage: go run ./cmd/audit -folder luna [-root exports] [-agency LunaVista] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"orderaudit/internal/config"
	"orderaudit/internal/domain"
	"orderaudit/internal/email/noop"
	"orderaudit/internal/logger"
	"orderaudit/internal/normalizer"
	"orderaudit/internal/pairing"
	"orderaudit/internal/port"
	"orderaudit/internal/repository"
	"orderaudit/internal/rules"
	"orderaudit/internal/service"
	"orderaudit/internal/source"
	"orderaudit/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	folder := flag.String("folder", "", "folder id under the export root (required)")
	root := flag.String("root", cfg.Source.LocalRoot, "export root directory")
	at := flag.String("at", "", "trigger time, RFC3339 (default now)")
	asJSON := flag.Bool("json", false, "print the full audit record as JSON")
	flag.Parse()
	if *folder == "" {
		flag.Usage()
		return fmt.Errorf("-folder is required")
	}

	triggeredAt := time.Now().UTC()
	if *at != "" {
		triggeredAt, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parsing -at: %w", err)
		}
	}

	log := logger.New(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(&cfg.DB)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer func() { _ = store.Close() }()

	catalog, err := rules.Load(cfg.Audit.RulesFile)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	var hooks port.Notifier
	if cfg.Webhook.Enabled() {
		hooks = webhook.NewNotifier(cfg.Webhook, log)
	}

	auditSvc := service.NewAuditService(service.AuditServiceDeps{
		Repo:       store.Records,
		Registry:   store.Registry,
		Normalizer: normalizer.New(cfg.Normalizer),
		Catalog:    catalog,
		Pairing:    pairing.NewEngine(log),
		Source:     source.NewLocalSource(*root, cfg.Source.NameFilter),
		Email:      noop.NewNoopSender(log, cfg.Email.DashboardURL),
		Webhook:    hooks,
		AuditCfg:   cfg.Audit,
		Log:        log,
	})

	rec, err := auditSvc.RunFolder(ctx, *folder, triggeredAt)
	if err != nil {
		return fmt.Errorf("auditing %s: %w", *folder, err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	return printSummary(os.Stdout, rec)
}

func printSummary(w io.Writer, rec *domain.AuditRecord) error {
	fmt.Fprintf(w, "audit %s  folder=%s agency=%s ehr=%s status=%s rules=%s\n\n",
		rec.ID, rec.FolderID, rec.Agency, rec.EHR, rec.Status, rec.RuleSetVersion)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCOHORT\tROWS\tFAILED\tFAILURE %\tNOTE")
	for _, r := range rec.AuditResults {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%s\n",
			r.FileName, r.Cohort, r.Stats.TotalRows, r.Stats.FailureCount, r.Stats.FailureRate, r.Diagnostic)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, p := range rec.PairedResults {
		fmt.Fprintf(w, "\ncohort %q: %d matched, %d pending signature, %d signed without source\n",
			p.CohortKey, p.CombinedSummary.MatchesFound,
			len(p.CombinedSummary.PendingSignatureOrders), len(p.CombinedSummary.SignedWithoutUnsignedSource))
		if p.Warning != nil {
			fmt.Fprintf(w, "  warning: %s\n", p.Warning.Message)
		}
	}
	return nil
}
