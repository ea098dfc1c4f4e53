package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"orderaudit/internal/audit"
	"orderaudit/internal/config"
	"orderaudit/internal/domain"
	"orderaudit/internal/email"
	"orderaudit/internal/metrics"
	"orderaudit/internal/naming"
	"orderaudit/internal/normalizer"
	"orderaudit/internal/pairing"
	"orderaudit/internal/port"
	"orderaudit/internal/reconcile"
	"orderaudit/internal/rules"
	"orderaudit/internal/scorer"
)

// BatchResult is the outcome of one folder in a batch run.
type BatchResult struct {
	FolderID string            `json:"folder_id"`
	AuditID  *uuid.UUID        `json:"audit_id,omitempty"`
	Status   *domain.RunStatus `json:"status,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// AuditService defines the audit run and history contract.
type AuditService interface {
	// Run audits the supplied exports and persists one AuditRecord.
	Run(ctx context.Context, input domain.AgencyInput) (*domain.AuditRecord, error)
	// RunFolder fetches a folder's exports from the configured source and runs them.
	RunFolder(ctx context.Context, folderID string, triggeredAt time.Time) (*domain.AuditRecord, error)
	// RunBatch runs several folders in order; an empty list uses the configured defaults.
	RunBatch(ctx context.Context, folderIDs []string, triggeredAt time.Time) []BatchResult
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error)
	// ArchiveURL returns a presigned download URL for an archived record.
	ArchiveURL(ctx context.Context, id uuid.UUID) (string, error)
	// ListExports lists the exports a folder run would pick up.
	ListExports(ctx context.Context, folderID string) ([]port.ExportObject, error)
}

// AuditServiceDeps wires an AuditService. Source, Storage, Email, Webhook and
// Metrics are optional.
type AuditServiceDeps struct {
	Repo       port.AuditRecordRepository
	Registry   port.RunRegistry
	Normalizer *normalizer.Normalizer
	Catalog    *rules.Catalog
	Pairing    *pairing.Engine
	Source     port.ExportSource
	Storage    port.ObjectStorage
	Email      port.EmailSender
	Webhook    port.Notifier
	Metrics    *metrics.Metrics
	AuditCfg   config.AuditConfig
	S3Cfg      config.S3Config
	Log        zerolog.Logger
}

type auditService struct {
	repo       port.AuditRecordRepository
	builder    *audit.Builder
	normalizer *normalizer.Normalizer
	catalog    *rules.Catalog
	pairing    *pairing.Engine
	source     port.ExportSource
	storage    port.ObjectStorage
	email      port.EmailSender
	webhook    port.Notifier
	metrics    *metrics.Metrics
	auditCfg   config.AuditConfig
	s3Cfg      config.S3Config
	log        zerolog.Logger
}

// NewAuditService creates a new AuditService implementation.
func NewAuditService(deps AuditServiceDeps) AuditService {
	workers := deps.AuditCfg.Workers
	if workers < 1 {
		workers = 1
	}
	deps.AuditCfg.Workers = workers
	return &auditService{
		repo:       deps.Repo,
		builder:    audit.NewBuilder(deps.Registry, deps.Repo),
		normalizer: deps.Normalizer,
		catalog:    deps.Catalog,
		pairing:    deps.Pairing,
		source:     deps.Source,
		storage:    deps.Storage,
		email:      deps.Email,
		webhook:    deps.Webhook,
		metrics:    deps.Metrics,
		auditCfg:   deps.AuditCfg,
		s3Cfg:      deps.S3Cfg,
		log:        deps.Log,
	}
}

func (s *auditService) Run(ctx context.Context, input domain.AgencyInput) (*domain.AuditRecord, error) {
	start := time.Now()
	if len(input.Files) == 0 {
		s.metrics.ObserveRun(metrics.StatusRejected, time.Since(start))
		return nil, domain.ErrEmptyRun
	}
	if input.TriggeredAt.IsZero() {
		input.TriggeredAt = time.Now().UTC()
	}

	key := audit.NewRunKey(input.FolderID, input.TriggeredAt)
	if err := s.builder.Reserve(ctx, key); err != nil {
		s.metrics.ObserveRun(metrics.StatusRejected, time.Since(start))
		return nil, err
	}
	log := s.log.With().Str("audit_id", key.String()).Str("folder_id", input.FolderID).Logger()

	rec, err := s.execute(ctx, key, input)
	if err != nil {
		if relErr := s.builder.Release(context.WithoutCancel(ctx), key); relErr != nil {
			log.Error().Err(relErr).Msg("releasing run key")
		}
		log.Warn().Err(err).Msg("audit run aborted")
		s.metrics.ObserveRun(metrics.StatusAborted, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveRun(string(rec.Status), time.Since(start))
	s.metrics.ObserveFiles(rec.AuditResults)

	log.Info().
		Str("agency", rec.Agency).
		Str("status", string(rec.Status)).
		Int("files", len(rec.AuditResults)).
		Int("pairs", len(rec.PairedResults)).
		Msg("audit run recorded")

	s.afterPersist(ctx, log, rec)
	return rec, nil
}

// execute runs the pipeline stages. Stage boundaries are cancellation points;
// nothing reaches the builder once ctx is done.
func (s *auditService) execute(ctx context.Context, key uuid.UUID, input domain.AgencyInput) (*domain.AuditRecord, error) {
	metas := make([]domain.FileMeta, len(input.Files))
	for i, f := range input.Files {
		metas[i] = describe(f, input)
	}

	// Normalize.
	records := make([][]domain.OrderRecord, len(input.Files))
	diagnostics := make([]string, len(input.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.auditCfg.Workers)
	for i := range input.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file := input.Files[i]
			file.FileMeta = metas[i]
			recs, err := s.normalizer.Normalize(file)
			if err != nil {
				var mfe *domain.MalformedFileError
				if !errors.As(err, &mfe) {
					return fmt.Errorf("normalizing %s: %w", file.Name, err)
				}
				diagnostics[i] = mfe.Diagnostic()
				s.log.Warn().Str("audit_id", key.String()).Str("file", file.Name).Str("diagnostic", diagnostics[i]).Msg("malformed export")
				return nil
			}
			records[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit run cancelled after normalization: %w", err)
	}

	// Score.
	results := make([]domain.FileScoreResult, len(input.Files))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.auditCfg.Workers)
	for i := range input.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if diagnostics[i] != "" {
				results[i] = scorer.Malformed(metas[i], diagnostics[i])
				return nil
			}
			results[i] = scorer.Score(metas[i], records[i], s.catalog.For(metas[i].EHR, metas[i].Agency))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit run cancelled after scoring: %w", err)
	}

	// Pair.
	cohorts := pairing.GroupCohorts(results)
	pairs := make([]domain.PairResult, len(cohorts))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.auditCfg.Workers)
	for i := range cohorts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pairs[i] = s.pairing.PairCohort(cohorts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit run cancelled after pairing: %w", err)
	}

	agency, ehr := input.Agency, input.EHR
	if agency == "" {
		agency = metas[0].Agency
	}
	if ehr == "" {
		ehr = metas[0].EHR
	}

	return s.builder.Build(ctx, audit.BuildInput{
		Key:            key,
		FolderID:       input.FolderID,
		Agency:         agency,
		EHR:            ehr,
		Timestamp:      input.TriggeredAt,
		RuleSetVersion: s.catalog.Version(),
		Results:        results,
		Pairs:          pairs,
		Summaries:      reconcile.Summarize(pairs),
	})
}

// describe merges caller-supplied metadata over what the file name implies.
func describe(f domain.ExportFile, input domain.AgencyInput) domain.FileMeta {
	meta := naming.Describe(f.Name)
	if f.TemplateType != "" {
		meta.TemplateType = f.TemplateType
		meta.Cohort = naming.CohortForTemplate(f.TemplateType)
	}
	if f.Cohort != "" {
		meta.Cohort = f.Cohort
	}
	if f.CohortKey != "" {
		meta.CohortKey = f.CohortKey
	}
	switch {
	case f.Agency != "":
		meta.Agency = f.Agency
	case input.Agency != "":
		meta.Agency = input.Agency
	}
	switch {
	case f.EHR != "":
		meta.EHR = f.EHR
	case input.EHR != "":
		meta.EHR = input.EHR
	}
	return meta
}

// afterPersist sends the summary email and webhooks and archives the record.
// Failures are logged; the record is already stored.
func (s *auditService) afterPersist(ctx context.Context, log zerolog.Logger, rec *domain.AuditRecord) {
	alerts := email.Alerts(rec, s.auditCfg.AlertFailureThreshold)
	if len(alerts) > 0 {
		log.Warn().Int("alerts", len(alerts)).Float64("threshold", s.auditCfg.AlertFailureThreshold).Msg("files over failure threshold")
	}
	if s.email != nil {
		if err := s.email.SendAuditSummary(ctx, rec, alerts); err != nil {
			log.Error().Err(err).Msg("sending audit summary")
		}
	}
	if s.webhook != nil {
		if err := s.webhook.NotifyAudit(ctx, rec, alerts); err != nil {
			log.Error().Err(err).Msg("posting audit webhooks")
		}
	}
	if s.archiveEnabled() {
		if err := s.archive(ctx, rec); err != nil {
			log.Error().Err(err).Msg("archiving audit record")
		}
	}
}

func (s *auditService) archiveEnabled() bool {
	return s.s3Cfg.Archive && s.storage != nil && s.s3Cfg.Bucket != ""
}

func (s *auditService) archiveKey(id uuid.UUID) string {
	return path.Join(s.s3Cfg.ArchivePrefix, id.String()+".json")
}

func (s *auditService) archive(ctx context.Context, rec *domain.AuditRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         s.archiveKey(rec.ID),
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	return err
}

func (s *auditService) RunFolder(ctx context.Context, folderID string, triggeredAt time.Time) (*domain.AuditRecord, error) {
	if s.source == nil {
		return nil, fmt.Errorf("auditService.RunFolder: no export source configured")
	}
	if triggeredAt.IsZero() {
		triggeredAt = time.Now().UTC()
	}
	key := audit.NewRunKey(folderID, triggeredAt)
	exists, err := s.builder.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateRunError{RunKey: key}
	}

	objects, err := s.source.ListExports(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, domain.ErrEmptyRun
	}

	files := make([]domain.ExportFile, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.auditCfg.Workers)
	for i, obj := range objects {
		g.Go(func() error {
			data, err := s.source.FetchExport(gctx, folderID, obj.Name)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", obj.Name, err)
			}
			files[i] = domain.ExportFile{FileMeta: domain.FileMeta{Name: obj.Name}, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.Run(ctx, domain.AgencyInput{
		FolderID:    folderID,
		TriggeredAt: triggeredAt,
		Files:       files,
	})
}

func (s *auditService) RunBatch(ctx context.Context, folderIDs []string, triggeredAt time.Time) []BatchResult {
	if len(folderIDs) == 0 {
		folderIDs = s.auditCfg.DefaultFolderIDs
	}
	if triggeredAt.IsZero() {
		triggeredAt = time.Now().UTC()
	}

	out := make([]BatchResult, 0, len(folderIDs))
	for _, folderID := range folderIDs {
		res := BatchResult{FolderID: folderID}
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			out = append(out, res)
			continue
		}
		rec, err := s.RunFolder(ctx, folderID, triggeredAt)
		if err != nil {
			s.log.Warn().Err(err).Str("folder_id", folderID).Msg("batch folder failed")
			res.Error = err.Error()
		} else {
			res.AuditID = &rec.ID
			res.Status = &rec.Status
		}
		out = append(out, res)
	}
	return out
}

func (s *auditService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *auditService) List(ctx context.Context, filter domain.RecordFilter) ([]domain.AuditRecord, error) {
	if filter.Limit <= 0 {
		filter.Limit = s.auditCfg.HistoryLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *auditService) ArchiveURL(ctx context.Context, id uuid.UUID) (string, error) {
	if !s.archiveEnabled() {
		return "", domain.ErrArchiveDisabled
	}
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("auditService.ArchiveURL: %w", err)
	}
	if !exists {
		return "", domain.ErrNotFound
	}
	return s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, s.archiveKey(id), s.s3Cfg.PresignExpiry)
}

func (s *auditService) ListExports(ctx context.Context, folderID string) ([]port.ExportObject, error) {
	if s.source == nil {
		return nil, fmt.Errorf("auditService.ListExports: no export source configured")
	}
	return s.source.ListExports(ctx, folderID)
}
