// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fabmatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/ai/openai"
	"github.com/poiesic/fabmatch/cache"
	"github.com/poiesic/fabmatch/clock"
	"github.com/poiesic/fabmatch/conversation"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/extract"
	"github.com/poiesic/fabmatch/ingestion"
	"github.com/poiesic/fabmatch/intent"
	"github.com/poiesic/fabmatch/lexical"
	"github.com/poiesic/fabmatch/patterns"
	"github.com/poiesic/fabmatch/policy"
	"github.com/poiesic/fabmatch/recommend"
	"github.com/poiesic/fabmatch/rerank"
	"github.com/poiesic/fabmatch/search"
	"github.com/poiesic/fabmatch/storage"
	"github.com/poiesic/fabmatch/storage/badger"
)

// Service wires storage, retrieval, reranking and generation into a
// recommendation service and owns their lifecycle.
type Service struct {
	cfg         *Config
	backend     *badger.Backend
	equipment   storage.EquipmentRepository
	checkpoints storage.CheckpointRepository
	provider    ai.AIProvider
	policy      *policy.Manager
	extractor   *extract.Extractor
	index       *lexical.Index
	pipeline    *recommend.Pipeline
	ingest      *ingestion.Pipeline
	logger      *slog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider ai.AIProvider
	progress io.Writer
	logger   *slog.Logger
}

// WithProvider uses provider instead of connecting to the configured model
// server. The service closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithProgress reports seeding and re-embedding progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *serviceOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService opens the database and builds every component. Rules, policy
// and pattern files that are missing or malformed are logged and replaced by
// built-in defaults. Call Start to run background jobs and Close to release
// resources.
func NewService(cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	s := &Service{cfg: cfg, logger: options.logger, index: lexical.NewIndex()}
	if err := s.open(options); err != nil {
		s.release()
		return nil, err
	}
	if err := s.RebuildIndex(context.Background()); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *Service) open(options *serviceOptions) error {
	cfg := s.cfg

	backend, err := badger.OpenBackend(cfg.DBPath, cfg.InMemory)
	if err != nil {
		return err
	}
	s.backend = backend

	equipment, err := badger.NewEquipmentRepository(backend)
	if err != nil {
		return err
	}
	s.equipment = equipment
	s.checkpoints = badger.NewCheckpointRepository(backend)

	s.provider = options.provider
	if s.provider == nil {
		s.provider, err = openai.NewProvider(cfg.ModelConfig())
		if err != nil {
			return err
		}
	}

	extractOpts := []extract.Option{extract.WithLogger(s.logger)}
	rerankOpts := []rerank.Option{rerank.WithLogger(s.logger)}
	if cfg.PolicyDir != "" {
		s.policy, err = policy.NewManager(cfg.PolicyDir,
			policy.WithSettingsTTL(cfg.Policy.SettingsTTL), policy.WithLogger(s.logger))
		if err != nil {
			return err
		}
		extractOpts = append(extractOpts, extract.WithCategoryMapper(s.policy))
		rerankOpts = append(rerankOpts, rerank.WithPolicy(s.policy))
	}

	s.extractor, err = extract.NewExtractor(extractOpts...)
	if err != nil {
		return err
	}
	if cfg.RulesFile != "" {
		_ = s.extractor.Reload(cfg.RulesFile)
	}

	reranker, err := rerank.NewPolicyReranker(rerankOpts...)
	if err != nil {
		return err
	}

	classifier, detector, err := s.loadPatterns()
	if err != nil {
		return err
	}

	retriever, err := search.NewVectorRetriever(s.equipment, s.provider.Embedder(),
		search.WithRetryPolicy(cfg.retryPolicy()), search.WithRetrieverLogger(s.logger))
	if err != nil {
		return err
	}
	searcher, err := search.NewHybridSearcher(retriever, s.index,
		search.WithWeights(cfg.weights()), search.WithLogger(s.logger))
	if err != nil {
		return err
	}

	sessions, err := conversation.NewStore(
		conversation.WithTTL(cfg.Session.TTL),
		conversation.WithCapacity(cfg.Session.Capacity),
		conversation.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	s.pipeline, err = recommend.NewPipeline(searcher, s.provider,
		recommend.WithExtractor(s.extractor),
		recommend.WithReranker(reranker),
		recommend.WithClassifier(classifier),
		recommend.WithDetector(detector),
		recommend.WithSessions(sessions),
		recommend.WithCache(cache.New[*ai.RecommendationResult](cfg.Cache.TTL, clock.System{})),
		recommend.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	ingestOpts := []ingestion.Option{
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
		ingestion.WithRetryPolicy(cfg.retryPolicy()),
		ingestion.WithProgress(options.progress),
		ingestion.WithLogger(s.logger),
	}
	if cfg.Ingestion.Workers > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithPoolSize(cfg.Ingestion.Workers))
	}
	s.ingest, err = ingestion.NewPipeline(s.equipment, s.checkpoints, s.provider.Embedder(), ingestOpts...)
	return err
}

// loadPatterns builds the query classifiers, from the pattern file when one
// is configured. Sections absent from the file, or with a pattern that does
// not compile, keep the built-in rules.
func (s *Service) loadPatterns() (*intent.Classifier, *conversation.Detector, error) {
	var quick, followUp []patterns.Spec
	if s.cfg.PatternsFile != "" {
		f, err := patterns.Load(s.cfg.PatternsFile)
		if err != nil {
			s.logger.Warn("pattern file unavailable, using built-in rules", "path", s.cfg.PatternsFile, "err", err)
		} else {
			quick, followUp = f.Quick, f.FollowUp
		}
	}
	classifier, err := intent.NewClassifier(quick)
	if err != nil {
		s.logger.Warn("invalid quick patterns, using built-in rules", "path", s.cfg.PatternsFile, "err", err)
		if classifier, err = intent.NewClassifier(nil); err != nil {
			return nil, nil, err
		}
	}
	detector, err := conversation.NewDetector(followUp)
	if err != nil {
		s.logger.Warn("invalid follow-up patterns, using built-in rules", "path", s.cfg.PatternsFile, "err", err)
		if detector, err = conversation.NewDetector(nil); err != nil {
			return nil, nil, err
		}
	}
	return classifier, detector, nil
}

// Start runs the session janitor and, when enabled, the configuration
// watcher until ctx is done or the service is closed.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	sessions := s.pipeline.Sessions()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := sessions.RunJanitor(ctx, s.cfg.Session.JanitorSpec); err != nil {
			s.logger.Error("session janitor stopped", "err", err)
		}
	}()

	if !s.cfg.Watch {
		return nil
	}
	watcher, err := policy.NewWatcher(s.logger)
	if err != nil {
		cancel()
		return err
	}
	for _, dir := range s.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("cannot watch config directory", "dir", dir, "err", err)
		}
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer watcher.Close()
		watcher.Run(ctx, s.onConfigChange)
	}()
	return nil
}

func (s *Service) watchDirs() []string {
	var dirs []string
	if s.cfg.PolicyDir != "" {
		dirs = append(dirs, filepath.Clean(s.cfg.PolicyDir))
	}
	if s.cfg.RulesFile != "" {
		dirs = append(dirs, filepath.Dir(s.cfg.RulesFile))
	}
	return dirs
}

func (s *Service) onConfigChange(path string) {
	path = filepath.Clean(path)
	if s.cfg.RulesFile != "" && path == filepath.Clean(s.cfg.RulesFile) {
		_ = s.extractor.Reload(path)
		s.pipeline.PurgeCache()
		return
	}
	if s.policy != nil && filepath.Dir(path) == filepath.Clean(s.cfg.PolicyDir) {
		_ = s.policy.Reload()
		s.pipeline.PurgeCache()
	}
}

// Reload re-reads the rules file and the policy tables.
func (s *Service) Reload() error {
	var errs []error
	if s.cfg.RulesFile != "" {
		errs = append(errs, s.extractor.Reload(s.cfg.RulesFile))
	}
	if s.policy != nil {
		errs = append(errs, s.policy.Reload())
	}
	s.pipeline.PurgeCache()
	return errors.Join(errs...)
}

// RebuildIndex reloads the lexical index from the equipment store.
func (s *Service) RebuildIndex(ctx context.Context) error {
	items, err := s.equipment.ListEquipment(ctx)
	if err != nil {
		return err
	}
	s.index.Build(items)
	s.logger.Debug("lexical index rebuilt", "documents", s.index.Len())
	return nil
}

// Seed loads the configured equipment file, then refreshes the index and
// drops cached generations.
func (s *Service) Seed(ctx context.Context, opts ingestion.SeedOptions) (*ingestion.SeedResult, error) {
	if s.cfg.EquipmentFile == "" {
		return nil, ErrEquipmentFileRequired
	}
	result, err := s.ingest.Seed(ctx, s.cfg.EquipmentFile, opts)
	if err != nil {
		return nil, err
	}
	if !result.Skipped {
		if err := s.RebuildIndex(ctx); err != nil {
			return result, err
		}
		s.pipeline.PurgeCache()
	}
	return result, nil
}

// SeedItems stores items as the catalogue, like Seed.
func (s *Service) SeedItems(ctx context.Context, items []*core.Equipment, opts ingestion.SeedOptions) (*ingestion.SeedResult, error) {
	result, err := s.ingest.SeedItems(ctx, items, "", opts)
	if err != nil {
		return nil, err
	}
	if err := s.RebuildIndex(ctx); err != nil {
		return result, err
	}
	s.pipeline.PurgeCache()
	return result, nil
}

// Reembed regenerates every stored vector.
func (s *Service) Reembed(ctx context.Context) (int, error) {
	n, err := s.ingest.Reembed(ctx)
	if err != nil {
		return n, err
	}
	s.pipeline.PurgeCache()
	return n, nil
}

// Ask answers a recommendation request.
func (s *Service) Ask(ctx context.Context, req recommend.Request) (*recommend.Response, error) {
	return s.pipeline.Ask(ctx, req)
}

// Stream answers a recommendation request incrementally.
func (s *Service) Stream(ctx context.Context, req recommend.Request) (<-chan recommend.Event, error) {
	return s.pipeline.Stream(ctx, req)
}

// Stats is a snapshot of service state.
type Stats struct {
	Equipment    int
	Embedded     int
	Indexed      int
	Sessions     int
	PolicyDir    string
	Institutions []policy.Institution
	Checkpoints  []*core.Checkpoint
}

// Stats reports counts of stored, embedded and indexed equipment along
// with the last completed ingestion jobs.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	items, err := s.equipment.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Equipment: len(items),
		Indexed:   s.index.Len(),
		Sessions:  s.pipeline.Sessions().Len(),
	}
	for _, e := range items {
		if len(e.Vector) > 0 {
			st.Embedded++
		}
	}
	if st.Checkpoints, err = s.checkpoints.ListCheckpoints(ctx); err != nil {
		return nil, err
	}
	if s.policy != nil {
		st.PolicyDir = s.policy.Dir()
		st.Institutions = s.policy.Tables().Institutions()
	}
	return st, nil
}

// Policy returns the policy manager, or nil when no policy directory is configured.
func (s *Service) Policy() *policy.Manager {
	return s.policy
}

// Equipment returns the equipment repository.
func (s *Service) Equipment() storage.EquipmentRepository {
	return s.equipment
}

// Sessions returns the conversation store.
func (s *Service) Sessions() *conversation.Store {
	return s.pipeline.Sessions()
}

// Close stops background jobs and releases every resource.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		err = s.release()
	})
	return err
}

func (s *Service) release() error {
	if s.ingest != nil {
		s.ingest.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.equipment != nil {
		if err := s.equipment.Close(); err != nil {
			s.logger.Error("error closing equipment repository", "err", err)
			return err
		}
	}
	if s.backend != nil && !s.backend.IsClosed() {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}
