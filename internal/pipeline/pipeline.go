package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"topicmon/internal/categorization"
	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/feeds"
	"topicmon/internal/heat"
	"topicmon/internal/persistence"
	"topicmon/internal/report"
	"topicmon/internal/store"
	"topicmon/internal/topics"
)

// Stage is a state of the per-run state machine
type Stage string

const (
	StageFetching   Stage = "FETCHING"
	StageExtracting Stage = "EXTRACTING"
	StageClustering Stage = "CLUSTERING"
	StageScoring    Stage = "SCORING"
	StageReporting  Stage = "REPORTING"
	StageDone       Stage = "DONE"
	StageAborted    Stage = "ABORTED"
)

// Pipeline orchestrates one scheduled run: fetch, extract, cluster, score, report.
// Stages run synchronously; external calls are made one at a time.
type Pipeline struct {
	source    ArticleSource
	annotator TopicAnnotator
	grouper   TopicGrouper
	scorer    *heat.Scorer
	artifacts ArtifactStore
	reporter  ReportGenerator
	recorder  RunRecorder // optional

	config *Config
	log    zerolog.Logger
	now    func() time.Time
}

// Config holds pipeline configuration
type Config struct {
	WindowHours          int
	MinArticlesThreshold int
	TopicsPerReport      int
	DefaultCategory      string
	Location             *time.Location
	SlotTimes            map[core.TimeSlot]string // HH:MM per slot, used for past dates
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		WindowHours:          24,
		MinArticlesThreshold: 5,
		TopicsPerReport:      10,
		DefaultCategory:      categorization.DefaultCategoryName,
		Location:             time.Local,
		SlotTimes: map[core.TimeSlot]string{
			core.SlotMorning:   "09:30",
			core.SlotAfternoon: "15:30",
			core.SlotEvening:   "20:30",
		},
	}
}

// NewPipeline creates a new pipeline with all dependencies. recorder may be nil.
func NewPipeline(
	source ArticleSource,
	annotator TopicAnnotator,
	grouper TopicGrouper,
	scorer *heat.Scorer,
	artifacts ArtifactStore,
	reporter ReportGenerator,
	recorder RunRecorder,
	cfg *Config,
	log zerolog.Logger,
) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Pipeline{
		source:    source,
		annotator: annotator,
		grouper:   grouper,
		scorer:    scorer,
		artifacts: artifacts,
		reporter:  reporter,
		recorder:  recorder,
		config:    cfg,
		log:       log,
		now:       time.Now,
	}
}

// RunOptions selects the run to execute
type RunOptions struct {
	Slot core.TimeSlot
	Date string    // YYYY-MM-DD; empty means today
	Now  time.Time // zero means the wall clock
}

// Degradation records a fallback taken during a run
type Degradation struct {
	Stage    Stage
	Subject  string // article link, topic name or stage artifact
	Fallback string
	Cause    string
}

// RunResult contains the outcome of a run
type RunResult struct {
	RunID        string
	Date         string
	Slot         core.TimeSlot
	Window       core.TimeWindow
	FinalStage   Stage
	AbortReason  string
	Mode         string // grouped or degraded, empty before clustering
	Articles     int
	Sources      int
	CacheHits    int // extraction cache, this run only
	CacheMisses  int
	Clusters     []core.TopicCluster // ranked
	ReportPath   string
	Artifacts    []string
	Degradations []Degradation
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Aborted reports whether the run stopped before DONE.
func (r *RunResult) Aborted() bool {
	return r.FinalStage == StageAborted
}

func (r *RunResult) degrade(stage Stage, subject, fallback string, cause error) {
	d := Degradation{Stage: stage, Subject: subject, Fallback: fallback}
	if cause != nil {
		d.Cause = cause.Error()
	}
	r.Degradations = append(r.Degradations, d)
}

// Run executes one run. Empty input ends the run in ABORTED with a nil error;
// an error is returned only when the context is cancelled or a stage
// artifact cannot be written.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	now := opts.Now
	if now.IsZero() {
		now = p.now()
	}
	now = now.In(p.config.Location)

	date, window, err := p.resolveWindow(opts, now)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		RunID:      uuid.NewString(),
		Date:       date,
		Slot:       opts.Slot,
		Window:     window,
		FinalStage: StageFetching,
		StartedAt:  now,
	}
	log := p.log.With().
		Str("run_id", res.RunID).
		Str("date", date).
		Str("slot", string(opts.Slot)).
		Logger()

	defer p.finish(res, log)

	log.Info().
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Msg("Run started")

	// FETCHING
	articles, err := p.fetch(ctx, res, log)
	if err != nil || res.Aborted() {
		return res, err
	}

	// EXTRACTING
	p.enter(res, StageExtracting, log)
	annotated, err := p.extract(ctx, articles, res, log)
	if err != nil {
		return res, err
	}

	// CLUSTERING
	p.enter(res, StageClustering, log)
	clusters, err := p.cluster(ctx, annotated, res, log)
	if err != nil || res.Aborted() {
		return res, err
	}

	// SCORING
	p.enter(res, StageScoring, log)
	if err := p.score(clusters, res, log); err != nil {
		return res, err
	}

	// REPORTING
	p.enter(res, StageReporting, log)
	p.report(ctx, res, log)

	p.enter(res, StageDone, log)
	return res, nil
}

// resolveWindow returns the run date and the fetch window. Today's runs end
// the window now; runs for another date end it at that date's slot time.
func (p *Pipeline) resolveWindow(opts RunOptions, now time.Time) (string, core.TimeWindow, error) {
	if _, err := core.ParseTimeSlot(string(opts.Slot)); err != nil {
		return "", core.TimeWindow{}, err
	}

	today := now.Format(core.DateLayout)
	if opts.Date == "" || opts.Date == today {
		return today, feeds.Window(now, p.config.WindowHours), nil
	}

	day, err := time.ParseInLocation(core.DateLayout, opts.Date, p.config.Location)
	if err != nil {
		return "", core.TimeWindow{}, fmt.Errorf("invalid date %q: %w", opts.Date, err)
	}

	hour, minute, err := config.ParseClock(p.config.SlotTimes[opts.Slot])
	if err != nil {
		return "", core.TimeWindow{}, fmt.Errorf("no schedule time for slot %s: %w", opts.Slot, err)
	}

	end := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.config.Location)
	return opts.Date, feeds.Window(end, p.config.WindowHours), nil
}

func (p *Pipeline) enter(res *RunResult, stage Stage, log zerolog.Logger) {
	res.FinalStage = stage
	log.Debug().Str("stage", string(stage)).Msg("Stage entered")
}

func (p *Pipeline) abort(res *RunResult, reason string, log zerolog.Logger) {
	log.Warn().
		Str("stage", string(res.FinalStage)).
		Str("reason", reason).
		Msg("Run aborted")
	res.AbortReason = fmt.Sprintf("%s: %s", res.FinalStage, reason)
	res.FinalStage = StageAborted
}

// fail aborts on an infrastructure error and returns it.
func (p *Pipeline) fail(res *RunResult, err error, log zerolog.Logger) error {
	log.Error().Err(err).Str("stage", string(res.FinalStage)).Msg("Run failed")
	res.AbortReason = fmt.Sprintf("%s: %v", res.FinalStage, err)
	res.FinalStage = StageAborted
	return err
}

func (p *Pipeline) fetch(ctx context.Context, res *RunResult, log zerolog.Logger) ([]core.Article, error) {
	fetched, err := p.source.Fetch(ctx, res.Window)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.fail(res, ctxErr, log)
		}
		log.Error().Err(err).Msg("Feed source failed")
		p.abort(res, fmt.Sprintf("feed source failed: %v", err), log)
		return nil, nil
	}

	res.Articles = len(fetched.Articles)
	res.Sources = fetched.Sources

	path, err := p.artifacts.SaveRawArticles(res.Date, persistence.RawArticles{
		Metadata: persistence.RawMetadata{
			FetchTime:       res.StartedAt,
			TimeWindowStart: res.Window.Start,
			TimeWindowEnd:   res.Window.End,
			HoursRange:      p.config.WindowHours,
			TotalArticles:   len(fetched.Articles),
		},
		Articles: fetched.Articles,
	})
	if err != nil {
		return nil, p.fail(res, err, log)
	}
	res.Artifacts = append(res.Artifacts, path)

	gate := FetchGate(len(fetched.Articles), p.config.MinArticlesThreshold)
	if gate.Warning != "" {
		log.Warn().Int("articles", len(fetched.Articles)).Msg(gate.Warning)
	}
	if gate.Abort {
		p.abort(res, gate.Reason, log)
		return nil, nil
	}

	log.Info().
		Int("articles", len(fetched.Articles)).
		Int("sources", fetched.Sources).
		Int("healthy_sources", fetched.Healthy).
		Msg("Fetched articles")
	return fetched.Articles, nil
}

// extract annotates articles one by one. A failed article keeps an empty
// annotation and contributes no topics.
func (p *Pipeline) extract(ctx context.Context, articles []core.Article, res *RunResult, log zerolog.Logger) ([]core.AnnotatedArticle, error) {
	annotated := make([]core.AnnotatedArticle, 0, len(articles))
	failed := 0

	cache, cached := p.annotator.(CacheReporter)
	var hitsBefore, missesBefore int
	if cached {
		hitsBefore, missesBefore = cache.Stats()
	}

	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(res, err, log)
		}

		annotation, err := p.annotator.Annotate(ctx, article)
		if err != nil {
			failed++
			log.Warn().
				Err(err).
				Str("stage", string(StageExtracting)).
				Str("article", article.Link).
				Str("fallback", "no topics").
				Msg("Topic extraction failed")
			res.degrade(StageExtracting, article.Link, "no topics", err)
			annotation = core.TopicAnnotation{}
		}
		if annotation.Category != "" {
			article.Category = annotation.Category
		}

		annotated = append(annotated, core.AnnotatedArticle{Article: article, Annotation: annotation})
		log.Debug().
			Int("progress", i+1).
			Int("of", len(articles)).
			Int("topics", len(annotation.MainTopics)).
			Msg("Extracted topics")
	}

	event := log.Info().
		Int("articles", len(annotated)).
		Int("failed", failed)
	if cached {
		hits, misses := cache.Stats()
		res.CacheHits = hits - hitsBefore
		res.CacheMisses = misses - missesBefore
		event = event.Int("cache_hits", res.CacheHits).Int("cache_misses", res.CacheMisses)
	}
	event.Msg("Topic extraction finished")
	return annotated, nil
}

func (p *Pipeline) cluster(ctx context.Context, annotated []core.AnnotatedArticle, res *RunResult, log zerolog.Logger) ([]core.TopicCluster, error) {
	instances := topics.ExtractAll(annotated)
	outcome := topics.Cluster(ctx, instances, p.grouper, p.config.DefaultCategory, log)
	res.Mode = outcome.Mode.String()

	if outcome.Mode == topics.Degraded {
		res.degrade(StageClustering, "topic grouping", "one cluster per label", outcome.Cause)
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(res, err, log)
	}

	if gate := ClusterGate(outcome, len(instances)); gate.Abort {
		p.abort(res, gate.Reason, log)
		return nil, nil
	}

	path, err := p.artifacts.SaveTopics(res.Date, res.Slot, persistence.TopicsFile{
		Mode:     res.Mode,
		Clusters: outcome.Clusters,
	})
	if err != nil {
		return nil, p.fail(res, err, log)
	}
	res.Artifacts = append(res.Artifacts, path)

	log.Info().
		Str("mode", res.Mode).
		Int("instances", len(instances)).
		Int("clusters", len(outcome.Clusters)).
		Msg("Clustering finished")
	return outcome.Clusters, nil
}

func (p *Pipeline) score(clusters []core.TopicCluster, res *RunResult, log zerolog.Logger) error {
	ranked := p.scorer.Rank(clusters)
	res.Clusters = ranked

	path, err := p.artifacts.SaveHeatScores(res.Date, res.Slot, persistence.HeatScores{
		Timestamp:     fmt.Sprintf("%s %s", res.Date, res.Slot),
		GeneratedAt:   res.StartedAt,
		TotalTopics:   len(ranked),
		TotalArticles: res.Articles,
		Sources:       res.Sources,
		Topics:        ranked,
	})
	if err != nil {
		return p.fail(res, err, log)
	}
	res.Artifacts = append(res.Artifacts, path)

	event := log.Info().Int("topics", len(ranked))
	if len(ranked) > 0 {
		event = event.Str("top_topic", ranked[0].CanonicalName).Float64("top_heat", ranked[0].HeatScore)
	}
	event.Msg("Scoring finished")
	return nil
}

// report never aborts the run; earlier artifacts are already on disk.
func (p *Pipeline) report(ctx context.Context, res *RunResult, log zerolog.Logger) {
	top := heat.TopN(res.Clusters, p.config.TopicsPerReport)

	out, err := p.reporter.Generate(ctx, report.Input{
		Date:          res.Date,
		Slot:          res.Slot,
		GeneratedAt:   p.now().In(p.config.Location),
		Topics:        top,
		TotalArticles: res.Articles,
		Sources:       res.Sources,
	})
	if err != nil {
		log.Error().Err(err).Str("stage", string(StageReporting)).Str("fallback", "no report").Msg("Report generation failed")
		res.degrade(StageReporting, "report", "no report", err)
		return
	}

	res.ReportPath = out.Path
	if out.RecommendationFallbacks > 0 {
		res.degrade(StageReporting, "recommendations", fmt.Sprintf("template text for %d topics", out.RecommendationFallbacks), nil)
	}
	if out.TranslationFallbacks > 0 {
		res.degrade(StageReporting, "translations", fmt.Sprintf("original text for %d topics", out.TranslationFallbacks), nil)
	}
}

func (p *Pipeline) finish(res *RunResult, log zerolog.Logger) {
	res.FinishedAt = p.now().In(p.config.Location)

	log.Info().
		Str("final_stage", string(res.FinalStage)).
		Str("abort_reason", res.AbortReason).
		Int("articles", res.Articles).
		Int("clusters", len(res.Clusters)).
		Int("degradations", len(res.Degradations)).
		Dur("duration", res.FinishedAt.Sub(res.StartedAt)).
		Msg("Run finished")

	if p.recorder == nil {
		return
	}
	err := p.recorder.RecordRun(store.RunRecord{
		ID:          res.RunID,
		Date:        res.Date,
		Slot:        string(res.Slot),
		FinalStage:  string(res.FinalStage),
		Mode:        res.Mode,
		Articles:    res.Articles,
		Clusters:    len(res.Clusters),
		AbortReason: res.AbortReason,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record run")
	}
}

// RegenerateReport rebuilds the report of an earlier run from its heat scores.
func (p *Pipeline) RegenerateReport(ctx context.Context, date string, slot core.TimeSlot) (*report.Result, error) {
	scores, err := p.artifacts.LoadHeatScores(date, slot)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("no heat scores for %s %s: %w", date, slot, err)
		}
		return nil, err
	}

	return p.reporter.Generate(ctx, report.Input{
		Date:          date,
		Slot:          slot,
		GeneratedAt:   p.now().In(p.config.Location),
		Topics:        heat.TopN(scores.Topics, p.config.TopicsPerReport),
		TotalArticles: scores.TotalArticles,
		Sources:       scores.Sources,
	})
}
