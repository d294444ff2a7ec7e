// Command typestream is a streaming dictation daemon: it reads raw PCM audio
// from stdin, runs it through a speech-recognition engine, stabilizes and
// corrects the hypothesis stream, and types the result into the focused
// window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/davfehr/typestream/internal/config"
	"github.com/davfehr/typestream/internal/correct"
	"github.com/davfehr/typestream/internal/dictionary"
	dictpostgres "github.com/davfehr/typestream/internal/dictionary/postgres"
	"github.com/davfehr/typestream/internal/dictionary/phonetic"
	dictredis "github.com/davfehr/typestream/internal/dictionary/redis"
	"github.com/davfehr/typestream/internal/freqdict"
	"github.com/davfehr/typestream/internal/health"
	"github.com/davfehr/typestream/internal/inject"
	"github.com/davfehr/typestream/internal/observe"
	"github.com/davfehr/typestream/internal/session"
	"github.com/davfehr/typestream/internal/stabilize"
	"github.com/davfehr/typestream/pkg/asr"
	"github.com/davfehr/typestream/pkg/asr/deepgram"
	openaiasr "github.com/davfehr/typestream/pkg/asr/openai"
	"github.com/davfehr/typestream/pkg/asr/whisper"
)

const version = "0.3.0"

// audioChunkBytes is 100 ms of 16 kHz mono 16-bit PCM. Small enough for
// responsive silence detection, large enough to keep syscall churn down.
const audioChunkBytes = 3200

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (empty uses built-in defaults)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "typestream: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("typestream starting",
		"version", version,
		"engine", cfg.Engine.Name,
		"lag", cfg.StabilizeLag(),
		"dictionary_backend", cfg.Dictionary.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "typestream",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sc); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Protected-word dictionary ─────────────────────────────────────────────
	store := openDictionaryStore(ctx, cfg)
	defer store.Close()

	if cfg.Dictionary.SeedDefaults {
		if err := dictionary.SeedDefaults(ctx, store); err != nil {
			slog.Warn("failed to seed default compounds", "err", err)
		}
	}

	dictProvider, err := dictionary.NewProvider(ctx, store)
	if err != nil {
		slog.Error("failed to load dictionary", "err", err)
		return 1
	}
	snap := dictProvider.Current()
	slog.Info("dictionary loaded", "words", snap.WordCount(), "compounds", snap.CompoundCount())

	// ── Frequency dictionary (fuzzy correction) ───────────────────────────────
	var freq *freqdict.Dict
	if path := cfg.Correction.FrequencyDict; path != "" {
		load := freqdict.Load
		if cfg.Correction.UseMmap {
			load = freqdict.LoadMapped
		}
		freq, err = load(path)
		if err != nil {
			slog.Error("failed to load frequency dictionary", "path", path, "err", err)
			return 1
		}
		slog.Info("frequency dictionary loaded", "path", path, "terms", freq.Len())
	}

	// ── Correction pipeline ───────────────────────────────────────────────────
	pipelineOpts := []correct.Option{
		correct.WithDictionary(snap),
		correct.WithHook(func(stage, from, to string) {
			metrics.RecordCorrection(ctx, stage)
			slog.Debug("correction applied", "stage", stage, "from", from, "to", to)
		}),
	}
	if freq != nil {
		pipelineOpts = append(pipelineOpts,
			correct.WithFuzzy(freq),
			correct.WithMinCandidateFrequency(cfg.Correction.MinCandidateFrequency),
		)
	}
	if terms := snap.Words(); len(terms) > 0 {
		pipelineOpts = append(pipelineOpts, correct.WithPhoneticMatcher(phonetic.New(terms)))
	}
	pipeline := correct.NewPipeline(pipelineOpts...)

	// ── Injector ──────────────────────────────────────────────────────────────
	injector, err := buildInjector(ctx, cfg, logger)
	if err != nil {
		slog.Error("no usable injection backend", "err", err)
		return 1
	}

	// ── Metrics and health endpoints ──────────────────────────────────────────
	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		health.New(
			health.Checker{Name: "dictionary", Check: func(ctx context.Context) error {
				_, err := store.Words(ctx)
				return err
			}},
			health.Checker{Name: "injector", Check: func(ctx context.Context) error {
				_, err := buildInjector(ctx, cfg, slog.New(slog.DiscardHandler))
				return err
			}},
		).Register(mux)
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine, engineCleanup, err := buildEngine(cfg)
	if err != nil {
		slog.Error("failed to build engine", "engine", cfg.Engine.Name, "err", err)
		return 1
	}
	defer engineCleanup()

	handle, err := engine.StartStream(ctx, asr.StreamConfig{
		SampleRate: cfg.Engine.SampleRate,
		Channels:   1,
		Language:   cfg.Engine.Language,
		Keywords:   keywordBoosts(snap),
	})
	if err != nil {
		slog.Error("failed to open recognition stream", "err", err)
		return 1
	}
	defer handle.Close()

	// ── Session ───────────────────────────────────────────────────────────────
	policy := stabilize.Policy{
		Lag:                 cfg.StabilizeLag(),
		ConfidenceThreshold: cfg.Stabilize.ConfidenceThreshold,
	}
	sess, err := session.New(policy, pipeline, injector,
		session.WithMetrics(metrics),
		session.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create session", "err", err)
		return 1
	}

	slog.Info("dictating — press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer handle.Close()
		return pumpAudio(gctx, os.Stdin, handle, metrics, cfg.Engine.Name)
	})

	g.Go(func() error {
		return sess.Run(gctx, handle.Batches(), cfg.Engine.Silence.Std())
	})

	err = g.Wait()
	stop()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	if metricsSrv != nil {
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := metricsSrv.Shutdown(sc); serr != nil {
			slog.Warn("metrics server shutdown error", "err", serr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the YAML config at path, or returns built-in defaults when
// path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found", path)
		}
		return nil, err
	}
	return cfg, nil
}

// openDictionaryStore selects the protected-word store backend from cfg.
// An unreachable postgres or redis degrades to the in-memory store with a
// warning rather than refusing to start; dictation still works, only the
// persisted vocabulary is missing.
func openDictionaryStore(ctx context.Context, cfg *config.Config) dictionary.Store {
	var (
		store dictionary.Store
		err   error
	)
	switch cfg.Dictionary.Backend {
	case "postgres":
		store, err = dictpostgres.Connect(ctx, cfg.Dictionary.PostgresDSN)
	case "redis":
		store, err = dictredis.Connect(ctx, cfg.Dictionary.RedisAddr)
	default:
		return dictionary.NewMemStore()
	}
	if err != nil {
		slog.Warn("dictionary backend unreachable, continuing with in-memory store",
			"backend", cfg.Dictionary.Backend, "err", err)
		return dictionary.NewMemStore()
	}
	return store
}

// buildInjector returns the forced backend from cfg, or auto-detects one.
func buildInjector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (inject.Injector, error) {
	switch cfg.Injector.Backend {
	case "ydotool":
		return &inject.Ydotool{}, nil
	case "xdotool":
		return &inject.Xdotool{}, nil
	default:
		return inject.Detect(ctx, logger)
	}
}

// buildEngine constructs the recognition engine named in cfg. The returned
// cleanup func releases engine-held resources (the whisper model).
func buildEngine(cfg *config.Config) (asr.Engine, func(), error) {
	noop := func() {}
	silenceMs := int(cfg.Engine.Silence.Std() / time.Millisecond)

	switch cfg.Engine.Name {
	case "deepgram":
		var opts []deepgram.Option
		if cfg.Engine.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.Engine.Model))
		}
		if cfg.Engine.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(cfg.Engine.BaseURL))
		}
		e, err := deepgram.New(cfg.Engine.APIKey, opts...)
		return e, noop, err

	case "whisper":
		opts := []whisper.Option{
			whisper.WithSampleRate(cfg.Engine.SampleRate),
		}
		if silenceMs > 0 {
			opts = append(opts, whisper.WithSilenceThresholdMs(silenceMs))
		}
		if cfg.Engine.Language != "" {
			opts = append(opts, whisper.WithLanguage(shortLang(cfg.Engine.Language)))
		}
		e, err := whisper.New(cfg.Engine.ModelPath, opts...)
		if err != nil {
			return nil, noop, err
		}
		return e, func() {
			if cerr := e.Close(); cerr != nil {
				slog.Warn("whisper model close error", "err", cerr)
			}
		}, nil

	case "openai":
		opts := []openaiasr.Option{
			openaiasr.WithSampleRate(cfg.Engine.SampleRate),
		}
		if cfg.Engine.Model != "" {
			opts = append(opts, openaiasr.WithModel(cfg.Engine.Model))
		}
		if cfg.Engine.BaseURL != "" {
			opts = append(opts, openaiasr.WithBaseURL(cfg.Engine.BaseURL))
		}
		if silenceMs > 0 {
			opts = append(opts, openaiasr.WithSilenceThresholdMs(silenceMs))
		}
		if cfg.Engine.Language != "" {
			opts = append(opts, openaiasr.WithLanguage(shortLang(cfg.Engine.Language)))
		}
		e, err := openaiasr.New(cfg.Engine.APIKey, opts...)
		return e, noop, err

	default:
		return nil, noop, fmt.Errorf("unknown engine %q", cfg.Engine.Name)
	}
}

// pumpAudio copies PCM chunks from r into the recognition session until EOF
// or context cancellation. EOF is a normal end of dictation.
func pumpAudio(ctx context.Context, r io.Reader, handle asr.SessionHandle, metrics *observe.Metrics, engineName string) error {
	buf := make([]byte, audioChunkBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if serr := handle.SendAudio(chunk); serr != nil {
				metrics.RecordEngineError(ctx, engineName)
				return fmt.Errorf("send audio: %w", serr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
	}
}

// keywordBoosts turns the protected dictionary into engine vocabulary hints.
func keywordBoosts(snap *dictionary.Snapshot) []asr.KeywordBoost {
	words := snap.Words()
	if len(words) == 0 {
		return nil
	}
	boosts := make([]asr.KeywordBoost, len(words))
	for i, w := range words {
		boosts[i] = asr.KeywordBoost{Keyword: w, Boost: 5}
	}
	return boosts
}

// shortLang reduces a BCP-47 tag like "en-US" to the bare language code that
// whisper and the transcription API expect.
func shortLang(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '-' {
			return tag[:i]
		}
	}
	return tag
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
