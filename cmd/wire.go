package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yaverhq/yaver/buildhints"
	"github.com/yaverhq/yaver/config"
	"github.com/yaverhq/yaver/engine"
	"github.com/yaverhq/yaver/executor"
	"github.com/yaverhq/yaver/forge"
	"github.com/yaverhq/yaver/generator"
	"github.com/yaverhq/yaver/health"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/metrics"
	"github.com/yaverhq/yaver/observability"
	"github.com/yaverhq/yaver/planner"
	"github.com/yaverhq/yaver/prmonitor"
	"github.com/yaverhq/yaver/resilience"
	"github.com/yaverhq/yaver/retriever"
	"github.com/yaverhq/yaver/scanner"
	"github.com/yaverhq/yaver/scheduler"
	"github.com/yaverhq/yaver/sideeffects"
	"github.com/yaverhq/yaver/vcs"
)

// session bundles every collaborator a Driver needs, plus the health
// checker and metrics handler the run command serves while the session is
// live.
type session struct {
	driver  *engine.Driver
	state   *engine.State
	vcs     vcs.VersionControl
	checker *health.Checker
	metrics *metrics.PrometheusMetrics // nil when Prometheus is disabled
}

// buildSession wires the engine's five external interfaces from cfg and
// constructs a fresh Driver and State for userRequest. It is the CLI's one
// composition root; every concrete adapter this module carries (OpenAI
// generator, go-git VersionControl, Gitea/GitHub ForgeClient, gofmt-backed
// CodeScanner, in-memory ContextRetriever) is instantiated here.
func buildSession(cfg *config.Config, userRequest string) (*session, error) {
	prom := initObservability(cfg)

	openaiGen, err := generator.NewOpenAIGenerator(generator.OpenAIGeneratorConfig{
		APIKey:      cfg.LLM.OpenAI.APIKey,
		Model:       cfg.LLM.Default.Model,
		Temperature: cfg.LLM.Default.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("building generator: %w", err)
	}
	var gen generator.Generator = openaiGen
	if cfg.Operations.Retry.Enabled {
		gen = generator.NewRetryingGenerator(gen, resilience.NewRetryConfig().
			WithMaxAttempts(cfg.Operations.Retry.MaxAttempts).
			WithInitialDelay(cfg.Operations.Retry.InitialInterval).
			WithMaxDelay(cfg.Operations.Retry.MaxInterval).
			WithMultiplier(cfg.Operations.Retry.Multiplier).
			Build())
	}

	v, err := vcs.New(vcs.Config{
		RepoPath:     cfg.Orchestrator.RepoPath,
		AuthToken:    cfg.Forge.Token,
		ShellTimeout: cfg.Orchestrator.ShellTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	var fc forge.ForgeClient
	switch cfg.Forge.Provider {
	case "github":
		gh := forge.NewGitHubClient(cfg.Forge.Token, cfg.Forge.Owner, cfg.Forge.Repo)
		gh.SetTimeout(cfg.Orchestrator.ForgeTimeout)
		fc = gh
	default:
		gt := forge.NewGiteaClient(cfg.Forge.BaseURL, cfg.Forge.Token, cfg.Forge.Owner, cfg.Forge.Repo)
		gt.SetTimeout(cfg.Orchestrator.ForgeTimeout)
		fc = gt
	}
	fc, breaker := hardenForge(cfg, fc)

	checker := buildChecker(cfg, openaiGen, fc, breaker)
	if cfg.Health.Enabled {
		if err := preflight(cfg, checker); err != nil {
			return nil, err
		}
	}

	scan := scanner.NewGoVetScanner(cfg.Orchestrator.RepoPath)
	scan.Timeout = cfg.Orchestrator.ShellTimeout
	build := buildhints.New(cfg.Orchestrator.RepoPath)
	ret := retriever.ContextRetriever(retriever.NewInMemoryRetriever(nil))

	repoInfo := inspectRepo(cfg.Orchestrator.RepoPath)

	p := planner.New(gen, cfg.Orchestrator.MaxTaskDepth*3)
	sched := scheduler.New()
	exec := executor.New(gen, ret, build)
	applier := sideeffects.New(v, scan, gen, cfg.Orchestrator.RepoPath, cfg.Orchestrator.BaseBranch)
	monitor := prmonitor.New(fc, cfg.Orchestrator.AgentUsername, cfg.Orchestrator.BaseBranch)

	driver := engine.NewDriver(engine.Config{
		Planner:       p,
		Scheduler:     sched,
		Executor:      exec,
		Applier:       applier,
		Monitor:       monitor,
		VCS:           v,
		MaxIterations: cfg.Orchestrator.MaxIterations,
		DefaultBranch: cfg.Orchestrator.BaseBranch,
	})

	state := engine.NewState(userRequest, cfg.Orchestrator.RepoPath, repoInfo)

	return &session{driver: driver, state: state, vcs: v, checker: checker, metrics: prom}, nil
}

// inspectRepo produces a lightweight RepoInfo by walking the repository
// tree once: file count, line count, and the set of languages present by
// file extension.
func inspectRepo(root string) engine.RepoInfo {
	info := engine.RepoInfo{}
	langs := map[string]bool{}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort scan; a stat error just skips the entry
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if lang, ok := languageByExt[ext]; ok {
			langs[lang] = true
		}
		info.TotalFiles++
		if f, err := os.Open(path); err == nil {
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				info.TotalLines++
			}
			f.Close()
		}
		return nil
	})

	info.Languages = make([]string, 0, len(langs))
	for l := range langs {
		info.Languages = append(info.Languages, l)
	}

	info.ArchitectureType = detectArchitecture(root)
	return info
}

var languageByExt = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".rs":   "Rust",
	".java": "Java",
	".rb":   "Ruby",
}

// detectArchitecture reports a coarse architecture tag from root markers,
// folded into every task's prompt.
func detectArchitecture(root string) string {
	markers := []struct {
		path string
		tag  string
	}{
		{"go.mod", "Go module"},
		{"package.json", "Node.js package"},
		{"Cargo.toml", "Rust crate"},
		{"pyproject.toml", "Python project"},
	}
	var found []string
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(root, m.path)); err == nil {
			found = append(found, m.tag)
		}
	}
	return strings.Join(found, ", ")
}

func requireLogger() {
	if logging.GetLogger() == nil {
		logging.SetLogger(logging.NewStdLogger(logging.LevelInfo))
	}
}

// initObservability installs the global metrics provider, tracer, and cost
// tracker from configuration, returning the Prometheus provider (nil when
// disabled) so the run command can serve its exposition endpoint. Failures
// here degrade to no-op providers rather than blocking the session.
func initObservability(cfg *config.Config) *metrics.PrometheusMetrics {
	log := logging.GetLogger().WithName("cmd")

	var prom *metrics.PrometheusMetrics
	if cfg.Observability.Metrics.Enabled && cfg.Observability.Metrics.PrometheusEnabled {
		prom = metrics.NewPrometheusMetrics()
		metrics.SetMetrics(prom)
	}

	if err := observability.InitGlobalTracer(observability.TracingConfig{
		Enabled:       cfg.Observability.Tracing.Enabled,
		ServiceName:   cfg.Observability.Tracing.ServiceName,
		Environment:   cfg.App.Env,
		Exporter:      cfg.Observability.Tracing.Exporter,
		JaegerURL:     cfg.Observability.Tracing.JaegerURL,
		OTLPEndpoint:  cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRatio: cfg.Observability.Tracing.SamplingRatio,
	}); err != nil {
		log.Warn(context.Background(), "tracing disabled", logging.F("error", err.Error()))
	}

	if err := observability.InitGlobalCostTracker(observability.CostConfig{
		Enabled:              cfg.Observability.Cost.Enabled,
		PricingFile:          cfg.Observability.Cost.PricingFile,
		BudgetAlertThreshold: cfg.Observability.Cost.BudgetAlertThreshold,
		Currency:             cfg.Observability.Cost.Currency,
	}); err != nil {
		log.Warn(context.Background(), "cost tracking disabled", logging.F("error", err.Error()))
	}

	return prom
}

// hardenForge wraps fc with the configured circuit breaker and rate
// limiter. The monitor polls the forge every iteration; the breaker keeps
// a flapping forge from stalling each poll on a timeout, and the limiter
// keeps the cadence inside the forge's request budget.
func hardenForge(cfg *config.Config, fc forge.ForgeClient) (forge.ForgeClient, *resilience.CircuitBreaker) {
	var breaker *resilience.CircuitBreaker
	if cfg.Operations.CircuitBreaker.Enabled {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "forge",
			FailureThreshold: cfg.Operations.CircuitBreaker.Threshold,
			Timeout:          cfg.Operations.CircuitBreaker.Timeout,
		})
	}
	var limiter resilience.RateLimiter
	if cfg.Operations.RateLimit.Enabled {
		limiter = resilience.NewTokenBucketLimiter(resilience.TokenBucketConfig{
			Rate:      cfg.Operations.RateLimit.RequestsPerSecond,
			BurstSize: cfg.Operations.RateLimit.Burst,
		})
	}
	if breaker == nil && limiter == nil {
		return fc, nil
	}
	return forge.NewResilientClient(fc, breaker, limiter), breaker
}

// buildChecker registers the session's health checks: the LLM backend
// (critical -- the engine cannot do anything without it), the forge
// (non-critical -- reactive monitoring degrades gracefully), and the forge
// circuit breaker's own state when one is configured.
func buildChecker(cfg *config.Config, gen generator.HealthCheckable, fc forge.ForgeClient, breaker *resilience.CircuitBreaker) *health.Checker {
	checker := health.NewChecker()

	if cfg.Health.CheckLLM {
		checker.Register(health.CheckConfig{
			Name:     "llm",
			Check:    gen.HealthCheck,
			Timeout:  cfg.Orchestrator.ShellTimeout,
			Critical: true,
		})
	}
	if cfg.Health.CheckForge {
		checker.Register(health.CheckConfig{
			Name: "forge",
			Check: func(ctx context.Context) error {
				_, err := fc.GetUser(ctx)
				return err
			},
			Timeout:  cfg.Orchestrator.ForgeTimeout,
			Critical: false,
		})
	}
	if breaker != nil {
		checker.RegisterFunc("forge-circuit", health.CircuitBreakerCheck("forge", func() string {
			return breaker.State().String()
		}), false)
	}

	return checker
}

// preflight runs the readiness checks once before a session starts: an
// unreachable LLM should fail the command up front, not twenty iterations
// in.
func preflight(cfg *config.Config, checker *health.Checker) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Orchestrator.ShellTimeout)
	defer cancel()

	status, results := checker.OverallStatus(ctx)
	if status == health.StatusUnhealthy {
		for name, res := range results {
			if res.Status == health.StatusUnhealthy {
				return fmt.Errorf("preflight check %q failed: %s", name, res.Message)
			}
		}
		return fmt.Errorf("preflight checks failed")
	}
	if status == health.StatusDegraded {
		logging.GetLogger().WithName("cmd").Warn(context.Background(), "forge unreachable, reactive monitoring will be skipped until it recovers")
	}
	return nil
}
