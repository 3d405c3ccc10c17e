package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/external/costindex"
	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/scheduler"
	"github.com/terrabuild/terrafusion/backend/internal/scheduler/jobs"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/database"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Start the scheduler or manage its jobs.

Registered jobs:
- annual_revaluation: every day at 2 AM (re-value the whole roll)
- cost_index_refresh: configurable, default 4 AM (published cost indices)
- upload_cleanup: every day at 3 AM (prune old batch uploads)

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - show job execution statistics

Example:
  go run ./cmd/terrafusion scheduler start
  go run ./cmd/terrafusion scheduler run annual_revaluation`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showJobStats,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== TerraFusion Scheduler ===")

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job started (running in background)")
	return nil
}

func showJobStats(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

func initScheduler() (*scheduler.Scheduler, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load cost model
	model, _, err := costmodel.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load cost model: %w", err)
	}
	paramsHash, err := costmodel.Hash(model)
	if err != nil {
		return nil, fmt.Errorf("hash cost model: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis
	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without caching")
		disabled := *cfg
		disabled.Redis.Enabled = false
		redisClient, _ = redis.New(&disabled)
	}

	// 6. Create repositories
	valuationRepo := valuation.NewRepository(db.Pool)
	propertyRepo := property.NewRepository(db.Pool)
	costTableRepo := costmodel.NewRepository(db.Pool)
	uploadRepo := batch.NewRepository(db.Pool)

	// 7. Create batch engine
	tracker := batch.NewTracker()
	engine := batch.NewEngine(propertyRepo, valuationRepo, uploadRepo, tracker,
		batch.Config{
			Workers:       cfg.Valuation.BatchWorkers,
			RatePerSecond: cfg.Valuation.BatchRatePerSecond,
		}, log)

	// 8. Create cost index client
	rateLimiter := redis.NewRateLimiter(redisClient, "terrafusion")
	indexClient := costindex.NewClient(cfg, log, rateLimiter)

	// 9. Create scheduler and register jobs
	sched := scheduler.New(log)

	sched.AddJob(jobs.NewRevaluationJob(propertyRepo, uploadRepo, engine, model, paramsHash, log))
	sched.AddJob(jobs.NewCostIndexRefreshJob(indexClient, costTableRepo, cfg.CostIndex.RefreshSchedule, log))
	sched.AddJob(jobs.NewUploadCleanupJob(uploadRepo, log))

	return sched, nil
}
