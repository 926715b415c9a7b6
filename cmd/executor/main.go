package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ttbverify/labelverify/internal/blob"
	"github.com/ttbverify/labelverify/internal/cache"
	"github.com/ttbverify/labelverify/internal/clients/extractor"
	"github.com/ttbverify/labelverify/internal/clients/registry"
	"github.com/ttbverify/labelverify/internal/crypto"
	"github.com/ttbverify/labelverify/internal/data/db"
	"github.com/ttbverify/labelverify/internal/data/repos/beveragerepo"
	"github.com/ttbverify/labelverify/internal/data/repos/jobrepo"
	"github.com/ttbverify/labelverify/internal/data/repos/matchhistoryrepo"
	"github.com/ttbverify/labelverify/internal/executor"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/platform/envutil"
	"github.com/ttbverify/labelverify/internal/queue"
	"github.com/ttbverify/labelverify/internal/rules"
	"github.com/ttbverify/labelverify/internal/validate"
)

func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("postgres auto migration failed", "error", err)
	}
	pg := postgresService.DB()

	key, ok := envutil.MustBase64("LABEL_ENCRYPTION_KEY")
	if !ok || len(key) != crypto.KeySize {
		log.Fatal("LABEL_ENCRYPTION_KEY must be a base64-encoded 32-byte key")
	}
	box, err := crypto.New(key)
	if err != nil {
		log.Fatal("crypto init failed", "error", err)
	}

	blobStore, err := newBlobStore(ctx, log)
	if err != nil {
		log.Fatal("blob store init failed", "error", err)
	}

	q, err := queue.NewRedisQueue(log, envutil.String("REDIS_ADDR", "localhost:6379"))
	if err != nil {
		log.Fatal("queue init failed", "error", err)
	}

	extractorClient, err := extractor.New(ctx, log)
	if err != nil {
		log.Fatal("extractor init failed", "error", err)
	}
	defer extractorClient.Close()

	registryClient, err := registry.New(log, envutil.String("TTB_REGISTRY_BASE_URL", "https://ttbonline.gov/colasonline/publicSearchColasBasicProcess.do"))
	if err != nil {
		log.Fatal("registry client init failed", "error", err)
	}

	rulesTable, err := rules.Load()
	if err != nil {
		log.Fatal("rules load failed", "error", err)
	}

	jobs := jobrepo.New(pg, log)
	beverages := beveragerepo.New(pg, log)
	matchHistory := matchhistoryrepo.New(pg, log)

	resolutionCache := cache.New(log, beverages, registryClient, rulesTable)
	validateEngine := validate.New(log, resolutionCache, rulesTable, beverages)

	exec := executor.New(log, q, blobStore, box, extractorClient, jobs, matchHistory, validateEngine)
	exec.Start(ctx)

	log.Info("executor running", "concurrency_env", envutil.Int("WORKER_CONCURRENCY", 4))
	<-ctx.Done()
	log.Info("executor shutting down")
}

func newBlobStore(ctx context.Context, log *logger.Logger) (blob.Store, error) {
	bucket := envutil.String("LABEL_IMAGE_BUCKET", "")
	if bucket == "" {
		log.Warn("LABEL_IMAGE_BUCKET not set, using an in-memory blob store")
		return blob.NewMemStore(), nil
	}
	return blob.NewGCSStore(ctx, log, bucket)
}
