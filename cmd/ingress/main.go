package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ttbverify/labelverify/internal/blob"
	"github.com/ttbverify/labelverify/internal/crypto"
	"github.com/ttbverify/labelverify/internal/data/db"
	"github.com/ttbverify/labelverify/internal/data/repos/jobrepo"
	ttbhttp "github.com/ttbverify/labelverify/internal/http"
	"github.com/ttbverify/labelverify/internal/http/handlers"
	"github.com/ttbverify/labelverify/internal/ingress"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/platform/envutil"
	"github.com/ttbverify/labelverify/internal/queue"
)

func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

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

	blobStore, err := newBlobStore(log)
	if err != nil {
		log.Fatal("blob store init failed", "error", err)
	}

	q, err := queue.NewRedisQueue(log, envutil.String("REDIS_ADDR", "localhost:6379"))
	if err != nil {
		log.Fatal("queue init failed", "error", err)
	}

	jobs := jobrepo.New(pg, log)

	ingressService := ingress.New(log, box, blobStore, jobs, q)
	verifyHandler := handlers.NewVerifyHandler(ingressService)
	healthHandler := handlers.NewHealthHandler(pg, q)

	router := ttbhttp.NewRouter(ttbhttp.RouterConfig{
		VerifyHandler: verifyHandler,
		HealthHandler: healthHandler,
		Log:           log,
	})

	port := envutil.String("PORT", "8080")
	log.Info("ingress listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("ingress server stopped", "error", err)
	}
}

func newBlobStore(log *logger.Logger) (blob.Store, error) {
	bucket := envutil.String("LABEL_IMAGE_BUCKET", "")
	if bucket == "" {
		log.Warn("LABEL_IMAGE_BUCKET not set, using an in-memory blob store")
		return blob.NewMemStore(), nil
	}
	return blob.NewGCSStore(context.Background(), log, bucket)
}
