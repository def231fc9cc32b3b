package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/codelafda/codelafda/internal/cache"
	"github.com/codelafda/codelafda/internal/database"
	progDb "github.com/codelafda/codelafda/internal/database/progression/database"
	"github.com/codelafda/codelafda/internal/game"
	"github.com/codelafda/codelafda/internal/logging"
	"github.com/codelafda/codelafda/internal/room"
	"github.com/codelafda/codelafda/internal/server"
	"github.com/codelafda/codelafda/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := realMain(ctx); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context) error {
	config := room.Config{}
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("processing the config: %w", err)
	}

	logger := logging.NewLogger(config.Debug).Named("codelafda")
	ctx = logging.WithLogger(ctx, logger)

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}
	defer db.Close(ctx)

	statCache, err := cache.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	progression := progDb.New(db, statCache)

	manager := room.NewManager(ctx, config.GameConfig(), game.NewPool())

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", server.HandleHealth(ctx))
	mux.HandleFunc("/ws/", manager.HandleWS)
	server.NewAPI(progression).Register(mux)

	logger.Infof("serving on :%s", config.Port)

	profSrv, err := server.New(config.ProfPort)
	if err != nil {
		return fmt.Errorf("server.New profiler: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ServeHTTP(ctx, &http.Server{Handler: requestLogging(ctx, mux)})
	})
	group.Go(func() error {
		return profSrv.ServeHTTP(ctx, &http.Server{Handler: http.DefaultServeMux})
	})

	return group.Wait()
}

// requestLogging carries the process logger into every request context.
func requestLogging(ctx context.Context, next http.Handler) http.Handler {
	logger := logging.FromContext(ctx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
	})
}
