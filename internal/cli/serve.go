package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/api"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/inventory"
	"github.com/piwi3910/SubTrack/internal/matcher"
	"github.com/piwi3910/SubTrack/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.ListenAddr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// inventorySource picks the HTTP endpoint when configured, else the snapshot
// file.
func inventorySource(cfg config.InventoryConfig) (inventory.Source, error) {
	if cfg.URL != "" {
		return inventory.NewHTTPSource(cfg.URL, cfg.FetchTimeout), nil
	}
	path := cfg.Snapshot
	if path == "" {
		p, err := inventory.DefaultSnapshotPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return inventory.FileSource{Path: path}, nil
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(a.cfg.DB, a.log)
	if err != nil {
		return err
	}
	defer st.Close()

	// Redis is optional; without it source IDs come from the local clock counter.
	var rdb *redis.Client
	if a.cfg.RedisAddr != "" {
		rdb, err = store.ConnectRedis(sigCtx, a.cfg.RedisAddr)
		if err != nil {
			a.log.WithFields(logrus.Fields{"field": "redis"}).Warn(err.Error() + "; using local source ids")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	seq := store.NewRedisSequence(rdb, store.SourceIDKey)

	src, err := inventorySource(a.cfg.Inventory)
	if err != nil {
		return err
	}
	cache := inventory.NewCache(src, a.cfg.Inventory.TTL, a.log)
	svc := matcher.NewService(st, cache, seq, a.log)

	if a.log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           api.NewServer(st, svc, cache, a.cfg, a.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	a.log.WithFields(logrus.Fields{
		"addr":      a.cfg.ListenAddr,
		"db":        a.cfg.DB.Driver,
		"redis":     rdb != nil,
		"inventory": a.cfg.Inventory.URL != "",
	}).Info("subtrack listening")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info("subtrack stopped")
	return nil
}
