package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/analytics"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/config"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/curriculum"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/logger"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/practice"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/spacedrep"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store/redisstore"
)

// engine bundles the services a command needs.
type engine struct {
	cfg       *config.Config
	log       *logger.Logger
	backend   store.Backend
	catalog   *curriculum.Catalog
	mastery   *mastery.Service
	scheduler *spacedrep.Scheduler
	analytics *analytics.Service
	practice  *practice.Pipeline
}

// openEngine loads config, opens the store and builds dependencies.
func openEngine(cmd *cobra.Command) (*engine, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	backend, err := openBackend(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if sqlStore, ok := backend.(*store.Store); ok {
		log.Debug("store opened", "driver", cfg.Store.Driver, "schema_version", sqlStore.SchemaVersion())
	}

	e := &engine{cfg: cfg, log: log, backend: backend}
	if err := e.build(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *engine) build() error {
	var err error
	if e.cfg.Curriculum.File != "" {
		e.catalog, err = curriculum.LoadFile(e.cfg.Curriculum.File)
	} else {
		e.catalog, err = curriculum.Default()
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	table, err := spacedrep.NewPolicyTable(e.cfg.SpacedRep.Rules)
	if err != nil {
		return fmt.Errorf("policy rules: %w", err)
	}

	if e.mastery, err = mastery.NewService(e.backend, e.backend, e.cfg.Mastery, e.log); err != nil {
		return err
	}
	if e.scheduler, err = spacedrep.NewScheduler(e.backend, table, e.cfg.SpacedRep.Params, e.log); err != nil {
		return err
	}
	if e.analytics, err = analytics.NewService(e.backend, e.cfg.Analytics, e.cfg.Mastery, e.log); err != nil {
		return err
	}
	e.practice = practice.New(e.mastery, e.scheduler, e.catalog, e.log)
	return nil
}

func openBackend(cmd *cobra.Command, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		r := cfg.Store.Redis
		return redisstore.Open(cmd.Context(), redisstore.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		})
	case store.DriverPostgres:
		return store.Open(store.DriverPostgres, cfg.Store.DSN)
	default:
		path, err := resolveDBPath(cmd, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		return store.Open(store.DriverSQLite, path)
	}
}

// subjectFor returns the explicit subject or the catalog subject of skillID.
func (e *engine) subjectFor(skillID, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return e.catalog.SubjectOf(skillID)
}

func (e *engine) Close() {
	if e.backend != nil {
		_ = e.backend.Close()
	}
	e.log.Sync()
}
