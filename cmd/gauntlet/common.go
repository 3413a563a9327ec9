package main

import (
	"context"
	"fmt"

	"github.com/metalagman/gauntlet/internal/app"
	"github.com/metalagman/gauntlet/internal/arena"
	"github.com/metalagman/gauntlet/internal/config"
	"github.com/metalagman/gauntlet/internal/db"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

func loadConfig() (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.DefaultPath
	}
	return config.Load(path)
}

// session is a started application graph.
type session struct {
	engine *arena.Engine
	store  *db.Store
	cfg    config.Config
	paths  app.Paths
	stop   func()
}

// openSession loads the config and starts the graph. Offline sessions skip responders
// and model backends.
func openSession(ctx context.Context, offline bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, paths: app.NewPaths(dir)}
	a := app.New(app.Settings{Config: cfg, Paths: s.paths, Offline: offline}, fx.Populate(&s.engine, &s.store))
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return nil, fmt.Errorf("start app: %w", err)
	}
	s.stop = func() { _ = a.Stop(context.Background()) }
	return s, nil
}

// withLock runs fn while holding the arena lock.
func withLock(fn func() error) error {
	lock, err := arena.AcquireLock(dir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn()
}
