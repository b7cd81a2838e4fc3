package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/adapters/persistence"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewZapLogger(cfg.App.Env)
	defer log.Sync()

	if cfg.Owner.Email == "" || cfg.Owner.Password == "" {
		log.Fatal("OWNER_EMAIL and OWNER_PASSWORD are required", nil)
	}

	hash, err := auth.HashPassword(cfg.Owner.Password)
	if err != nil {
		log.Fatal("cannot hash password", err)
	}

	pool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("cannot connect DB", err)
	}
	defer pool.Close()

	id, err := persistence.NewPostgresUserRepo(pool, log).SaveOwner(context.Background(), cfg.Owner.Email, hash)
	if err != nil {
		log.Fatal("cannot add user", err)
	}

	log.Info("added or updated owner", zap.String("email", cfg.Owner.Email), zap.String("id", id.String()))
}
