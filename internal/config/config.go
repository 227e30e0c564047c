package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	wbfconfig "github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"campushub/internal/mailer"
)

type Server struct {
	Port string
}

type DB struct {
	MasterDSN string
	SlaveDSNs []string
	Options   *dbpg.Options
}

type Rabbit struct {
	URL      string
	Exchange string
	Queue    string
}

type Auth struct {
	JWTSecret string
	KioskKey  string
}

type Config struct {
	Server Server
	DB     DB
	Rabbit Rabbit
	Auth   Auth
	SMTP   mailer.SMTP
}

// Build reads the loaded configuration tree into typed sections and fails on
// anything the service cannot run without.
func Build(cfg *wbfconfig.Config, log *zerolog.Logger) (*Config, error) {
	c := &Config{
		Server: Server{
			Port: cfg.GetString("server.port"),
		},
		DB: DB{
			MasterDSN: cfg.GetString("db.master_dsn"),
			Options: &dbpg.Options{
				MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
				MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
				ConnMaxLifetime: time.Duration(cfg.GetInt("db.conn_max_lifetime_seconds")) * time.Second,
			},
		},
		Rabbit: Rabbit{
			URL:      cfg.GetString("rabbit.url"),
			Exchange: cfg.GetString("rabbit.exchange"),
			Queue:    cfg.GetString("rabbit.queue"),
		},
		Auth: Auth{
			JWTSecret: cfg.GetString("auth.jwt_secret"),
			KioskKey:  cfg.GetString("auth.kiosk_key"),
		},
		SMTP: mailer.SMTP{
			Host:     cfg.GetString("smtp.host"),
			Port:     cfg.GetInt("smtp.port"),
			From:     cfg.GetString("smtp.from"),
			Password: cfg.GetString("smtp.password"),
		},
	}

	if slaves := cfg.GetString("db.slave_dsns"); slaves != "" {
		for _, dsn := range strings.Split(slaves, ",") {
			if dsn = strings.TrimSpace(dsn); dsn != "" {
				c.DB.SlaveDSNs = append(c.DB.SlaveDSNs, dsn)
			}
		}
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.DB.MasterDSN == "" {
		return nil, fmt.Errorf("db.master_dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.KioskKey == "" {
		log.Warn().Msg("auth.kiosk_key is empty, trusted check-in route disabled")
	}

	return c, nil
}
