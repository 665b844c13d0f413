package main

import (
	"flag"
	"log"

	"github.com/james-6-23/new-api-tools-sub000/internal/auth"
	"github.com/james-6-23/new-api-tools-sub000/internal/config"
)

// dumpconfig validates a configuration file and prints the effective values,
// with secrets masked. With -hash it instead prints an operator password hash
// for the config roster.
func main() {
	file := flag.String("config", "", "path to config file")
	password := flag.String("hash", "", "print an argon2id hash for this password and exit")
	flag.Parse()

	if *password != "" {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		log.Printf("password_hash: %s", hash)
		return
	}

	cfg, err := config.Load(config.Options{ConfigFile: *file})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("listen_addr: %s", cfg.Server.ListenAddr)
	log.Printf("upstream.base_url: %s", cfg.Upstream.BaseURL)
	log.Printf("upstream.token: %s", mask(cfg.Upstream.Token))
	log.Printf("redis.url: %s", cfg.Redis.URL)
	log.Printf("database.url: %s", mask(cfg.Database.URL))
	log.Printf("auth.jwt_secret: %s", mask(cfg.Auth.JWTSecret))
	log.Printf("auth.operators: %d configured", len(cfg.Auth.Operators))
	log.Printf("refresh.leaderboard_seconds: %d", cfg.Refresh.LeaderboardSeconds)
	log.Printf("refresh.ip_monitoring_seconds: %d", cfg.Refresh.IPMonitoringSeconds)
	log.Printf("sessions.idle_timeout: %s", cfg.Sessions.IdleTimeout)
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "********"
}
