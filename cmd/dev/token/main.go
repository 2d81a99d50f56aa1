package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hotelsync/pkg/authtoken"
	"hotelsync/pkg/config"
)

func main() {
	var (
		subject = flag.String("sub", "dev@localhost", "operator identity recorded on audit entries")
		role    = flag.String("role", "admin", "informational role claim")
		ttl     = flag.Duration("ttl", 8*time.Hour, "token lifetime")
	)
	flag.Parse()

	cfg := config.Load()
	if cfg.Admin.TokenSecret == "" {
		fmt.Fprintln(os.Stderr, "missing ADMIN_TOKEN_SECRET (env or .env)")
		os.Exit(2)
	}

	tok, err := authtoken.Issue(*subject, *role, cfg.Admin.Audience, cfg.Admin.TokenSecret, time.Now(), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
