// Command token prints a bearer token for local testing and for wiring the
// payment subsystem.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/config"
)

func main() {
	subject := flag.String("sub", auth.PaymentProviderActor, "token subject (actor id)")
	role := flag.String("role", string(auth.RoleSystem), "customer, admin or system")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("RENTAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch r := auth.Role(*role); r {
	case auth.RoleCustomer, auth.RoleAdmin, auth.RoleSystem:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", r)
		os.Exit(2)
	}

	v, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	tok, err := v.Issue(*subject, auth.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
