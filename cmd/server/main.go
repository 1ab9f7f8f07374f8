// Command server wires the identity manager, membership directory,
// persistence adapter, and HTTP/websocket gateway into one process.
// Grounded on moonhole-HoldemIJ's apps/server/main.go (service
// construction order, env-driven mode selection, CORS wrapper, route
// registration).
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"holdem-lite/internal/gateway"
	"holdem-lite/internal/identity"
	"holdem-lite/internal/store"
)

func main() {
	secret := []byte(strings.TrimSpace(os.Getenv("AUTH_SECRET")))
	if len(secret) == 0 {
		log.Printf("[server] AUTH_SECRET not set, using an insecure development default")
		secret = []byte("dev-insecure-secret-change-me")
	}
	accounts := identity.NewManager(secret)
	membership := identity.NewMembership()

	db, storeMode, err := store.NewFromEnv(os.Getenv("STORE_MODE"))
	if err != nil {
		log.Fatalf("[server] failed to init persistence adapter: %v", err)
	}
	defer db.Close()

	gw := gateway.New(accounts, membership, db)
	defer gw.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	gw.RegisterRoutes(mux)

	addr := strings.TrimSpace(os.Getenv("SERVER_ADDR"))
	if addr == "" {
		addr = ":18080"
	}
	log.Printf("[server] store mode: %s", storeMode)
	log.Printf("[server] listening on %s", addr)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil {
		log.Fatalf("[server] failed to start: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
