// Command mockbackend runs the fake analysis backend as a standalone server,
// for developing the UI against a predictable dataset.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"datalens/internal/testkit"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	backend := testkit.NewBackend()
	log.Printf("mock analysis backend listening on %s", *addr)
	if err := http.ListenAndServe(*addr, backend.Router()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
