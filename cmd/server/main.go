//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/himanishpuri/ABRWave/pkg/logger"
)

var (
	port           int
	dbPath         string
	variantName    string
	kindName       string
	allowedOrigins string
	logRequests    bool
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("ABRWAVE_DB_PATH", "abrwave.sqlite3"), "Path to SQLite database")
	flag.StringVar(&variantName, "variant", getEnvOrDefault("ABRWAVE_VARIANT", "rz"), "Default ARF layout: rz or rp")
	flag.StringVar(&kindName, "kind", getEnvOrDefault("ABRWAVE_KIND", "level"), "Default intensity axis: level or attenuation")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	// Parse default input format
	variant, err := arf.ParseVariant(variantName)
	if err != nil {
		log.Fatalf("Invalid variant: %v", err)
	}
	kind, err := waveform.ParseIntensityKind(kindName)
	if err != nil {
		log.Fatalf("Invalid intensity kind: %v", err)
	}

	// Create ABRWave service
	service, err := abrwave.NewService(
		abrwave.WithDBPath(dbPath),
		abrwave.WithVariant(variant),
		abrwave.WithIntensityKind(kind),
		abrwave.WithLogger(log.With("service")),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	// Create server configuration
	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		AllowedOrigins: origins,
		LogRequests:    logRequests,
	}

	// Create and start server
	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
