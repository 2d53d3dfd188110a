package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/umair-akbar/neutrino-rdp/internal/config"
	"github.com/umair-akbar/neutrino-rdp/internal/handler"
	"github.com/umair-akbar/neutrino-rdp/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.SetLevelFromString(cfg.Logging.Level)

	gateway := handler.New(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/connect", gateway.Connect)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logging.Info("server: listening on %s", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("server: %v", err)
		os.Exit(1)
	}
}
