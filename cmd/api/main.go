package main

import (
	"os"

	"github.com/yigit/nodues/internal/bootstrap"
	"github.com/yigit/nodues/internal/pkg/logger" // Still needed for initial error logging
	"github.com/yigit/nodues/internal/server"
)

// @title No-Dues Clearance API
// @version 1.0
// @description API for the university no-dues clearance workflow: students submit a form, six campus units approve, reject or raise queries, and a final decision is issued once every unit has approved.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@nodues.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

//go:generate swag init -g cmd/api/main.go -o docs -d ../../

func main() {
	srv, err := server.NewServer(bootstrap.ResolveConfigPath(""))
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
