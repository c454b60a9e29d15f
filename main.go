package main

import (
	"context"
	"fmt"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/khadka27/educonnect-chat/config"
	"github.com/khadka27/educonnect-chat/modules/broadcast"
	"github.com/khadka27/educonnect-chat/modules/files"
	"github.com/khadka27/educonnect-chat/modules/group"
	"github.com/khadka27/educonnect-chat/modules/relay"
	"github.com/khadka27/educonnect-chat/modules/store"
	"github.com/khadka27/educonnect-chat/modules/sweeper"
	"github.com/khadka27/educonnect-chat/modules/wsserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("=== EduConnect Chat Server ===")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("NATS URL: %s", cfg.NATSURL)

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storeModule := store.NewModule(cfg.DBPath, app.Logger())
	relayModule := relay.NewModule(storeModule, cfg.MessageTTL, app.Logger())
	groupModule := group.NewModule(storeModule, app.Logger())
	broadcastModule := broadcast.NewModule(app.Logger())
	filesModule := files.NewModule(cfg.NATSURL, cfg.FileBucket, cfg.MaxFileSize, app.Logger())
	sweeperModule := sweeper.NewModule(storeModule, cfg.SweepInterval, app.Logger())
	wsModule := wsserver.NewModule(
		fmt.Sprintf(":%d", cfg.HTTPPort),
		cfg.CORSOrigins,
		relayModule,
		groupModule,
		filesModule,
		storeModule,
		broadcastModule,
		app.Logger(),
	)

	// Register modules.
	// Order: independent modules first, then modules with dependencies
	// - store: persistence gateway, everything reads through it
	// - relay/group: domain services, publish chat events
	// - broadcast: room registry, consumes chat events
	// - files, sweeper: attachment storage and expiry sweep
	// - ws-server: driving adapter, depends on all of the above
	app.Register(storeModule)
	app.Register(relayModule)
	app.Register(groupModule)
	app.Register(broadcastModule)
	app.Register(filesModule)
	app.Register(sweeperModule)
	app.Register(wsModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	log.Printf("Application started on :%d (websocket endpoint: /ws)", cfg.HTTPPort)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
