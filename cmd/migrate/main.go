package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/dirtycheck-service/migrations"
)

var (
	projectID  = flag.String("project", getEnvOrDefault("SPANNER_PROJECT_ID", "test-project"), "GCP project ID")
	instanceID = flag.String("instance", getEnvOrDefault("SPANNER_INSTANCE_ID", "dev-instance"), "Spanner instance ID")
	databaseID = flag.String("database", getEnvOrDefault("SPANNER_DATABASE_ID", "dirtycheck-db"), "Spanner database ID")
	migrateDir = flag.String("migrations", "", "Directory containing migration SQL files; defaults to the embedded schema")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	// Check if using emulator
	emulatorHost := os.Getenv("SPANNER_EMULATOR_HOST")
	if emulatorHost != "" {
		slog.Info("using Spanner emulator", "host", emulatorHost)
	}

	if err := run(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migrations completed")
}

func run(ctx context.Context) error {
	// Ensure instance exists
	if err := ensureInstance(ctx); err != nil {
		return fmt.Errorf("failed to ensure instance: %w", err)
	}

	if err := ensureDatabase(ctx); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}

	// Apply migrations
	if err := applyMigrations(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

func ensureInstance(ctx context.Context) error {
	slog.Info("ensuring instance exists", "instance", *instanceID)

	instanceAdmin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer instanceAdmin.Close()

	instanceName := fmt.Sprintf("projects/%s/instances/%s", *projectID, *instanceID)

	// Check if instance exists
	_, err = instanceAdmin.GetInstance(ctx, &instancepb.GetInstanceRequest{
		Name: instanceName,
	})

	if err == nil {
		slog.Info("instance already exists")
		return nil
	}

	// Create instance if it doesn't exist
	if status.Code(err) == codes.NotFound {
		slog.Info("creating instance")
		op, err := instanceAdmin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
			Parent:     fmt.Sprintf("projects/%s", *projectID),
			InstanceId: *instanceID,
			Instance: &instancepb.Instance{
				Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", *projectID),
				DisplayName: "Development Instance",
				NodeCount:   1,
			},
		})
		if err != nil {
			// Ignore if already exists
			if status.Code(err) != codes.AlreadyExists {
				return fmt.Errorf("failed to create instance: %w", err)
			}
			slog.Info("instance already exists")
			return nil
		}

		// Don't wait too long on emulator
		if _, err := op.Wait(ctx); err != nil {
			// Emulator might complete immediately, ignore certain errors
			if status.Code(err) != codes.AlreadyExists {
				slog.Warn("instance creation did not complete cleanly", "error", err)
			}
		}

		slog.Info("instance created")
		return nil
	}

	slog.Warn("unexpected error checking instance", "error", err)
	return nil
}

func ensureDatabase(ctx context.Context) error {
	slog.Info("ensuring database exists", "database", *databaseID)

	adminClient, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", *projectID, *instanceID, *databaseID)

	// Check if database exists
	_, err = adminClient.GetDatabase(ctx, &databasepb.GetDatabaseRequest{
		Name: dbPath,
	})

	if err == nil {
		slog.Info("database already exists")
		return nil
	}

	// Create database if it doesn't exist
	if status.Code(err) == codes.NotFound {
		slog.Info("creating database")
		op, err := adminClient.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
			Parent:          fmt.Sprintf("projects/%s/instances/%s", *projectID, *instanceID),
			CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", *databaseID),
		})
		if err != nil {
			// Ignore if database already exists
			if status.Code(err) != codes.AlreadyExists {
				return fmt.Errorf("failed to create database: %w", err)
			}
			slog.Info("database already exists")
			return nil
		}

		if _, err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to wait for database creation: %w", err)
		}

		slog.Info("database created")
		return nil
	}

	// For other errors on emulator, just proceed - the DB might exist
	if os.Getenv("SPANNER_EMULATOR_HOST") != "" {
		slog.Warn("proceeding with database in emulator mode", "error", err)
		return nil
	}

	return fmt.Errorf("failed to check database: %w", err)
}

func applyMigrations(ctx context.Context) error {
	all, err := loadMigrations()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		slog.Info("no migration files found")
		return nil
	}

	adminClient, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", *projectID, *instanceID, *databaseID)

	for _, m := range all {
		slog.Info("applying migration", "name", m.Name, "statements", len(m.Statements))

		op, err := adminClient.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   dbPath,
			Statements: m.Statements,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", m.Name, err)
		}

		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", m.Name, err)
		}

		slog.Info("applied migration", "name", m.Name)
	}

	return nil
}

func loadMigrations() ([]migrations.Migration, error) {
	if *migrateDir == "" {
		return migrations.All()
	}
	slog.Info("reading migrations", "dir", *migrateDir)
	return migrations.Load(os.DirFS(*migrateDir))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
