package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mindspark/internal/app"
	"mindspark/internal/config"
	"mindspark/internal/logger"
	"mindspark/internal/repository"
	"mindspark/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Replace the existing user directory instead of merging (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.LogMode, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		backupService, closeStore := openBackupService(ctx, cfg, log)
		defer closeStore()
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		backupService, closeStore := openBackupService(ctx, cfg, log)
		defer closeStore()
		handleImport(ctx, log, backupService, *importInput, *importClear, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func openBackupService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*service.BackupService, func() error) {
	records, closeStore, err := app.OpenRecordStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	return service.NewBackupService(repository.NewLocalStore(records), cfg.StoreDriver, log), closeStore
}

func handleExport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", "error", err)
		}
	}

	backup, err := backupService.Export(ctx, outputPath)
	if err != nil {
		log.Fatal("export failed", "error", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		fmt.Printf("Exported %d users to %s (%.2f KB)\n", len(backup.Users), outputPath, float64(fileInfo.Size())/1024)
	}
}

func handleImport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, inputPath string, clearData, yes bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("input file does not exist", "path", inputPath)
	}

	if clearData && !yes {
		fmt.Print("WARNING: This will replace all existing users. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			fmt.Println("Import cancelled")
			return
		}
	}

	stats, err := backupService.Import(ctx, inputPath, clearData)
	if err != nil {
		log.Fatal("import failed", "error", err)
	}
	fmt.Printf("Import complete: %d added, %d replaced, %d skipped\n", stats.Added, stats.Replaced, stats.Skipped)
}

func printUsage() {
	fmt.Println("MindSpark Local Store Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export the local user directory to a JSON file")
	fmt.Println("  backup import [options]    Import a user directory from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Replace existing users instead of merging (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  STORE_DRIVER     Record store: sql, redis or memory (default: sql)")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./mindspark.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  REDIS_ADDR       Redis address (default: localhost:6379)")
}
