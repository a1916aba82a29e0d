package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sheetstore/sheetstore/internal/bulk"
	"github.com/sheetstore/sheetstore/internal/schema"
	"github.com/sheetstore/sheetstore/internal/seeder"
	"github.com/sheetstore/sheetstore/internal/store"
	"github.com/sheetstore/sheetstore/internal/utils"
	"github.com/sheetstore/sheetstore/pkg/models"
)

func main() {
	var (
		databasePath   string
		datamodelPath  string
		envFile        string
		logLevel       string
		checkFilepaths bool
		loadMode       string
		exportTables   []string
		seedRecords    int
	)

	setup := func() *logrus.Logger {
		logger := utils.SetupLogging(logLevel)
		utils.LoadEnvironmentVariables(envFile, logger)
		if databasePath == "" {
			databasePath = utils.GetEnvOrDefault("SHEETSTORE_DATABASE", "db/sheetstore.db")
		}
		if datamodelPath == "" {
			datamodelPath = utils.GetEnvOrDefault("SHEETSTORE_DATAMODEL", "db/datamodel.xlsx")
		}
		return logger
	}

	loadModel := func(logger *logrus.Logger) *models.DataModel {
		model, err := schema.Load(datamodelPath, models.Options{CheckFilepathExists: checkFilepaths}, logger)
		if err != nil {
			logger.Errorf("Failed to load data model: %v", err)
			os.Exit(1)
		}
		return model
	}

	openEngine := func(logger *logrus.Logger) *store.Engine {
		engine, err := store.Open(databasePath, loadModel(logger), logger)
		if err != nil {
			logger.Errorf("Failed to open database: %v", err)
			os.Exit(1)
		}
		return engine
	}

	rootCmd := &cobra.Command{
		Use:   "sheetstore",
		Short: "A schema-driven data-entry store defined by a spreadsheet",
		Long: `Sheetstore

A workbook defines tables, fields, types and foreign keys; sheetstore turns
that definition into a SQLite schema and provides generic record CRUD,
bulk loading and export without any table-specific code.`,
	}

	rootCmd.PersistentFlags().StringVarP(&databasePath, "database", "d", "", "Path to the SQLite database file")
	rootCmd.PersistentFlags().StringVarP(&datamodelPath, "datamodel", "m", "", "Path to the data model workbook")
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&checkFilepaths, "check-filepaths", false, "Require filepath values to exist on disk")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or overwrite the database from the data model",
		Long:  "Deletes the database file if it exists and recreates every table from the data model. Destructive.",
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			if err := os.Remove(databasePath); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing database %s: %v", databasePath, err)
				os.Exit(1)
			}
			engine := openEngine(logger)
			defer engine.Close()
			if err := engine.InitFromModel(); err != nil {
				logger.Errorf("Failed to initialize database: %v", err)
				os.Exit(1)
			}
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load <workbook>",
		Short: "Load table data from a workbook into the database",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			mode, err := bulk.ParseLoadMode(loadMode)
			if err != nil {
				logger.Errorf("%v", err)
				os.Exit(1)
			}
			engine := openEngine(logger)
			defer engine.Close()
			loader := bulk.NewLoader(engine, logger)
			if err := loader.LoadWorkbook(args[0], mode); err != nil {
				logger.Errorf("Load failed: %v", err)
				os.Exit(1)
			}
		},
	}
	loadCmd.Flags().StringVar(&loadMode, "mode", string(bulk.ModeUpdateOrAdd),
		`Conflict handling: "add or fail", "add or ignore", "update or add" or "delete and add"`)

	exportCmd := &cobra.Command{
		Use:   "export <workbook>",
		Short: "Export database tables to a workbook, one sheet per table",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			engine := openEngine(logger)
			defer engine.Close()
			if err := bulk.ExportWorkbook(engine, args[0], exportTables); err != nil {
				logger.Errorf("Export failed: %v", err)
				os.Exit(1)
			}
		},
	}
	exportCmd.Flags().StringSliceVarP(&exportTables, "tables", "t", nil, "Tables to export (default: all)")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill every table with generated demo records",
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			engine := openEngine(logger)
			defer engine.Close()
			s := seeder.New(engine, seedRecords, logger)
			if !s.SeedDatabase() {
				os.Exit(1)
			}
		},
	}
	seedCmd.Flags().IntVarP(&seedRecords, "records", "r", 10, "Number of records to generate per table")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a report of the data model without touching the database",
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			utils.PrintModelAnalysis(loadModel(logger), logger)
		},
	}

	rootCmd.AddCommand(initCmd, loadCmd, exportCmd, seedCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
