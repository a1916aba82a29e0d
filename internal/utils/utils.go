package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sheetstore/sheetstore/internal/schema"
	"github.com/sheetstore/sheetstore/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SHEETSTORE_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Point at the sample file when only that exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	requiredVars := []string{"SHEETSTORE_DATABASE", "SHEETSTORE_DATAMODEL"}
	var missingVars []string
	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "SHEETSTORE_") {
				logger.Debugf("%s", env)
			}
		}
	}

	return true
}

// GetEnvOrDefault gets an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer value from an environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// PrintModelAnalysis prints a detailed report of the loaded data model
func PrintModelAnalysis(model *models.DataModel, logger *logrus.Logger) {
	totalFields := 0
	foreignKeys := 0
	var standalone []string
	var dependent []string

	for _, table := range model.Tables {
		totalFields += len(table.Fields)
		hasFK := false
		for _, field := range table.Fields {
			if field.IsForeignKey() {
				foreignKeys++
				hasFK = true
			}
		}
		if hasFK {
			dependent = append(dependent, table.Name)
		} else {
			standalone = append(standalone, table.Name)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("DATA MODEL ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Source: %s\n", model.Path)
	fmt.Printf("   Total tables: %d\n", len(model.Tables))
	fmt.Printf("   Total fields: %d\n", totalFields)
	fmt.Printf("   Foreign keys: %d\n", foreignKeys)

	fmt.Println("\n2. TABLE CATEGORIES")
	fmt.Printf("   Standalone tables (no foreign keys): %d\n", len(standalone))
	fmt.Printf("   Tables with foreign keys: %d\n", len(dependent))

	fmt.Println("\n3. TABLES")
	for _, table := range model.Tables {
		sortBy := "-"
		if table.SortRowsBy != nil {
			sortBy = table.SortRowsBy.Name
		}
		fmt.Printf("   %s (%d fields, sorted by %s)\n", table.Name, len(table.Fields), sortBy)
		for _, field := range table.Fields {
			var notes []string
			if field.IsForeignKey() {
				notes = append(notes, "-> "+field.ForeignKeyTable.Name)
			}
			if field.Mandatory {
				notes = append(notes, "mandatory")
			}
			if field.PartOfDisplayName {
				notes = append(notes, "display")
			}
			if field.Automatic {
				notes = append(notes, "automatic")
			}
			suffix := ""
			if len(notes) > 0 {
				suffix = " (" + strings.Join(notes, ", ") + ")"
			}
			fmt.Printf("      %-24s %s%s\n", field.Name, field.Kind(), suffix)
		}
	}

	fmt.Println("\n4. RECOMMENDED LOAD ORDER")
	for i, table := range schema.TableOrder(model, logger) {
		fmt.Printf("   %3d. %s\n", i+1, table.Name)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}
