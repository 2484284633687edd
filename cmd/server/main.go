package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/auth"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/task"
)

const (
	commandUseName                     = "server"
	commandShortDescription            = "Run the client desk server"
	commandLongDescription             = "Launch the bilingual client management HTTP API"
	seedCommandUseName                 = "seed"
	seedCommandShortDescription        = "Populate an empty database with demo records"
	missingConfigurationMessage        = "missing required configuration"
	invalidConfigurationMessage        = "invalid configuration"
	loggerCreationErrorMessage         = "logger"
	logEventListening                  = "listening"
	logEventShuttingDown               = "shutting_down"
	logEventSeedSkipped                = "seed_skipped"
	logEventSeedCompleted              = "seed_completed"
	logFieldAddress                    = "addr"
	logFieldDriver                     = "driver"
	logFieldClients                    = "clients"
	logFieldUsers                      = "users"
	logFieldProjects                   = "projects"
	logFieldInvoices                   = "invoices"
	logFieldMeetings                   = "meetings"
	flagNameApplicationAddress         = "app-addr"
	flagNameDatabaseDriver             = "db-driver"
	flagNameDatabaseDataSourceName     = "db-dsn"
	flagNameSessionSecret              = "session-secret"
	flagNameAllowedOrigins             = "allowed-origins"
	flagNameDefaultLanguage            = "default-language"
	flagNameMaintenanceInterval        = "maintenance-interval"
	flagNameRestrictedListLimit        = "restricted-list-limit"
	flagNameSeedDemoData               = "seed-demo-data"
	flagUsageApplicationAddress        = "address for the HTTP server to listen on"
	flagUsageDatabaseDriver            = "database driver (sqlite or postgres)"
	flagUsageDatabaseDataSourceName    = "database connection string or SQLite file path"
	flagUsageSessionSecret             = "secret used to sign session cookies (at least 32 characters)"
	flagUsageAllowedOrigins            = "comma separated origins allowed to call the API with credentials"
	flagUsageDefaultLanguage           = "language used when a request does not name one (ar or en)"
	flagUsageMaintenanceInterval       = "interval between maintenance runs"
	flagUsageRestrictedListLimit       = "number of clients shown to limited roles"
	flagUsageSeedDemoData              = "seed demo records into an empty database on startup"
	environmentKeyApplicationAddress   = "APP_ADDR"
	environmentKeyDatabaseDriver       = "DB_DRIVER"
	environmentKeyDatabaseDataSource   = "DB_DSN"
	environmentKeySessionSecret        = "SESSION_SECRET"
	environmentKeyAllowedOrigins       = "ALLOWED_ORIGINS"
	environmentKeyDefaultLanguage      = "DEFAULT_LANGUAGE"
	environmentKeyMaintenanceInterval  = "MAINTENANCE_INTERVAL"
	environmentKeyRestrictedListLimit  = "RESTRICTED_LIST_LIMIT"
	environmentKeySeedDemoData         = "SEED_DEMO_DATA"
	defaultApplicationAddress          = ":8080"
	defaultMaintenanceInterval         = time.Hour
	minimumSessionSecretLength         = 32
	loggerContextOpenDatabase          = "open_db"
	loggerContextAutoMigrate           = "migrate"
	loggerContextSeed                  = "seed"
	loggerContextServer                = "server"
	readHeaderTimeoutSeconds           = 5
	shutdownTimeoutSeconds             = 10
	unexpectedArgumentsMessage         = "unexpected command arguments"
	commandInitializationFailure       = "failed to configure command"
	flagNotDefinedMessage              = "flag %s not defined"
	environmentConfigurationError      = "failed to apply environment configuration"
	environmentFileLoadError           = "failed to load environment file"
	defaultEnvironmentFileName         = ".env"
	allowedOriginsSeparator            = ","
	sessionSecretTooShortMessageFormat = "%s must be at least %d characters"
)

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	DatabaseDriver         string
	DatabaseDataSourceName string
	SessionSecret          string
	AllowedOrigins         []string
	DefaultLanguage        string
	MaintenanceInterval    time.Duration
	RestrictedListLimit    int
	SeedDemoData           bool
}

// DatabaseOpener opens a database connection for the provided configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// LoggerFactory builds the process logger.
type LoggerFactory func() (*zap.Logger, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
	loggerFactory       LoggerFactory
	environmentFiles    []string
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
		loggerFactory:       func() (*zap.Logger, error) { return zap.NewProduction() },
		environmentFiles:    []string{defaultEnvironmentFileName},
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// WithLoggerFactory overrides the logger used by the commands.
func (application *ServerApplication) WithLoggerFactory(loggerFactory LoggerFactory) *ServerApplication {
	application.loggerFactory = loggerFactory
	return application
}

// WithEnvironmentFiles replaces the dotenv files read before configuration is resolved.
func (application *ServerApplication) WithEnvironmentFiles(paths ...string) *ServerApplication {
	application.environmentFiles = paths
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:               commandUseName,
		Short:             commandShortDescription,
		Long:              commandLongDescription,
		PersistentPreRunE: application.loadEnvironmentFiles,
		RunE:              application.runCommand,
	}

	seedCommand := &cobra.Command{
		Use:   seedCommandUseName,
		Short: seedCommandShortDescription,
		RunE:  application.runSeedCommand,
	}
	rootCommand.AddCommand(seedCommand)

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

type configurationFlag struct {
	environmentKey string
	flagName       string
	persistent     bool
	register       func(flagSet *pflag.FlagSet)
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	configurationFlags := []configurationFlag{
		{environmentKey: environmentKeyApplicationAddress, flagName: flagNameApplicationAddress, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
		}},
		{environmentKey: environmentKeyDatabaseDriver, flagName: flagNameDatabaseDriver, persistent: true, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameDatabaseDriver, storage.DriverNameSQLite, flagUsageDatabaseDriver)
		}},
		{environmentKey: environmentKeyDatabaseDataSource, flagName: flagNameDatabaseDataSourceName, persistent: true, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameDatabaseDataSourceName, "", flagUsageDatabaseDataSourceName)
		}},
		{environmentKey: environmentKeySessionSecret, flagName: flagNameSessionSecret, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameSessionSecret, "", flagUsageSessionSecret)
		}},
		{environmentKey: environmentKeyAllowedOrigins, flagName: flagNameAllowedOrigins, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameAllowedOrigins, "", flagUsageAllowedOrigins)
		}},
		{environmentKey: environmentKeyDefaultLanguage, flagName: flagNameDefaultLanguage, register: func(flagSet *pflag.FlagSet) {
			flagSet.String(flagNameDefaultLanguage, i18n.DefaultLanguage, flagUsageDefaultLanguage)
		}},
		{environmentKey: environmentKeyMaintenanceInterval, flagName: flagNameMaintenanceInterval, register: func(flagSet *pflag.FlagSet) {
			flagSet.Duration(flagNameMaintenanceInterval, defaultMaintenanceInterval, flagUsageMaintenanceInterval)
		}},
		{environmentKey: environmentKeyRestrictedListLimit, flagName: flagNameRestrictedListLimit, register: func(flagSet *pflag.FlagSet) {
			flagSet.Int(flagNameRestrictedListLimit, 0, flagUsageRestrictedListLimit)
		}},
		{environmentKey: environmentKeySeedDemoData, flagName: flagNameSeedDemoData, register: func(flagSet *pflag.FlagSet) {
			flagSet.Bool(flagNameSeedDemoData, false, flagUsageSeedDemoData)
		}},
	}

	application.configurationLoader.AutomaticEnv()

	for _, configuration := range configurationFlags {
		flagSet := command.Flags()
		if configuration.persistent {
			flagSet = command.PersistentFlags()
		}
		configuration.register(flagSet)

		if bindErr := application.bindFlag(flagSet, configuration.environmentKey, configuration.flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(flagSet, configuration.environmentKey, configuration.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound || strings.TrimSpace(environmentValue) == "" {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

// loadEnvironmentFiles reads dotenv files into the process environment.
// Variables already present in the environment take precedence.
func (application *ServerApplication) loadEnvironmentFiles(command *cobra.Command, arguments []string) error {
	var existingFiles []string
	for _, path := range application.environmentFiles {
		if _, statErr := os.Stat(path); statErr == nil {
			existingFiles = append(existingFiles, path)
		}
	}
	if len(existingFiles) == 0 {
		return nil
	}
	if loadErr := godotenv.Load(existingFiles...); loadErr != nil {
		return fmt.Errorf("%s: %w", environmentFileLoadError, loadErr)
	}
	return nil
}

func (application *ServerApplication) resolveConfiguration() ServerConfig {
	loader := application.configurationLoader
	return ServerConfig{
		ApplicationAddress:     strings.TrimSpace(loader.GetString(environmentKeyApplicationAddress)),
		DatabaseDriver:         strings.ToLower(strings.TrimSpace(loader.GetString(environmentKeyDatabaseDriver))),
		DatabaseDataSourceName: strings.TrimSpace(loader.GetString(environmentKeyDatabaseDataSource)),
		SessionSecret:          strings.TrimSpace(loader.GetString(environmentKeySessionSecret)),
		AllowedOrigins:         parseAllowedOrigins(loader.GetString(environmentKeyAllowedOrigins)),
		DefaultLanguage:        i18n.Normalize(loader.GetString(environmentKeyDefaultLanguage), i18n.DefaultLanguage),
		MaintenanceInterval:    loader.GetDuration(environmentKeyMaintenanceInterval),
		RestrictedListLimit:    loader.GetInt(environmentKeyRestrictedListLimit),
		SeedDemoData:           loader.GetBool(environmentKeySeedDemoData),
	}
}

func parseAllowedOrigins(rawValue string) []string {
	var origins []string
	for _, origin := range strings.Split(rawValue, allowedOriginsSeparator) {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.resolveConfiguration()
	if validationErr := application.ensureRequiredConfiguration(serverConfig, true); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := application.loggerFactory()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, databaseErr := application.openMigratedDatabase(serverConfig, logger)
	if databaseErr != nil {
		return databaseErr
	}

	if serverConfig.SeedDemoData {
		if seedErr := seedDatabase(ctx, database, logger); seedErr != nil {
			return seedErr
		}
	}

	sessionStore, storeErr := auth.NewSessionStore(serverConfig.SessionSecret)
	if storeErr != nil {
		return storeErr
	}

	maintenanceJob := task.NewMaintenanceJob(database, logger, nil)
	scheduler := task.NewScheduler(serverConfig.MaintenanceInterval, maintenanceJob.Runner(), task.WithImmediateRun())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := newRouter(routerDependencies{
		database:            database,
		logger:              logger,
		sessionStore:        sessionStore,
		allowedOrigins:      serverConfig.AllowedOrigins,
		defaultLanguage:     serverConfig.DefaultLanguage,
		restrictedListLimit: serverConfig.RestrictedListLimit,
	})

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	serveErrors := make(chan error, 1)
	go func() {
		logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress), zap.String(logFieldDriver, serverConfig.DatabaseDriver))
		serveErrors <- httpServer.ListenAndServe()
	}()

	select {
	case serveErr := <-serveErrors:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error(loggerContextServer, zap.Error(serveErr))
			return serveErr
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(logEventShuttingDown)
	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownContext); shutdownErr != nil {
		logger.Error(loggerContextServer, zap.Error(shutdownErr))
		return shutdownErr
	}

	return nil
}

func (application *ServerApplication) runSeedCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.resolveConfiguration()
	if validationErr := application.ensureRequiredConfiguration(serverConfig, false); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := application.loggerFactory()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.openMigratedDatabase(serverConfig, logger)
	if databaseErr != nil {
		return databaseErr
	}

	return seedDatabase(command.Context(), database, logger)
}

func (application *ServerApplication) openMigratedDatabase(serverConfig ServerConfig, logger *zap.Logger) (*gorm.DB, error) {
	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriver,
		DataSourceName: serverConfig.DatabaseDataSourceName,
	})
	if databaseErr != nil {
		logger.Error(loggerContextOpenDatabase, zap.Error(databaseErr))
		return nil, databaseErr
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Error(loggerContextAutoMigrate, zap.Error(migrateErr))
		return nil, migrateErr
	}

	return database, nil
}

func seedDatabase(ctx context.Context, database *gorm.DB, logger *zap.Logger) error {
	result, seedErr := storage.SeedDemoData(ctx, database, auth.HashPassword, time.Now())
	if seedErr != nil {
		logger.Error(loggerContextSeed, zap.Error(seedErr))
		return seedErr
	}
	if result.Skipped {
		logger.Info(logEventSeedSkipped)
		return nil
	}
	logger.Info(logEventSeedCompleted,
		zap.Int(logFieldClients, result.Clients),
		zap.Int(logFieldUsers, result.Users),
		zap.Int(logFieldProjects, result.Projects),
		zap.Int(logFieldInvoices, result.Invoices),
		zap.Int(logFieldMeetings, result.Meetings),
	)
	return nil
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig, requireSession bool) error {
	var missingParameters []string

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSourceName)
	}

	if requireSession && configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if len(missingParameters) > 0 {
		return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
	}

	if !storage.IsSupportedDriver(configuration.DatabaseDriver) {
		return fmt.Errorf("%s: %s %q", invalidConfigurationMessage, flagNameDatabaseDriver, configuration.DatabaseDriver)
	}

	if requireSession && len(configuration.SessionSecret) < minimumSessionSecretLength {
		return fmt.Errorf("%s: "+sessionSecretTooShortMessageFormat, invalidConfigurationMessage, flagNameSessionSecret, minimumSessionSecretLength)
	}

	return nil
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
