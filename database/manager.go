/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const defaultMetricsNamespace = "querykit"

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	stopHealthCheck chan struct{}
	metricsReg      prometheus.Registerer
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		logger:       GetLogger(),
		healthStatus: &HealthStatus{},
		metricsReg:   prometheus.DefaultRegisterer,
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	sqlDB, db, err := dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.sqlDB, dm.db = sqlDB, db
	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		_ = dm.db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.connected = true
	dm.lastError = nil

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}
	if dm.logger != nil {
		dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	switch dm.config.Type {
	case "mysql":
		sqlDB, db, err = dm.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = dm.createPostgreSQLConnection()
	case "sqlite", "sqlite3":
		sqlDB, db, err = dm.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	if dm.config.EnableQueryLog {
		if dm.config.QueryLogStyle == "bundebug" {
			db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
				bundebug.FromEnv("BUNDEBUG"),
			))
		} else {
			db.AddQueryHook(NewQueryHook())
		}
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			slowTime: dm.config.SlowQueryTime,
			logger:   dm.logger,
		})
	}
	if dm.config.EnableMetrics {
		ns := dm.config.MetricsNamespace
		if ns == "" {
			ns = defaultMetricsNamespace
		}
		hook, err := NewQueryMetricsHook(dm.metricsReg, ns)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		db.AddQueryHook(hook)
	}
	return sqlDB, db, nil
}

func (dm *defaultDatabaseManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = dm.config.Username
	cfg.Passwd = dm.config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", dm.config.Host, dm.config.Port)
	cfg.DBName = dm.config.DBName
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = dm.config.ConnectTimeout
	cfg.ReadTimeout = dm.config.ReadTimeout
	cfg.WriteTimeout = dm.config.WriteTimeout
	charset := dm.config.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	cfg.Params = map[string]string{"charset": charset}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB := sql.OpenDB(connector)
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (dm *defaultDatabaseManager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	sslMode := dm.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dm.config.Username, dm.config.Password),
		Host:     fmt.Sprintf("%s:%d", dm.config.Host, dm.config.Port),
		Path:     "/" + dm.config.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&connect_timeout=%d", url.QueryEscape(sslMode), int(dm.config.ConnectTimeout.Seconds())),
	}).String()

	driver := "postgres"
	if dm.config.Driver == "pgx" {
		driver = "pgx"
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func (dm *defaultDatabaseManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	dsn, _ := sqliteDSN(dm.config.DBName)
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// sqliteDSN maps DBName to a data source name. An empty name or ":memory:"
// opens a shared in-memory database, a "file:" URI is used as is, anything
// else names a file with the .db suffix.
func sqliteDSN(name string) (dsn string, memory bool) {
	switch {
	case name == "" || name == ":memory:":
		return "file::memory:?cache=shared", true
	case strings.HasPrefix(name, "file:"):
		return name, strings.Contains(name, ":memory:") || strings.Contains(name, "mode=memory")
	case strings.HasSuffix(name, ".db"):
		return name, false
	default:
		return name + ".db", false
	}
}

func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}
	if dm.config.Type == "sqlite" || dm.config.Type == "sqlite3" {
		if _, memory := sqliteDSN(dm.config.DBName); memory {
			// an in-memory database lives as long as its last connection
			dm.sqlDB.SetMaxOpenConns(1)
			dm.sqlDB.SetMaxIdleConns(1)
			dm.sqlDB.SetConnMaxLifetime(0)
			dm.sqlDB.SetConnMaxIdleTime(0)
			return
		}
	}
	if dm.config.MaxIdleConns > 0 {
		dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	}
	if dm.config.MaxOpenConns > 0 {
		dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	}
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopHealthCheck != nil {
		close(dm.stopHealthCheck)
		dm.stopHealthCheck = nil
	}
	if dm.db == nil {
		return nil
	}

	err := dm.db.Close()
	dm.db = nil
	dm.sqlDB = nil
	dm.connected = false
	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}
	if err := dm.Disconnect(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
	}
	if dm.db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	err := dm.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	if dm.sqlDB != nil {
		stats := dm.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	dm.healthStatus = status
	dm.lastHealthCheck = start
	return status
}

// startHealthCheck must be called with dm.mu held.
func (dm *defaultDatabaseManager) startHealthCheck() {
	stop := make(chan struct{})
	dm.stopHealthCheck = stop
	go func() {
		ticker := time.NewTicker(dm.config.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := dm.HealthCheck(ctx)
				cancel()
				if !status.Healthy && dm.config.EnableReconnect {
					// Failures are logged by handleReconnect and retried on the
					// next tick. A successful reconnect starts a new loop and
					// closes stop.
					dm.handleReconnect(context.Background())
				}
			case <-stop:
				return
			}
		}
	}()
}

// handleReconnect retries Reconnect with exponential backoff starting at
// ReconnectInterval, at most MaxReconnectTries times.
func (dm *defaultDatabaseManager) handleReconnect(ctx context.Context) error {
	interval := dm.config.ReconnectInterval
	if interval <= 0 {
		interval = time.Second
	}
	tries := dm.config.MaxReconnectTries
	if tries <= 0 {
		tries = 1
	}
	backoff := retry.WithMaxRetries(uint64(tries-1),
		retry.WithCappedDuration(interval*8, retry.NewExponential(interval)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if dm.logger != nil {
			dm.logger.Info("Starting database reconnect", "try", attempt)
		}
		rctx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		defer cancel()
		if err := dm.Reconnect(rctx); err != nil {
			if dm.logger != nil {
				dm.logger.Error("Reconnect failed", "error", err, "try", attempt)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", attempt)
		}
		return err
	}
	if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded", "tries", attempt)
	}
	return nil
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()
	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotInitialized
	}
	return NewMigrationManager(db, dm.logger).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotInitialized
	}
	return NewMigrationManager(db, dm.logger).InitData(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

// SetMetricsRegisterer selects where the query metrics are registered when
// EnableMetrics is set. It must be called before Connect.
func (dm *defaultDatabaseManager) SetMetricsRegisterer(reg prometheus.Registerer) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.metricsReg = reg
}
