package clickhouse

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/socialpulse/pulsex/pkg/retry"
	"github.com/socialpulse/pulsex/pkg/utils"
	"go.uber.org/zap"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client wraps a ClickHouse native connection together with the target
// database the component writes to.
type Client struct {
	Logger         *zap.Logger
	Db             driver.Conn
	TargetDatabase string
}

const (
	MergeTree          = "MergeTree"
	ReplacingMergeTree = "ReplacingMergeTree"
)

// New initializes a ClickHouse client from the CLICKHOUSE_ADDR DSN.
// The connection is established against the default database; the caller's
// InitializeDB is expected to create the target database and its tables.
func New(ctx context.Context, logger *zap.Logger, dbName string) (client Client, e error) {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client.Logger = logger
	retryConfig := retry.DefaultConfig()

	dsn := utils.Env("CLICKHOUSE_ADDR", "")
	if dsn == "" {
		// Missing connection config is fatal for the whole run: abort before
		// any component gets a chance to write.
		return Client{}, fmt.Errorf("CLICKHOUSE_ADDR is not set")
	}

	username, password := extractCredentials(dsn)
	replicas := extractReplicas(dsn)

	options := &clickhouse.Options{
		Addr:             replicas,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		Auth: clickhouse.Auth{
			Database: "default",
			Username: username,
			Password: password,
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 20),
		ConnMaxLifetime: utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", time.Hour),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"prefer_column_name_to_alias": 1,
		},
	}

	if logger != nil && logger.Core().Enabled(zap.DebugLevel) {
		sugar := logger.Named("clickhouse.driver").Sugar()
		options.Debugf = sugar.Debugf
	}

	err := retry.WithBackoff(connCtx, retryConfig, logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("failed to open clickhouse connection: %w", err)
		}

		client.Db = conn
		if err = client.Db.Ping(connCtx); err != nil {
			return fmt.Errorf("failed to ping clickhouse: %w", err)
		}

		client.TargetDatabase = dbName
		client.Logger.Info("ClickHouse connection configured",
			zap.String("database", dbName),
			zap.Strings("replicas", replicas))
		return nil
	})

	if err != nil {
		return Client{}, err
	}

	return client, nil
}

// Exec runs a statement against the connection.
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Db.Exec(ctx, query, args...)
}

// Select scans query results into dest (a pointer to a slice of structs with ch tags).
func (c *Client) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.Db.Select(ctx, dest, query, args...)
}

// PrepareBatch prepares a batch insert.
func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

// Ping checks connection liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx)
}

// SanitizeName sanitizes the provided database name to be compatible with ClickHouse.
func SanitizeName(id string) string {
	s := strings.ToLower(id)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// extractCredentials pulls username/password out of a clickhouse:// DSN.
func extractCredentials(dsn string) (username, password string) {
	username = "default"
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return username, ""
	}
	if name := u.User.Username(); name != "" {
		username = name
	}
	password, _ = u.User.Password()
	return username, password
}

// extractReplicas returns the comma-separated host list of a clickhouse:// DSN.
func extractReplicas(dsn string) []string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return []string{"localhost:9000"}
	}
	hosts := strings.Split(u.Host, ",")
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.Contains(h, ":") {
			h += ":9000"
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		return []string{"localhost:9000"}
	}
	return out
}
