package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the MySQL connection with TLS, pooling and retry. The DSN is
// assembled from DB_* env vars unless DB_DSN overrides it entirely. Repeated
// calls return the already-open handle.
func Connect() (*gorm.DB, error) {
	if DB != nil {
		return DB, nil
	}

	dsn := os.Getenv("DB_DSN")
	pass := getenv("DB_PASS", "")
	if dsn == "" {
		var err error
		dsn, err = buildDSN()
		if err != nil {
			return nil, err
		}
	}

	safeDSN := dsn
	if pass != "" {
		safeDSN = strings.Replace(safeDSN, pass, "******", 1)
	}
	log.Printf("[database] using DSN: %s", safeDSN)

	if strings.Contains(dsn, "tls=custom") {
		tlsCfg, err := customTLSConfig()
		if err != nil {
			return nil, err
		}
		mysqldriver.RegisterTLSConfig("custom", tlsCfg)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if strings.ToLower(getenv("ENV", "development")) == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// TranslateError maps driver errors onto gorm's portable sentinels,
	// which the idempotency checks on unique indexes rely on.
	cfg := &gorm.Config{Logger: gormLogger, TranslateError: true}

	maxRetries := atoi(getenv("DB_CONNECT_RETRIES", "5"))
	var db *gorm.DB
	var err error
	backoff := time.Second
	for attempt := 0; attempt < maxRetries; attempt++ {
		db, err = gorm.Open(gormmysql.Open(dsn), cfg)
		if err == nil {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(atoi(getenv("DB_MAX_OPEN_CONNS", "25")))
	sqlDB.SetMaxIdleConns(atoi(getenv("DB_MAX_IDLE_CONNS", "25")))
	sqlDB.SetConnMaxLifetime(time.Duration(atoi(getenv("DB_CONN_MAX_LIFETIME", "3600"))) * time.Second)

	if getenv("DB_PING_ON_CONNECT", "true") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
	}

	DB = db
	return DB, nil
}

// buildDSN assembles the connection string and forces TLS and timeout params
// when the caller has not set them explicitly via DB_PARAMS.
func buildDSN() (string, error) {
	host := getenv("DB_HOST", "127.0.0.1")
	port := getenv("DB_PORT", "3306")
	user := getenv("DB_USER", "root")
	pass := getenv("DB_PASS", "")
	name := getenv("DB_NAME", "iap")
	params := getenv("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=Local")

	// DB_ROLE=read swaps in the read-replica credentials when provided
	if strings.ToLower(getenv("DB_ROLE", "write")) == "read" {
		if ruser := getenv("DB_READ_USER", ""); ruser != "" {
			user = ruser
			pass = getenv("DB_READ_PASS", "")
		}
	}

	if !strings.Contains(params, "tls=") {
		tlsMode := getenv("DB_TLS", "true")
		if tlsMode == "true" || tlsMode == "preferred" {
			if getenv("DB_TLS_VERIFY", "false") == "true" {
				params += "&tls=custom"
			} else {
				params += "&tls=true"
			}
		}
	}
	for _, p := range []string{"timeout=10s", "readTimeout=10s", "writeTimeout=10s"} {
		if !strings.Contains(params, strings.SplitN(p, "=", 2)[0]+"=") {
			params += "&" + p
		}
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, name, params), nil
}

// customTLSConfig builds the strict-verification TLS config registered under
// the "custom" name, loading the CA bundle and optional client keypair.
func customTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{}
	if caPath := getenv("DB_TLS_CA_PATH", ""); caPath != "" {
		caCert, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("failed reading DB TLS CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to append CA certs")
		}
		tlsCfg.RootCAs = pool
	}
	clientCert := getenv("DB_TLS_CLIENT_CERT", "")
	clientKey := getenv("DB_TLS_CLIENT_KEY", "")
	if clientCert != "" && clientKey != "" {
		cert, err := tls.LoadX509KeyPair(clientCert, clientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	if v <= 0 {
		return 0
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}
