package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables this service owns when they do not
// exist yet.  Two constraints here are load-bearing for correctness, not
// just integrity: rewards.quantity is unsigned so stock cannot go
// negative, and uq_user_reward makes a redemption insert-once per
// (user, reward) regardless of how many requests race.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			email         VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role          VARCHAR(16)  NOT NULL DEFAULT 'MEMBER',
			is_active     TINYINT(1)   NOT NULL DEFAULT 1,
			created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id    BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64)  NOT NULL,
			expires_at DATETIME  NOT NULL,
			revoked_at DATETIME  NULL,
			created_at DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_refresh_hash (token_hash),
			CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id    BIGINT UNSIGNED NOT NULL,
			amount     BIGINT       NOT NULL,
			category   VARCHAR(64)  NOT NULL,
			reason     VARCHAR(255) NOT NULL DEFAULT '',
			reference  VARCHAR(128) NULL,
			created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_ledger_user (user_id),
			KEY idx_ledger_user_category (user_id, category),
			CONSTRAINT fk_ledger_user FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			title       VARCHAR(255) NOT NULL,
			description TEXT         NOT NULL,
			price       BIGINT UNSIGNED NOT NULL,
			quantity    BIGINT UNSIGNED NOT NULL DEFAULT 0,
			category    ENUM('merchandise','digital','experiences') NOT NULL,
			is_active   TINYINT(1) NOT NULL DEFAULT 1,
			is_featured TINYINT(1) NOT NULL DEFAULT 0,
			created_at  DATETIME   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME   NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS redemptions (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id      BIGINT UNSIGNED NOT NULL,
			reward_id    BIGINT UNSIGNED NOT NULL,
			points_spent BIGINT UNSIGNED NOT NULL,
			status       ENUM('PENDING','CONFIRMED','SHIPPED','DELIVERED','CANCELLED') NOT NULL DEFAULT 'CONFIRMED',
			purchased_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_user_reward (user_id, reward_id),
			CONSTRAINT fk_redemption_user FOREIGN KEY (user_id) REFERENCES users (id),
			CONSTRAINT fk_redemption_reward FOREIGN KEY (reward_id) REFERENCES rewards (id)
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
