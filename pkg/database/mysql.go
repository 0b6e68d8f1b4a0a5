package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// The MySQL driver runs one statement per Exec, so the schema is a list.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS senders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		token VARCHAR(255) NOT NULL,
		instance_id VARCHAR(100) NULL DEFAULT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'disconnected',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_senders_token (token)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS lists (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		list_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_contacts_list_id (list_id),
		INDEX idx_contacts_phone (phone),
		CONSTRAINT fk_contacts_list FOREIGN KEY (list_id) REFERENCES lists (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		message_type VARCHAR(10) NOT NULL DEFAULT 'text',
		media_url VARCHAR(2048) NULL,
		sender_id BIGINT NOT NULL,
		list_id BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		total_contacts INT NOT NULL DEFAULT 0,
		success_count INT NOT NULL DEFAULT 0,
		failure_count INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		started_at DATETIME NULL,
		completed_at DATETIME NULL,
		INDEX idx_campaigns_status (status),
		INDEX idx_campaigns_sender_id (sender_id),
		INDEX idx_campaigns_list_id (list_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS campaign_logs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		campaign_id BIGINT NOT NULL,
		seq INT NOT NULL,
		phone VARCHAR(32) NOT NULL,
		status VARCHAR(10) NOT NULL,
		error TEXT NULL,
		message_id VARCHAR(255) NULL,
		sent_at DATETIME(3) NOT NULL,
		UNIQUE KEY uq_campaign_logs_seq (campaign_id, seq),
		CONSTRAINT fk_campaign_logs_campaign FOREIGN KEY (campaign_id) REFERENCES campaigns (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

func RunMigrations(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM lists")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d lists, skipping seed", count)
		return nil
	}

	result, err := db.Exec("INSERT INTO lists (name, description) VALUES (?, ?)", "Sample customers", "Seeded test list")
	if err != nil {
		return fmt.Errorf("failed to seed list: %w", err)
	}

	listID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get seeded list id: %w", err)
	}

	testContacts := []struct {
		name  string
		phone string
	}{
		{"Ayse Yilmaz", "+905551234567"},
		{"Mehmet Demir", "+905559876543"},
		{"Elif Kaya", "+905551112233"},
		{"Can Ozturk", "+905554445566"},
		{"Zeynep Celik", "+905557778899"},
		{"Burak Sahin", "+905552223344"},
	}

	for _, c := range testContacts {
		_, err := db.Exec(
			"INSERT INTO contacts (list_id, name, phone) VALUES (?, ?, ?)",
			listID, c.name, c.phone,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded list %d with %d test contacts", listID, len(testContacts))

	// The sample sender starts without an instance id so the first send, or
	// the admin migration, exercises auto-detection.
	token := environments.GetEnv("SEED_WAAPI_TOKEN", "replace-with-waapi-token")
	if _, err := db.Exec(
		"INSERT INTO senders (name, token, status) VALUES (?, ?, ?)",
		"Sample sender", token, "disconnected",
	); err != nil {
		return fmt.Errorf("failed to seed sender: %w", err)
	}

	logger.Infof("Seeded sample sender")
	return nil
}
