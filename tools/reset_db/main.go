package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		Charset  string `yaml:"charset"`
	} `yaml:"database"`
}

func main() {
	// Load configuration
	config := loadConfig()

	// Build DSN
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		config.Database.Username,
		config.Database.Password,
		config.Database.Host,
		config.Database.Port,
		config.Database.Database,
		config.Database.Charset,
	)

	// Connect DB
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", config.Database.Database)

	// Confirm
	fmt.Print("\nWARNING: This operation will CLEAR ALL DATA in nexchat tables!\n")
	fmt.Print("Type 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	// Disable FK checks to avoid constraint issues
	_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=0")

	// Clear data (child tables first)
	tables := []string{"reaction", "pinned_message", "message", "membership", "block", "conversation", "setting", "user"}
	for _, table := range tables {
		fmt.Printf("Clearing table %s... ", table)
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	// Reset auto-increment ids
	fmt.Println("\nResetting auto-increment IDs...")
	for _, table := range tables {
		fmt.Printf("Resetting %s auto-increment... ", table)
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = 1", table)); err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	// Re-enable FK checks
	_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=1")

	// Seed demo data
	fmt.Println("\nSeeding demo data...")
	if err := seedDemoData(db); err != nil {
		fmt.Printf("Seeding failed: %v\n", err)
	} else {
		fmt.Println("Demo users: alice / bob (password: demo123456)")
		fmt.Println("Demo channels: nexus @announcements, nexphere @general")
	}

	fmt.Println("\nDatabase reset completed!")
	fmt.Println("All table data cleared, table structure preserved")
	fmt.Println("Auto-increment IDs reset to 1")
}

// seedDemoData 写入演示用户与频道，方便前端联调
func seedDemoData(db *sql.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo123456"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()

	insertUser := func(username, nickname string) (int64, error) {
		res, err := db.Exec(
			"INSERT INTO user (username, password_hash, nickname, status, last_seen, created_at, updated_at) VALUES (?, ?, ?, 'offline', ?, ?, ?)",
			username, string(hash), nickname, now, now, now,
		)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	aliceID, err := insertUser("alice", "Alice")
	if err != nil {
		return err
	}
	bobID, err := insertUser("bob", "Bob")
	if err != nil {
		return err
	}

	insertChannel := func(kind, title, handle, description string, ownerID int64, memberRole string) error {
		res, err := db.Exec(
			"INSERT INTO conversation (kind, title, handle, description, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			kind, title, handle, description, ownerID, now, now,
		)
		if err != nil {
			return err
		}
		convID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = db.Exec(
			"INSERT INTO membership (conversation_id, user_id, role, created_at) VALUES (?, ?, 'owner', ?)",
			convID, ownerID, now,
		)
		if err != nil {
			return err
		}
		_, err = db.Exec(
			"INSERT INTO membership (conversation_id, user_id, role, created_at) VALUES (?, ?, ?, ?)",
			convID, bobID, memberRole, now,
		)
		return err
	}

	if err := insertChannel("nexus", "公告频道", "announcements", "演示广播频道", aliceID, "subscriber"); err != nil {
		return err
	}
	return insertChannel("nexphere", "闲聊群", "general", "演示群组频道", aliceID, "member")
}

func loadConfig() *Config {
	data, err := os.ReadFile("config/config.yaml")
	if err != nil {
		fmt.Println("Config file not found, using default config")
		return &Config{Database: struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
			Charset  string `yaml:"charset"`
		}{
			Host:     "localhost",
			Port:     3306,
			Username: "nexchat",
			Password: "nexchat",
			Database: "nexchat",
			Charset:  "utf8mb4",
		}}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Config file parsing failed: %v", err)
	}
	return &cfg
}
