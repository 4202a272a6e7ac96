package db

import (
	"strings"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"GenreFM/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db.internal",
		DBPort:     "3307",
		DBUser:     "genrefm",
		DBPassword: "p@ss:word",
		DBName:     "genrefm",
	}

	dsn := DSN(cfg)
	parsed, err := gomysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if parsed.User != "genrefm" || parsed.Passwd != "p@ss:word" {
		t.Errorf("credentials %q/%q", parsed.User, parsed.Passwd)
	}
	if parsed.Net != "tcp" || parsed.Addr != "db.internal:3307" {
		t.Errorf("address %s(%s)", parsed.Net, parsed.Addr)
	}
	if parsed.DBName != "genrefm" {
		t.Errorf("database %q", parsed.DBName)
	}
	if !parsed.ParseTime || parsed.Loc != time.Local {
		t.Errorf("parseTime=%v loc=%v", parsed.ParseTime, parsed.Loc)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("dsn %q has no utf8mb4 charset", dsn)
	}
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	GormDB = nil
	if err := AutoMigrateModels(); err == nil {
		t.Fatal("expected error without a connection")
	}
	if err := CloseGormDB(); err != nil {
		t.Fatalf("close without connection: %v", err)
	}
}
