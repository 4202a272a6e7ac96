package repository

import (
	"context"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"GenreFM/model"
)

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 20},
		{-5, 20},
		{1, 1},
		{50, 50},
		{MaxRecent + 1, MaxRecent},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// dryRunDB builds statements without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/genrefm?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	repo := NewGormClassificationRepository(dryRunDB(t))
	row := &model.Classification{Filename: "a.wav", Label: "Rock"}
	if err := repo.Create(context.Background(), row); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(row.ID) != 36 {
		t.Fatalf("expected a uuid id, got %q", row.ID)
	}
	if row.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}
