package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeatureMap stores the named feature vector in a JSON column.
type FeatureMap map[string]float64

// Scan implements sql.Scanner.
func (f *FeatureMap) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported feature map column type %T", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*f = nil
		return nil
	}
	return json.Unmarshal(raw, f)
}

// Value implements driver.Valuer.
func (f FeatureMap) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Classification is one recorded prediction.
type Classification struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Filename     string     `json:"filename" gorm:"size:255"`
	SHA256       string     `json:"sha256" gorm:"column:sha256;size:64;index"`
	SizeBytes    int64      `json:"sizeBytes"`
	DurationSec  float64    `json:"durationSec"`
	ClassIndex   int        `json:"classIndex"`
	Label        string     `json:"label" gorm:"size:32;index"`
	Features     FeatureMap `json:"features" gorm:"type:json"`
	ModelVersion string     `json:"modelVersion" gorm:"size:128"`
	Cached       bool       `json:"cached"`
	ElapsedMs    int64      `json:"elapsedMs"`
	ArchiveKey   string     `json:"archiveKey,omitempty" gorm:"size:255"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"index"`
}

// TableName pins the table name.
func (Classification) TableName() string {
	return "classifications"
}

// NewClassificationID returns a fresh record id.
func NewClassificationID() string {
	return uuid.NewString()
}

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	Prediction   string             `json:"prediction"`
	ID           string             `json:"id"`
	ClassIndex   int                `json:"classIndex"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	Features     map[string]float64 `json:"features"`
	BeatTimes    []float64          `json:"beatTimes,omitempty"`
	ModelVersion string             `json:"modelVersion"`
	Cached       bool               `json:"cached"`
	ElapsedMs    int64              `json:"elapsedMs"`
}

// ErrorResponse is the body of a failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
}
