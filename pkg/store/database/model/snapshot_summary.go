package model

import (
	"time"

	"gorm.io/datatypes"

	domain "gpuprices/internal/model"
)

// SnapshotSummary is one row of snapshot_summaries, denormalized from the
// price_records sharing its observed_at
type SnapshotSummary struct {
	ID             int64                                     `gorm:"column:id;primaryKey;autoIncrement"`
	ObservedAt     time.Time                                 `gorm:"column:observed_at;not null;precision:6;uniqueIndex:uk_snapshot_observed_at"`
	TotalInstances int                                       `gorm:"column:total_instances;not null;default:0"`
	ProvidersCount int                                       `gorm:"column:providers_count;not null;default:0"`
	GPUTypesCount  int                                       `gorm:"column:gpu_types_count;not null;default:0"`
	MinPrice       float64                                   `gorm:"column:min_price;not null;default:0"`
	MaxPrice       float64                                   `gorm:"column:max_price;not null;default:0"`
	AvgPrice       float64                                   `gorm:"column:avg_price;not null;default:0"`
	Metadata       datatypes.JSONType[domain.SnapshotMetadata] `gorm:"column:metadata"`
	Version        int64                                     `gorm:"column:version;not null;default:1"` // bumped on every rewrite of observed_at
	CreatedAt      time.Time                                 `gorm:"column:created_at;not null;precision:6"`
	UpdatedAt      time.Time                                 `gorm:"column:updated_at;not null;precision:6"`
}

// TableName returns the table name for SnapshotSummary
func (SnapshotSummary) TableName() string {
	return "snapshot_summaries"
}

// SnapshotSummaryUpdateColumns are the columns rewritten on re-ingestion of a timestamp
var SnapshotSummaryUpdateColumns = []string{
	"total_instances", "providers_count", "gpu_types_count",
	"min_price", "max_price", "avg_price", "metadata", "updated_at",
}
