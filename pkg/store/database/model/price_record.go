package model

import "time"

// PriceRecord is one row of price_records. The derived per-GPU price is
// never stored.
type PriceRecord struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ObservedAt       time.Time `gorm:"column:observed_at;not null;precision:6;uniqueIndex:uk_price_identity,priority:1;index:idx_observed_at"`
	Provider         string    `gorm:"column:provider;type:varchar(64);not null;uniqueIndex:uk_price_identity,priority:2;index:idx_provider_instance,priority:1"`
	InstanceType     string    `gorm:"column:instance_type;type:varchar(191);not null;uniqueIndex:uk_price_identity,priority:3;index:idx_provider_instance,priority:2"`
	Region           string    `gorm:"column:region;type:varchar(128);not null;uniqueIndex:uk_price_identity,priority:4;index:idx_region"`
	GPUType          string    `gorm:"column:gpu_type;type:varchar(128);not null;index:idx_gpu_type"`
	GPUCount         int       `gorm:"column:gpu_count;not null;default:0"`
	GPUMemoryGB      *int      `gorm:"column:gpu_memory_gb"`
	VCPUs            int       `gorm:"column:vcpus;not null;default:0"`
	RAMGB            float64   `gorm:"column:ram_gb;not null;default:0"`
	PricePerHour     float64   `gorm:"column:price_per_hour;not null"`
	IsSpot           *bool     `gorm:"column:is_spot"`
	Available        *bool     `gorm:"column:available"`
	AvailabilityZone *string   `gorm:"column:availability_zone;type:varchar(128)"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;precision:6"`
}

// TableName returns the table name for PriceRecord
func (PriceRecord) TableName() string {
	return "price_records"
}

// PriceRecordUpdateColumns are the columns rewritten when an identity key already exists
var PriceRecordUpdateColumns = []string{
	"gpu_type", "gpu_count", "gpu_memory_gb", "vcpus", "ram_gb",
	"price_per_hour", "is_spot", "available", "availability_zone",
}

// TrendRow is one group-by-observed_at aggregate over price_records
type TrendRow struct {
	ObservedAt    time.Time `gorm:"column:observed_at"`
	AvgPrice      float64   `gorm:"column:avg_price"`
	MinPrice      float64   `gorm:"column:min_price"`
	MaxPrice      float64   `gorm:"column:max_price"`
	InstanceCount int       `gorm:"column:instance_count"`
}
