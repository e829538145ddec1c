package database

import (
	"time"

	"gorm.io/datatypes"

	domain "gpuprices/internal/model"
	"gpuprices/pkg/store/database/model"
)

// ToPriceRecordDomain converts a price_records row to the domain PriceRecord
func ToPriceRecordDomain(row *model.PriceRecord) domain.PriceRecord {
	return domain.PriceRecord{
		Provider:         row.Provider,
		InstanceType:     row.InstanceType,
		GPUType:          row.GPUType,
		GPUCount:         row.GPUCount,
		GPUMemoryGB:      row.GPUMemoryGB,
		VCPUs:            row.VCPUs,
		RAMGB:            row.RAMGB,
		Region:           row.Region,
		PricePerHour:     row.PricePerHour,
		IsSpot:           row.IsSpot,
		Available:        row.Available,
		AvailabilityZone: row.AvailabilityZone,
		ObservedAt:       row.ObservedAt.UTC(),
	}
}

// FromPriceRecordDomain converts a domain PriceRecord to a price_records row
// stamped with observedAt
func FromPriceRecordDomain(rec domain.PriceRecord, observedAt time.Time) *model.PriceRecord {
	return &model.PriceRecord{
		ObservedAt:       domain.NormalizeTimestamp(observedAt),
		Provider:         rec.Provider,
		InstanceType:     rec.InstanceType,
		Region:           rec.Region,
		GPUType:          rec.GPUType,
		GPUCount:         rec.GPUCount,
		GPUMemoryGB:      rec.GPUMemoryGB,
		VCPUs:            rec.VCPUs,
		RAMGB:            rec.RAMGB,
		PricePerHour:     rec.PricePerHour,
		IsSpot:           rec.IsSpot,
		Available:        rec.Available,
		AvailabilityZone: rec.AvailabilityZone,
	}
}

// ToSnapshotSummaryDomain converts a snapshot_summaries row to the domain SnapshotSummary
func ToSnapshotSummaryDomain(row *model.SnapshotSummary) domain.SnapshotSummary {
	meta := row.Metadata.Data()
	if meta.Providers == nil {
		meta.Providers = []string{}
	}
	if meta.GPUTypes == nil {
		meta.GPUTypes = []string{}
	}
	return domain.SnapshotSummary{
		ObservedAt:     row.ObservedAt.UTC(),
		TotalInstances: row.TotalInstances,
		ProvidersCount: row.ProvidersCount,
		GPUTypesCount:  row.GPUTypesCount,
		MinPrice:       row.MinPrice,
		MaxPrice:       row.MaxPrice,
		AvgPrice:       row.AvgPrice,
		Metadata:       meta,
	}
}

// FromSnapshotSummaryDomain converts a domain SnapshotSummary to a snapshot_summaries row
func FromSnapshotSummaryDomain(s domain.SnapshotSummary) *model.SnapshotSummary {
	return &model.SnapshotSummary{
		ObservedAt:     domain.NormalizeTimestamp(s.ObservedAt),
		TotalInstances: s.TotalInstances,
		ProvidersCount: s.ProvidersCount,
		GPUTypesCount:  s.GPUTypesCount,
		MinPrice:       s.MinPrice,
		MaxPrice:       s.MaxPrice,
		AvgPrice:       s.AvgPrice,
		Metadata:       datatypes.NewJSONType(s.Metadata),
		Version:        1,
	}
}

// ToTrendPointDomain converts a grouped trend row to the domain TrendPoint
func ToTrendPointDomain(row *model.TrendRow) domain.TrendPoint {
	return domain.TrendPoint{
		ObservedAt:    row.ObservedAt.UTC(),
		AvgPrice:      row.AvgPrice,
		MinPrice:      row.MinPrice,
		MaxPrice:      row.MaxPrice,
		InstanceCount: row.InstanceCount,
	}
}
