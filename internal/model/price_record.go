package model

import (
	"encoding/json"
	"time"
)

// UnknownGPUType is the gpu_type sentinel for offers whose accelerator could not be identified
const UnknownGPUType = "Unknown"

// PriceRecord is one provider's offer for one instance configuration at one observation time
type PriceRecord struct {
	Provider         string    `json:"provider"`
	InstanceType     string    `json:"instance_type"`
	GPUType          string    `json:"gpu_type"`
	GPUCount         int       `json:"gpu_count"`
	GPUMemoryGB      *int      `json:"gpu_memory_gb"`
	VCPUs            int       `json:"vcpus"`
	RAMGB            float64   `json:"ram_gb"`
	Region           string    `json:"region"`
	PricePerHour     float64   `json:"price_per_hour"` // USD
	IsSpot           *bool     `json:"is_spot"`
	Available        *bool     `json:"available"`
	AvailabilityZone *string   `json:"availability_zone"`
	ObservedAt       time.Time `json:"observed_at"` // set by ingestion, not by the collector
}

// RecordKey is the identity of a price record within the store
type RecordKey struct {
	ObservedAt   time.Time
	Provider     string
	InstanceType string
	Region       string
}

// PricePerGPUHour returns the hourly price of a single GPU, 0 for GPU-less offers.
func (r PriceRecord) PricePerGPUHour() float64 {
	if r.GPUCount > 0 {
		return r.PricePerHour / float64(r.GPUCount)
	}
	return 0.0
}

// Key returns the identity key of the record. ObservedAt is normalized so keys
// built from equal instants compare equal.
func (r PriceRecord) Key() RecordKey {
	return RecordKey{
		ObservedAt:   NormalizeTimestamp(r.ObservedAt),
		Provider:     r.Provider,
		InstanceType: r.InstanceType,
		Region:       r.Region,
	}
}

// MarshalJSON adds the derived price_per_gpu_hour field.
func (r PriceRecord) MarshalJSON() ([]byte, error) {
	type alias PriceRecord
	return json.Marshal(struct {
		alias
		PricePerGPUHour float64 `json:"price_per_gpu_hour"`
	}{
		alias:           alias(r),
		PricePerGPUHour: r.PricePerGPUHour(),
	})
}

// UnmarshalJSON ignores price_per_gpu_hour; it is always recomputed.
func (r *PriceRecord) UnmarshalJSON(data []byte) error {
	type alias PriceRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = PriceRecord(a)
	return nil
}

// NormalizeTimestamp converts t to the representation used by the store:
// UTC, microsecond precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Dedupe collapses records sharing an identity key. The last occurrence wins,
// the position of the first occurrence is kept. It returns the collapsed set
// and the number of records dropped.
func Dedupe(records []PriceRecord) ([]PriceRecord, int) {
	index := make(map[RecordKey]int, len(records))
	out := make([]PriceRecord, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if i, ok := index[key]; ok {
			out[i] = rec
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out, len(records) - len(out)
}

// PricePoint is one observation in a per-instance price history
type PricePoint struct {
	ObservedAt   time.Time `json:"observed_at"`
	PricePerHour float64   `json:"price_per_hour"`
	Available    *bool     `json:"available"`
}

// TrendPoint aggregates all matching records sharing one observed_at
type TrendPoint struct {
	ObservedAt    time.Time `json:"observed_at"`
	AvgPrice      float64   `json:"avg_price"`
	MinPrice      float64   `json:"min_price"`
	MaxPrice      float64   `json:"max_price"`
	InstanceCount int       `json:"instance_count"`
}

// StoreStats global, unwindowed statistics over the store
type StoreStats struct {
	TotalRecords    int64      `json:"total_records"`
	Snapshots       int64      `json:"snapshots"` // distinct observed_at values
	FirstObservedAt *time.Time `json:"first_observed_at"`
	LastObservedAt  *time.Time `json:"last_observed_at"`
	Providers       int64      `json:"providers"`
	GPUTypes        int64      `json:"gpu_types"`
}

// IsEmpty reports whether nothing has been ingested yet.
func (s StoreStats) IsEmpty() bool {
	return s.TotalRecords == 0
}
