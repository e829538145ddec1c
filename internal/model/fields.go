package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Field names of the flat record representation
const (
	FieldProvider         = "provider"
	FieldInstanceType     = "instance_type"
	FieldGPUType          = "gpu_type"
	FieldGPUCount         = "gpu_count"
	FieldGPUMemoryGB      = "gpu_memory_gb"
	FieldVCPUs            = "vcpus"
	FieldRAMGB            = "ram_gb"
	FieldRegion           = "region"
	FieldPricePerHour     = "price_per_hour"
	FieldPricePerGPUHour  = "price_per_gpu_hour"
	FieldIsSpot           = "is_spot"
	FieldAvailable        = "available"
	FieldAvailabilityZone = "availability_zone"
	FieldObservedAt       = "observed_at"
)

// Validate checks the field constraints of a price record.
func (r PriceRecord) Validate() error {
	required := []struct{ field, value string }{
		{FieldProvider, r.Provider},
		{FieldInstanceType, r.InstanceType},
		{FieldGPUType, r.GPUType},
		{FieldRegion, r.Region},
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return newValidationError(req.field, "required")
		}
	}

	if r.GPUCount < 0 {
		return newValidationError(FieldGPUCount, "must be >= 0")
	}
	if r.GPUMemoryGB != nil && *r.GPUMemoryGB < 0 {
		return newValidationError(FieldGPUMemoryGB, "must be >= 0")
	}
	if r.VCPUs < 0 {
		return newValidationError(FieldVCPUs, "must be >= 0")
	}
	if err := checkNonNegative(FieldRAMGB, r.RAMGB); err != nil {
		return err
	}
	return checkNonNegative(FieldPricePerHour, r.PricePerHour)
}

func checkNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newValidationError(field, "must be finite")
	}
	if v < 0 {
		return newValidationError(field, "must be >= 0")
	}
	return nil
}

// Fields returns the record as a flat mapping of primitive values. Optional
// fields map to nil when unset; the derived price_per_gpu_hour is included.
func (r PriceRecord) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		FieldProvider:         r.Provider,
		FieldInstanceType:     r.InstanceType,
		FieldGPUType:          r.GPUType,
		FieldGPUCount:         r.GPUCount,
		FieldGPUMemoryGB:      nil,
		FieldVCPUs:            r.VCPUs,
		FieldRAMGB:            r.RAMGB,
		FieldRegion:           r.Region,
		FieldPricePerHour:     r.PricePerHour,
		FieldPricePerGPUHour:  r.PricePerGPUHour(),
		FieldIsSpot:           nil,
		FieldAvailable:        nil,
		FieldAvailabilityZone: nil,
		FieldObservedAt:       nil,
	}
	if r.GPUMemoryGB != nil {
		fields[FieldGPUMemoryGB] = *r.GPUMemoryGB
	}
	if r.IsSpot != nil {
		fields[FieldIsSpot] = *r.IsSpot
	}
	if r.Available != nil {
		fields[FieldAvailable] = *r.Available
	}
	if r.AvailabilityZone != nil {
		fields[FieldAvailabilityZone] = *r.AvailabilityZone
	}
	if !r.ObservedAt.IsZero() {
		fields[FieldObservedAt] = r.ObservedAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

// RecordFromFields is the inverse of Fields. price_per_gpu_hour is ignored if
// present. Missing required fields and values of the wrong type are reported
// as *ValidationError; value constraints are left to Validate.
func RecordFromFields(fields map[string]interface{}) (PriceRecord, error) {
	var (
		r   PriceRecord
		err error
	)

	if r.Provider, err = requiredString(fields, FieldProvider); err != nil {
		return r, err
	}
	if r.InstanceType, err = requiredString(fields, FieldInstanceType); err != nil {
		return r, err
	}
	if r.GPUType, err = requiredString(fields, FieldGPUType); err != nil {
		return r, err
	}
	if r.Region, err = requiredString(fields, FieldRegion); err != nil {
		return r, err
	}
	if r.GPUCount, err = requiredInt(fields, FieldGPUCount); err != nil {
		return r, err
	}
	if r.VCPUs, err = requiredInt(fields, FieldVCPUs); err != nil {
		return r, err
	}
	if r.RAMGB, err = requiredFloat(fields, FieldRAMGB); err != nil {
		return r, err
	}
	if r.PricePerHour, err = requiredFloat(fields, FieldPricePerHour); err != nil {
		return r, err
	}

	if v, ok := fields[FieldGPUMemoryGB]; ok && v != nil {
		n, err := toInt(FieldGPUMemoryGB, v)
		if err != nil {
			return r, err
		}
		r.GPUMemoryGB = &n
	}
	if r.IsSpot, err = optionalBool(fields, FieldIsSpot); err != nil {
		return r, err
	}
	if r.Available, err = optionalBool(fields, FieldAvailable); err != nil {
		return r, err
	}
	if v, ok := fields[FieldAvailabilityZone]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return r, newValidationError(FieldAvailabilityZone, fmt.Sprintf("expected string, got %T", v))
		}
		r.AvailabilityZone = &s
	}
	if v, ok := fields[FieldObservedAt]; ok && v != nil {
		switch ts := v.(type) {
		case time.Time:
			r.ObservedAt = ts
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return r, newValidationError(FieldObservedAt, err.Error())
			}
			r.ObservedAt = parsed
		default:
			return r, newValidationError(FieldObservedAt, fmt.Sprintf("expected timestamp, got %T", v))
		}
	}
	return r, nil
}

func requiredString(fields map[string]interface{}, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", newValidationError(key, "required")
	}
	s, ok := v.(string)
	if !ok {
		return "", newValidationError(key, fmt.Sprintf("expected string, got %T", v))
	}
	return s, nil
}

func requiredInt(fields map[string]interface{}, key string) (int, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, newValidationError(key, "required")
	}
	return toInt(key, v)
}

func requiredFloat(fields map[string]interface{}, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, newValidationError(key, "required")
	}
	return toFloat(key, v)
}

func optionalBool(fields map[string]interface{}, key string) (*bool, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, newValidationError(key, fmt.Sprintf("expected bool, got %T", v))
	}
	return &b, nil
}

func toInt(key string, v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, newValidationError(key, fmt.Sprintf("expected integer, got %v", n))
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, newValidationError(key, fmt.Sprintf("expected integer, got %s", n))
		}
		return int(i), nil
	default:
		return 0, newValidationError(key, fmt.Sprintf("expected integer, got %T", v))
	}
}

func toFloat(key string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, newValidationError(key, fmt.Sprintf("expected number, got %s", n))
		}
		return f, nil
	default:
		return 0, newValidationError(key, fmt.Sprintf("expected number, got %T", v))
	}
}
