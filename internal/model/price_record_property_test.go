package model

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_FieldsRoundTrip checks that RecordFromFields(r.Fields()) == r
// for arbitrary records, the derived field excepted.
func TestProperty_FieldsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("fields round-trip", prop.ForAll(
		func(provider, instance string, gpuCount, vcpus int, price, ram float64, unixSec int64, flag bool) bool {
			r := PriceRecord{
				Provider:     provider,
				InstanceType: instance,
				GPUType:      "H100",
				GPUCount:     gpuCount,
				VCPUs:        vcpus,
				RAMGB:        ram,
				Region:       "eu-west-1",
				PricePerHour: price,
				ObservedAt:   time.Unix(unixSec, 0).UTC(),
			}
			if flag {
				mem := gpuCount * 80
				r.GPUMemoryGB = &mem
				r.Available = &flag
				zone := "eu-west-1b"
				r.AvailabilityZone = &zone
			}

			got, err := RecordFromFields(r.Fields())
			if err != nil {
				return false
			}
			if !got.ObservedAt.Equal(r.ObservedAt) {
				return false
			}
			got.ObservedAt = r.ObservedAt
			return got.Provider == r.Provider &&
				got.InstanceType == r.InstanceType &&
				got.GPUCount == r.GPUCount &&
				got.VCPUs == r.VCPUs &&
				got.RAMGB == r.RAMGB &&
				got.PricePerHour == r.PricePerHour &&
				equalIntPtr(got.GPUMemoryGB, r.GPUMemoryGB) &&
				equalBoolPtr(got.Available, r.Available) &&
				equalBoolPtr(got.IsSpot, r.IsSpot) &&
				equalStrPtr(got.AvailabilityZone, r.AvailabilityZone)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 16),
		gen.IntRange(0, 256),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 4096),
		gen.Int64Range(0, 4102444800),
		gen.Bool(),
	))

	properties.Property("derived price per gpu hour", prop.ForAll(
		func(price float64, gpuCount int) bool {
			r := PriceRecord{PricePerHour: price, GPUCount: gpuCount}
			if gpuCount == 0 {
				return r.PricePerGPUHour() == 0.0
			}
			return r.PricePerGPUHour() == price/float64(gpuCount)
		},
		gen.Float64Range(0, 1000),
		gen.IntRange(0, 16),
	))

	properties.TestingRun(t)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
