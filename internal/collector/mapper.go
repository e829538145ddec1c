package collector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gpuprices/internal/model"
	"gpuprices/pkg/constants"
)

// Catalog item keys
const (
	KeyProvider     = "provider"
	KeyInstanceName = "instance_name"
	KeyName         = "name"
	KeyLocation     = "location"
	KeyPrice        = "price"
	KeyCPU          = "cpu"
	KeyMemory       = "memory"
	KeyGPUCount     = "gpu_count"
	KeyGPUName      = "gpu_name"
	KeyGPUMemory    = "gpu_memory"
	KeySpot         = "spot"
)

var knownProviders = func() map[string]string {
	m := make(map[string]string, len(constants.KnownProviders))
	for _, p := range constants.KnownProviders {
		m[p] = p
	}
	return m
}()

// NormalizeProvider maps a provider name onto the fixed lowercase vocabulary;
// unknown names pass through lowercased
func NormalizeProvider(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if p, ok := knownProviders[lower]; ok {
		return p
	}
	return lower
}

// MapCatalogItem converts one untyped catalog item into a validated price
// record. Absent fields take the catalog defaults: gpu name falls back to
// name then "Unknown", instance name to name then "unknown", one GPU, unknown
// location and provider, available.
func MapCatalogItem(item map[string]interface{}) (model.PriceRecord, error) {
	var rec model.PriceRecord

	rec.GPUType = firstString(item, model.UnknownGPUType, KeyGPUName, KeyName)
	rec.InstanceType = firstString(item, "unknown", KeyInstanceName, KeyName)
	rec.Region = firstString(item, "unknown", KeyLocation)
	rec.Provider = NormalizeProvider(firstString(item, constants.ProviderUnknown, KeyProvider))

	gpuCount, err := intField(item, KeyGPUCount, 1)
	if err != nil {
		return rec, err
	}
	rec.GPUCount = gpuCount

	if v, ok := present(item, KeyGPUMemory); ok {
		mem, err := decimalValue(KeyGPUMemory, v)
		if err != nil {
			return rec, err
		}
		if !mem.IsZero() {
			gb := int(mem.IntPart())
			rec.GPUMemoryGB = &gb
		}
	}

	if rec.VCPUs, err = intField(item, KeyCPU, 0); err != nil {
		return rec, err
	}

	memory, err := decimalField(item, KeyMemory)
	if err != nil {
		return rec, err
	}
	rec.RAMGB = memory.InexactFloat64()

	price, err := decimalField(item, KeyPrice)
	if err != nil {
		return rec, err
	}
	rec.PricePerHour = price.InexactFloat64()

	spot := false
	if v, ok := present(item, KeySpot); ok {
		if spot, err = boolValue(KeySpot, v); err != nil {
			return rec, err
		}
	}
	rec.IsSpot = &spot

	available := true
	rec.Available = &available

	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

func present(item map[string]interface{}, key string) (interface{}, bool) {
	v, ok := item[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func firstString(item map[string]interface{}, fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := present(item, key); ok {
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return fallback
}

func intField(item map[string]interface{}, key string, fallback int) (int, error) {
	v, ok := present(item, key)
	if !ok {
		return fallback, nil
	}
	d, err := decimalValue(key, v)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

func decimalField(item map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := present(item, key)
	if !ok {
		return decimal.Zero, nil
	}
	return decimalValue(key, v)
}

func decimalValue(key string, v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, &model.ValidationError{Index: -1, Field: key, Reason: "must be finite"}
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	case fmt.Stringer:
		return parseDecimal(key, n.String())
	case string:
		return parseDecimal(key, n)
	default:
		return decimal.Zero, &model.ValidationError{Index: -1, Field: key, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
}

func parseDecimal(key, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return decimal.Zero, &model.ValidationError{Index: -1, Field: key, Reason: fmt.Sprintf("not a number: %q", s)}
	}
	return d, nil
}

func boolValue(key string, v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, &model.ValidationError{Index: -1, Field: key, Reason: fmt.Sprintf("not a boolean: %q", b)}
		}
		return parsed, nil
	case float64:
		return b != 0, nil
	default:
		return false, &model.ValidationError{Index: -1, Field: key, Reason: fmt.Sprintf("expected bool, got %T", v)}
	}
}
