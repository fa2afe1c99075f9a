package config

import (
	"os"
	"strconv"
	"strings"
)

// Capacity enforcement modes. Strict re-checks batch occupancy inside the
// assignment transaction; advisory only reports occupancy to the caller.
const (
	CapacityStrict   = "strict"
	CapacityAdvisory = "advisory"
)

type BatchSlot struct {
	Name string
	Time string
}

type BatchConfig struct {
	Capacity      int
	CapacityMode  string
	MaxBatchIndex int
	Horses        []string
	Defaults      map[string][]BatchSlot
}

func LoadBatchConfig() *BatchConfig {
	mode := getEnv("BATCH_CAPACITY_MODE", CapacityStrict)
	if mode != CapacityStrict && mode != CapacityAdvisory {
		mode = CapacityStrict
	}

	return &BatchConfig{
		Capacity:      getEnvAsInt("BATCH_CAPACITY", 5),
		CapacityMode:  mode,
		MaxBatchIndex: getEnvAsInt("BATCH_MAX_INDEX", 10),
		Horses:        getEnvAsList("STABLE_HORSES", defaultHorses),
		Defaults: map[string][]BatchSlot{
			"morning": {
				{Name: "Batch 1", Time: "6:00 AM - 7:30 AM"},
				{Name: "Batch 2", Time: "7:30 AM - 9:00 AM"},
				{Name: "Batch 3", Time: "9:00 AM - 10:30 AM"},
			},
			"evening": {
				{Name: "Batch 1", Time: "4:00 PM - 5:30 PM"},
				{Name: "Batch 2", Time: "5:30 PM - 7:00 PM"},
				{Name: "Batch 3", Time: "7:00 PM - 8:30 PM"},
			},
		},
	}
}

var defaultHorses = []string{"Alishan", "Aslan", "Timur", "Heera", "Clara", "XLove", "Baadshah", "Antilope"}

// KnownHorse reports whether name is in the configured horse set.
func (c *BatchConfig) KnownHorse(name string) bool {
	for _, h := range c.Horses {
		if h == name {
			return true
		}
	}
	return false
}

// KnownBatchType reports whether t has a default schedule configured.
func (c *BatchConfig) KnownBatchType(t string) bool {
	_, ok := c.Defaults[t]
	return ok
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
