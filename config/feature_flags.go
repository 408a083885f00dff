package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles. Concordia has a single user, so
// there is no per-user rollout: a flag is on or off for the whole instance,
// optionally inside a time window.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
	now      func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	// AI narrative report per student
	FlagAIReports = "reports.ai"

	// Render report text as HTML on request
	FlagReportHTML = "reports.html"

	// Delete a student's logs together with the student
	FlagPurgeStudentLogs = "students.purge_logs"

	// Mirror state.updated over Redis pub/sub
	FlagRedisNotify = "notify.redis"

	// Excel roster import and class report export
	FlagExcel = "export.xlsx"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
		now:      time.Now,
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FlagAIReports] = &Feature{
		Name:        FlagAIReports,
		Description: "Generate narrative student reports via the text-generation API",
		Enabled:     true,
	}

	ff.features[FlagReportHTML] = &Feature{
		Name:        FlagReportHTML,
		Description: "Render report markdown as HTML",
		Enabled:     true,
	}

	ff.features[FlagPurgeStudentLogs] = &Feature{
		Name:        FlagPurgeStudentLogs,
		Description: "Remove participation and behavior logs when a student is deleted",
		Enabled:     false, // orphaned logs are the historical behaviour
	}

	ff.features[FlagRedisNotify] = &Feature{
		Name:        FlagRedisNotify,
		Description: "Broadcast state changes to other instances over Redis",
		Enabled:     false,
	}

	ff.features[FlagExcel] = &Feature{
		Name:        FlagExcel,
		Description: "Excel roster import and class report export",
		Enabled:     true,
	}
}

// loadFromEnvironment loads overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_STUDENTS_PURGE_LOGS=true
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "students.purge_logs" -> "FEATURE_STUDENTS_PURGE_LOGS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is on right now. Unknown flags are off.
// A nil receiver treats every flag as off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}
	return true
}

// SetEnabled toggles a feature at runtime.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// SetWindow restricts a feature to [from, until]. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// Snapshot returns name -> enabled for every known flag, sorted by name.
func (ff *FeatureFlags) Snapshot() []FeatureState {
	ff.mu.RLock()
	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	ff.mu.RUnlock()
	sort.Strings(names)

	out := make([]FeatureState, 0, len(names))
	for _, name := range names {
		out = append(out, FeatureState{Name: name, Enabled: ff.IsEnabled(name)})
	}
	return out
}

// FeatureState is a point-in-time view of one flag.
type FeatureState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// --- Errors ---

var (
	ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
