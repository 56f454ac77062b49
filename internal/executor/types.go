package executor

import (
	"time"

	"github.com/lumenfield/growcore/internal/lighting"
)

// Logger is the minimal logging interface the executor needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DocumentStore loads named JSON documents. The store package's
// FileStore satisfies it.
type DocumentStore interface {
	Load(name string, v any) error
}

// Group assigns a set of lights to a plan and a schedule.
type Group struct {
	ID         string                `json:"id"`
	Name       string                `json:"name,omitempty"`
	Lights     []GroupLight          `json:"lights"`
	Plan       string                `json:"plan,omitempty"`
	Schedule   string                `json:"schedule,omitempty"`
	PlanConfig *lighting.PlanConfig `json:"planConfig,omitempty"`
}

// GroupLight identifies one light within a group. Any of the three
// identifier fields may carry the registry key.
type GroupLight struct {
	ID       string `json:"id,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Key returns the identifier used for device registry lookup: id, then
// deviceId, then name.
func (l GroupLight) Key() string {
	if l.ID != "" {
		return l.ID
	}
	if l.DeviceID != "" {
		return l.DeviceID
	}
	return l.Name
}

// Document shapes stored by the dashboard.
type (
	groupsDocument struct {
		Groups []Group `json:"groups"`
	}
	plansDocument struct {
		Plans []lighting.Plan `json:"plans"`
	}
	schedulesDocument struct {
		Schedules []lighting.Schedule `json:"schedules"`
	}
	channelScaleDocument struct {
		MaxByte int `json:"maxByte"`
	}
)

// LightResult is the outcome of one light command within a tick.
type LightResult struct {
	Light   string `json:"light"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GroupResult summarises what a tick did to one group.
type GroupResult struct {
	Group      string           `json:"group"`
	Plan       string           `json:"plan"`
	Schedule   string           `json:"schedule"`
	Active     bool             `json:"active"`
	Recipe     *lighting.Recipe `json:"recipe,omitempty"`
	HexPayload *string          `json:"hexPayload,omitempty"`
	Devices    []LightResult    `json:"devices"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Status is the executor's introspection view.
type Status struct {
	Enabled        bool          `json:"enabled"`
	Running        bool          `json:"running"`
	Interval       time.Duration `json:"interval"`
	LastExecution  *time.Time    `json:"lastExecution,omitempty"`
	ExecutionCount int64         `json:"executionCount"`
	ErrorCount     int64         `json:"errorCount"`
	RegistrySize   int           `json:"registrySize"`
}
