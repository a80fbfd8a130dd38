// AngelaMos | 2026
// system.go

package moderation

import (
	"context"
	"runtime"

	"github.com/notbyai-space/curation-api/internal/core"
)

// SystemProbe exposes connection pool state to moderators. Any field may
// be nil when the dependency is not configured.
type SystemProbe struct {
	DBStats    func() core.DBPoolStats
	DBPing     func(ctx context.Context) error
	RedisStats func() core.RedisPoolStats
	RedisPing  func(ctx context.Context) error
}

type SystemStats struct {
	Database DependencyStatus `json:"database"`
	Redis    DependencyStatus `json:"redis"`
	Runtime  RuntimeStats     `json:"runtime"`
}

type DependencyStatus struct {
	Configured bool `json:"configured"`
	Healthy    bool `json:"healthy"`
	Pool       any  `json:"pool,omitempty"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

func (p SystemProbe) Collect(ctx context.Context) SystemStats {
	var out SystemStats

	if p.DBPing != nil {
		out.Database.Configured = true
		out.Database.Healthy = p.DBPing(ctx) == nil
		if p.DBStats != nil {
			out.Database.Pool = p.DBStats()
		}
	}

	if p.RedisPing != nil {
		out.Redis.Configured = true
		out.Redis.Healthy = p.RedisPing(ctx) == nil
		if p.RedisStats != nil {
			out.Redis.Pool = p.RedisStats()
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	out.Runtime = RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}

	return out
}
