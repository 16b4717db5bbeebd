package service

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ethioshop/marketplace/internal/repository"
)

// QueueDepth reports pending tasks in a dispatch queue.
type QueueDepth interface {
	Pending() int
}

// SystemStatus is the admin status snapshot.
type SystemStatus struct {
	StartedAt    time.Time `json:"started_at"`
	AppUptimeSec int64     `json:"app_uptime_sec"`
	HostUptime   uint64    `json:"host_uptime_sec"`
	CPUPercent   float64   `json:"cpu_percent"`
	MemTotal     uint64    `json:"mem_total"`
	MemUsed      uint64    `json:"mem_used"`
	Load1        float64   `json:"load1"`
	Load5        float64   `json:"load5"`
	Load15       float64   `json:"load15"`
	Users        int64     `json:"users"`
	Orders       int64     `json:"orders"`
	PushBacklog  int       `json:"push_backlog"`
}

// statFetcher allows tests to stub the gopsutil readers.
type statFetcher struct {
	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	loadAvg       func() (*load.AvgStat, error)
	hostUptime    func() (uint64, error)
}

// AdminSystemService collects host and application status for operators.
type AdminSystemService struct {
	store     repository.Store
	pushQueue QueueDepth
	startedAt time.Time
	fetcher   statFetcher
}

// NewAdminSystemService assembles the status collector.
func NewAdminSystemService(store repository.Store, pushQueue QueueDepth) *AdminSystemService {
	return &AdminSystemService{
		store:     store,
		pushQueue: pushQueue,
		startedAt: time.Now(),
		fetcher: statFetcher{
			cpuPercent:    cpu.Percent,
			virtualMemory: mem.VirtualMemory,
			loadAvg:       load.Avg,
			hostUptime:    host.Uptime,
		},
	}
}

// Status gathers the snapshot. Host probes are best-effort; a failing
// probe leaves its field zero rather than failing the whole call.
func (s *AdminSystemService) Status(ctx context.Context) (*SystemStatus, error) {
	status := &SystemStatus{
		StartedAt:    s.startedAt,
		AppUptimeSec: int64(time.Since(s.startedAt).Seconds()),
	}

	if percents, err := s.fetcher.cpuPercent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if v, err := s.fetcher.virtualMemory(); err == nil {
		status.MemTotal = v.Total
		status.MemUsed = v.Used
	}
	if l, err := s.fetcher.loadAvg(); err == nil {
		status.Load1 = l.Load1
		status.Load5 = l.Load5
		status.Load15 = l.Load15
	}
	if u, err := s.fetcher.hostUptime(); err == nil {
		status.HostUptime = u
	}

	if s.store != nil {
		if count, err := s.store.Users().Count(ctx); err == nil {
			status.Users = count
		}
		if count, err := s.store.Orders().Count(ctx); err == nil {
			status.Orders = count
		}
	}
	if s.pushQueue != nil {
		status.PushBacklog = s.pushQueue.Pending()
	}
	return status, nil
}
