package diagnostics

import (
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot holds process and system resource usage at one instant.
type Snapshot struct {
	CollectedAt time.Time `json:"collected_at"`
	Uptime      string    `json:"uptime"`
	GoVersion   string    `json:"go_version"`

	// Process
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`

	// Host
	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUCores   int     `json:"cpu_cores,omitempty"`
	CPUThreads int     `json:"cpu_threads"`
	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`
	LoadAvg1   float64 `json:"load_avg_1"`

	// Disk holding the run store, when one is configured
	DiskPath        string  `json:"disk_path,omitempty"`
	DiskFreeGB      float64 `json:"disk_free_gb,omitempty"`
	DiskUsedPercent float64 `json:"disk_used_percent,omitempty"`

	// Engine
	InFlight       int   `json:"in_flight_completions"`
	FaultsReported int64 `json:"faults_reported"`
}

// Collector gathers snapshots. Static host facts are read once.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	inFlight func() int
	faults   func() int64
	diskPath string

	infoCollected bool
	cpuModel      string
	cpuCores      int
	cpuThreads    int
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithDiskPath adds usage of the filesystem holding path to snapshots.
func WithDiskPath(path string) CollectorOption {
	return func(c *Collector) {
		c.diskPath = path
	}
}

// WithFaultCount reports the number of run faults seen since start.
func WithFaultCount(count func() int64) CollectorOption {
	return func(c *Collector) {
		c.faults = count
	}
}

// NewCollector creates a collector. inFlight reports armed completions and
// may be nil.
func NewCollector(inFlight func() int, opts ...CollectorOption) *Collector {
	c := &Collector{
		started:  time.Now(),
		inFlight: inFlight,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect gathers current statistics.
func (c *Collector) Collect() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	inFlight := 0
	if c.inFlight != nil {
		inFlight = c.inFlight()
	}
	s := Collect(inFlight)
	s.Uptime = time.Since(c.started).Round(time.Second).String()

	if !c.infoCollected {
		c.cpuModel, c.cpuCores = readCPUTopology()
		c.cpuThreads = s.CPUThreads
		c.infoCollected = true
	}
	s.CPUModel = c.cpuModel
	s.CPUCores = c.cpuCores
	s.CPUThreads = c.cpuThreads

	if c.faults != nil {
		s.FaultsReported = c.faults()
	}
	if c.diskPath != "" {
		collectDiskInfo(&s, c.diskPath)
	}
	return s
}

// Collect returns a one-off snapshot with the given in-flight count.
func Collect(inFlight int) Snapshot {
	s := Snapshot{
		CollectedAt: time.Now().UTC(),
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		InFlight:    inFlight,
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024
	s.NumGC = ms.NumGC

	collectMemoryInfo(&s)
	collectCPUInfo(&s)
	return s
}

// collectMemoryInfo reads system memory information.
func collectMemoryInfo(s *Snapshot) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	s.MemTotalMB = float64(vm.Total) / 1024 / 1024
	s.MemUsedMB = float64(vm.Used) / 1024 / 1024
	s.MemPercent = vm.UsedPercent
}

func collectCPUInfo(s *Snapshot) {
	if threads, err := cpu.Counts(true); err == nil && threads > 0 {
		s.CPUThreads = threads
	} else {
		s.CPUThreads = runtime.NumCPU()
	}
	if avg, err := load.Avg(); err == nil {
		s.LoadAvg1 = avg.Load1
	}
}

// readCPUTopology reads static processor facts. ghw can be slow and fails in
// some containers, so callers read it once.
func readCPUTopology() (model string, cores int) {
	info, err := ghw.CPU()
	if err != nil || info == nil {
		return "", 0
	}
	for _, p := range info.Processors {
		if model == "" {
			model = strings.TrimSpace(p.Model)
		}
	}
	return model, int(info.TotalCores)
}

func collectDiskInfo(s *Snapshot, path string) {
	usage, err := disk.Usage(path)
	if err != nil {
		return
	}
	s.DiskPath = path
	s.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	s.DiskUsedPercent = usage.UsedPercent
}
