package restful

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/cerrors"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/utilities"
	"github.com/okieraised/sensor-watchdog/internal/version"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IHealthcheckService interface {
	Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError)
}

// StatusFunc reports the connection state of each sensor transport by name.
type StatusFunc func() map[string]bool

type HealthcheckService struct {
	logger     *log.Logger
	transports StatusFunc
	clients    func() int
	startedAt  time.Time
}

func NewHealthcheckService(options ...func(*HealthcheckService)) *HealthcheckService {
	svc := &HealthcheckService{startedAt: time.Now()}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithTransportStatus(fn StatusFunc) func(*HealthcheckService) {
	return func(s *HealthcheckService) {
		s.transports = fn
	}
}

func WithClientCount(fn func() int) func(*HealthcheckService) {
	return func(s *HealthcheckService) {
		s.clients = fn
	}
}

func WithHealthcheckLogger(logger *log.Logger) func(*HealthcheckService) {
	return func(s *HealthcheckService) {
		s.logger = logger
	}
}

type HealthcheckInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
}

type HealthcheckOutput struct {
	Agent   AgentInfo   `json:"agent"`
	Host    HostInfo    `json:"host"`
	Memory  MemoryInfo  `json:"memory"`
	Network NetworkInfo `json:"network"`
	CPU     CPUInfo     `json:"cpu"`
}

type AgentInfo struct {
	Version          string          `json:"version"`
	UptimeSeconds    int64           `json:"uptime_seconds"`
	Healthy          bool            `json:"healthy"`
	Transports       map[string]bool `json:"transports"`
	WebsocketClients int             `json:"websocket_clients"`
}

type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

type NetworkInfo struct {
	OutboundIP   string   `json:"outbound_ip,omitempty"`
	PhysicalMacs []string `json:"physical_macs"`
}

type HostInfo struct {
	Hostname             string `json:"hostname"`
	OS                   string `json:"os"`
	Platform             string `json:"platform"`
	PlatformFamily       string `json:"platform_family"`
	PlatformVersion      string `json:"platform_version"`
	KernelVersion        string `json:"kernel_version"`
	Arch                 string `json:"arch"`
	VirtualizationSystem string `json:"virtualization_system"`
	VirtualizationRole   string `json:"virtualization_role"`
	HostID               string `json:"host_id"`
}

type CPUInfo struct {
	ModelName     string `json:"model_name"`
	VendorID      string `json:"vendor_id"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
}

func (svc *HealthcheckService) agentInfo() AgentInfo {
	info := AgentInfo{
		Version:       version.Short(),
		UptimeSeconds: int64(time.Since(svc.startedAt).Seconds()),
		Healthy:       true,
		Transports:    map[string]bool{},
	}
	if svc.transports != nil {
		for name, up := range svc.transports() {
			info.Transports[name] = up
			if !up {
				info.Healthy = false
			}
		}
	}
	if svc.clients != nil {
		info.WebsocketClients = svc.clients()
	}
	return info
}

func (svc *HealthcheckService) Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError) {
	rootCtx, span := input.Tracer.Start(input.TracerCtx, "healthcheck-handler")
	defer span.End()

	resp := &api_response.BaseOutput{}
	lg := svc.logger.With(
		zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
	)

	_, cSpan := input.Tracer.Start(rootCtx, "get-host-info")
	hostStat, err := host.InfoWithContext(rootCtx)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get host info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	_, cSpan = input.Tracer.Start(rootCtx, "get-memory-info")
	memoryInfo, err := mem.VirtualMemoryWithContext(rootCtx)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get memory info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	// Network details are best effort: an isolated host has no outbound route.
	_, cSpan = input.Tracer.Start(rootCtx, "get-net-info")
	network := NetworkInfo{PhysicalMacs: []string{}}
	if macs, err := utilities.RetrievePhysicalMacAddr(); err != nil {
		lg.Warn(errors.Wrap(err, "failed to get physical mac addresses").Error())
	} else {
		network.PhysicalMacs = macs
	}
	if ip, err := utilities.GetOutboundIP(); err != nil {
		lg.Warn(errors.Wrap(err, "failed to get outbound ip").Error())
	} else {
		network.OutboundIP = ip.String()
	}
	cSpan.End()

	_, cSpan = input.Tracer.Start(rootCtx, "get-cpu-info")
	cpuStat, err := cpu.InfoWithContext(rootCtx)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get cpu info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}

	physicalCores, err := cpu.CountsWithContext(rootCtx, false)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get cpu info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}

	logicalCores, err := cpu.CountsWithContext(rootCtx, true)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get cpu info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	cpuInfo := CPUInfo{
		PhysicalCores: physicalCores,
		LogicalCores:  logicalCores,
	}
	if len(cpuStat) > 0 {
		cpuInfo.ModelName = cpuStat[0].ModelName
		cpuInfo.VendorID = cpuStat[0].VendorID
	}

	respData := HealthcheckOutput{
		Agent: svc.agentInfo(),
		Host: HostInfo{
			Hostname:             hostStat.Hostname,
			OS:                   hostStat.OS,
			Platform:             hostStat.Platform,
			PlatformFamily:       hostStat.PlatformFamily,
			PlatformVersion:      hostStat.PlatformVersion,
			KernelVersion:        hostStat.KernelVersion,
			Arch:                 hostStat.KernelArch,
			VirtualizationSystem: hostStat.VirtualizationSystem,
			VirtualizationRole:   hostStat.VirtualizationRole,
			HostID:               hostStat.HostID,
		},
		Memory: MemoryInfo{
			Total:       memoryInfo.Total,
			Free:        memoryInfo.Free,
			UsedPercent: memoryInfo.UsedPercent,
		},
		Network: network,
		CPU:     cpuInfo,
	}

	resp.Code = cerrors.OK.Code
	resp.Message = cerrors.OK.Message
	resp.Data = respData

	return resp, nil
}
