package sysinfo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	gohost "github.com/shirou/gopsutil/v4/host"
)

// DeviceInfo is what the agent tells the server about the machine at
// enrollment time.
type DeviceInfo struct {
	DeviceName   string
	Platform     string
	Arch         string
	AgentVersion string
	Fingerprint  string
}

// Collect gathers hostname, platform and CPU model and derives the device
// fingerprint from them. Failures fall back to runtime constants so that
// enrollment still works on exotic hosts.
func Collect(ctx context.Context, agentVersion string) DeviceInfo {
	collectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	hostname := "unknown-host"
	if info, err := gohost.InfoWithContext(collectCtx); err == nil {
		if h := strings.TrimSpace(info.Hostname); h != "" {
			hostname = h
		}
	}

	cpuModel := "unknown"
	if infos, err := cpu.InfoWithContext(collectCtx); err == nil && len(infos) > 0 {
		if m := strings.TrimSpace(infos[0].ModelName); m != "" {
			cpuModel = m
		}
	}

	return DeviceInfo{
		DeviceName:   hostname,
		Platform:     runtime.GOOS,
		Arch:         runtime.GOARCH,
		AgentVersion: agentVersion,
		Fingerprint:  Fingerprint(hostname, runtime.GOOS, runtime.GOARCH, cpuModel),
	}
}

// Fingerprint hashes the identifying tuple and keeps the first 32 hex
// characters. It is an enrollment-time hint, not a security boundary.
func Fingerprint(hostname, platform, arch, cpuModel string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s-%s", hostname, platform, arch, cpuModel)))
	return hex.EncodeToString(sum[:])[:32]
}
