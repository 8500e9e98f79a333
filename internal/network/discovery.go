// Package network provides LAN discovery of running daemons.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DiscoveredHost represents a daemon instance found on the network
type DiscoveredHost struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Mode      string `json:"mode"`
	Connected bool   `json:"connected"`
	Version   string `json:"version"`
}

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// ScanLAN scans the local /24 for daemon instances listening on port.
func ScanLAN(port int) ([]DiscoveredHost, error) {
	localIP, err := GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid IP address format: %s", localIP)
	}
	subnet := fmt.Sprintf("%s.%s.%s", parts[0], parts[1], parts[2])

	var hosts []DiscoveredHost
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 1; i <= 254; i++ {
		wg.Add(1)
		go func(hostNum int) {
			defer wg.Done()

			ip := fmt.Sprintf("%s.%d", subnet, hostNum)
			if host, ok := probeHost(ip, port); ok {
				mu.Lock()
				hosts = append(hosts, host)
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	return hosts, nil
}

// probeHost checks whether a host answers like a daemon. The health endpoint
// is unauthenticated; the status probe only succeeds against daemons without
// a token, which is fine for an overview scan.
func probeHost(ip string, port int) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	client := &http.Client{Timeout: 500 * time.Millisecond}

	healthURL := fmt.Sprintf("http://%s:%d/health", ip, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return DiscoveredHost{}, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return DiscoveredHost{}, false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DiscoveredHost{}, false
	}

	found := DiscoveredHost{IP: ip, Port: port}

	statusURL := fmt.Sprintf("http://%s:%d/api/status", ip, port)
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return found, true
	}
	resp, err = client.Do(req)
	if err != nil {
		return found, true
	}
	defer resp.Body.Close()

	var status struct {
		Mode      string `json:"mode"`
		Connected bool   `json:"connected"`
		Version   string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err == nil {
		found.Mode = status.Mode
		found.Connected = status.Connected
		found.Version = status.Version
	}
	return found, true
}

// GetLocalIPs returns the IPv4 addresses of all up, non-loopback interfaces.
// The daemon lists them at startup so companions know where to dial when it
// binds a wildcard address.
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if v4 := ipNet.IP.To4(); v4 != nil && !v4.IsLoopback() {
				ips = append(ips, v4.String())
			}
		}
	}
	return ips, nil
}
