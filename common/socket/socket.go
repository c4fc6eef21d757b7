// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package socket

import (
	"fmt"
	"net"
)

// Version is the IP version carried by an IPV: v4 or v6.
type Version uint8

const (
	V4 Version = iota
	V6
)

// IPV wraps a net.IP in fixed-size storage alongside its version, so a
// Tuple can be compared and hashed by value instead of holding a slice.
type IPV struct {
	IP      [net.IPv6len]byte
	Version Version
}

// ToIPV4 converts a net.IP into its IPV4 representation.
func ToIPV4(ip net.IP) IPV {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	var dst [net.IPv6len]byte
	copy(dst[:], ip[:])
	return IPV{
		IP:      dst,
		Version: V4,
	}
}

// ToIPV6 converts a net.IP into its IPV6 representation.
func ToIPV6(ip net.IP) IPV {
	var dst [net.IPv6len]byte
	copy(dst[:], ip[:])
	return IPV{
		IP:      dst,
		Version: V6,
	}
}

// NetIP converts ipv back into a net.IP.
func (ipv IPV) NetIP() net.IP {
	if ipv.Version == V4 {
		return ipv.IP[:net.IPv4len]
	}
	return ipv.IP[:]
}

func (ipv IPV) String() string {
	return ipv.NetIP().String()
}

// Port is a TCP port number.
type Port uint16

// Tuple identifies one half of a TCP connection: source and destination
// address and port. A full-duplex connection has no single "true"
// direction, but every read off a socket does, so callers pass whichever
// Tuple matches the direction of the bytes they read.
type Tuple struct {
	SrcIP   IPV
	DstIP   IPV
	SrcPort Port
	DstPort Port
}

func (t Tuple) String() string {
	return fmt.Sprintf("%s:%d > %s:%d", t.SrcIP, t.SrcPort, t.DstIP, t.DstPort)
}

// Mirror returns the other direction of the same connection.
func (t Tuple) Mirror() Tuple {
	return Tuple{
		SrcIP:   t.DstIP,
		DstIP:   t.SrcIP,
		SrcPort: t.DstPort,
		DstPort: t.SrcPort,
	}
}
