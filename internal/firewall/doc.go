// Package firewall installs and removes the NAT redirect rules that make
// the PrusaLink web interface reachable on the standard HTTP port.
//
// The service itself binds an unprivileged port (8080 by default). Three
// kernel NAT rules redirect port-80 traffic to it:
//
//   - PREROUTING on each ingress interface (wlan0, eth0) for packets
//     arriving from the network, and
//   - OUTPUT on loopback, so locally generated requests to
//     http://localhost are redirected too (PREROUTING never sees
//     loopback-originated packets).
//
// Rules are managed by shelling out to the iptables binary. Installation
// is idempotent: each rule is probed with `iptables -C` before `-I`, so
// repeated boots do not stack duplicate rules the way the original boot
// script did.
package firewall
