package cmd

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// buildICEServers converts the server's client-visible ICEServers list
// (plain STUN/TURN URLs) into pion's typed configuration, attaching TURN
// credentials when one of the URLs looks like a TURN server and
// credentials were supplied.
func buildICEServers(urls []string, turnUser, turnPass string) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		server := webrtc.ICEServer{URLs: []string{u}}
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			server.Username = turnUser
			server.Credential = turnPass
		}
		servers = append(servers, server)
	}
	return servers
}
