package yggdrasil

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Provider builds request targets for a single Yggdrasil service.
// Implementations must be immutable and side-effect free.
type Provider interface {
	// BulkLookupTarget is the address accepting a POSTed JSON array of names
	BulkLookupTarget() string
	// ProfileTarget is the address returning the full profile of the id
	ProfileTarget(id uuid.UUID) string
	// JoinCheckTarget is the address verifying that username has joined the server
	JoinCheckTarget(username string, serverId string) string
	// String returns the identity of the provider used in logs and health checks
	String() string
}

// RootProvider serves all endpoints from a single API root,
// as authlib-injector compatible services do
type RootProvider struct {
	root string
}

func NewRootProvider(root string) *RootProvider {
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	return &RootProvider{root: root}
}

func (p *RootProvider) BulkLookupTarget() string {
	return p.root + "api/profiles/minecraft"
}

func (p *RootProvider) ProfileTarget(id uuid.UUID) string {
	return p.root + "sessionserver/session/minecraft/profile/" + ToUnsigned(id)
}

func (p *RootProvider) JoinCheckTarget(username string, serverId string) string {
	return p.root + "sessionserver/session/minecraft/hasJoined?" + joinCheckQuery(username, serverId)
}

func (p *RootProvider) String() string {
	return p.root
}

const (
	mojangApiAddr           = "https://api.mojang.com/"
	mojangSessionServerAddr = "https://sessionserver.mojang.com/"
)

// MojangProvider targets the official services, which split the API
// between two hosts and don't share the authlib-injector layout
type MojangProvider struct {
}

func (*MojangProvider) BulkLookupTarget() string {
	return mojangApiAddr + "profiles/minecraft"
}

func (*MojangProvider) ProfileTarget(id uuid.UUID) string {
	return mojangSessionServerAddr + "session/minecraft/profile/" + ToUnsigned(id)
}

func (*MojangProvider) JoinCheckTarget(username string, serverId string) string {
	return mojangSessionServerAddr + "session/minecraft/hasJoined?" + joinCheckQuery(username, serverId)
}

func (*MojangProvider) String() string {
	return "mojang"
}

func joinCheckQuery(username string, serverId string) string {
	return "username=" + url.QueryEscape(username) + "&serverId=" + url.QueryEscape(serverId)
}
