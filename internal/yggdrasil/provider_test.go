package yggdrasil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var mockId = uuid.MustParse("4566e69f-c907-48ee-8d71-d7ba5aa00d20")

func TestRootProvider(t *testing.T) {
	t.Run("targets", func(t *testing.T) {
		p := NewRootProvider("https://authserver.ely.by/api/authlib-injector/")
		assert.Equal(t, "https://authserver.ely.by/api/authlib-injector/api/profiles/minecraft", p.BulkLookupTarget())
		assert.Equal(
			t,
			"https://authserver.ely.by/api/authlib-injector/sessionserver/session/minecraft/profile/4566e69fc90748ee8d71d7ba5aa00d20",
			p.ProfileTarget(mockId),
		)
		assert.Equal(
			t,
			"https://authserver.ely.by/api/authlib-injector/sessionserver/session/minecraft/hasJoined?username=Steve&serverId=deadbeef",
			p.JoinCheckTarget("Steve", "deadbeef"),
		)
		assert.Equal(t, "https://authserver.ely.by/api/authlib-injector/", p.String())
	})

	t.Run("appends missing trailing slash", func(t *testing.T) {
		p := NewRootProvider("https://example.com/yggdrasil")
		assert.Equal(t, "https://example.com/yggdrasil/", p.String())
		assert.Equal(t, "https://example.com/yggdrasil/api/profiles/minecraft", p.BulkLookupTarget())
	})

	t.Run("escapes join check params", func(t *testing.T) {
		p := NewRootProvider("https://example.com/")
		assert.Equal(
			t,
			"https://example.com/sessionserver/session/minecraft/hasJoined?username=a%26b%3Dc+d&serverId=%D0%BF%D1%80%D0%B8%D0%B2%D0%B5%D1%82",
			p.JoinCheckTarget("a&b=c d", "привет"),
		)
	})

	t.Run("profile target is deterministic", func(t *testing.T) {
		p := NewRootProvider("https://example.com/")
		assert.Equal(t, p.ProfileTarget(mockId), p.ProfileTarget(uuid.MustParse(mockId.String())))
	})
}

func TestMojangProvider(t *testing.T) {
	p := &MojangProvider{}
	assert.Equal(t, "https://api.mojang.com/profiles/minecraft", p.BulkLookupTarget())
	assert.Equal(t, "https://sessionserver.mojang.com/session/minecraft/profile/4566e69fc90748ee8d71d7ba5aa00d20", p.ProfileTarget(mockId))
	assert.Equal(t, "https://sessionserver.mojang.com/session/minecraft/hasJoined?username=Steve&serverId=-1a2b", p.JoinCheckTarget("Steve", "-1a2b"))
	assert.Equal(t, "mojang", p.String())
}
