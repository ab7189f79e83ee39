package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pingchat/internal/app/user"
)

func TestRegistryAddAndFind(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := &Broker{registry: r}

	alice1 := NewClient(b, nil, user.User{Username: "alice"})
	alice2 := NewClient(b, nil, user.User{Username: "alice"})
	bob := NewClient(b, nil, user.User{Username: "bob"})

	r.add(alice1)
	r.add(alice2)
	r.add(bob)

	require.Equal(t, 3, r.Len())
	require.Len(t, r.FindByUsername("alice"), 2)
	require.Len(t, r.FindByUsername("bob"), 1)
	require.Empty(t, r.FindByUsername("carol"))
	require.True(t, r.IsOnline("alice"))
	require.False(t, r.IsOnline("carol"))

	require.ElementsMatch(t, []string{"alice", "bob"}, r.AllUsernames())
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := &Broker{registry: r}

	alice := NewClient(b, nil, user.User{Username: "alice"})
	r.add(alice)

	removed := r.remove(alice.id)
	require.Same(t, alice, removed)
	require.Equal(t, 0, r.Len())
	require.False(t, r.IsOnline("alice"))

	require.Nil(t, r.remove(alice.id))
	require.Nil(t, r.remove("never-registered"))
}

func TestRegistryMultiDeviceRemoveKeepsOnline(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := &Broker{registry: r}

	alice1 := NewClient(b, nil, user.User{Username: "alice"})
	alice2 := NewClient(b, nil, user.User{Username: "alice"})
	r.add(alice1)
	r.add(alice2)

	r.remove(alice1.id)

	require.True(t, r.IsOnline("alice"), "one device left, user stays online")
	require.Len(t, r.FindByUsername("alice"), 1)

	r.remove(alice2.id)
	require.False(t, r.IsOnline("alice"))
}

func TestRegistryConnectionIDsUnique(t *testing.T) {
	t.Parallel()

	b := &Broker{registry: NewRegistry()}

	seen := make(map[string]struct{})
	for range 100 {
		c := NewClient(b, nil, user.User{Username: "alice"})
		_, dup := seen[c.id]
		require.False(t, dup, "connection ID reused")
		seen[c.id] = struct{}{}
	}
}
