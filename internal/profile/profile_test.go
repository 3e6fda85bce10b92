package profile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uidb/gateway/internal/dsn"
	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/keychain"
)

func sampleProfile() ConnectionProfile {
	return ConnectionProfile{Principal: "alice", Host: "db.local", Port: 3306, User: "app", Password: "pw!", Database: "shop"}
}

func TestConnectionProfile_Validate(t *testing.T) {
	require.NoError(t, sampleProfile().Validate())

	p := sampleProfile()
	p.Host, p.Database = "", ""
	err := p.Validate()
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
	assert.Contains(t, err.Error(), "host, database")

	p = sampleProfile()
	p.Port = 70000
	assert.Error(t, p.Validate())
}

func TestConnectionProfile_MaskedAndKey(t *testing.T) {
	p := sampleProfile()
	assert.Equal(t, maskedPassword, p.Masked().Password)
	assert.Equal(t, "pw!", p.Password)
	assert.NotContains(t, p.Key(), "pw!")

	p.Password = ""
	assert.Empty(t, p.Masked().Password)
}

func TestFromDSN(t *testing.T) {
	p, err := FromDSN("bob", "mysql://app:s3cret@db:3307/crm")
	require.NoError(t, err)
	assert.Equal(t, ConnectionProfile{Principal: "bob", Host: "db", Port: 3307, User: "app", Password: "s3cret", Database: "crm"}, p)

	_, err = FromDSN("bob", "postgres://x")
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
}

func TestFromDSN_KeepsDriverParams(t *testing.T) {
	p, err := FromDSN("bob", "mysql://app:s3cret@db:3307/crm?tls=true&loc=UTC")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tls": "true", "loc": "UTC"}, p.Params)

	cfg, err := dsn.Config(p.DSNInfo(), dsn.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true", cfg.TLSConfig)
	assert.Equal(t, "UTC", cfg.Loc.String())

	_, err = FromDSN("bob", "mysql://app:s3cret@db/crm?loc=Not/AZone")
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, sampleProfile()))
	assert.ErrorIs(t, store.Put(ctx, sampleProfile()), ErrExists)

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "db.local", got.Host)
	assert.Equal(t, 3306, got.Port)
	assert.Equal(t, "shop", got.Database)
	assert.Empty(t, got.Password)
	assert.False(t, got.CreatedAt.IsZero())

	assert.Nil(t, got.Params)

	require.NoError(t, store.Delete(ctx, "alice"))
	assert.ErrorIs(t, store.Delete(ctx, "alice"), ErrNotFound)

	withTLS := sampleProfile()
	withTLS.Params = map[string]string{"tls": "skip-verify"}
	require.NoError(t, store.Put(ctx, withTLS))
	got, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "skip-verify", got.DSNInfo().Params["tls"])
}

func newTestResolver(t *testing.T) (*Resolver, *keychain.Manager) {
	vault := keychain.NewManagerWithRing(keyring.NewArrayKeyring(nil))
	return NewResolver(openTestStore(t), vault, zerolog.Nop()), vault
}

func TestResolver_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r, vault := newTestResolver(t)

	_, err := r.Resolve(ctx, "alice")
	assert.True(t, gwerrors.Is(err, gwerrors.NotFound))

	require.NoError(t, r.Register(ctx, sampleProfile()))

	err = r.Register(ctx, sampleProfile())
	assert.True(t, gwerrors.Is(err, gwerrors.DuplicateTable))

	got, err := r.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pw!", got.Password)

	ok, err := r.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Remove(ctx, "alice"))
	_, err = vault.LoadPassword("alice")
	assert.ErrorIs(t, err, keychain.ErrNotFound)

	err = r.Remove(ctx, "alice")
	assert.True(t, gwerrors.Is(err, gwerrors.NotFound))
}

func TestResolver_MissingPasswordIsNotFound(t *testing.T) {
	ctx := context.Background()
	r, vault := newTestResolver(t)

	require.NoError(t, r.Register(ctx, sampleProfile()))
	require.NoError(t, vault.DeletePassword("alice"))

	_, err := r.Resolve(ctx, "alice")
	assert.True(t, gwerrors.Is(err, gwerrors.NotFound))

	meta, err := r.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "shop", meta.Database)
	assert.Empty(t, meta.Password)
}

func TestResolver_RejectsInvalidProfile(t *testing.T) {
	r, _ := newTestResolver(t)
	err := r.Register(context.Background(), ConnectionProfile{Principal: "x"})
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
}
