package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecretClient struct {
	values map[string]string
	calls  int
}

func (f *fakeSecretClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	value, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &value}}, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource("", ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestEnvironmentProvider(t *testing.T) {
	t.Setenv("SESSION_SECRET_TEST", "from-env")

	p, err := NewProvider(&ProviderConfig{Source: SourceEnvironment}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsVaultEnabled())

	value, err := p.GetSecret(context.Background(), "SESSION_SECRET_TEST")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = p.GetSecret(context.Background(), "MISSING_SECRET_TEST")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestGetSecretOrEnv_EnvWins(t *testing.T) {
	t.Setenv("OVERRIDE_TEST", "override")
	p := &Provider{source: SourceEnvironment, logger: zap.NewNop()}

	value, err := p.GetSecretOrEnv(context.Background(), "session-secret", "OVERRIDE_TEST")
	require.NoError(t, err)
	assert.Equal(t, "override", value)
}

func TestVaultClient_CachesUntilTTL(t *testing.T) {
	fake := &fakeSecretClient{values: map[string]string{"session-secret": "s3cret"}}
	v := newVaultClient(fake, &VaultConfig{CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		value, err := v.GetSecret(context.Background(), "session-secret")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", value)
	}
	assert.Equal(t, 1, fake.calls)

	now = now.Add(2 * time.Minute)
	_, err := v.GetSecret(context.Background(), "session-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)
}

func TestVaultClient_Missing(t *testing.T) {
	fake := &fakeSecretClient{values: map[string]string{}}
	v := newVaultClient(fake, &VaultConfig{}, zap.NewNop())

	_, err := v.GetSecret(context.Background(), "nope")
	assert.Error(t, err)
}
