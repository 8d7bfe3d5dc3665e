package card

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
)

func TestManagerCertificate(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	stub := NewStub([]byte("cert-der"), priv)
	m := NewManager(stub)

	cert, err := m.Certificate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("cert-der"), cert)
}

func TestManagerConcurrentSignDeduplicates(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	m := NewManager(NewStub(nil, priv))

	var wg sync.WaitGroup
	sigs := make([][]byte, 8)
	for i := range sigs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig, err := m.Sign(context.Background(), []byte("same-payload"))
			require.NoError(t, err)
			sigs[i] = sig
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(sigs); i++ {
		require.Equal(t, sigs[0], sigs[i])
	}
}

func TestManagerUnavailableAfterClose(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	m := NewManager(NewStub(nil, priv))
	m.Close()

	_, err = m.Sign(context.Background(), []byte("x"))
	require.ErrorIs(t, err, domain.ErrCardUnavailable)
}
