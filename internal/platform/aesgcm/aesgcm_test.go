package aesgcm

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func TestNewCipher(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		c, err := NewCipher(generateTestKey(t))
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	for _, n := range []int{0, 16, 24, 64} {
		_, err := NewCipher(make([]byte, n))
		require.ErrorIs(t, err, ErrInvalidKey, "key of %d bytes", n)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key := generateTestKey(t)
	aad := []byte("research-study-1")

	cases := [][]byte{
		{},
		[]byte("UMG"),
		[]byte(`{"ttpIds":[{"site":"MHH","id":"a"}],"padding":"   "}`),
		{0x00, 0x01, 0x02, 0xff, 0xfe},
		bytes.Repeat([]byte{0x42}, 4096),
	}

	for _, plaintext := range cases {
		out, err := Encrypt(plaintext, aad, key)
		require.NoError(t, err)
		require.Len(t, out, IVSize+len(plaintext)+TagSize)

		back, err := Decrypt(out, aad, key)
		require.NoError(t, err)
		require.NotNil(t, back)
		require.Equal(t, plaintext, back)
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	c, err := NewCipher(generateTestKey(t))
	require.NoError(t, err)

	a, err := c.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"), nil)
	require.NoError(t, err)

	require.NotEqual(t, a[:IVSize], b[:IVSize])
	require.NotEqual(t, a, b)
}

func TestEncrypt_ConcurrentCallsUseDistinctIVs(t *testing.T) {
	c, err := NewCipher(generateTestKey(t))
	require.NoError(t, err)

	const workers, perWorker = 8, 256
	ivs := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				out, err := c.Encrypt([]byte("same plaintext"), []byte("aad"))
				if err != nil {
					t.Errorf("encrypt: %v", err)
					return
				}
				ivs <- string(out[:IVSize])
			}
		}()
	}
	wg.Wait()
	close(ivs)

	seen := make(map[string]bool, workers*perWorker)
	for iv := range ivs {
		require.False(t, seen[iv], "iv reused")
		seen[iv] = true
	}
	require.Len(t, seen, workers*perWorker)
}

func TestDecrypt_AnyFlippedBitFailsAuthentication(t *testing.T) {
	key := generateTestKey(t)
	aad := []byte("study")
	plaintext := []byte("Bodomar Backer 12.03.1910")

	out, err := Encrypt(plaintext, aad, key)
	require.NoError(t, err)

	for i := 0; i < len(out); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := bytes.Clone(out)
			tampered[i] ^= 1 << bit
			_, err := Decrypt(tampered, aad, key)
			require.ErrorIs(t, err, ErrAuthenticationFailed, "byte %d bit %d", i, bit)
		}
	}

	for i := 0; i < len(aad); i++ {
		tamperedAAD := bytes.Clone(aad)
		tamperedAAD[i] ^= 0x01
		_, err := Decrypt(out, tamperedAAD, key)
		require.ErrorIs(t, err, ErrAuthenticationFailed)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	out, err := Encrypt([]byte("secret"), nil, generateTestKey(t))
	require.NoError(t, err)

	_, err = Decrypt(out, nil, generateTestKey(t))
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecrypt_TooShort(t *testing.T) {
	key := generateTestKey(t)
	_, err := Decrypt(make([]byte, IVSize+TagSize-1), nil, key)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestStaticIV(t *testing.T) {
	key := generateTestKey(t)
	iv, err := GenerateIV()
	require.NoError(t, err)
	aad := []byte("record-version-3")

	sealed, err := EncryptWithStaticIV([]byte("payload"), aad, key, iv)
	require.NoError(t, err)
	require.Len(t, sealed, len("payload")+TagSize)

	again, err := EncryptWithStaticIV([]byte("payload"), aad, key, iv)
	require.NoError(t, err)
	require.Equal(t, sealed, again)

	back, err := DecryptWithStaticIV(sealed, aad, key, iv)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), back)

	_, err = DecryptWithStaticIV(sealed, []byte("record-version-4"), key, iv)
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = EncryptWithStaticIV([]byte("payload"), aad, key, iv[:8])
	require.ErrorIs(t, err, ErrInvalidIV)
}
