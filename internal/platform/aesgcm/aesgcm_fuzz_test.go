package aesgcm

import (
	"bytes"
	"testing"
)

func FuzzEncryptDecrypt(f *testing.F) {
	f.Add([]byte("hello"), []byte("aad"))
	f.Add([]byte{}, []byte{})
	f.Add(bytes.Repeat([]byte{0xff}, 100), []byte("study"))

	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := NewCipher(key)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, plaintext, aad []byte) {
		out, err := c.Encrypt(plaintext, aad)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		back, err := c.Decrypt(out, aad)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(back, plaintext) {
			t.Fatalf("round trip mismatch")
		}
	})
}
