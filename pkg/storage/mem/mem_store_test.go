/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/storage"
)

func TestMemStore(t *testing.T) {
	prov := NewProvider()

	store, err := prov.OpenStore("test")
	require.NoError(t, err)

	const key = "session-123"
	data := []byte("value")

	err = store.Put(key, data)
	require.NoError(t, err)

	doc, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, data, doc)

	// reopening the same name space returns the same store
	store2, err := prov.OpenStore("test")
	require.NoError(t, err)

	doc, err = store2.Get(key)
	require.NoError(t, err)
	require.Equal(t, data, doc)

	// different name space is empty
	store3, err := prov.OpenStore("other")
	require.NoError(t, err)

	_, err = store3.Get(key)
	require.Equal(t, storage.ErrDataNotFound, err)
}

func TestMemStoreValidation(t *testing.T) {
	prov := NewProvider()

	store, err := prov.OpenStore("test")
	require.NoError(t, err)

	err = store.Put("", []byte("value"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "key and value are mandatory")

	err = store.Put("key", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "key and value are mandatory")

	_, err = store.Get("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "key is mandatory")

	err = store.Delete("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "key is mandatory")
}

func TestMemStoreDelete(t *testing.T) {
	prov := NewProvider()

	store, err := prov.OpenStore("test")
	require.NoError(t, err)

	require.NoError(t, store.Put("key", []byte("value")))
	require.NoError(t, store.Delete("key"))

	_, err = store.Get("key")
	require.Equal(t, storage.ErrDataNotFound, err)

	// deleting a missing key is a no-op
	require.NoError(t, store.Delete("key"))
}

func TestMemProviderClose(t *testing.T) {
	prov := NewProvider()

	store, err := prov.OpenStore("test")
	require.NoError(t, err)
	require.NoError(t, store.Put("key", []byte("value")))

	require.NoError(t, prov.CloseStore("test"))

	// closed store space is recreated empty on open
	store, err = prov.OpenStore("test")
	require.NoError(t, err)

	_, err = store.Get("key")
	require.Equal(t, storage.ErrDataNotFound, err)

	require.NoError(t, store.Put("key", []byte("value")))
	require.NoError(t, prov.Close())

	store, err = prov.OpenStore("test")
	require.NoError(t, err)

	_, err = store.Get("key")
	require.Equal(t, storage.ErrDataNotFound, err)
}
