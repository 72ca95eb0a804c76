/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	token1 := HashString("my_signal")
	token2 := HashString("my_signal")
	require.Equal(t, token1, token2)

	require.Equal(t, Hash([]byte("my_signal")), token1)
}

func TestHashShape(t *testing.T) {
	tests := []struct {
		name   string
		signal []byte
	}{
		{name: "simple string", signal: []byte("my_signal")},
		{name: "empty", signal: nil},
		{name: "binary", signal: []byte{0x00, 0x01, 0xff, 0xfe}},
		{name: "address like", signal: []byte("0x0000000000000000000000000000000000000000")},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			token := Hash(tc.signal)
			require.Len(t, string(token), TokenLen)
			require.True(t, token.Valid(), "token %s is not canonical", token)
		})
	}
}

func TestHashDistinctInputs(t *testing.T) {
	inputs := []string{"", "a", "b", "my_signal", "my_signal ", "MY_SIGNAL", "0x01", "0x02"}

	seen := map[Token]string{}

	for _, in := range inputs {
		token := HashString(in)

		prev, collided := seen[token]
		require.False(t, collided, "inputs %q and %q collided on %s", prev, in, token)

		seen[token] = in
	}
}

func TestVerify(t *testing.T) {
	token := HashString("my_signal")

	require.True(t, Verify([]byte("my_signal"), token))
	require.False(t, Verify([]byte("other_signal"), token))
	require.False(t, Verify([]byte("my_signal"), Token("0xdeadbeef")))
}

func TestTokenValid(t *testing.T) {
	require.False(t, Token("").Valid())
	require.False(t, Token("0x").Valid())
	require.False(t, Token("0xZZ").Valid())

	// uppercase hex is not canonical
	upper := "0x00F" + string(HashString("x"))[5:]
	require.False(t, Token(upper).Valid())

	require.True(t, HashString("x").Valid())
}
