/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/doc/signal"
)

func TestValidateAppID(t *testing.T) {
	t.Run("valid ids", func(t *testing.T) {
		valid := []string{
			"app_9cdd0a714aa9b0d81e803f2552f32dd5",
			"app_staging_9cdd0a714aa9b0d81e803f2552f32dd5",
			"app_1",
			"app_" + strings.Repeat("a", 64),
		}

		for _, id := range valid {
			appID, err := ValidateAppID(id)
			require.NoError(t, err, "expected %q to be valid", id)
			require.Equal(t, id, appID.String())

			// validation is idempotent
			again, err := ValidateAppID(appID.String())
			require.NoError(t, err)
			require.Equal(t, appID, again)
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		invalid := []string{
			"",
			"app_",
			"app",
			"application_123",
			"APP_123",
			"app_abc-def",
			"app_abc def",
			"app_staging_",
			"app_" + strings.Repeat("a", 65),
		}

		for _, id := range invalid {
			_, err := ValidateAppID(id)
			require.ErrorIs(t, err, ErrInvalidFormat, "expected %q to be invalid", id)
		}
	})

	t.Run("staging detection", func(t *testing.T) {
		appID, err := ValidateAppID("app_staging_abc123")
		require.NoError(t, err)
		require.True(t, appID.IsStaging())

		appID, err = ValidateAppID("app_abc123")
		require.NoError(t, err)
		require.False(t, appID.IsStaging())
	})
}

func TestValidateRPID(t *testing.T) {
	rpID, err := ValidateRPID("rp_4e71c99d1bff412a")
	require.NoError(t, err)
	require.Equal(t, "rp_4e71c99d1bff412a", rpID.String())

	for _, id := range []string{"", "rp_", "app_123", "rp_abc!", "rp_" + strings.Repeat("z", 65)} {
		_, err := ValidateRPID(id)
		require.ErrorIs(t, err, ErrInvalidFormat, "expected %q to be invalid", id)
	}
}

func TestAction(t *testing.T) {
	t.Run("raw string kept verbatim", func(t *testing.T) {
		action := NewAction("vote_2024")
		require.Equal(t, "vote_2024", action.Canonical())
		require.False(t, action.IsEmpty())
	})

	t.Run("bytes rendered as 0x hex", func(t *testing.T) {
		action := NewActionBytes([]byte{0xde, 0xad, 0xbe, 0xef})
		require.Equal(t, "0xdeadbeef", action.Canonical())
	})

	t.Run("empty action permitted", func(t *testing.T) {
		require.True(t, NewAction("").IsEmpty())
		require.Equal(t, "", NewAction("").Canonical())
		require.True(t, NewActionBytes(nil).IsEmpty())
	})

	t.Run("text round trip", func(t *testing.T) {
		action := NewActionBytes([]byte{0x01, 0x02})

		text, err := action.MarshalText()
		require.NoError(t, err)

		var restored Action
		require.NoError(t, restored.UnmarshalText(text))
		require.Equal(t, action.Canonical(), restored.Canonical())
	})
}

func TestCredentialTypeOrdering(t *testing.T) {
	require.True(t, CredentialOrb.StrongerThan(CredentialFace))
	require.True(t, CredentialFace.StrongerThan(CredentialSecureDocument))
	require.True(t, CredentialSecureDocument.StrongerThan(CredentialDocument))
	require.True(t, CredentialDocument.StrongerThan(CredentialDevice))
	require.False(t, CredentialDevice.StrongerThan(CredentialOrb))

	require.Equal(t, []CredentialType{
		CredentialOrb, CredentialFace, CredentialSecureDocument, CredentialDocument, CredentialDevice,
	}, CredentialTypes())
}

func TestParseCredentialType(t *testing.T) {
	ct, err := ParseCredentialType("orb")
	require.NoError(t, err)
	require.Equal(t, CredentialOrb, ct)

	_, err = ParseCredentialType("iris")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown credential type")
}

func TestNewRequest(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		r, err := New(CredentialOrb)
		require.NoError(t, err)
		require.Equal(t, CredentialOrb, r.CredentialType)
		require.Empty(t, r.Signal)
		require.False(t, r.FaceAuth)
	})

	t.Run("with signal", func(t *testing.T) {
		r, err := New(CredentialDevice, WithSignal("my_signal"))
		require.NoError(t, err)
		require.Equal(t, signal.HashString("my_signal"), r.Signal)

		r2, err := New(CredentialDevice, WithSignalBytes([]byte("my_signal")))
		require.NoError(t, err)
		require.Equal(t, r.Signal, r2.Signal)
	})

	t.Run("face auth on orb and face", func(t *testing.T) {
		for _, ct := range []CredentialType{CredentialOrb, CredentialFace} {
			r, err := New(ct, WithFaceAuth())
			require.NoError(t, err)
			require.True(t, r.FaceAuth)
		}
	})

	t.Run("face auth rejected elsewhere", func(t *testing.T) {
		for _, ct := range []CredentialType{CredentialSecureDocument, CredentialDocument, CredentialDevice} {
			_, err := New(ct, WithFaceAuth())
			require.Error(t, err)
			require.Contains(t, err.Error(), "face_auth is not supported")
		}
	})

	t.Run("unknown credential type", func(t *testing.T) {
		_, err := New("iris")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown credential type")
	})
}

func TestValidateAll(t *testing.T) {
	orb, err := New(CredentialOrb)
	require.NoError(t, err)

	device, err := New(CredentialDevice)
	require.NoError(t, err)

	require.NoError(t, ValidateAll([]*Request{orb, device}))

	err = ValidateAll(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one verification request is required")

	err = ValidateAll([]*Request{orb, nil})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request 1 is nil")

	err = ValidateAll([]*Request{orb, orb})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate verification request")

	err = ValidateAll([]*Request{{CredentialType: "iris"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown credential type")
}

func TestCredentialsOf(t *testing.T) {
	orb, err := New(CredentialOrb)
	require.NoError(t, err)

	face, err := New(CredentialFace)
	require.NoError(t, err)

	require.Equal(t, []CredentialType{CredentialOrb, CredentialFace}, CredentialsOf([]*Request{orb, face}))
	require.Empty(t, CredentialsOf(nil))
}
