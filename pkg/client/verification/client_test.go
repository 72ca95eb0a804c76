/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/bridge"
	"github.com/proofpass/proofpass-go/pkg/bridge/packer"
	"github.com/proofpass/proofpass-go/pkg/bridge/session"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
	mockbridge "github.com/proofpass/proofpass-go/pkg/mock/bridge"
)

const testAppID = "app_0d9e8f7a6b"

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, err := New(testAppID)
		require.NoError(t, err)
		require.Equal(t, request.AppID(testAppID), c.AppID())
		require.Equal(t, DefaultPollInterval, c.pollInterval)
		require.Equal(t, DefaultPollTimeout, c.pollTimeout)
	})

	t.Run("staging app id", func(t *testing.T) {
		c, err := New("app_staging_1a2b3c4d")
		require.NoError(t, err)
		require.True(t, c.AppID().IsStaging())
	})

	t.Run("invalid app id", func(t *testing.T) {
		_, err := New("spa_123")
		require.ErrorIs(t, err, request.ErrInvalidFormat)
	})

	t.Run("options applied", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}

		c, err := New(testAppID,
			WithBridgeURL("https://bridge.internal.example.com"),
			WithTransport(relay),
			WithPollInterval(time.Millisecond),
			WithPollTimeout(time.Second))
		require.NoError(t, err)
		require.Equal(t, "https://bridge.internal.example.com", c.bridgeURL)
		require.Equal(t, time.Millisecond, c.pollInterval)
		require.Equal(t, time.Second, c.pollTimeout)
	})
}

func TestCreateSession(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		relay := &mockbridge.MockTransport{RequestID: "req-cs-1"}

		c, err := New(testAppID, WithTransport(relay))
		require.NoError(t, err)

		s, err := c.CreateSession(context.Background(), testSessionArgs(t))
		require.NoError(t, err)
		require.Equal(t, "req-cs-1", s.RequestID())
		require.Equal(t, request.AppID(testAppID), s.AppID())
		require.Equal(t, session.StateWaitingForConnection, s.Status().State)
	})

	t.Run("missing args", func(t *testing.T) {
		c, err := New(testAppID, WithTransport(&mockbridge.MockTransport{}))
		require.NoError(t, err)

		_, err = c.CreateSession(context.Background(), nil)
		require.EqualError(t, err, "session args are required")
	})

	t.Run("session validation propagates", func(t *testing.T) {
		c, err := New(testAppID, WithTransport(&mockbridge.MockTransport{}))
		require.NoError(t, err)

		args := testSessionArgs(t)
		args.RPContext = nil

		_, err = c.CreateSession(context.Background(), args)
		require.EqualError(t, err, "relying party context is required")
	})
}

func TestVerify(t *testing.T) {
	t.Run("end to end via create and poll", func(t *testing.T) {
		relay := &mockbridge.MockTransport{RequestID: "req-v-1"}

		c, err := New(testAppID,
			WithTransport(relay),
			WithPollInterval(time.Millisecond),
			WithPollTimeout(time.Second))
		require.NoError(t, err)

		s, err := c.CreateSession(context.Background(), testSessionArgs(t))
		require.NoError(t, err)

		//nolint:lll
		completion := `{"proof":"0x0badc0de","merkle_root":"0x11a2b3c4d5e6f708","nullifier_hash":"0x2233445566778899","credential_type":"orb"}`

		relay.Statuses = []*bridge.PollResponse{
			{Status: bridge.StatusRetrieved},
			{Status: bridge.StatusCompleted, Response: sealFor(t, s, completion)},
		}

		p, err := c.PollForProof(context.Background(), s)
		require.NoError(t, err)
		require.Equal(t, request.CredentialOrb, p.CredentialType)
		require.Equal(t, "0x2233445566778899", p.NullifierHash)
		require.Equal(t, session.StateConfirmed, s.Status().State)
	})

	t.Run("creation error propagates", func(t *testing.T) {
		c, err := New(testAppID, WithTransport(&mockbridge.MockTransport{}))
		require.NoError(t, err)

		args := testSessionArgs(t)
		args.Requests = nil

		_, err = c.Verify(context.Background(), args)
		require.EqualError(t, err, "at least one verification request is required")
	})

	t.Run("nil session rejected by poll", func(t *testing.T) {
		c, err := New(testAppID)
		require.NoError(t, err)

		_, err = c.PollForProof(context.Background(), nil)
		require.EqualError(t, err, "session is required")
	})

	t.Run("timeout surfaces", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}

		c, err := New(testAppID,
			WithTransport(relay),
			WithPollInterval(time.Millisecond),
			WithPollTimeout(5*time.Millisecond))
		require.NoError(t, err)

		_, err = c.Verify(context.Background(), testSessionArgs(t))
		require.ErrorIs(t, err, session.ErrTimeout)
	})

	t.Run("rejection surfaces as verification error", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}

		c, err := New(testAppID,
			WithTransport(relay),
			WithPollInterval(time.Millisecond),
			WithPollTimeout(time.Second))
		require.NoError(t, err)

		s, err := c.CreateSession(context.Background(), testSessionArgs(t))
		require.NoError(t, err)

		relay.Statuses = []*bridge.PollResponse{{
			Status:   bridge.StatusCompleted,
			Response: sealFor(t, s, `{"error_code":"verification_rejected"}`),
		}}

		_, err = c.PollForProof(context.Background(), s)

		var verificationErr *proof.VerificationError

		require.ErrorAs(t, err, &verificationErr)
		require.Equal(t, proof.ErrVerificationRejected, verificationErr.Code)
	})
}

func testSessionArgs(t *testing.T) *SessionArgs {
	t.Helper()

	orb, err := request.New(request.CredentialOrb, request.WithSignal("checkout-41"))
	require.NoError(t, err)

	now := time.Now()

	return &SessionArgs{
		Action:   request.NewAction("checkout"),
		Requests: []*request.Request{orb},
		RPContext: &rpauth.Context{
			RPID:      "rp_77ab66cd55",
			Nonce:     "l6Ho1h1B-cQzH9T6Ih0mNQ",
			CreatedAt: now.Add(-time.Minute).Unix(),
			ExpiresAt: now.Add(4 * time.Minute).Unix(),
			Signature: "eyJhbGciOiJFUzI1NiJ9..c2ln",
		},
	}
}

// sealFor plays the attestation app: it derives the session key from the
// connector URI and seals a completion payload for the session.
func sealFor(t *testing.T, s *session.Session, completion string) *bridge.Envelope {
	t.Helper()

	info, err := session.ParseConnectorURI(s.ConnectorURI())
	require.NoError(t, err)

	responder, err := packer.New(&packer.KeyMaterial{
		Key:   info.Key,
		Nonce: packer.GenerateKeyMaterial().Nonce,
	})
	require.NoError(t, err)

	env, err := responder.Seal([]byte(completion))
	require.NoError(t, err)

	return env
}
