/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/bridge"
	"github.com/proofpass/proofpass-go/pkg/bridge/packer"
	"github.com/proofpass/proofpass-go/pkg/bridge/session"
	"github.com/proofpass/proofpass-go/pkg/controller/command"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	mockbridge "github.com/proofpass/proofpass-go/pkg/mock/bridge"
	"github.com/proofpass/proofpass-go/pkg/storage"
	"github.com/proofpass/proofpass-go/pkg/storage/mem"
)

const testAppID = "app_11aa22bb33"

//nolint:lll
const completionProofJSON = `{"proof":"0x63f1","merkle_root":"0x7b3d9e1a0c5f2468","nullifier_hash":"0x91e2d3c4b5a60718","credential_type":"orb"}`

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")
		require.NotNil(t, cmd)
		require.Len(t, cmd.GetHandlers(), 4)
	})

	t.Run("invalid app id", func(t *testing.T) {
		_, err := New(&mockProvider{
			storageProvider: mem.NewProvider(),
			appID:           "not-an-app",
		}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "create verification client")
	})

	t.Run("store open failure", func(t *testing.T) {
		_, err := New(&mockProvider{
			storageProvider: &failingStoreProvider{},
			appID:           testAppID,
		}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "open verification store")
	})
}

func TestCreateSession(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		relay := &mockbridge.MockTransport{RequestID: "req-cmd-1"}
		cmd, _, storeProvider := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)
		require.Equal(t, "req-cmd-1", resp.RequestID)
		require.NotEmpty(t, resp.ConnectorURI)
		require.Equal(t, "waiting_for_connection", resp.State)

		// the session record is persisted for later status queries
		store, err := storeProvider.OpenStore(storeNamespace)
		require.NoError(t, err)

		data, err := store.Get("req-cmd-1")
		require.NoError(t, err)

		var record SessionRecord
		require.NoError(t, json.Unmarshal(data, &record))
		require.Equal(t, testAppID, record.AppID)
		require.Equal(t, "vote", record.Action)
		require.Equal(t, "waiting_for_connection", record.State)
	})

	t.Run("malformed request", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.CreateSession(&b, bytes.NewBufferString("not-json"))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
	})

	t.Run("no requests", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.CreateSession(&b, bytes.NewBufferString(`{"action":"vote","requests":[]}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), errEmptyRequests)
	})

	t.Run("unknown credential type", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.CreateSession(&b, bytes.NewBufferString(
			`{"requests":[{"credential_type":"iris"}]}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), "iris")
	})

	t.Run("face auth on unsupported credential", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.CreateSession(&b, bytes.NewBufferString(
			`{"requests":[{"credential_type":"document","face_auth":true}]}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), "face_auth")
	})

	t.Run("relay failure", func(t *testing.T) {
		relay := &mockbridge.MockTransport{ErrCreateRequest: errors.New("relay down")}
		cmd, _, _ := newTestCommand(t, relay, "")

		var b bytes.Buffer

		cmdErr := cmd.CreateSession(&b, bytes.NewBufferString(createSessionPayload(t)))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, CreateSessionErrorCode, cmdErr.Code())
	})
}

func TestStatus(t *testing.T) {
	t.Run("missing request id", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.Status(&b, bytes.NewBufferString(`{}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), errEmptyRequestID)
	})

	t.Run("unknown request id", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.Status(&b, bytes.NewBufferString(`{"request_id":"nope"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), errUnknownSession)
	})

	t.Run("progresses with the relay", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, _, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{{Status: bridge.StatusRetrieved}}

		status := queryStatus(t, cmd, resp.RequestID)
		require.Equal(t, "awaiting_confirmation", status.State)
	})

	t.Run("terminal status notifies subscribers once", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, notifier, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{{
			Status:   bridge.StatusCompleted,
			Response: sealFor(t, resp.ConnectorURI, completionProofJSON),
		}}

		status := queryStatus(t, cmd, resp.RequestID)
		require.Equal(t, "confirmed", status.State)
		require.NotNil(t, status.Proof)

		events := notifier.events(StatusTopic)
		require.Len(t, events, 1)
		require.Contains(t, string(events[0]), resp.RequestID)
		require.Contains(t, string(events[0]), "confirmed")

		// a repeated query neither re-polls nor re-notifies
		status = queryStatus(t, cmd, resp.RequestID)
		require.Equal(t, "confirmed", status.State)
		require.Len(t, notifier.events(StatusTopic), 1)
	})

	t.Run("failed status carries the error code", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, notifier, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{{
			Status:   bridge.StatusCompleted,
			Response: sealFor(t, resp.ConnectorURI, `{"error_code":"credential_unavailable"}`),
		}}

		status := queryStatus(t, cmd, resp.RequestID)
		require.Equal(t, "failed", status.State)
		require.Equal(t, proof.ErrCredentialUnavailable, status.ErrorCode)

		events := notifier.events(StatusTopic)
		require.Len(t, events, 1)
		require.Contains(t, string(events[0]), "credential_unavailable")
	})

	t.Run("answered from the record when not live", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, _, storeProvider := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{{
			Status:   bridge.StatusCompleted,
			Response: sealFor(t, resp.ConnectorURI, completionProofJSON),
		}}

		_ = queryStatus(t, cmd, resp.RequestID)

		// a second command instance shares storage but not live sessions
		other, err := New(&mockProvider{
			storageProvider: storeProvider,
			appID:           testAppID,
		}, nil, WithTransport(relay))
		require.NoError(t, err)

		status := queryStatus(t, other, resp.RequestID)
		require.Equal(t, "confirmed", status.State)
		require.Nil(t, status.Proof)
	})
}

func TestWaitProof(t *testing.T) {
	t.Run("missing request id", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.WaitProof(&b, bytes.NewBufferString(`{}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("unknown request id", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.WaitProof(&b, bytes.NewBufferString(`{"request_id":"nope"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), errUnknownSession)
	})

	t.Run("returns the proof once confirmed", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, notifier, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{
			{Status: bridge.StatusInitialized},
			{Status: bridge.StatusRetrieved},
			{
				Status:   bridge.StatusCompleted,
				Response: sealFor(t, resp.ConnectorURI, completionProofJSON),
			},
		}

		var b bytes.Buffer

		cmdErr := cmd.WaitProof(&b, bytes.NewBufferString(
			fmt.Sprintf(`{"request_id":%q}`, resp.RequestID)))
		require.NoError(t, cmdErr)

		var waitResp WaitProofResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &waitResp))
		require.Equal(t, resp.RequestID, waitResp.RequestID)
		require.NotNil(t, waitResp.Proof)
		require.Equal(t, "0x91e2d3c4b5a60718", waitResp.Proof.NullifierHash)

		require.Len(t, notifier.events(StatusTopic), 1)
	})

	t.Run("rejection surfaces the code", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, _, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		relay.Statuses = []*bridge.PollResponse{{
			Status:   bridge.StatusCompleted,
			Response: sealFor(t, resp.ConnectorURI, `{"error_code":"verification_rejected"}`),
		}}

		var b bytes.Buffer

		cmdErr := cmd.WaitProof(&b, bytes.NewBufferString(
			fmt.Sprintf(`{"request_id":%q}`, resp.RequestID)))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), "verification_rejected")
	})

	t.Run("times out while the user is away", func(t *testing.T) {
		relay := &mockbridge.MockTransport{}
		cmd, _, _ := newTestCommand(t, relay, "")

		resp := createTestSession(t, cmd)

		var b bytes.Buffer

		cmdErr := cmd.WaitProof(&b, bytes.NewBufferString(
			fmt.Sprintf(`{"request_id":%q}`, resp.RequestID)))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), "timed out")
	})
}

func TestVerifyProof(t *testing.T) {
	t.Run("accepted by the portal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v2/verify/"+testAppID, r.URL.Path)

			_, err := w.Write([]byte(`{"success":true,"uses":1,"max_uses":1}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, server.URL)

		var b bytes.Buffer

		cmdErr := cmd.VerifyProof(&b, bytes.NewBufferString(verifyProofPayload()))
		require.NoError(t, cmdErr)

		var resp VerifyProofResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
		require.True(t, resp.Success)
		require.Equal(t, 1, resp.Uses)
	})

	t.Run("unknown credential type", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.VerifyProof(&b, bytes.NewBufferString(`{"credential_type":"iris"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("invalid app id override", func(t *testing.T) {
		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, "")

		var b bytes.Buffer

		cmdErr := cmd.VerifyProof(&b, bytes.NewBufferString(
			`{"app_id":"oops","proof":"0x1","merkle_root":"0x2","nullifier_hash":"0x3","credential_type":"orb"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("portal rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, err := w.Write([]byte(`{"code":"invalid_proof","detail":"proof did not verify"}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		cmd, _, _ := newTestCommand(t, &mockbridge.MockTransport{}, server.URL)

		var b bytes.Buffer

		cmdErr := cmd.VerifyProof(&b, bytes.NewBufferString(verifyProofPayload()))
		require.Error(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, VerifyProofErrorCode, cmdErr.Code())
		require.Contains(t, cmdErr.Error(), "invalid_proof")
	})
}

type mockProvider struct {
	storageProvider storage.Provider
	appID           string
	bridgeURL       string
	portalURL       string
}

func (p *mockProvider) StorageProvider() storage.Provider { return p.storageProvider }
func (p *mockProvider) AppID() string { return p.appID }
func (p *mockProvider) BridgeURL() string { return p.bridgeURL }
func (p *mockProvider) PortalURL() string { return p.portalURL }

type failingStoreProvider struct{}

func (f *failingStoreProvider) OpenStore(string) (storage.Store, error) {
	return nil, errors.New("open failed")
}

func (f *failingStoreProvider) CloseStore(string) error { return nil }
func (f *failingStoreProvider) Close() error { return nil }

type mockNotifier struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (m *mockNotifier) Notify(topic string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.messages == nil {
		m.messages = make(map[string][][]byte)
	}

	m.messages[topic] = append(m.messages[topic], message)

	return nil
}

func (m *mockNotifier) events(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.messages[topic]
}

func newTestCommand(t *testing.T, relay *mockbridge.MockTransport, portalURL string) (*Command, *mockNotifier, storage.Provider) {
	t.Helper()

	storeProvider := mem.NewProvider()
	notifier := &mockNotifier{}

	cmd, err := New(&mockProvider{
		storageProvider: storeProvider,
		appID:           testAppID,
		portalURL:       portalURL,
	}, notifier,
		WithTransport(relay),
		WithPollInterval(time.Millisecond),
		WithPollTimeout(50*time.Millisecond))
	require.NoError(t, err)

	return cmd, notifier, storeProvider
}

func createSessionPayload(t *testing.T) string {
	t.Helper()

	now := time.Now()

	payload, err := json.Marshal(map[string]interface{}{
		"action": "vote",
		"requests": []map[string]interface{}{
			{"credential_type": "orb", "signal": "ballot-7"},
			{"credential_type": "device"},
		},
		"rp_context": map[string]interface{}{
			"rp_id":      "rp_6b5a4c3d2e",
			"nonce":      "JcuW0w0BWN-yXQPRbbk2nw",
			"created_at": now.Add(-time.Minute).Unix(),
			"expires_at": now.Add(4 * time.Minute).Unix(),
			"signature":  "eyJhbGciOiJFUzI1NiJ9..c2ln",
		},
	})
	require.NoError(t, err)

	return string(payload)
}

func verifyProofPayload() string {
	//nolint:lll
	return `{"proof":"0x63f1","merkle_root":"0x7b3d9e1a0c5f2468","nullifier_hash":"0x91e2d3c4b5a60718","credential_type":"orb","action":"vote"}`
}

func createTestSession(t *testing.T, cmd *Command) *CreateSessionResponse {
	t.Helper()

	var b bytes.Buffer

	cmdErr := cmd.CreateSession(&b, bytes.NewBufferString(createSessionPayload(t)))
	require.NoError(t, cmdErr)

	resp := &CreateSessionResponse{}
	require.NoError(t, json.Unmarshal(b.Bytes(), resp))

	return resp
}

func queryStatus(t *testing.T, cmd *Command, requestID string) *StatusResponse {
	t.Helper()

	var b bytes.Buffer

	cmdErr := cmd.Status(&b, bytes.NewBufferString(fmt.Sprintf(`{"request_id":%q}`, requestID)))
	require.NoError(t, cmdErr)

	resp := &StatusResponse{}
	require.NoError(t, json.Unmarshal(b.Bytes(), resp))

	return resp
}

// sealFor plays the attestation app for the command under test.
func sealFor(t *testing.T, connectorURI, completion string) *bridge.Envelope {
	t.Helper()

	info, err := session.ParseConnectorURI(connectorURI)
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
