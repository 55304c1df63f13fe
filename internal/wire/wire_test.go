package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/model"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	msg := MicroblockMessage{Block: model.Microblock{Height: 42}}
	payload, err := Marshal(msg)
	require.NoError(t, err)

	var out MicroblockMessage
	require.NoError(t, Unmarshal(payload, &out))
	require.Equal(t, msg, out)
}

func TestSigningBytesClearsSignature(t *testing.T) {
	e := Envelope{
		MessageType: MessageMicroblock,
		Payload:     []byte("payload"),
		SenderID:    "node-a",
		Signature:   []byte("signature-bytes"),
	}

	withSig, err := Marshal(e)
	require.NoError(t, err)

	signingBytes, err := SigningBytes(e)
	require.NoError(t, err)

	require.NotEqual(t, withSig, signingBytes, "signing bytes must exclude the signature field")

	var cleared Envelope
	require.NoError(t, Unmarshal(signingBytes, &cleared))
	require.Nil(t, cleared.Signature)
}

func TestSigningBytesDeterministic(t *testing.T) {
	e := Envelope{MessageType: MessagePeerDiscovery, Payload: []byte("x"), SenderID: "node-b"}
	a, err := SigningBytes(e)
	require.NoError(t, err)
	b, err := SigningBytes(e)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHashEnvelopeDiffersOnPayloadChange(t *testing.T) {
	e1 := Envelope{MessageType: MessageHeartbeat, Payload: []byte("a"), SenderID: "node-c"}
	e2 := Envelope{MessageType: MessageHeartbeat, Payload: []byte("b"), SenderID: "node-c"}

	h1, err := HashEnvelope(e1)
	require.NoError(t, err)
	h2, err := HashEnvelope(e2)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	h1Again, err := HashEnvelope(e1)
	require.NoError(t, err)
	require.Equal(t, h1, h1Again)
}
