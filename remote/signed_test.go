package remote

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("front door shared secret"))

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, "frontdoor")
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func encode(t *testing.T, req OpenRequest) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func TestVerifyAcceptsHexAndBase64(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)

	req := v.Sign("alice", uint64(now.Unix()))
	got, err := v.Verify(encode(t, req))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Member)

	raw, err := hex.DecodeString(req.Signature)
	require.NoError(t, err)
	req.Signature = base64.StdEncoding.EncodeToString(raw)
	_, err = v.Verify(encode(t, req))
	assert.NoError(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)

	req := v.Sign("alice", uint64(now.Unix()))
	req.Member = "mallory"
	_, err := v.Verify(encode(t, req))
	assert.ErrorIs(t, err, ErrBadSignature)

	req = v.Sign("alice", uint64(now.Unix()))
	req.Timestamp++
	_, err = v.Verify(encode(t, req))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyWrongTool(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	other, err := NewVerifier(testSecret, "backdoor")
	require.NoError(t, err)

	_, err = newTestVerifier(t, now).Verify(encode(t, other.Sign("alice", uint64(now.Unix()))))
	assert.ErrorIs(t, err, ErrWrongTool)
}

func TestVerifyWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)

	for _, skew := range []time.Duration{-4 * time.Minute, 4 * time.Minute} {
		_, err := v.Verify(encode(t, v.Sign("alice", uint64(now.Add(skew).Unix()))))
		assert.NoError(t, err, skew)
	}
	for _, skew := range []time.Duration{-6 * time.Minute, 6 * time.Minute} {
		_, err := v.Verify(encode(t, v.Sign("alice", uint64(now.Add(skew).Unix()))))
		assert.ErrorIs(t, err, ErrStale, skew)
	}
}

func TestNewVerifierErrors(t *testing.T) {
	_, err := NewVerifier("not base64!", "frontdoor")
	assert.Error(t, err)
	_, err = NewVerifier("", "frontdoor")
	assert.Error(t, err)
	_, err = NewVerifier(testSecret, "")
	assert.Error(t, err)
}

func TestVerifyBadJSON(t *testing.T) {
	_, err := newTestVerifier(t, time.Now()).Verify([]byte("{"))
	assert.Error(t, err)
}
