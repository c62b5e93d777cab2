// Package remote accepts door open commands from outside the kiosk: signed
// MQTT requests and a websocket control channel.
package remote

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrBadSignature = errors.New("signature verification failed")
	ErrWrongTool    = errors.New("wrong tool name")
	ErrStale        = errors.New("timestamp out of range")
)

// OpenRequest represents a signed remote open request.
type OpenRequest struct {
	Member    string `json:"member"`
	ToolName  string `json:"tool"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

// Verifier checks HMAC-SHA256 signatures over member, tool and a big
// endian timestamp.
type Verifier struct {
	secret []byte
	tool   string
	window time.Duration
	now    func() time.Time
}

// NewVerifier creates a Verifier from a base64 shared secret. Requests must
// name tool and be stamped within five minutes of now.
func NewVerifier(base64Secret, tool string) (*Verifier, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if tool == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}
	return &Verifier{secret: secret, tool: tool, window: 5 * time.Minute, now: time.Now}, nil
}

func (v *Verifier) mac(member, tool string, ts uint64) []byte {
	msg := make([]byte, 0, len(member)+len(tool)+8)
	msg = append(msg, member...)
	msg = append(msg, tool...)
	msg = binary.BigEndian.AppendUint64(msg, ts)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(msg)
	return mac.Sum(nil)
}

// Sign returns a hex signed request for member at ts.
func (v *Verifier) Sign(member string, ts uint64) OpenRequest {
	return OpenRequest{
		Member:    member,
		ToolName:  v.tool,
		Timestamp: ts,
		Signature: hex.EncodeToString(v.mac(member, v.tool, ts)),
	}
}

// Verify decodes payload and checks its signature, tool and age. The
// signature may be hex or base64.
func (v *Verifier) Verify(payload []byte) (*OpenRequest, error) {
	var req OpenRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode open request: %w", err)
	}

	expected := v.mac(req.Member, req.ToolName, req.Timestamp)
	if !sigMatches(req.Signature, expected) {
		return nil, ErrBadSignature
	}

	if req.ToolName != v.tool {
		return nil, fmt.Errorf("%w %q, expected %q", ErrWrongTool, req.ToolName, v.tool)
	}

	ts := time.Unix(int64(req.Timestamp), 0)
	now := v.now()
	if now.Before(ts.Add(-v.window)) || now.After(ts.Add(v.window)) {
		return nil, ErrStale
	}
	return &req, nil
}

func sigMatches(provided string, expected []byte) bool {
	if decoded, err := hex.DecodeString(provided); err == nil {
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return true
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(provided); err == nil {
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return true
		}
	}
	return false
}
