//go:build libnfc

package reader

import (
	"testing"
	"time"

	"github.com/clausecker/nfc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollPeriodIsOneLibnfcUnit(t *testing.T) {
	assert.Equal(t, 150*time.Millisecond, pollPeriod)
}

func TestTagFromTarget(t *testing.T) {
	target := &nfc.ISO14443aTarget{UIDLen: 7}
	copy(target.UID[:], []byte{0x04, 0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6, 0xff})

	tag := tagFromTarget(target)
	require.NotNil(t, tag)
	assert.Equal(t, "04A1B2C3D4E5F6", tag.UID)
	assert.Equal(t, []byte{0x04, 0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6}, tag.handle)
}

func TestTagFromTargetRejects(t *testing.T) {
	assert.Nil(t, tagFromTarget(&nfc.ISO14443aTarget{}))
	assert.Nil(t, tagFromTarget(&nfc.ISO14443aTarget{UIDLen: 11}))
	assert.Nil(t, tagFromTarget(&nfc.JewelTarget{}))
	assert.Nil(t, tagFromTarget(nil))
}
