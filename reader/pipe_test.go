package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tag, err := parseLine("tag 04a1b2 0306d10102540041")
	require.NoError(t, err)
	assert.Equal(t, "04A1B2", tag.uid)
	assert.Equal(t, []byte{0x03, 0x06, 0xD1, 0x01, 0x02, 0x54, 0x00, 0x41}, tag.memory)

	tag, err = parseLine("TAG 04a1b2")
	require.NoError(t, err)
	assert.Nil(t, tag.memory)

	for _, bad := range []string{"tag", "tag 01 zz", "tag 01 02 03", "rfid 1234"} {
		_, err := parseLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestPipeReadsTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags")
	p, err := NewPipe(Config{Path: path})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	tag, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.Nil(t, tag)

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = w.WriteString("# comment\ntag 04aa 0306d10102540041\ntag 04bb\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var tags []*Tag
	require.Eventually(t, func() bool {
		tag, _ := p.Poll(ctx)
		if tag != nil {
			tags = append(tags, tag)
		}
		return len(tags) == 2
	}, time.Second, time.Millisecond)

	assert.Equal(t, "04AA", tags[0].UID)
	block, err := p.ReadBlock(ctx, tags[0])
	require.NoError(t, err)
	assert.Len(t, block, PageRead)
	assert.Equal(t, []byte{0x03, 0x06, 0xD1, 0x01, 0x02, 0x54, 0x00, 0x41}, block[:8])

	_, err = p.ReadBlock(ctx, tags[1])
	assert.ErrorIs(t, err, ErrUnsupportedTag)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Config{Type: "wiegand"})
	assert.Error(t, err)

	src, err := New(Config{Type: "none"})
	require.NoError(t, err)
	tag, err := src.Poll(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, tag)
}
