package kernel

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrNotLoaded, "ErrNotLoaded"},
		{ErrNoTip, "ErrNoTip"},
		{ErrHeightOutOfRange, "ErrHeightOutOfRange"},
		{ErrDiskRead, "ErrDiskRead"},
		{ErrCorruptData, "ErrCorruptData"},
		{ErrHandleReleased, "ErrHandleReleased"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}
	require.Equal(t, int(numErrorCodes), len(tests)-1,
		"error code added without a stringer test")

	for _, test := range tests {
		require.Equal(t, test.want, test.in.String())
	}
}

func TestErrorWrapping(t *testing.T) {
	err := kernelError(ErrDiskRead, "read blk00000", io.ErrUnexpectedEOF)
	require.Equal(t, "read blk00000: unexpected EOF", err.Error())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	wrapped := errors.Wrap(err, "block 7")
	require.True(t, IsErrorCode(wrapped, ErrDiskRead))
	require.False(t, IsErrorCode(wrapped, ErrCorruptData))
	require.False(t, IsErrorCode(io.EOF, ErrDiskRead))
}

func TestTrackerCountsOnce(t *testing.T) {
	tracker := NewTracker()
	idx := NewBlockIndex(tracker, 1, [32]byte{0x01})
	block := NewBlock(tracker, []byte{0x01, 0x02})
	require.Equal(t, int64(2), tracker.Live())

	data, err := block.Data()
	require.NoError(t, err)
	data[0] = 0xff
	again, err := block.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, again)

	block.Destroy()
	block.Destroy()
	_, err = block.Data()
	require.True(t, IsErrorCode(err, ErrHandleReleased))

	idx.Destroy()
	require.Zero(t, tracker.Live())
	require.Equal(t, int64(2), tracker.Released())
}
