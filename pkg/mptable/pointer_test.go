package mptable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 5F 4D 50 5F | 00 00 10 00 | 01 | 04 | cs | 00 x5
func qemuPointer(checksum byte) []byte {
	return []byte{
		0x5f, 0x4d, 0x50, 0x5f,
		0x00, 0x00, 0x10, 0x00,
		0x01, 0x04, checksum,
		0x00, 0x00, 0x00, 0x00, 0x00,
	}
}

func TestDecodeFloatingPointer(t *testing.T) {
	assert := assert.New(t)

	fp, err := DecodeFloatingPointer(qemuPointer(0x90))
	require.NoError(t, err)

	assert.Equal([4]byte{'_', 'M', 'P', '_'}, fp.Signature)
	assert.Equal(uint32(0x00100000), fp.PhysAddr)
	assert.Equal(uint8(1), fp.Length)
	assert.Equal(16, fp.ByteLength())
	assert.Equal(uint8(4), fp.SpecRev)
	assert.Equal(uint8(0x90), fp.Checksum)
	assert.Equal([5]byte{}, fp.Features)
	assert.True(fp.HasConfigTable())
	assert.True(fp.VerifySignature())
	assert.True(fp.VerifyChecksum())
	assert.True(fp.VerifyStrictChecksum())
	assert.True(fp.IsValid())
}

func TestDecodeFloatingPointer_Short(t *testing.T) {
	_, err := DecodeFloatingPointer(qemuPointer(0x90)[:15])
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestFloatingPointer_SignatureByteFlip(t *testing.T) {
	for i := 0; i < 4; i++ {
		raw := qemuPointer(0x90)
		raw[i] ^= 0x01
		fp, err := DecodeFloatingPointer(raw)
		require.NoError(t, err)
		assert.False(t, fp.VerifySignature(), "byte %d", i)
		assert.False(t, fp.IsValid(), "byte %d", i)
	}
}

func TestFloatingPointer_WeakChecksum(t *testing.T) {
	tests := []struct {
		name     string
		checksum byte
		weak     bool
		strict   bool
	}{
		{"correct", 0x90, true, true},
		{"off by one", 0x91, false, false},
		{"off by one below", 0x8f, false, false},
		// A change confined to the high nibble of the sum is invisible to
		// the historical check.
		{"off by 0x10", 0xa0, true, false},
		{"zero", 0x00, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			fp, err := DecodeFloatingPointer(qemuPointer(tc.checksum))
			require.NoError(t, err)
			assert.Equal(tc.weak, fp.VerifyChecksum())
			assert.Equal(tc.weak, fp.IsValid())
			assert.Equal(tc.strict, fp.VerifyStrictChecksum())
		})
	}
}

func TestFloatingPointer_ChecksumCoversFeatures(t *testing.T) {
	raw := pointerBytes(0x000f1000, [5]byte{0, 0x80, 0, 0, 0})
	fp, err := DecodeFloatingPointer(raw)
	require.NoError(t, err)
	assert.True(t, fp.IsValid())
	assert.True(t, fp.IMCRPresent())
	assert.Equal(t, uint8(0), fp.DefaultConfiguration())

	fp.Features[4] = 0x01
	assert.False(t, fp.VerifyChecksum())
	assert.False(t, fp.VerifyStrictChecksum())
}

func TestFloatingPointer_DefaultConfiguration(t *testing.T) {
	raw := pointerBytes(0, [5]byte{5, 0, 0, 0, 0})
	fp, err := DecodeFloatingPointer(raw)
	require.NoError(t, err)
	assert.False(t, fp.HasConfigTable())
	assert.Equal(t, uint8(5), fp.DefaultConfiguration())
	assert.False(t, fp.IMCRPresent())
}
