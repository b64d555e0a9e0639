package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterFile_ExplicitFilenameTermBlocks(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "xxx_party.png", ContentType: "image/png", SizeBytes: 100 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "filename", res.Strategy)
}

func TestFilterFile_TooSmall(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "pic.jpg", ContentType: "image/jpeg", SizeBytes: 512})
	require.True(t, res.Blocked)
	assert.Equal(t, "size", res.Strategy)
	assert.Contains(t, res.Reason, "too small")
}

func TestFilterFile_OverLimit(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "pic.jpg", ContentType: "image/jpeg", SizeBytes: 6 * 1024 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "size", res.Strategy)
	assert.Contains(t, res.Reason, "limit")
}

func TestFilterFile_SingleCharacteristicPasses(t *testing.T) {
	// 2.6 MiB PNG is over the PNG threshold but matches nothing else:
	// one characteristic is below the block count.
	res := FilterFile(FileMeta{FileName: "party_pic.png", ContentType: "image/png", SizeBytes: 2600 * 1024})
	assert.False(t, res.Blocked)
	assert.Equal(t, "none", res.Strategy)
}

func TestFilterFile_TwoCharacteristicsBlock(t *testing.T) {
	// Oversized and over the PNG threshold: two characteristics.
	res := FilterFile(FileMeta{FileName: "field_trip.png", ContentType: "image/png", SizeBytes: 4608 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "heuristic", res.Strategy)
	assert.Equal(t, 40, res.Confidence)
}

func TestFilterFile_SuspiciousNamePatternBlocks(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "secret_album.jpg", ContentType: "image/jpeg", SizeBytes: 200 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "heuristic", res.Strategy)
	// No size characteristics, pattern bonus only.
	assert.Equal(t, 30, res.Confidence)
}

func TestFilterFile_RepeatedCharacterNameBlocks(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "aaaaaaa.jpg", ContentType: "image/jpeg", SizeBytes: 200 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "heuristic", res.Strategy)
	assert.Equal(t, 30, res.Confidence)
}

func TestHasRepeatedRun(t *testing.T) {
	assert.True(t, hasRepeatedRun("zzzzzz.png", 6))
	assert.True(t, hasRepeatedRun("pic_......jpg", 6))
	assert.False(t, hasRepeatedRun("aaaaa.jpg", 6))
	assert.False(t, hasRepeatedRun("ababababab.jpg", 6))
	assert.False(t, hasRepeatedRun("", 6))
}

func TestFilterFile_MimeSizeComboBlocks(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "upload.bin", ContentType: "application/octet-stream", SizeBytes: 2048 * 1024})
	require.True(t, res.Blocked)
	assert.Equal(t, "heuristic", res.Strategy)
}

func TestFilterFile_ConfidenceCapped(t *testing.T) {
	// Oversized GIF with a suspicious name: 2 characteristics + pattern bonus,
	// capped at 85.
	res := FilterFile(FileMeta{FileName: "hidden_stuff.gif", ContentType: "image/gif", SizeBytes: 4300 * 1024})
	require.True(t, res.Blocked)
	assert.LessOrEqual(t, res.Confidence, 85)
}

func TestFilterFile_NormalUploadPasses(t *testing.T) {
	res := FilterFile(FileMeta{FileName: "attendance_sheet.jpg", ContentType: "image/jpeg", SizeBytes: 800 * 1024})
	assert.False(t, res.Blocked)
}
