package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
)

func TestRecord_EncodeDecodeBuildFailure(t *testing.T) {
	r := Record{
		Kind:    KindBuild,
		Message: "configure returned 1",
		Detail:  map[string]interface{}{"exitStatus": float64(1)},
	}

	err := DecodeRecord(r.Encode(), "wget")
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))
	assert.Contains(t, err.Error(), "wget")
	assert.Contains(t, err.Error(), "configure returned 1")
	assert.Equal(t, float64(1), errors.GetErrorDetails(err)["exitStatus"])
}

func TestRecord_DecodeInterrupt(t *testing.T) {
	r := Record{Kind: KindInterrupt, Message: "caught SIGINT"}

	err := DecodeRecord(r.Encode(), "wget")
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildInterrupted))
}

func TestRecord_DecodeInternal(t *testing.T) {
	r := Record{Kind: KindInternal, Message: "cannot open build script"}

	err := DecodeRecord(r.Encode(), "wget")
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))
	assert.Contains(t, err.Error(), "cannot open build script")
}

func TestDecodeRecord_GarbagePayload(t *testing.T) {
	err := DecodeRecord([]byte("not json at all"), "wget")
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))
	assert.Equal(t, "not json at all", errors.GetErrorDetails(err)["raw"])
}

func TestDecodeRecord_UnknownKind(t *testing.T) {
	err := DecodeRecord([]byte(`{"kind":"surprise","message":"boom"}`), "wget")
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))
	assert.Contains(t, err.Error(), "surprise")
}
