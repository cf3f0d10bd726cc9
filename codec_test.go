package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *Instance {
	return &Instance{
		Zone:     "sh1",
		Env:      "test",
		Appid:    "provider",
		Hostname: "myhostname",
		Addrs:    []string{"http://172.1.1.1:8000", "grpc://172.1.1.1:9999"},
		Version:  "111",
		Metadata: map[string]string{"weight": "10"},
	}
}

func TestDefaultCodecEncodeCanonical(t *testing.T) {
	want := "zone=sh1&env=test&appid=provider&hostname=myhostname" +
		"&addrs=http%3A%2F%2F172.1.1.1%3A8000&addrs=grpc%3A%2F%2F172.1.1.1%3A9999" +
		"&version=111&metadata=%7B%22weight%22%3A%2210%22%7D"

	got, err := DefaultCodec{}.Encode(fixture())
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestDefaultCodecEncodeDeterministic(t *testing.T) {
	ins := fixture()
	a, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)
	b, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDefaultCodecRoundTrip(t *testing.T) {
	ins := fixture()
	encoded, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)

	decoded, err := DefaultCodec{}.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, ins.Zone, decoded.Zone)
	assert.Equal(t, ins.Env, decoded.Env)
	assert.Equal(t, ins.Appid, decoded.Appid)
	assert.Equal(t, ins.Hostname, decoded.Hostname)
	assert.Equal(t, ins.Addrs, decoded.Addrs)
	assert.Equal(t, ins.Version, decoded.Version)
	assert.Equal(t, ins.Metadata, decoded.Metadata)
}

func TestDefaultCodecRoundTripEmptyMetadata(t *testing.T) {
	ins := &Instance{Zone: "z", Env: "e", Appid: "/a", Hostname: "h", Version: "1"}
	encoded, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)

	decoded, err := DefaultCodec{}.Decode(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded.Metadata)
	assert.Empty(t, decoded.Addrs)
}

func TestDefaultCodecUnknownKeyTolerance(t *testing.T) {
	ins := fixture()
	encoded, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)

	withJunk := append(append([]byte{}, encoded...), []byte("&junk=1")...)

	a, err := DefaultCodec{}.Decode(encoded)
	require.NoError(t, err)
	b, err := DefaultCodec{}.Decode(withJunk)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDefaultCodecDecodeMissingEquals(t *testing.T) {
	decoded, err := DefaultCodec{}.Decode([]byte("zone=sh1&env"))
	require.NoError(t, err)
	assert.Equal(t, "sh1", decoded.Zone)
}

func TestDefaultCodecDecodeBadUTF8(t *testing.T) {
	// %FF is not a valid standalone UTF-8 byte.
	_, err := DefaultCodec{}.Decode([]byte("zone=%FF"))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, DecodeBadUTF8, decErr.Kind)
}

func TestDefaultCodecDecodeBadJSON(t *testing.T) {
	_, err := DefaultCodec{}.Decode([]byte("metadata=not-json"))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, DecodeBadJSON, decErr.Kind)
}

func TestDefaultCodecAddrsAccumulateAcrossOccurrences(t *testing.T) {
	decoded, err := DefaultCodec{}.Decode([]byte("addrs=a&addrs=b&addrs=c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, decoded.Addrs)
}
