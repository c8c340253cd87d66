package cams_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/cams"
	"github.com/systmms/secwallet/internal/mapping"
	"github.com/systmms/secwallet/internal/secwerrors"
)

func errorCodeField(code secwerrors.Code) string {
	return fmt.Sprintf(`"errorCode":%d`, code)
}

func newServer(t *testing.T) (*cams.Server, *mapping.Store) {
	t.Helper()
	store := mapping.NewStore(filepath.Join(t.TempDir(), "mapping.json"))
	return cams.New(store, nil), store
}

func TestMappingLifecycleOverWire(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	create := `{"asset_id":"asset-2","service_id":"test-usage-2","protocol":"test-proto","port":80,"credential_id":"Test-mapping","status":"Valid","extended_info":{"port":"80"}}`
	reply, err := s.Handle(ctx, "", []string{"c1", cams.CmdCreateMapping, create})
	require.NoError(t, err)
	assert.Equal(t, "c1", reply[0])

	reply, err = s.Handle(ctx, "", []string{"c2", cams.CmdGetMapping, "asset-2", "test-usage-2", "test-proto"})
	require.NoError(t, err)
	assert.Contains(t, reply[1], `"credential_id":"Test-mapping"`)

	reply, err = s.Handle(ctx, "", []string{"c3", cams.CmdUpdateStatusMapping, "asset-2", "test-usage-2", "test-proto", "Error"})
	require.NoError(t, err)
	assert.Equal(t, "c3", reply[0])

	reply, err = s.Handle(ctx, "", []string{"c4", cams.CmdGetMapping, "asset-2", "test-usage-2", "test-proto"})
	require.NoError(t, err)
	assert.Contains(t, reply[1], `"status":"Error"`)

	reply, err = s.Handle(ctx, "", []string{"c5", cams.CmdRemoveMapping, "asset-2", "test-usage-2", "test-proto"})
	require.NoError(t, err)
	assert.Equal(t, "c5", reply[0])

	reply, err = s.Handle(ctx, "", []string{"c6", cams.CmdRemoveMapping, "asset-2", "test-usage-2", "test-proto"})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.CAMSMappingDoesNotExist))
}

func TestCreateMappingTwiceOverWireFails(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()
	create := `{"asset_id":"a","service_id":"s","protocol":"p"}`

	_, err := s.Handle(ctx, "", []string{"c1", cams.CmdCreateMapping, create})
	require.NoError(t, err)

	reply, err := s.Handle(ctx, "", []string{"c2", cams.CmdCreateMapping, create})
	require.NoError(t, err)
	assert.Equal(t, "ERROR", reply[1])
}

func TestGetMappingsWithStatusFiltersToMatching(t *testing.T) {
	s, store := newServer(t)
	require.NoError(t, store.Create(&mapping.Mapping{AssetID: "a1", ServiceID: "s", Protocol: "p", Status: mapping.StatusError}))
	require.NoError(t, store.Create(&mapping.Mapping{AssetID: "a2", ServiceID: "s", Protocol: "p", Status: mapping.StatusValid}))

	reply, err := s.Handle(context.Background(), "", []string{"c1", cams.CmdGetMappingsWithStatus, "Error"})
	require.NoError(t, err)
	assert.Contains(t, reply[1], "a1")
	assert.NotContains(t, reply[1], "a2")
}

func TestCountCredMappings(t *testing.T) {
	s, store := newServer(t)
	require.NoError(t, store.Create(&mapping.Mapping{AssetID: "a1", ServiceID: "s", Protocol: "p1", CredentialID: "cred-1"}))
	require.NoError(t, store.Create(&mapping.Mapping{AssetID: "a1", ServiceID: "s", Protocol: "p2", CredentialID: "cred-1"}))

	reply, err := s.Handle(context.Background(), "", []string{"c1", cams.CmdCountCredMappings, "cred-1"})
	require.NoError(t, err)
	assert.Equal(t, "2", reply[1])
}

func TestIgnoredCommandsReturnEmptyFrame(t *testing.T) {
	s, _ := newServer(t)
	reply, err := s.Handle(context.Background(), "", []string{"c1", "OK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, reply)
}
