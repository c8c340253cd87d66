package sws_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/notify"
	"github.com/systmms/secwallet/internal/policyconfig"
	"github.com/systmms/secwallet/internal/portfolio"
	"github.com/systmms/secwallet/internal/secwerrors"
	"github.com/systmms/secwallet/internal/sws"
)

func errorCodeField(code secwerrors.Code) string {
	return fmt.Sprintf(`"errorCode":%d`, code)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) snapshot() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

const snmpv3Payload = `{
	"secw_doc_name": "Test insert snmpv3",
	"secw_doc_type": "Snmpv3",
	"secw_doc_usages": ["discovery_monitoring"],
	"secw_doc_public": {
		"security_level": "AuthPriv",
		"security_name": "n",
		"auth_protocol": "MD5",
		"priv_protocol": "AES"
	},
	"secw_doc_private": {"auth_password": "a", "priv_password": "p"}
}`

const policyConfigJSON = `[{
	"portfolio_name": "default",
	"usages": [{"usage_id": "discovery_monitoring", "supported_types": ["Snmpv3"]}],
	"consumers": [{"client_regex": "producer@.*", "usages": ["discovery_monitoring"]}],
	"producers": [{"client_regex": "producer@.*", "usages": ["discovery_monitoring"]}]
}]`

func newTestServer(t *testing.T, notifier *notify.Manager) *sws.Server {
	t.Helper()
	store := portfolio.NewStore(filepath.Join(t.TempDir(), "database.json"), nil)
	store.EnsurePortfolio("default")

	cfgs, err := policyconfig.ParseConfigs([]byte(policyConfigJSON))
	require.NoError(t, err)
	policies := map[string]*policyconfig.Config{cfgs[0].PortfolioName: cfgs[0]}
	return sws.New(store, policies, notifier, nil)
}

func TestCreateReadBackDeleteSnmpv3(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "producer@host", []string{"c1", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)
	require.Len(t, reply, 2)
	docID := reply[1]
	assert.NotEmpty(t, docID)

	reply, err = s.Handle(ctx, "producer@host", []string{"c2", sws.CmdGetWithSecret, "default", docID})
	require.NoError(t, err)
	assert.Contains(t, reply[1], `"auth_password":"a"`)

	reply, err = s.Handle(ctx, "producer@host", []string{"c3", sws.CmdDelete, "default", docID})
	require.NoError(t, err)
	assert.Equal(t, "c3", reply[0])

	reply, err = s.Handle(ctx, "producer@host", []string{"c4", sws.CmdGetWithSecret, "default", docID})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.SWSDocumentDoNotExist))
}

func TestCreateDuplicateNameFails(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, err := s.Handle(ctx, "producer@host", []string{"c1", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)

	reply, err := s.Handle(ctx, "producer@host", []string{"c2", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.SWSNameAlreadyExists))
}

func TestCreateByUnauthorizedSenderFails(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "stranger", []string{"c1", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.SWSIllegalAccess))
}

func TestUpdateSecretOnlyChangeNotifiesWithFlags(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := notify.NewManager(pub, notify.DefaultQueueSize)
	mgr.Start(context.Background())
	defer mgr.Stop()

	s := newTestServer(t, mgr)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "producer@host", []string{"c1", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)
	docID := reply[1]

	updated := `{
		"secw_doc_id": "` + docID + `",
		"secw_doc_name": "Test insert snmpv3",
		"secw_doc_type": "Snmpv3",
		"secw_doc_usages": ["discovery_monitoring"],
		"secw_doc_public": {
			"security_level": "AuthPriv",
			"security_name": "n",
			"auth_protocol": "MD5",
			"priv_protocol": "AES"
		},
		"secw_doc_private": {"auth_password": "changed", "priv_password": "p"}
	}`
	_, err = s.Handle(ctx, "producer@host", []string{"c2", sws.CmdUpdate, "default", updated})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(pub.snapshot()) == 2
	}, time.Second, time.Millisecond)

	events := pub.snapshot()
	updateEvent := events[1]
	assert.Equal(t, notify.ActionUpdated, updateEvent.Action)
	require.NotNil(t, updateEvent.NonSecretChanged)
	require.NotNil(t, updateEvent.SecretChanged)
	assert.False(t, *updateEvent.NonSecretChanged)
	assert.True(t, *updateEvent.SecretChanged)
}

func TestGetListWithoutSecretFiltersByUsage(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, err := s.Handle(ctx, "producer@host", []string{"c1", sws.CmdCreate, "default", snmpv3Payload})
	require.NoError(t, err)

	reply, err := s.Handle(ctx, "", []string{"c2", sws.CmdGetListWithoutSecret, "default", "discovery_monitoring"})
	require.NoError(t, err)
	assert.Contains(t, reply[1], "Test insert snmpv3")

	reply, err = s.Handle(ctx, "", []string{"c3", sws.CmdGetListWithoutSecret, "default", "unknown_usage"})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.SWSUnknownUsageID))
}

func TestGetListWithoutSecretFiltersByTag(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	taggedPayload := `{
		"secw_doc_name": "Tagged snmpv3",
		"secw_doc_type": "Snmpv3",
		"secw_doc_tags": ["prod"],
		"secw_doc_usages": ["discovery_monitoring"],
		"secw_doc_public": {
			"security_level": "AuthPriv",
			"security_name": "n",
			"auth_protocol": "MD5",
			"priv_protocol": "AES"
		},
		"secw_doc_private": {"auth_password": "a", "priv_password": "p"}
	}`
	_, err := s.Handle(ctx, "producer@host", []string{"c1", sws.CmdCreate, "default", taggedPayload})
	require.NoError(t, err)

	reply, err := s.Handle(ctx, "", []string{"c2", sws.CmdGetListWithoutSecret, "default", "", "prod"})
	require.NoError(t, err)
	assert.Contains(t, reply[1], "Tagged snmpv3")

	reply, err = s.Handle(ctx, "", []string{"c3", sws.CmdGetListWithoutSecret, "default", "", "unknown_tag"})
	require.NoError(t, err)
	require.Len(t, reply, 3)
	assert.Equal(t, "ERROR", reply[1])
	assert.Contains(t, reply[2], errorCodeField(secwerrors.SWSUnknownTag))
}

func TestIgnoredCommandsReturnEmptyFrame(t *testing.T) {
	s := newTestServer(t, nil)
	reply, err := s.Handle(context.Background(), "", []string{"c1", "OK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, reply)
}
