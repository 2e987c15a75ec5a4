package state

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/utils/templates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTemplates = []interface{}{
	netflow.TemplateRecord{
		TemplateId: 256,
		FieldCount: 2,
		Fields: []netflow.Field{
			{Type: 8, Length: 4},
			{Type: 225, Length: 4},
		},
	},
	netflow.NFv9OptionsTemplateRecord{
		TemplateId:   257,
		ScopeLength:  4,
		OptionLength: 4,
		Scopes:       []netflow.Field{{Type: 1, Length: 4}},
		Options:      []netflow.Field{{Type: 34, Length: 4}},
	},
	netflow.IPFIXOptionsTemplateRecord{
		TemplateId:      258,
		FieldCount:      2,
		ScopeFieldCount: 1,
		Scopes:          []netflow.Field{{Type: 149, Length: 4}},
		Options:         []netflow.Field{{PenProvided: true, Type: 12, Length: 2, Pen: 35632}},
	},
}

func TestTemplateStateMemory(t *testing.T) {
	ts, err := NewTemplateState("memory://")
	require.NoError(t, err)
	defer ts.Close()

	_, err = ts.Load("192.0.2.1:2055/7")
	assert.True(t, errors.Is(err, templates.ErrPersistedNotFound))

	require.NoError(t, ts.Save("192.0.2.1:2055/7", testTemplates))
	loaded, err := ts.Load("192.0.2.1:2055/7")
	require.NoError(t, err)
	assert.Equal(t, testTemplates, loaded)

	assert.Error(t, ts.Save("192.0.2.1:2055/7", []interface{}{42}))
}

func TestTemplateStateBadgerReopen(t *testing.T) {
	rawUrl := "badger://" + t.TempDir()

	ts, err := NewTemplateState(rawUrl)
	require.NoError(t, err)
	require.NoError(t, ts.Save("192.0.2.1:2055/7", testTemplates))
	require.NoError(t, ts.Close())

	ts, err = NewTemplateState(rawUrl)
	require.NoError(t, err)
	defer ts.Close()
	loaded, err := ts.Load("192.0.2.1:2055/7")
	require.NoError(t, err)
	assert.Equal(t, testTemplates, loaded)
}

func TestTemplateStateBadgerInMemory(t *testing.T) {
	ts, err := NewTemplateState("badger://")
	require.NoError(t, err)
	defer ts.Close()

	require.NoError(t, ts.Save("legacy", testTemplates[:1]))
	loaded, err := ts.Load("legacy")
	require.NoError(t, err)
	assert.Equal(t, testTemplates[:1], loaded)
}

func TestTemplateStateUnknownScheme(t *testing.T) {
	_, err := NewTemplateState("etcd://localhost")
	assert.Error(t, err)
}

func TestEngineMemory(t *testing.T) {
	engine, err := OpenEngine("memory://")
	require.NoError(t, err)

	_, err = engine.Get("192.0.2.1:2055/7")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	value := []byte("[]")
	require.NoError(t, engine.Set("192.0.2.1:2055/7", value))
	value[0] = 'x'
	loaded, err := engine.Get("192.0.2.1:2055/7")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), loaded)
}

func TestEngineBadgerPrefix(t *testing.T) {
	engine, err := OpenEngine("badger://?prefix=a:")
	require.NoError(t, err)
	defer engine.Close()
	require.NoError(t, engine.Set("s", []byte("1")))

	badger := engine.(*badgerEngine)
	assert.Equal(t, []byte("a:s"), badger.key("s"))
	loaded, err := badger.Get("s")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), loaded)
	_, err = badger.Get("other")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestEngineRedisOptions(t *testing.T) {
	engine, err := OpenEngine("redis://localhost:6379/2?prefix=relay:&ttl=1h")
	require.NoError(t, err)
	defer engine.Close()

	redis := engine.(*redisEngine)
	assert.Equal(t, "relay:", redis.prefix)
	assert.Equal(t, time.Hour, redis.ttl)
	assert.Equal(t, 2, redis.db.Options().DB)
	assert.Equal(t, "localhost:6379", redis.db.Options().Addr)

	redis, err = openRedis(&url.URL{Scheme: "redis", Host: "localhost:6379"}, DefaultPrefix)
	require.NoError(t, err)
	defer redis.Close()
	assert.Equal(t, DefaultPrefix, redis.prefix)
	assert.Zero(t, redis.ttl)

	_, err = OpenEngine("redis://localhost:6379/0?ttl=soon")
	assert.Error(t, err)
}
