package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hupe1980/voicemesh/core"
)

// Interface compliance (compile-time assertions)
var _ core.MemoryStore = (*Store)(nil)

var scope = core.MemoryScope{UserID: "u1", Agent: "reading_partner"}

func TestQueryFilter(t *testing.T) {
	assert.Equal(t, bson.M{"user_id": "u1", "agent": "reading_partner"}, queryFilter(scope, nil))

	f := queryFilter(scope, []string{"harry", "a.b"})
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"content": primitive.Regex{Pattern: `a\.b`, Options: "i"}}, or[1])
}

func TestUpsertUpdate(t *testing.T) {
	now := time.Now().UTC()
	u := upsertUpdate(scope, core.MemoryRecord{ID: "x", Role: core.RoleUser, Content: "hi", CreatedAt: now, UpdatedAt: now})

	set, ok := u["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "hi", set["content"])
	assert.NotContains(t, set, "created_at")
	assert.Equal(t, bson.M{"created_at": now}, u["$setOnInsert"])

	u = upsertUpdate(scope, core.MemoryRecord{ID: "y", Content: "later", UpdatedAt: now, Seq: 4})
	set, ok = u["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, 4, set["seq"])
}

func TestSortNewestFirst(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "updated_at", Value: -1}, {Key: "seq", Value: -1}}, sortNewestFirst)
}

func TestDocument_ToRecord(t *testing.T) {
	now := time.Now().UTC()
	rec := document{ID: "x", Role: "assistant", Content: "hello", CreatedAt: now, UpdatedAt: now, Seq: 2}.toRecord()

	assert.Equal(t, core.RoleAssistant, rec.Role)
	assert.Equal(t, 2, rec.Seq)
	assert.Equal(t, "hello", rec.Content)
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(context.Background(), "", "db", "c")
	assert.Error(t, err)

	_, err = NewStore(context.Background(), "mongodb://localhost", "", "c")
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	uri := os.Getenv("VOICEMESH_MONGO_URI")
	if uri == "" {
		t.Skip("VOICEMESH_MONGO_URI not set")
	}

	ctx := context.Background()

	s, err := NewStore(ctx, uri, "voicemesh_test", "agent_memory")
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	require.NoError(t, s.CreateSchema(ctx))

	sc := core.MemoryScope{UserID: "test-" + core.NewID(), Agent: "reading_partner"}
	msgs := []core.Message{core.NewUserMessage("I love dragons"), core.NewAssistantMessage("Dragons are great")}

	require.NoError(t, s.Save(ctx, sc, msgs))
	require.NoError(t, s.Save(ctx, sc, msgs))

	recs, err := s.Query(ctx, sc, "dragons", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Dragons are great", recs[0].Content)
	assert.Equal(t, "I love dragons", recs[1].Content)

	_, err = s.collection.DeleteMany(ctx, bson.M{"user_id": sc.UserID})
	require.NoError(t, err)
}
