package store

import (
	"testing"
	"time"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoObservation_DocumentShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := at.Add(time.Hour)
	doc := mongoObservation{
		Observation: ledger.Observation{
			ID:         "0b6f0c1e-8a4e-4f7e-9a55-3e0d3f9d7c11",
			Kind:       ledger.KindPayout,
			Game:       "1",
			Attributes: map[string]string{"amount": "200"},
			At:         at,
		},
		ExpiresAt: &exp,
	}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	r := bson.Raw(raw)
	assert.Equal(t, doc.ID, r.Lookup("_id").StringValue())
	assert.Equal(t, "Payout", r.Lookup("kind").StringValue())
	assert.Equal(t, "1", r.Lookup("game").StringValue())
	assert.Equal(t, "200", r.Lookup("attributes", "amount").StringValue())
	assert.Equal(t, exp.UnixMilli(), r.Lookup("expires_at").Time().UnixMilli())

	var back mongoObservation
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, doc.Observation.Attributes, back.Attributes)
	assert.Equal(t, doc.Kind, back.Kind)
}

func TestMongoObservation_NoRetentionOmitsExpiry(t *testing.T) {
	raw, err := bson.Marshal(mongoObservation{Observation: ledger.Observation{ID: "x", Kind: ledger.KindFee}})
	require.NoError(t, err)

	_, err = bson.Raw(raw).LookupErr("expires_at")
	assert.Error(t, err)
	_, err = bson.Raw(raw).LookupErr("game")
	assert.Error(t, err)
}
