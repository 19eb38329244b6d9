package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindGameCreated            Kind = "GameCreated"
	KindGameOpened             Kind = "GameOpened"
	KindGameClosed             Kind = "GameClosed"
	KindGameDeleted            Kind = "GameDeleted"
	KindPlayerPlaced           Kind = "PlayerPlaced"
	KindPlayerRemoved          Kind = "PlayerRemoved"
	KindPlayerLeft             Kind = "PlayerLeft"
	KindPlayerRegistered       Kind = "PlayerRegistered"
	KindRefund                 Kind = "Refund"
	KindFee                    Kind = "Fee"
	KindPayout                 Kind = "Payout"
	KindWinnerSet              Kind = "WinnerSet"
	KindArcadeTokenAdded       Kind = "ArcadeTokenAdded"
	KindArcadeTokenRemoved     Kind = "ArcadeTokenRemoved"
	KindArcadeFeePercentageSet Kind = "ArcadeFeePercentageSet"
	KindReconciled             Kind = "Reconciled"
)

// Observation is an audit record of a committed state change.
type Observation struct {
	ID         string            `json:"id" bson:"_id"`
	Kind       Kind              `json:"kind" bson:"kind"`
	Game       string            `json:"game,omitempty" bson:"game,omitempty"`
	Attributes map[string]string `json:"attributes" bson:"attributes"`
	At         time.Time         `json:"at" bson:"at"`
}

func observe(kind Kind, game *uint256.Int, attributes map[string]string) Observation {
	o := Observation{
		ID:         uuid.New().String(),
		Kind:       kind,
		Attributes: attributes,
		At:         time.Now().UTC(),
	}
	if game != nil {
		o.Game = game.Dec()
	}
	if o.Attributes == nil {
		o.Attributes = map[string]string{}
	}
	return o
}

// Recorder receives observations after the operation that produced them has
// committed.
type Recorder interface {
	Record(ctx context.Context, o Observation) error
}

type RecorderFunc func(ctx context.Context, o Observation) error

func (f RecorderFunc) Record(ctx context.Context, o Observation) error {
	return f(ctx, o)
}

// Recorders fans an observation out to every recorder in order.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, o Observation) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) emit(ctx context.Context, obs []Observation) {
	if l.recorder == nil {
		return
	}
	for _, o := range obs {
		if err := l.recorder.Record(ctx, o); err != nil {
			log.Errorf("unable to record observation %s %s: %v", o.Kind, o.ID, err)
		}
	}
}
