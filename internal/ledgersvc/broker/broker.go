package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/arcade-ledger/internal/comm"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const commandTimeout = 30 * time.Second

type Broker struct {
	Conn          *nats.Conn
	LedgerService *service.LedgerService
	EventSubject  string
}

func NewBroker(nc *nats.Conn, ledgerService *service.LedgerService, eventSubject string) *Broker {
	return &Broker{
		Conn:          nc,
		LedgerService: ledgerService,
		EventSubject:  eventSubject,
	}
}

// handles a ledger command coming off the bus
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := b.Dispatch(ctx, msgNat.Data)
	if msgNat.Reply == "" {
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		log.Errorf("Error marshalling response for %s: %s", msgNat.Subject, err)
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error responding on %s: %s", msgNat.Reply, err)
	}
}

// Dispatch decodes one command envelope, runs it and builds the response.
func (b *Broker) Dispatch(ctx context.Context, raw []byte) comm.Res {
	msg := comm.Message{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return b.response("", nil, fmt.Errorf("%w: %v", comm.ErrInvalidRequest, err))
	}

	data, err := b.execute(ctx, msg)
	if err != nil {
		log.WithFields(log.Fields{
			"type":       msg.Type,
			"caller":     msg.Caller,
			"request_id": msg.RequestId,
		}).Warnf("command failed: %s", err)
	}
	return b.response(msg.RequestId, data, err)
}

func (b *Broker) response(requestId string, data interface{}, err error) comm.Res {
	message := ""
	if err != nil {
		message = err.Error()
		data = nil
	}
	res := comm.NewRes(comm.StatusOf(err), message, data)
	res.RequestId = requestId
	return res
}

func (b *Broker) execute(ctx context.Context, msg comm.Message) (interface{}, error) {
	s := b.LedgerService

	switch msg.Type {
	case "register", "leave-match", "close-game", "open-game", "delete-game":
		caller, req, err := decode[comm.GameRequest](msg)
		if err != nil {
			return nil, err
		}
		switch msg.Type {
		case "register":
			return nil, s.Register(ctx, caller, req)
		case "leave-match":
			return nil, s.LeaveMatch(ctx, caller, req)
		case "close-game":
			return nil, s.CloseGame(ctx, caller, req)
		case "open-game":
			return nil, s.OpenGame(ctx, caller, req)
		default:
			return nil, s.DeleteGame(ctx, caller, req)
		}
	case "create-game":
		caller, req, err := decode[comm.CreateGameRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.CreateGame(ctx, caller, req)
	case "place-player":
		caller, req, err := decode[comm.SeatRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.PlacePlayer(ctx, caller, req)
	case "remove-player":
		caller, req, err := decode[comm.SeatRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.RemovePlayer(ctx, caller, req)
	case "refund":
		caller, req, err := decode[comm.SeatRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.Refund(ctx, caller, req)
	case "set-winner":
		caller, req, err := decode[comm.WinnerRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.SetWinner(ctx, caller, req)
	case "add-arcade-token":
		caller, req, err := decode[comm.TokenRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.AddArcadeToken(ctx, caller, req)
	case "remove-arcade-token":
		caller, req, err := decode[comm.TokenRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.RemoveArcadeToken(ctx, caller, req)
	case "set-arcade-fee-percentage":
		caller, req, err := decode[comm.FeeRequest](msg)
		if err != nil {
			return nil, err
		}
		return nil, s.SetArcadeFeePercentage(ctx, caller, req)
	case "reconcile":
		caller, req, err := decode[comm.TokenRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.Reconcile(ctx, caller, req)

	// reads carry no caller
	case "arcade-token":
		req, err := decodeData[comm.TokenRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.ArcadeToken(req)
	case "is-accepted":
		req, err := decodeData[comm.TokenRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.IsAccepted(req)
	case "arcade-fee-percentage":
		return s.ArcadeFeePercentage(), nil
	case "game":
		req, err := decodeData[comm.GameRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.Game(req)
	case "player":
		req, err := decodeData[comm.SeatRequest](msg)
		if err != nil {
			return nil, err
		}
		return s.Player(req)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", comm.ErrInvalidRequest, msg.Type)
	}
}

func decode[T any](msg comm.Message) (common.Address, T, error) {
	var zero T
	caller, err := comm.ParseAddress("caller", msg.Caller)
	if err != nil {
		return common.Address{}, zero, err
	}
	req, err := decodeData[T](msg)
	if err != nil {
		return common.Address{}, zero, err
	}
	return caller, req, nil
}

func decodeData[T any](msg comm.Message) (T, error) {
	var req T
	if len(msg.Data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return req, fmt.Errorf("%w: %s data: %v", comm.ErrInvalidRequest, msg.Type, err)
	}
	return req, nil
}

// Record publishes a committed ledger observation on the event subject.
func (b *Broker) Record(_ context.Context, o ledger.Observation) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return b.Publish(b.EventSubject, payload)
}

// consume ledger commands (Queue)
func (b *Broker) QueueSubscribeCommands(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// Request sends one command on subject and waits for the ledger's response.
func Request(nc *nats.Conn, subject string, msg comm.Message, timeout time.Duration) (comm.Res, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return comm.Res{}, err
	}
	reply, err := nc.Request(subject, payload, timeout)
	if err != nil {
		return comm.Res{}, fmt.Errorf("request %s on %s: %w", msg.Type, subject, err)
	}
	res := comm.Res{}
	if err := json.Unmarshal(reply.Data, &res); err != nil {
		return comm.Res{}, fmt.Errorf("decode %s response: %w", msg.Type, err)
	}
	return res, nil
}
