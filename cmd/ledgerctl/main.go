package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	config "github.com/avvvet/arcade-ledger/configs"
	"github.com/avvvet/arcade-ledger/internal/comm"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/broker"
	natscli "github.com/avvvet/arcade-ledger/internal/nats"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "ledgerctl"

func init() {
	config.LoadEnv(SERVICE_NAME)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  ledgerctl [flags] <type> [json-data]   send one ledger command
  ledgerctl [flags] watch                print ledger observations

example:
  ledgerctl -caller 0xa1.. create-game '{"game_id":"1","fee":"100","token":"0xc3..","limit":2}'

`)
	flag.PrintDefaults()
}

func main() {
	caller := flag.String("caller", os.Getenv("LEDGER_CALLER"), "address the command runs as")
	subject := flag.String("subject", envOr("LEDGER_COMMAND_SUBJECT", "ledger.service"), "command subject")
	events := flag.String("events", envOr("LEDGER_EVENT_SUBJECT", "ledger.events"), "observation subject")
	timeout := flag.Duration("timeout", 10*time.Second, "response timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()

	if flag.Arg(0) == "watch" {
		watch(n.Conn, *events)
		return
	}

	msg := comm.Message{
		Type:      flag.Arg(0),
		Caller:    *caller,
		RequestId: uuid.New().String(),
		Data:      json.RawMessage("{}"),
	}
	if flag.NArg() > 1 {
		if !json.Valid([]byte(flag.Arg(1))) {
			log.Errorf("data for %s is not valid JSON", msg.Type)
			os.Exit(2)
		}
		msg.Data = json.RawMessage(flag.Arg(1))
	}

	res, err := broker.Request(n.Conn, *subject, msg, *timeout)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if res.Status != comm.StatusOf(nil) {
		os.Exit(1)
	}
}

func watch(nc *nats.Conn, subject string) {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		fmt.Println(string(m.Data))
	})
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", subject, err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
