package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"courtroom.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8081/", "ws url")
		name     = flag.String("name", "bot", "OOC name")
		charID   = flag.Int("char", 0, "character id to select")
		hdid     = flag.String("hdid", "bot-hdid", "hardware id sent in HI")
		say      = flag.String("say", "hello from bot", "OOC message sent once joined")
		keepEach = flag.Duration("keepalive", 45*time.Second, "keepalive interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(cmd string, args ...string) {
		if err := conn.WriteMessage(websocket.TextMessage, protocol.Encode(cmd, args...)); err != nil {
			logger.Fatalf("send %s: %v", cmd, err)
		}
	}
	send(protocol.CmdHello, *hdid)

	frames := make(chan string, 64)
	go func() {
		defer close(frames)
		dec := protocol.NewDecoder()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("read: %v", err)
				return
			}
			out, err := dec.Feed(msg)
			for _, f := range out {
				frames <- f
			}
			if err != nil {
				logger.Printf("decode: %v", err)
				return
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	keepalive := time.NewTicker(*keepEach)
	defer keepalive.Stop()

	joined := false
	for {
		select {
		case <-stop:
			return
		case <-keepalive.C:
			send(protocol.CmdKeepalive, strconv.Itoa(*charID))
		case f, ok := <-frames:
			if !ok {
				return
			}
			cmd, args := protocol.Split(f)
			logger.Printf("<- %s %v", cmd, args)
			switch cmd {
			case protocol.OutID:
				send(protocol.CmdIdentify, "courtroom-bot", "1.0.0")
			case protocol.OutFeatures:
				send(protocol.CmdAskCounts)
			case protocol.OutCounts:
				send(protocol.CmdReqDone)
			case protocol.OutDone:
				send(protocol.CmdCharSelect, "0", strconv.Itoa(*charID), *hdid)
			case protocol.OutCharPicked:
				if !joined {
					joined = true
					send(protocol.CmdOOC, *name, *say)
				}
			case protocol.OutKicked, protocol.OutBanned:
				return
			}
		}
	}
}
