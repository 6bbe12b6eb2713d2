// wsprobe is a manual test client for the chat relay: it mints a local
// identity token, opens a WebSocket, starts or attaches to a session
// and relays stdin lines as chat messages.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env file, using system environment: %v", err)
	}

	url := flag.String("url", "ws://localhost:8080/ws", "relay WebSocket URL")
	uid := flag.String("uid", "probe-user", "identity to mint a token for")
	secret := flag.String("secret", os.Getenv("AUTH_SECRET"), "signing secret, defaults to AUTH_SECRET")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	attach := flag.String("attach", "", "session id to replay instead of starting a chat")
	flag.Parse()

	if *secret == "" {
		*secret = "dev-secret-change-me"
		log.Print("[WARN] no secret provided, using the development default")
	}

	token := identity.NewHMACVerifier(*secret).Mint(*uid, *ttl)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("dial %s failed: %v", *url, err)
	}
	defer conn.Close()
	log.Printf("connected to %s as %s", *url, *uid)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("connection closed: %v", err)
				return
			}
			fmt.Printf("<< %s\n", raw)
		}
	}()

	opening := "start_chat:"
	if *attach != "" {
		opening = "sid:" + *attach
	}
	if err := send(conn, token, opening); err != nil {
		log.Fatalf("send failed: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := send(conn, token, line); err != nil {
			log.Fatalf("send failed: %v", err)
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func send(conn *websocket.Conn, token, message string) error {
	payload, err := json.Marshal(map[string]string{"token": token, "message": message})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
